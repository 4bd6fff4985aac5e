// Command receiver accepts datagrams forwarded by an emulator and delivers
// them in order, once each, printing one line per delivery (id and payload
// length, not the payload bytes) to standard output (spec.md §1).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"

	"lossynet/internal/logging"
	"lossynet/internal/receiver"
	"lossynet/internal/stats"
	"lossynet/internal/wire"
)

const version = "0.1.0"

func main() {
	var verbose bool
	pflag.BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	pflag.Parse()

	logging.Banner("receiver", version)

	level := "info"
	if verbose {
		level = "debug"
	}
	ctx := logging.WithBaseLogger(context.Background(), level)

	if err := run(ctx, pflag.Args()); err != nil {
		dlog.Errorf(ctx, "receiver: fatal: %v", err)
		os.Exit(1)
	}
}

// run parses the positional arguments "bind_port ack_dest_port" (spec.md
// §6) and drives the receiver engine until cancelled.
func run(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: receiver <bind_port> <ack_dest_port>")
	}
	bindPort, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrap(err, "receiver: parsing bind_port")
	}
	ackPort, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.Wrap(err, "receiver: parsing ack_dest_port")
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: bindPort})
	if err != nil {
		return errors.Wrap(err, "receiver: binding socket")
	}
	defer conn.Close()

	ackDest := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: ackPort}
	dlog.Infof(ctx, "receiver: bound on %s, acking to %s", conn.LocalAddr(), ackDest)

	sink := stats.NewLogSink(ctx)
	eng := receiver.New(conn, ackDest, sink, func(d wire.Data) {
		fmt.Fprintf(os.Stdout, "delivered id=%d bytes=%d\n", d.ID, len(d.Payload))
	})

	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{EnableSignalHandling: true})
	grp.Go("receiver", func(ctx context.Context) error {
		return eng.Run(ctx)
	})

	return grp.Wait()
}
