// Command sender delivers a finite sequence of ids to a receiver over UDP,
// subject to whatever loss, delay, and reordering an intermediary emulator
// introduces (spec.md §1).
package main

import (
	"context"
	"net"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"

	"lossynet/internal/logging"
	"lossynet/internal/sender"
	"lossynet/internal/stats"
)

const (
	version = "0.1.0"
	// defaultN is the sender's total id count (spec.md §6: 2<<10 = 2048).
	defaultN = 2 << 10
)

func main() {
	var (
		paced   bool
		verbose bool
		n       uint
	)
	pflag.BoolVar(&paced, "paced", false, "rate-limit transmission with a token bucket")
	pflag.BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	pflag.UintVar(&n, "n", defaultN, "total number of ids to deliver")
	pflag.Parse()

	logging.Banner("sender", version)

	level := "info"
	if verbose {
		level = "debug"
	}
	ctx := logging.WithBaseLogger(context.Background(), level)

	if err := run(ctx, pflag.Args(), paced, uint32(n)); err != nil {
		dlog.Errorf(ctx, "sender: fatal: %v", err)
		os.Exit(1)
	}
}

// run parses the positional arguments "bind_port dest_port" (spec.md §6)
// and drives the sender engine to completion.
func run(ctx context.Context, args []string, paced bool, n uint32) error {
	if len(args) != 2 {
		return errors.New("usage: sender <bind_port> <dest_port> [--paced] [--n=N]")
	}
	bindPort, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrap(err, "sender: parsing bind_port")
	}
	destPort, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.Wrap(err, "sender: parsing dest_port")
	}

	dest := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: destPort}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: bindPort})
	if err != nil {
		return errors.Wrap(err, "sender: binding socket")
	}
	defer conn.Close()

	dlog.Infof(ctx, "sender: bound on %s, sending to %s (n=%d paced=%v)", conn.LocalAddr(), dest, n, paced)

	cfg := sender.DefaultConfig(n, paced)
	sink := stats.NewLogSink(ctx)
	eng := sender.New(conn, dest, cfg, sink)

	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{EnableSignalHandling: true})
	grp.Go("sender", func(ctx context.Context) error {
		return eng.Run(ctx)
	})

	return grp.Wait()
}
