// Command emulator sits between a sender and a receiver, forwarding Data
// forward and Acks backward while subjecting both directions to one
// selectable hazard (spec.md §1, §4.6).
package main

import (
	"context"
	"math/rand"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"

	"lossynet/internal/emulator"
	"lossynet/internal/hazard"
	"lossynet/internal/logging"
	"lossynet/internal/stats"
)

const version = "0.1.0"

func main() {
	var (
		verbose bool
		p       float64
		pMark   float64
		pStart  float64
		bufCap  int
		drain   float64
		mean    float64
		std     float64
		seed    int64
	)
	pflag.BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	pflag.Float64Var(&p, "p", 0.1, "independent-loss drop probability")
	pflag.Float64Var(&pMark, "p-mark", 0.2, "burst-loss mark probability")
	pflag.Float64Var(&pStart, "p-start", 0.1, "burst-loss burst-entry probability")
	pflag.IntVar(&bufCap, "capacity", 5, "shallow-buffer capacity")
	pflag.Float64Var(&drain, "drain-rate", 60, "shallow-buffer drain rate, packets/sec")
	pflag.Float64Var(&mean, "mean-ms", 100, "random-jitter mean delay, ms")
	pflag.Float64Var(&std, "std-ms", 80, "random-jitter standard deviation, ms")
	pflag.Int64Var(&seed, "seed", time.Now().UnixNano(), "hazard RNG seed")
	pflag.Parse()

	logging.Banner("emulator", version)

	level := "info"
	if verbose {
		level = "debug"
	}
	ctx := logging.WithBaseLogger(context.Background(), level)

	params := hazard.Params{
		P: p, PMark: pMark, PStart: pStart,
		Capacity: bufCap, DrainRate: drain,
		MeanMS: mean, StdMS: std,
	}
	if err := run(ctx, pflag.Args(), params, seed); err != nil {
		dlog.Errorf(ctx, "emulator: fatal: %v", err)
		os.Exit(1)
	}
}

// run parses the positional arguments "recv_bind ack_bind receiver_port
// sender_port hazard_name" (spec.md §6) and drives the emulator engine
// until cancelled.
func run(ctx context.Context, args []string, params hazard.Params, seed int64) error {
	if len(args) != 5 {
		return errors.New("usage: emulator <recv_bind> <ack_bind> <receiver_port> <sender_port> <hazard_name>")
	}
	recvBindPort, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrap(err, "emulator: parsing recv_bind")
	}
	ackBindPort, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.Wrap(err, "emulator: parsing ack_bind")
	}
	receiverPort, err := strconv.Atoi(args[2])
	if err != nil {
		return errors.Wrap(err, "emulator: parsing receiver_port")
	}
	senderPort, err := strconv.Atoi(args[3])
	if err != nil {
		return errors.Wrap(err, "emulator: parsing sender_port")
	}
	hazardName := args[4]

	hz, err := hazard.New(hazardName, params, rand.New(rand.NewSource(seed)))
	if err != nil {
		return errors.Wrap(err, "emulator: constructing hazard")
	}

	loopback := net.IPv4(127, 0, 0, 1)
	recvConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: loopback, Port: recvBindPort})
	if err != nil {
		return errors.Wrap(err, "emulator: binding recv_bind")
	}
	defer recvConn.Close()

	ackConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: loopback, Port: ackBindPort})
	if err != nil {
		return errors.Wrap(err, "emulator: binding ack_bind")
	}
	defer ackConn.Close()

	senderAddr := &net.UDPAddr{IP: loopback, Port: senderPort}
	recvAddr := &net.UDPAddr{IP: loopback, Port: receiverPort}

	dlog.Infof(ctx, "emulator: recv_bind=%s ack_bind=%s -> receiver=%s sender=%s hazard=%s",
		recvConn.LocalAddr(), ackConn.LocalAddr(), recvAddr, senderAddr, hazardName)

	sink := stats.NewLogSink(ctx)
	eng := emulator.New(recvConn, ackConn, senderAddr, recvAddr, hz, sink, emulator.DefaultConfig())

	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{EnableSignalHandling: true})
	grp.Go("emulator", func(ctx context.Context) error {
		return eng.Run(ctx)
	})

	return grp.Wait()
}
