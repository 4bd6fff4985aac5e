package harness

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lossynet/internal/emulator"
	"lossynet/internal/hazard"
	"lossynet/internal/receiver"
	"lossynet/internal/sender"
	"lossynet/internal/wire"
)

// pipeline wires a sender, an emulator running hz, and a receiver together
// over a fresh in-memory Medium, driving them with sped-up ticks so the
// seed scenarios of spec.md §8 run in milliseconds of wall-clock time
// instead of real ones.
type pipeline struct {
	senderEng *sender.Engine
	emuEng    *emulator.Engine

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	delivered []wire.Data
}

func newPipeline(n uint32, paced bool, payloadSize int, hz hazard.Hazard) *pipeline {
	medium := NewMedium()

	senderAddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6000}
	emuRecvAddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6001}
	emuAckAddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6002}
	receiverAddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6003}

	senderCfg := sender.DefaultConfig(n, paced)
	// The tick stays longer than one emulator round trip (each emulator
	// loop spends ~3ms in reads and sleep), so an id whose data and ack
	// both get through is acked before the next burst, as with the 100ms
	// default.
	senderCfg.Tick = 20 * time.Millisecond
	senderCfg.AckTimeout = time.Millisecond
	if payloadSize >= 0 {
		senderCfg.PayloadSize = payloadSize
	}
	senderEng := sender.New(medium.NewConn(senderAddr), emuRecvAddr, senderCfg, nil)

	emuCfg := emulator.DefaultConfig()
	emuCfg.Tick = time.Millisecond
	emuCfg.ReadTimeout = time.Millisecond
	emuEng := emulator.New(medium.NewConn(emuRecvAddr), medium.NewConn(emuAckAddr), senderAddr, receiverAddr, hz, nil, emuCfg)

	p := &pipeline{senderEng: senderEng, emuEng: emuEng}
	recvEng := receiver.New(medium.NewConn(receiverAddr), emuAckAddr, nil, func(d wire.Data) {
		p.mu.Lock()
		p.delivered = append(p.delivered, d)
		p.mu.Unlock()
	})

	p.start(recvEng)
	return p
}

func (p *pipeline) start(recvEng *receiver.Engine) {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	go p.emuEng.Run(p.ctx)
	go recvEng.Run(p.ctx)
}

// run drives the sender to completion, gives the pipeline a short grace
// period to flush trailing acks/deliveries, then stops the emulator and
// receiver goroutines.
func (p *pipeline) run(t *testing.T, timeout time.Duration) []wire.Data {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- p.senderEng.Run(p.ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(timeout):
		t.Fatal("sender did not terminate within the test timeout")
	}

	time.Sleep(20 * time.Millisecond)
	p.cancel()
	time.Sleep(2 * time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]wire.Data, len(p.delivered))
	copy(out, p.delivered)
	return out
}

func assertSequentialDelivery(t *testing.T, delivered []wire.Data, n uint32) {
	t.Helper()
	require.Len(t, delivered, int(n), "receiver must deliver exactly N ids")
	for i, d := range delivered {
		assert.Equal(t, uint32(i), d.ID, "delivery order invariant: ids must be exactly 0..N-1 with no gaps or repeats")
	}
}

// Scenario 1 (spec.md §8): no hazard, N=10, payload 8 bytes, f(id) = id low
// byte repeated.
func TestScenarioNoHazard(t *testing.T) {
	hz, err := hazard.New("random-loss", hazard.Params{P: 0}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	p := newPipeline(10, false, 8, hz)
	delivered := p.run(t, 5*time.Second)

	assertSequentialDelivery(t, delivered, 10)
	for _, d := range delivered {
		want := byte(d.ID & 0xFF)
		require.Len(t, d.Payload, 8)
		for _, b := range d.Payload {
			assert.Equal(t, want, b)
		}
	}
	assert.Equal(t, uint64(10), p.senderEng.TotalSent())
	assert.Equal(t, uint64(10), p.senderEng.UniqueSent())
}

// Scenario 2 (spec.md §8): independent-loss p=0.5, N=100.
func TestScenarioIndependentLoss(t *testing.T) {
	hz, err := hazard.New("random-loss", hazard.Params{P: 0.5}, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	p := newPipeline(100, false, -1, hz)
	delivered := p.run(t, 20*time.Second)

	assertSequentialDelivery(t, delivered, 100)
	assert.Equal(t, uint64(100), p.senderEng.UniqueSent())
	assert.GreaterOrEqual(t, p.senderEng.TotalSent(), uint64(100))
}

// Scenario 4 (spec.md §8): shallow-buffer capacity=5 drain=60 pkt/s, sender
// paced at the default 75 pkt/s burst=5 — expect no drops and
// total_sent == unique_sent == N.
func TestScenarioShallowBufferPacedNoDrops(t *testing.T) {
	hz, err := hazard.New("shallow-buffer", hazard.Params{Capacity: 5, DrainRate: 60}, rand.New(rand.NewSource(4)))
	require.NoError(t, err)

	p := newPipeline(200, true, -1, hz)
	delivered := p.run(t, 30*time.Second)

	assertSequentialDelivery(t, delivered, 200)
	assert.Equal(t, uint64(0), p.emuEng.Dropped())
	assert.Equal(t, p.senderEng.UniqueSent(), p.senderEng.TotalSent())
	assert.Equal(t, uint64(200), p.senderEng.TotalSent())
}

// Scenario 5 (spec.md §8): same shallow-buffer, sender unpaced (burst=W=10)
// — expect drops>0 but delivery order still holds and total_sent >
// unique_sent.
func TestScenarioShallowBufferUnpacedWithDrops(t *testing.T) {
	hz, err := hazard.New("shallow-buffer", hazard.Params{Capacity: 5, DrainRate: 60}, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	p := newPipeline(200, false, -1, hz)
	delivered := p.run(t, 30*time.Second)

	assertSequentialDelivery(t, delivered, 200)
	assert.Greater(t, p.emuEng.Dropped(), uint64(0))
	assert.Greater(t, p.senderEng.TotalSent(), p.senderEng.UniqueSent())
}

// Scenario 6 (spec.md §8): burst-loss p_mark=0.2 p_start=0.1, N=500 —
// expect some ids see multiple retransmissions while the delivery order
// invariant still holds.
func TestScenarioBurstLoss(t *testing.T) {
	hz, err := hazard.New("burst-loss", hazard.Params{PMark: 0.2, PStart: 0.1}, rand.New(rand.NewSource(6)))
	require.NoError(t, err)

	p := newPipeline(500, false, -1, hz)
	delivered := p.run(t, 60*time.Second)

	assertSequentialDelivery(t, delivered, 500)
	assert.Greater(t, p.senderEng.TotalSent(), p.senderEng.UniqueSent())
}
