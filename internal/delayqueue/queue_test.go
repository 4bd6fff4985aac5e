package delayqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lossynet/internal/wire"
)

func TestReleaseOrderAscending(t *testing.T) {
	q := New()
	q.Push(&Entry{ReleaseAtMS: 300, Packet: wire.Ack{ID: 1}})
	q.Push(&Entry{ReleaseAtMS: 100, Packet: wire.Ack{ID: 2}})
	q.Push(&Entry{ReleaseAtMS: 200, Packet: wire.Ack{ID: 3}})

	var order []int64
	for q.Len() > 0 {
		order = append(order, q.Pop().ReleaseAtMS)
	}
	assert.Equal(t, []int64{100, 200, 300}, order)
}

func TestTiedReleaseTimeBreaksOnID(t *testing.T) {
	q := New()
	q.Push(&Entry{ReleaseAtMS: 100, Packet: wire.Ack{ID: 5}})
	q.Push(&Entry{ReleaseAtMS: 100, Packet: wire.Ack{ID: 1}})
	q.Push(&Entry{ReleaseAtMS: 100, Packet: wire.Ack{ID: 3}})

	var ids []uint32
	for q.Len() > 0 {
		ids = append(ids, q.Pop().Packet.PacketID())
	}
	assert.Equal(t, []uint32{1, 3, 5}, ids)
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := New()
	q.Push(&Entry{ReleaseAtMS: 10, Packet: wire.Ack{ID: 1}})
	e, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(10), e.ReleaseAtMS)
	assert.Equal(t, 1, q.Len())
}

func TestPeekEmptyQueue(t *testing.T) {
	q := New()
	_, ok := q.Peek()
	assert.False(t, ok)
}
