// Package wire implements the fixed-layout datagram codec shared by the
// sender, receiver, and emulator.
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MaxPayload is the largest byte_count a Data packet may carry.
const MaxPayload = 2048

// headerSize is 1 byte type + 3 bytes reserved + 4 byte id, all big-endian.
const headerSize = 8

// lengthFieldSize is the width of the byte_count field that follows the
// header on a Data packet. The spec leaves its endianness an open question;
// this implementation picks big-endian and applies it everywhere (SPEC_FULL
// §9).
const lengthFieldSize = 8

const (
	typeData byte = 0
	typeAck  byte = 1
)

// Packet is the sealed sum type decode produces: either a Data or an Ack.
// Kind and ID are common to both; Payload is the differentiator accessed
// via type switch / assertion on the concrete type.
type Packet interface {
	Kind() byte
	PacketID() uint32

	isPacket()
}

// Data is the Data variant of Packet: an application payload tagged with a
// monotonic id.
type Data struct {
	ID      uint32
	Payload []byte
}

func (d Data) Kind() byte       { return typeData }
func (d Data) PacketID() uint32 { return d.ID }
func (d Data) isPacket()        {}

// Ack is the Ack variant of Packet: acknowledges receipt of the Data with
// the matching id. It carries no payload.
type Ack struct {
	ID uint32
}

func (a Ack) Kind() byte       { return typeAck }
func (a Ack) PacketID() uint32 { return a.ID }
func (a Ack) isPacket()        {}

// EncodeData serialises a Data packet to its wire representation:
// header(8) + byte_count(8) + payload.
func EncodeData(d Data) []byte {
	buf := make([]byte, headerSize+lengthFieldSize+len(d.Payload))
	buf[0] = typeData
	binary.BigEndian.PutUint32(buf[4:8], d.ID)
	binary.BigEndian.PutUint64(buf[8:16], uint64(len(d.Payload)))
	copy(buf[16:], d.Payload)
	return buf
}

// EncodeAck serialises an Ack packet to its wire representation: header(8)
// only.
func EncodeAck(a Ack) []byte {
	buf := make([]byte, headerSize)
	buf[0] = typeAck
	binary.BigEndian.PutUint32(buf[4:8], a.ID)
	return buf
}

// DecodeData reads a Data packet from bytes previously produced by
// EncodeData. It rejects datagrams shorter than the minimum Data size and
// any byte_count exceeding MaxPayload.
func DecodeData(b []byte) (Data, error) {
	if len(b) < headerSize+lengthFieldSize {
		return Data{}, errors.New("wire: datagram shorter than data header")
	}
	if b[0] != typeData {
		return Data{}, errors.Errorf("wire: not a data packet (type=0x%02x)", b[0])
	}
	id := binary.BigEndian.Uint32(b[4:8])
	byteCount := binary.BigEndian.Uint64(b[8:16])
	if byteCount > MaxPayload {
		return Data{}, errors.Errorf("wire: byte_count %d exceeds MaxPayload", byteCount)
	}
	if uint64(len(b)-headerSize-lengthFieldSize) < byteCount {
		return Data{}, errors.New("wire: datagram truncated before byte_count bytes")
	}
	payload := make([]byte, byteCount)
	copy(payload, b[16:16+byteCount])
	return Data{ID: id, Payload: payload}, nil
}

// DecodeAck reads an Ack packet from bytes previously produced by EncodeAck.
func DecodeAck(b []byte) (Ack, error) {
	if len(b) < headerSize {
		return Ack{}, errors.New("wire: datagram shorter than ack header")
	}
	if b[0] != typeAck {
		return Ack{}, errors.Errorf("wire: not an ack packet (type=0x%02x)", b[0])
	}
	return Ack{ID: binary.BigEndian.Uint32(b[4:8])}, nil
}

// Decode dispatches on the common header's type byte and returns the
// appropriate sealed variant. Callers that only expect one variant should
// type-assert the result rather than calling DecodeData/DecodeAck directly
// when the sender is unknown.
func Decode(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return nil, errors.New("wire: datagram shorter than minimum header")
	}
	switch b[0] {
	case typeData:
		d, err := DecodeData(b)
		if err != nil {
			return nil, err
		}
		return d, nil
	case typeAck:
		a, err := DecodeAck(b)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, errors.Errorf("wire: unknown packet type 0x%02x", b[0])
	}
}
