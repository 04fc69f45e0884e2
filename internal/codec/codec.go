// Package codec implements the wire framing described in spec.md §4.1: a
// total mapping from every domain/framework message variant to the
// transport-channel guarantee it requires, plus the two physical encodings
// the system uses — length-prefixed binary for networked transports and
// newline-delimited JSON for parent↔child stdio (see internal/supervisor).
//
// The teacher's network.Protocol hand-rolls a fixed byte layout per message
// type; this package generalizes that idea into a generic envelope so any
// domain-defined Go type can ride the same framing, at the cost of using
// encoding/gob for the payload instead of a bespoke byte layout per variant.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/arenahost/backend/internal/ids"
)

// ChannelKind is the delivery guarantee a message variant requires.
type ChannelKind uint8

const (
	Unreliable ChannelKind = iota
	Unordered
	Ordered
)

func (k ChannelKind) String() string {
	switch k {
	case Unreliable:
		return "unreliable"
	case Unordered:
		return "unordered"
	case Ordered:
		return "ordered"
	default:
		return fmt.Sprintf("channel_kind(%d)", uint8(k))
	}
}

// Tagged is implemented by every domain or framework request/message type.
// It is the total function from spec.md §4.1: given a value, what channel
// kind must transport it.
type Tagged interface {
	ChannelKind() ChannelKind
}

// Layer distinguishes a framework-internal message from a domain message,
// the outer tag of the two-level framed-message union in spec.md §3.
type Layer uint8

const (
	LayerFramework Layer = iota
	LayerCore
)

// Envelope is the decoded form of a frame. Tick is only meaningful for
// server→client messages; it is the tick at which the message was produced.
type Envelope struct {
	Layer   Layer
	Tick    ids.Tick
	Payload []byte // gob-encoded domain/framework value
}

// header is the fixed part of an envelope, encoded ahead of the gob payload
// so a receiver can read Layer/Tick without decoding the payload type.
type header struct {
	Layer Layer
	Tick  ids.Tick
}

// payloadWrapper carries the Tagged value as an interface-typed struct
// field, the pattern encoding/gob documents for round-tripping interface
// values (gob cannot encode a bare interface value directly).
type payloadWrapper struct {
	Msg Tagged
}

// Encode produces a length-prefixed frame for msg, tagging it with layer
// and tick, and returns the channel kind the caller must send it on.
func Encode(layer Layer, tick ids.Tick, msg Tagged) ([]byte, ChannelKind, error) {
	var payloadBuf bytes.Buffer
	if err := gob.NewEncoder(&payloadBuf).Encode(payloadWrapper{Msg: msg}); err != nil {
		return nil, 0, fmt.Errorf("codec: encode payload: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(header{Layer: layer, Tick: tick}); err != nil {
		return nil, 0, fmt.Errorf("codec: encode header: %w", err)
	}
	headerBytes := buf.Bytes()

	frame := make([]byte, 4+4+len(headerBytes)+payloadBuf.Len())
	binary.LittleEndian.PutUint32(frame[0:4], uint32(len(headerBytes)))
	copy(frame[4:4+len(headerBytes)], headerBytes)
	binary.LittleEndian.PutUint32(frame[4+len(headerBytes):8+len(headerBytes)], uint32(payloadBuf.Len()))
	copy(frame[8+len(headerBytes):], payloadBuf.Bytes())

	return frame, msg.ChannelKind(), nil
}

// Decode parses a frame produced by Encode, decoding the payload into a
// registered concrete type (see gob.Register) stored behind a Tagged
// interface value.
func Decode(frame []byte) (Envelope, Tagged, error) {
	if len(frame) < 4 {
		return Envelope{}, nil, fmt.Errorf("codec: frame too short")
	}
	headerLen := binary.LittleEndian.Uint32(frame[0:4])
	if uint32(len(frame)) < 4+headerLen+4 {
		return Envelope{}, nil, fmt.Errorf("codec: truncated header")
	}
	var h header
	if err := gob.NewDecoder(bytes.NewReader(frame[4 : 4+headerLen])).Decode(&h); err != nil {
		return Envelope{}, nil, fmt.Errorf("codec: decode header: %w", err)
	}

	payloadLenOff := 4 + headerLen
	payloadLen := binary.LittleEndian.Uint32(frame[payloadLenOff : payloadLenOff+4])
	payloadOff := payloadLenOff + 4
	if uint32(len(frame)) < payloadOff+payloadLen {
		return Envelope{}, nil, fmt.Errorf("codec: truncated payload")
	}
	payload := frame[payloadOff : payloadOff+payloadLen]

	var wrapper payloadWrapper
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&wrapper); err != nil {
		return Envelope{}, nil, fmt.Errorf("codec: decode payload: %w", err)
	}

	return Envelope{Layer: h.Layer, Tick: h.Tick, Payload: payload}, wrapper.Msg, nil
}

// ValidateChannel reports whether msg was received on the channel kind its
// own ChannelKind() declares. A mismatch means the packet must be dropped
// with a trace log (spec.md §3, §7 error kind 1) — it is never fatal.
func ValidateChannel(msg Tagged, receivedOn ChannelKind) bool {
	return msg.ChannelKind() == receivedOn
}

// Register must be called once per concrete Tagged type used in any
// Envelope, mirroring encoding/gob's requirement for interface values.
func Register(value Tagged) {
	gob.Register(value)
}
