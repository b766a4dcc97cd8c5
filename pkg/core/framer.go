package core

import (
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// MaxCharacteristicLength is the physical size of the GATT characteristic
// value (spec §4.2); MaxSendSize must never exceed it.
const MaxCharacteristicLength = 208

// DefaultMaxSendSize is the default outbound chunk size.
const DefaultMaxSendSize = 128

// ChunkSink receives outbound chunks, one at a time, in order. In the real
// service this sets the outgoing characteristic's value and flushes a
// notification; in tests it can simply record the bytes.
type ChunkSink func(chunk []byte)

// MessageSink receives a fully reassembled inbound message.
type MessageSink func(message []byte)

// Framer chunks outbound payloads for fixed-MTU GATT writes and
// reassembles length-prefixed inbound messages (spec §4.2).
type Framer struct {
	maxSendSize int

	sendBuf []byte
	sendPos int

	assembly      []byte
	remainingRead uint32
}

// NewFramer constructs a Framer with the given maximum chunk payload size.
// It refuses construction if maxSendSize exceeds the physical
// characteristic length.
func NewFramer(maxSendSize int) (*Framer, error) {
	if maxSendSize <= 0 {
		maxSendSize = DefaultMaxSendSize
	}
	if maxSendSize > MaxCharacteristicLength {
		return nil, fmt.Errorf("max send size %d exceeds characteristic length %d", maxSendSize, MaxCharacteristicLength)
	}
	return &Framer{maxSendSize: maxSendSize}, nil
}

// Enqueue appends a 4-byte big-endian length header and payload to the
// outbound buffer, then emits it in chunks of at most maxSendSize bytes
// via sink, one chunk per call.
func (f *Framer) Enqueue(payload []byte, sink ChunkSink) {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))

	f.sendBuf = append(f.sendBuf, header...)
	f.sendBuf = append(f.sendBuf, payload...)

	for len(f.sendBuf) > 0 {
		remaining := len(f.sendBuf) - f.sendPos
		if remaining <= 0 {
			break
		}

		chunkSize := remaining
		if chunkSize > f.maxSendSize {
			chunkSize = f.maxSendSize
		}

		chunk := f.sendBuf[f.sendPos : f.sendPos+chunkSize]
		sink(chunk)

		f.sendPos += chunkSize
		if f.sendPos >= len(f.sendBuf) {
			f.sendBuf = f.sendBuf[:0]
			f.sendPos = 0
			break
		}
	}
}

// Accept processes one inbound raw chunk (marker byte + payload, or
// marker + 4-byte length + payload for the first chunk of a message) and
// delivers the assembled message to deliver once remaining_write reaches
// zero. The marker byte (position 0) is reserved and ignored.
func (f *Framer) Accept(raw []byte, deliver MessageSink) error {
	l := len(raw)
	if l == 0 {
		return fmt.Errorf("%w: empty chunk", ErrShortHeader)
	}

	if f.remainingRead == 0 {
		if l <= 5 {
			return fmt.Errorf("%w: first chunk length %d", ErrShortHeader, l)
		}

		total := binary.BigEndian.Uint32(raw[1:5])
		f.assembly = f.assembly[:0]
		f.remainingRead = total

		payload := raw[5:]
		if uint32(len(payload)) > f.remainingRead {
			log.Warnf("framer: first-chunk payload %d exceeds declared length %d", len(payload), f.remainingRead)
			return fmt.Errorf("%w: declared %d, first chunk carries %d", ErrOverflowChunk, f.remainingRead, len(payload))
		}

		f.assembly = append(f.assembly, payload...)
		f.remainingRead -= uint32(len(payload))
	} else {
		payload := raw[1:]
		if uint32(len(payload)) > f.remainingRead {
			log.Warnf("framer: overflow chunk, %d bytes against %d remaining", len(payload), f.remainingRead)
			return fmt.Errorf("%w: declared remaining %d, chunk carries %d", ErrOverflowChunk, f.remainingRead, len(payload))
		}

		f.assembly = append(f.assembly, payload...)
		f.remainingRead -= uint32(len(payload))
	}

	if f.remainingRead == 0 {
		message := make([]byte, len(f.assembly))
		copy(message, f.assembly)
		f.assembly = f.assembly[:0]
		deliver(message)
	}

	return nil
}

// RemainingRead reports how many inbound bytes are still expected before
// the current message is complete; zero means no message is in progress.
func (f *Framer) RemainingRead() uint32 {
	return f.remainingRead
}

// ResetRead discards any in-progress inbound reassembly state.
func (f *Framer) ResetRead() {
	f.assembly = f.assembly[:0]
	f.remainingRead = 0
}
