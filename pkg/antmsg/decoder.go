// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package antmsg

import (
	"fmt"
	"time"
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateLength
	stateID
	statePayload
	stateChecksum
)

// Decoder implements a byte-at-a-time ANT frame decoder for raw transport
// streams. Bytes received outside a frame are skipped until the next sync byte.
type Decoder struct {
	// Strict rejects frames whose checksum does not match. Off by default:
	// hosts are answered even when they send a bad checksum.
	Strict bool

	state   int
	sync    byte
	length  int
	id      byte
	payload []byte
	skipped int
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:   stateIdle,
		payload: make([]byte, 0, MaxPayloadSize),
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.length = 0
	d.id = 0
	d.payload = d.payload[:0]
}

// Skipped returns the number of bytes discarded while searching for a sync
// byte since the last completed frame
func (d *Decoder) Skipped() int {
	return d.skipped
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed message, or nil if the frame is incomplete.
// Returns an error if the frame is malformed; the decoder then resynchronises
// on the next sync byte.
func (d *Decoder) DecodeByte(b byte) (*Message, error) {
	switch d.state {
	case stateIdle:
		if b == SyncTx || b == SyncRx {
			d.sync = b
			d.state = stateLength
			return nil, nil
		}
		d.skipped++
		return nil, nil

	case stateLength:
		if b > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("invalid length: %d (max %d): %w", b, MaxPayloadSize, ErrMalformedFrame)
		}
		d.length = int(b)
		d.state = stateID
		return nil, nil

	case stateID:
		d.id = b
		if d.length == 0 {
			d.state = stateChecksum
		} else {
			d.state = statePayload
		}
		return nil, nil

	case statePayload:
		d.payload = append(d.payload, b)
		if len(d.payload) >= d.length {
			d.state = stateChecksum
		}
		return nil, nil

	case stateChecksum:
		payload := make([]byte, len(d.payload))
		copy(payload, d.payload)
		msg := &Message{
			sync:      d.sync,
			id:        d.id,
			payload:   payload,
			checksum:  b,
			timestamp: time.Now(),
		}
		d.Reset()
		d.skipped = 0

		if d.Strict && !msg.ChecksumValid() {
			return nil, fmt.Errorf("message 0x%02X: expected 0x%02X, got 0x%02X: %w",
				msg.id, msg.expectedChecksum(), msg.checksum, ErrChecksumMismatch)
		}
		return msg, nil

	default:
		state := d.state
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", state)
	}
}

// Decode feeds a buffer through the decoder and returns every completed
// message. Decode errors are collected and returned alongside the messages
// so a single bad frame does not hide the rest of the buffer.
func (d *Decoder) Decode(data []byte) ([]*Message, []error) {
	var msgs []*Message
	var errs []error
	for _, b := range data {
		msg, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if msg != nil {
			msgs = append(msgs, msg)
		}
	}
	return msgs, errs
}
