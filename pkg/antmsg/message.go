// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package antmsg

import "time"

// Request is a logical message prior to framing
type Request struct {
	ID      byte
	Payload []byte
}

// Message represents a decoded ANT message
type Message struct {
	sync      byte
	id        byte
	payload   []byte
	checksum  byte
	timestamp time.Time
}

// NewMessage creates a message from an id and payload. The payload is copied.
func NewMessage(id byte, payload []byte) *Message {
	p := make([]byte, len(payload))
	copy(p, payload)
	m := &Message{
		sync:      SyncTx,
		id:        id,
		payload:   p,
		timestamp: time.Now(),
	}
	m.checksum = m.expectedChecksum()
	return m
}

// Sync returns the sync byte the message was framed with
func (m *Message) Sync() byte {
	return m.sync
}

// ID returns the message id
func (m *Message) ID() byte {
	return m.id
}

// Length returns the payload length
func (m *Message) Length() int {
	return len(m.payload)
}

// Payload returns the message payload. Callers must not modify it.
func (m *Message) Payload() []byte {
	return m.payload
}

// Checksum returns the checksum byte received with the message
func (m *Message) Checksum() byte {
	return m.checksum
}

// ChecksumValid reports whether the received checksum matches the frame contents
func (m *Message) ChecksumValid() bool {
	return m.checksum == m.expectedChecksum()
}

// Timestamp returns the time the message was decoded or created
func (m *Message) Timestamp() time.Time {
	return m.timestamp
}

// Channel returns the channel number in the first payload byte, or 0 for
// messages without a payload
func (m *Message) Channel() byte {
	if len(m.payload) == 0 {
		return 0
	}
	return m.payload[0]
}

// PayloadByte returns the payload byte at index i and whether it exists
func (m *Message) PayloadByte(i int) (byte, bool) {
	if i < 0 || i >= len(m.payload) {
		return 0, false
	}
	return m.payload[i], true
}

// Request returns the message as an encode request
func (m *Message) Request() Request {
	return Request{ID: m.id, Payload: m.payload}
}

// Raw returns the wire bytes of the message, including its received checksum
func (m *Message) Raw() []byte {
	frame := make([]byte, 0, len(m.payload)+OverheadSize)
	frame = append(frame, m.sync, byte(len(m.payload)), m.id)
	frame = append(frame, m.payload...)
	return append(frame, m.checksum)
}

func (m *Message) expectedChecksum() byte {
	return m.sync ^ byte(len(m.payload)) ^ m.id ^ Checksum(m.payload)
}
