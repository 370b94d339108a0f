// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package antmsg

import (
	"fmt"
	"time"
)

// Encode creates a complete wire-formatted ANT frame.
// Each call returns a freshly allocated slice, so Encode is safe for
// concurrent use.
func Encode(id byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("encode 0x%02X: %d bytes (max %d): %w", id, len(payload), MaxPayloadSize, ErrPayloadTooLarge)
	}

	frame := make([]byte, len(payload)+OverheadSize)
	frame[PosSync] = SyncTx
	frame[PosLength] = byte(len(payload))
	frame[PosID] = id
	copy(frame[PosPayload:], payload)
	frame[len(frame)-1] = Checksum(frame[:len(frame)-1])

	return frame, nil
}

// EncodeRequest encodes a Request to wire format
func EncodeRequest(r Request) ([]byte, error) {
	return Encode(r.ID, r.Payload)
}

// MustEncode encodes a frame and panics on error.
// Only use for payloads whose size is known at compile time.
func MustEncode(id byte, payload []byte) []byte {
	frame, err := Encode(id, payload)
	if err != nil {
		panic(fmt.Sprintf("antmsg: %v", err))
	}
	return frame
}

// Parse decodes a single delimited frame. It is the inverse of Encode.
// Bytes after the declared frame end are ignored. The checksum is recorded
// but not enforced; use Message.ChecksumValid to check it.
func Parse(frame []byte) (*Message, error) {
	if len(frame) < OverheadSize {
		return nil, fmt.Errorf("frame too short: %d bytes (min %d): %w", len(frame), OverheadSize, ErrMalformedFrame)
	}

	sync := frame[PosSync]
	if sync != SyncTx && sync != SyncRx {
		return nil, fmt.Errorf("invalid sync byte 0x%02X: %w", sync, ErrMalformedFrame)
	}

	length := int(frame[PosLength])
	if length > MaxPayloadSize {
		return nil, fmt.Errorf("invalid length %d (max %d): %w", length, MaxPayloadSize, ErrMalformedFrame)
	}
	if len(frame) < length+OverheadSize {
		return nil, fmt.Errorf("declared length %d exceeds buffer of %d bytes: %w", length, len(frame), ErrMalformedFrame)
	}

	payload := make([]byte, length)
	copy(payload, frame[PosPayload:PosPayload+length])

	return &Message{
		sync:      sync,
		id:        frame[PosID],
		payload:   payload,
		checksum:  frame[PosPayload+length],
		timestamp: time.Now(),
	}, nil
}
