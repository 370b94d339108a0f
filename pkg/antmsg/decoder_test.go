// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package antmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeAll feeds data byte by byte and fails the test on any decode error
func decodeAll(t *testing.T, d *Decoder, data []byte) []*Message {
	t.Helper()
	msgs, errs := d.Decode(data)
	require.Empty(t, errs)
	return msgs
}

func TestDecoder_SingleFrame(t *testing.T) {
	frame := MustEncode(MsgAssignChannel, []byte{0x00, 0x00, 0x00})

	msgs := decodeAll(t, NewDecoder(), frame)
	require.Len(t, msgs, 1)
	assert.Equal(t, byte(MsgAssignChannel), msgs[0].ID())
	assert.Equal(t, []byte{0x00, 0x00, 0x00}, msgs[0].Payload())
	assert.True(t, msgs[0].ChecksumValid())
}

func TestDecoder_MultipleFrames(t *testing.T) {
	var stream []byte
	stream = append(stream, MustEncode(MsgResetSystem, []byte{0x00})...)
	stream = append(stream, MustEncode(MsgRequest, []byte{0x00, MsgCapabilities})...)
	stream = append(stream, MustEncode(MsgOpenChannel, nil)...)

	msgs := decodeAll(t, NewDecoder(), stream)
	require.Len(t, msgs, 3)
	assert.Equal(t, byte(MsgResetSystem), msgs[0].ID())
	assert.Equal(t, byte(MsgRequest), msgs[1].ID())
	assert.Equal(t, byte(MsgOpenChannel), msgs[2].ID())
	assert.Equal(t, 0, msgs[2].Length())
}

func TestDecoder_SkipsGarbageBeforeSync(t *testing.T) {
	d := NewDecoder()
	stream := append([]byte{0x00, 0x13, 0x37}, MustEncode(MsgCloseChannel, []byte{0x02})...)

	for i, b := range stream[:len(stream)-1] {
		msg, err := d.DecodeByte(b)
		require.NoError(t, err, "byte %d", i)
		require.Nil(t, msg, "byte %d", i)
	}
	assert.Equal(t, 3, d.Skipped())

	msg, err := d.DecodeByte(stream[len(stream)-1])
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, byte(0x02), msg.Channel())
	assert.Equal(t, 0, d.Skipped())
}

func TestDecoder_InvalidLengthResynchronises(t *testing.T) {
	d := NewDecoder()
	stream := []byte{SyncTx, 0x40}
	stream = append(stream, MustEncode(MsgOpenChannel, []byte{0x01})...)

	msgs, errs := d.Decode(stream)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMalformedFrame)
	require.Len(t, msgs, 1)
	assert.Equal(t, byte(MsgOpenChannel), msgs[0].ID())
}

func TestDecoder_ChecksumLenientByDefault(t *testing.T) {
	frame := MustEncode(MsgOpenChannel, []byte{0x00})
	frame[len(frame)-1] ^= 0xFF

	msgs := decodeAll(t, NewDecoder(), frame)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].ChecksumValid())
}

func TestDecoder_StrictChecksum(t *testing.T) {
	frame := MustEncode(MsgOpenChannel, []byte{0x00})
	frame[len(frame)-1] ^= 0xFF

	d := NewDecoder()
	d.Strict = true
	msgs, errs := d.Decode(frame)
	assert.Empty(t, msgs)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrChecksumMismatch)
}

func TestDecoder_PayloadContainingSyncByte(t *testing.T) {
	payload := []byte{0x00, SyncTx, SyncTx, 0x00, SyncRx, 0x00, 0x00, 0x00, 0x00}
	msgs := decodeAll(t, NewDecoder(), MustEncode(MsgBroadcastData, payload))
	require.Len(t, msgs, 1)
	assert.Equal(t, payload, msgs[0].Payload())
}

func TestDecoder_ReturnedPayloadIsNotReused(t *testing.T) {
	d := NewDecoder()
	first := decodeAll(t, d, MustEncode(MsgBroadcastData, []byte{0x00, 0x01}))
	decodeAll(t, d, MustEncode(MsgBroadcastData, []byte{0x00, 0x02}))
	assert.Equal(t, []byte{0x00, 0x01}, first[0].Payload())
}
