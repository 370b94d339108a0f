// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package responder

import (
	"fmt"
	"testing"

	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/stretchr/testify/assert"
)

func TestStatistics_RecordInbound(t *testing.T) {
	s := NewStatistics()

	s.RecordInbound(antmsg.NewMessage(antmsg.MsgOpenChannel, []byte{0x00}), nil)
	s.RecordInbound(antmsg.NewMessage(antmsg.MsgOpenChannel, []byte{0x09}), []antmsg.ValidationError{
		{Type: antmsg.AnomalyInvalidChannel},
	})
	s.RecordInbound(antmsg.NewMessage(0xF0, nil), []antmsg.ValidationError{
		{Type: antmsg.AnomalyUnknownID},
		{Type: antmsg.AnomalyChecksum},
	})

	snap := s.Snapshot()
	assert.Equal(t, uint64(3), snap.InboundFrames)
	assert.Equal(t, uint64(2), snap.PerID[antmsg.MsgOpenChannel])
	assert.Equal(t, uint64(1), snap.InvalidChannels)
	assert.Equal(t, uint64(1), snap.UnknownIDs)
	assert.Equal(t, uint64(1), snap.ChecksumErrors)
	assert.Equal(t, uint64(2), snap.ErrorCount())
}

func TestStatistics_RecordDecodeError(t *testing.T) {
	s := NewStatistics()
	s.RecordDecodeError(fmt.Errorf("frame: %w", antmsg.ErrChecksumMismatch))
	s.RecordDecodeError(fmt.Errorf("frame: %w", antmsg.ErrMalformedFrame))
	s.RecordDecodeError(fmt.Errorf("frame: %w", antmsg.ErrMalformedFrame))

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.ChecksumErrors)
	assert.Equal(t, uint64(2), snap.DecodeErrors)
}

func TestStatistics_SnapshotIsACopy(t *testing.T) {
	s := NewStatistics()
	s.RecordInbound(antmsg.NewMessage(antmsg.MsgRequest, []byte{0x00}), nil)

	snap := s.Snapshot()
	snap.PerID[antmsg.MsgRequest] = 100
	snap.InboundFrames = 100

	again := s.Snapshot()
	assert.Equal(t, uint64(1), again.PerID[antmsg.MsgRequest])
	assert.Equal(t, uint64(1), again.InboundFrames)
}

func TestStatistics_String(t *testing.T) {
	s := NewStatistics()
	s.RecordInbound(antmsg.NewMessage(antmsg.MsgRequest, []byte{0x00}), nil)
	s.RecordReplies(1)
	s.RecordBroadcast()
	s.RecordSkipped(3)
	s.RecordWriteError()

	out := s.String()
	assert.Contains(t, out, "Inbound Frames:         1")
	assert.Contains(t, out, "Broadcasts Sent:        1")
	assert.Contains(t, out, "Skipped Bytes:          3")
	assert.Contains(t, out, "Write Errors:           1")
	assert.Contains(t, out, "REQUEST")
	assert.NotContains(t, out, "Decode Errors")
}
