// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package responder

import (
	"testing"

	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelTracker_Lifecycle(t *testing.T) {
	tr := NewChannelTracker()
	msgs := []*antmsg.Message{
		antmsg.NewMessage(antmsg.MsgAssignChannel, []byte{0x01, 0x00, 0x00}),
		antmsg.NewMessage(antmsg.MsgChannelID, []byte{0x01, 0x34, 0x12, antmsg.DeviceTypeHRM, 0x01}),
		antmsg.NewMessage(antmsg.MsgChannelMesgPeriod, []byte{0x01, 0x86, 0x1F}),
		antmsg.NewMessage(antmsg.MsgChannelRadioFreq, []byte{0x01, 57}),
	}
	for _, m := range msgs {
		tr.Observe(m)
	}

	ch, ok := tr.Channel(1)
	require.True(t, ok)
	assert.Equal(t, ChannelAssigned, ch.State)
	assert.Equal(t, uint16(0x1234), ch.DeviceNumber)
	assert.Equal(t, byte(antmsg.DeviceTypeHRM), ch.DeviceType)
	assert.Equal(t, uint16(8070), ch.Period)
	assert.Equal(t, byte(57), ch.Frequency)
	assert.Contains(t, ch.String(), "freq=2457 MHz")

	tr.Observe(antmsg.NewMessage(antmsg.MsgOpenChannel, []byte{0x01}))
	ch, _ = tr.Channel(1)
	assert.Equal(t, ChannelOpen, ch.State)

	tr.Observe(antmsg.NewMessage(antmsg.MsgCloseChannel, []byte{0x01}))
	ch, _ = tr.Channel(1)
	assert.Equal(t, ChannelClosed, ch.State)

	tr.Observe(antmsg.NewMessage(antmsg.MsgUnassignChannel, []byte{0x01}))
	ch, _ = tr.Channel(1)
	assert.Equal(t, ChannelInfo{Number: 1}, ch)
}

func TestChannelTracker_Reset(t *testing.T) {
	tr := NewChannelTracker()
	tr.Observe(antmsg.NewMessage(antmsg.MsgOpenChannel, []byte{0x03}))
	tr.Observe(antmsg.NewMessage(antmsg.MsgResetSystem, []byte{0x00}))

	for i, ch := range tr.Snapshot() {
		assert.Equal(t, ChannelInfo{Number: byte(i)}, ch)
	}
}

func TestChannelTracker_IgnoresInvalidChannel(t *testing.T) {
	tr := NewChannelTracker()
	tr.Observe(antmsg.NewMessage(antmsg.MsgOpenChannel, []byte{antmsg.MaxChannels}))
	tr.Observe(antmsg.NewMessage(antmsg.MsgOpenChannel, nil))

	for _, ch := range tr.Snapshot() {
		assert.Equal(t, ChannelUnassigned, ch.State)
	}
	_, ok := tr.Channel(antmsg.MaxChannels)
	assert.False(t, ok)
	assert.Equal(t, "UNASSIGNED", ChannelUnassigned.String())
}
