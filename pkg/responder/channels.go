// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package responder

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Thermoquad/antstick/pkg/antmsg"
)

// ChannelState is the lifecycle state of an ANT channel as seen from the
// host's commands
type ChannelState int

const (
	ChannelUnassigned ChannelState = iota
	ChannelAssigned
	ChannelOpen
	ChannelClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelUnassigned:
		return "UNASSIGNED"
	case ChannelAssigned:
		return "ASSIGNED"
	case ChannelOpen:
		return "OPEN"
	case ChannelClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ChannelInfo is the configuration the host has sent for one channel
type ChannelInfo struct {
	Number           byte
	State            ChannelState
	Type             byte
	Network          byte
	DeviceNumber     uint16
	DeviceType       byte
	TransmissionType byte
	Period           uint16 // 1/32768 s
	Frequency        byte   // offset from 2400 MHz
}

func (c ChannelInfo) String() string {
	return fmt.Sprintf("ch%d %-10s type=0x%02X dev=%d/0x%02X/0x%02X period=%d freq=%d MHz",
		c.Number, c.State, c.Type, c.DeviceNumber, c.DeviceType, c.TransmissionType, c.Period, 2400+int(c.Frequency))
}

// ChannelTracker records channel configuration commands sent by the host.
// It never influences replies: the responder answers every command with
// success whatever the tracked state. Safe for concurrent use.
type ChannelTracker struct {
	mu       sync.Mutex
	channels [antmsg.MaxChannels]ChannelInfo
}

// NewChannelTracker creates a tracker with every channel unassigned
func NewChannelTracker() *ChannelTracker {
	t := &ChannelTracker{}
	for i := range t.channels {
		t.channels[i].Number = byte(i)
	}
	return t
}

// Observe updates the tracked state from an inbound host message. Messages
// for channels beyond the advertised channel count are ignored.
func (t *ChannelTracker) Observe(m *antmsg.Message) {
	p := m.Payload()

	t.mu.Lock()
	defer t.mu.Unlock()

	if m.ID() == antmsg.MsgResetSystem {
		for i := range t.channels {
			t.channels[i] = ChannelInfo{Number: byte(i)}
		}
		return
	}

	if len(p) == 0 || int(p[0]) >= len(t.channels) {
		return
	}
	ch := &t.channels[p[0]]

	switch m.ID() {
	case antmsg.MsgAssignChannel:
		ch.State = ChannelAssigned
		if len(p) >= 3 {
			ch.Type = p[1]
			ch.Network = p[2]
		}
	case antmsg.MsgUnassignChannel:
		*ch = ChannelInfo{Number: ch.Number}
	case antmsg.MsgChannelID:
		if len(p) >= 5 {
			ch.DeviceNumber = binary.LittleEndian.Uint16(p[1:3])
			ch.DeviceType = p[3]
			ch.TransmissionType = p[4]
		}
	case antmsg.MsgChannelMesgPeriod:
		if len(p) >= 3 {
			ch.Period = binary.LittleEndian.Uint16(p[1:3])
		}
	case antmsg.MsgChannelRadioFreq:
		if len(p) >= 2 {
			ch.Frequency = p[1]
		}
	case antmsg.MsgOpenChannel:
		ch.State = ChannelOpen
	case antmsg.MsgCloseChannel:
		ch.State = ChannelClosed
	}
}

// Channel returns the tracked state of one channel
func (t *ChannelTracker) Channel(n byte) (ChannelInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(n) >= len(t.channels) {
		return ChannelInfo{}, false
	}
	return t.channels[n], true
}

// Snapshot returns the tracked state of all channels
func (t *ChannelTracker) Snapshot() []ChannelInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ChannelInfo, len(t.channels))
	copy(out, t.channels[:])
	return out
}
