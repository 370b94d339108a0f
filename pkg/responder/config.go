// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package responder

import (
	"encoding/binary"

	"github.com/Thermoquad/antstick/pkg/antmsg"
)

// ChannelIDReport is the identity returned when the host requests the
// channel id of the emulated radio
type ChannelIDReport struct {
	Channel          byte
	DeviceNumber     uint16
	DeviceType       byte
	TransmissionType byte
}

// Payload returns the 5-byte CHANNEL_ID payload
func (c ChannelIDReport) Payload() []byte {
	p := make([]byte, 5)
	p[0] = c.Channel
	binary.LittleEndian.PutUint16(p[1:3], c.DeviceNumber)
	p[3] = c.DeviceType
	p[4] = c.TransmissionType
	return p
}

// Config holds the fixed replies of the emulated radio
type Config struct {
	// Capabilities is the CAPABILITIES payload: channels, networks,
	// standard options, advanced options, advanced options 2 and
	// SensRcore channels
	Capabilities [6]byte

	ChannelID ChannelIDReport
}

// DefaultConfig returns the configuration host software expects from an
// ANT USB stick: 8 channels, 3 networks and a heart rate channel id
func DefaultConfig() Config {
	return Config{
		Capabilities: [6]byte{antmsg.MaxChannels, 0x03, 0x00, 0xBA, 0x36, 0x00},
		ChannelID: ChannelIDReport{
			Channel:          0,
			DeviceNumber:     0x0001,
			DeviceType:       antmsg.DeviceTypeHRM,
			TransmissionType: 0x01,
		},
	}
}
