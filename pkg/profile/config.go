// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package profile

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/Thermoquad/antstick/pkg/telemetry"
)

// Channel periods in 1/32768 s
const (
	PeriodHRM         = 8070 // 4.06 Hz
	PeriodBPWR        = 8182 // 4.00 Hz
	PeriodBSCSpeed    = 8118 // 4.04 Hz
	PeriodBSCCadence  = 8102 // 4.04 Hz
	PeriodBSCCombined = 8086 // 4.05 Hz
)

// DisplayType selects which speed and cadence sensor variant the display
// channel pairs with
type DisplayType int

const (
	DisplayCombined DisplayType = iota
	DisplaySpeed
	DisplayCadence
)

func (d DisplayType) String() string {
	switch d {
	case DisplaySpeed:
		return "speed"
	case DisplayCadence:
		return "cadence"
	default:
		return "combined"
	}
}

// Profile returns the BSC profile variant of the display type
func (d DisplayType) Profile() Profile {
	switch d {
	case DisplaySpeed:
		return ProfileBSCSpeed
	case DisplayCadence:
		return ProfileBSCCadence
	default:
		return ProfileBSCCombined
	}
}

// ParseDisplayType parses "combined", "speed" or "cadence"
func ParseDisplayType(s string) (DisplayType, error) {
	switch strings.ToLower(s) {
	case "combined":
		return DisplayCombined, nil
	case "speed":
		return DisplaySpeed, nil
	case "cadence":
		return DisplayCadence, nil
	default:
		return 0, fmt.Errorf("invalid display type %q (want combined, speed or cadence)", s)
	}
}

// ChannelConfig describes one display channel of the emulated radio
type ChannelConfig struct {
	Number           byte
	Profile          Profile
	DeviceNumber     uint16 // 0 pairs with any device
	TransmissionType byte   // 0 pairs with any transmission type
	Period           uint16 // 1/32768 s
}

// DeviceType returns the ANT+ device type searched for on the channel
func (c ChannelConfig) DeviceType() byte {
	return c.Profile.DeviceType()
}

// Config configures profile decoding and telemetry
type Config struct {
	WheelCircumferenceMM int
	DisplayType          DisplayType
	Channels             []ChannelConfig
}

// DefaultConfig returns a heart rate display on channel 0, a bicycle power
// display on channel 1 and a speed/cadence display of the given type on
// channel 2, all pairing with any device
func DefaultConfig(display DisplayType) Config {
	bsc := ChannelConfig{Number: 2, Profile: display.Profile()}
	switch display {
	case DisplaySpeed:
		bsc.Period = PeriodBSCSpeed
	case DisplayCadence:
		bsc.Period = PeriodBSCCadence
	default:
		bsc.Period = PeriodBSCCombined
	}

	return Config{
		WheelCircumferenceMM: telemetry.DefaultWheelCircumferenceMM,
		DisplayType:          display,
		Channels: []ChannelConfig{
			{Number: 0, Profile: ProfileHRM, Period: PeriodHRM},
			{Number: 1, Profile: ProfileBPWR, Period: PeriodBPWR},
			bsc,
		},
	}
}

// Channel returns the configuration of a channel number
func (c Config) Channel(number byte) (ChannelConfig, bool) {
	for _, ch := range c.Channels {
		if ch.Number == number {
			return ch, true
		}
	}
	return ChannelConfig{}, false
}

// Validate checks the configuration for unusable values
func (c Config) Validate() error {
	if c.WheelCircumferenceMM <= 0 {
		return fmt.Errorf("wheel circumference must be positive, got %d mm", c.WheelCircumferenceMM)
	}
	seen := make(map[byte]bool)
	for _, ch := range c.Channels {
		if ch.Number >= antmsg.MaxChannels {
			return fmt.Errorf("channel %d out of range (max %d)", ch.Number, antmsg.MaxChannels-1)
		}
		if seen[ch.Number] {
			return fmt.Errorf("channel %d configured twice", ch.Number)
		}
		seen[ch.Number] = true
	}
	return nil
}
