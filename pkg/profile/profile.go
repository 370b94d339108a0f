// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package profile decodes ANT+ heart rate, bicycle power and bicycle
// speed/cadence data pages and renders them as status text.
package profile

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/antstick/pkg/antmsg"
)

var (
	// ErrUnknownProfile is returned for a device type with no page decoder
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrUnknownPage is returned for a page number the profile does not define
	ErrUnknownPage = errors.New("unknown page")
)

// Profile identifies an ANT+ device profile and, for bicycle speed and
// cadence, the sensor variant, which determines the page layout
type Profile int

const (
	ProfileHRM Profile = iota
	ProfileBPWR
	ProfileBSCSpeed
	ProfileBSCCadence
	ProfileBSCCombined
)

func (p Profile) String() string {
	switch p {
	case ProfileHRM:
		return "HRM"
	case ProfileBPWR:
		return "BPWR"
	case ProfileBSCSpeed:
		return "BSC speed"
	case ProfileBSCCadence:
		return "BSC cadence"
	case ProfileBSCCombined:
		return "BSC combined"
	default:
		return "UNKNOWN"
	}
}

// DeviceType returns the ANT+ device type of the profile
func (p Profile) DeviceType() byte {
	switch p {
	case ProfileHRM:
		return antmsg.DeviceTypeHRM
	case ProfileBPWR:
		return antmsg.DeviceTypeBPWR
	case ProfileBSCSpeed:
		return antmsg.DeviceTypeBSCSpeed
	case ProfileBSCCadence:
		return antmsg.DeviceTypeBSCCadence
	default:
		return antmsg.DeviceTypeBSC
	}
}

// RelaysAll reports whether every data page received on a channel of this
// profile is relayed to the host, including pages the decoder does not
// know. Heart rate straps send manufacturer pages beyond 0-4 that host
// applications still expect to see.
func (p Profile) RelaysAll() bool {
	return p == ProfileHRM
}

// ProfileForDeviceType maps an ANT+ device type to its profile
func ProfileForDeviceType(deviceType byte) (Profile, error) {
	switch deviceType {
	case antmsg.DeviceTypeHRM:
		return ProfileHRM, nil
	case antmsg.DeviceTypeBPWR:
		return ProfileBPWR, nil
	case antmsg.DeviceTypeBSCSpeed:
		return ProfileBSCSpeed, nil
	case antmsg.DeviceTypeBSCCadence:
		return ProfileBSCCadence, nil
	case antmsg.DeviceTypeBSC:
		return ProfileBSCCombined, nil
	default:
		return 0, fmt.Errorf("device type 0x%02X: %w", deviceType, ErrUnknownProfile)
	}
}

// Kind enumerates the events the formatter renders
type Kind int

const (
	KindHRMPage0 Kind = iota
	KindHRMPage1
	KindHRMPage2
	KindHRMPage3
	KindHRMPage4

	KindBPWRPage1
	KindBPWRPage16
	KindBPWRPage17
	KindBPWRPage18
	KindBPWRPage80
	KindBPWRPage81
	KindBPWRCalibrationTimeout
	KindBPWRCalibrationTxFailed

	KindBSCPage0
	KindBSCPage1
	KindBSCPage2
	KindBSCPage3
	KindBSCPage4
	KindBSCPage5
	KindBSCCombinedPage0
)

var kindNames = map[Kind]string{
	KindHRMPage0:                "HRM page 0",
	KindHRMPage1:                "HRM page 1",
	KindHRMPage2:                "HRM page 2",
	KindHRMPage3:                "HRM page 3",
	KindHRMPage4:                "HRM page 4",
	KindBPWRPage1:               "BPWR page 1",
	KindBPWRPage16:              "BPWR page 16",
	KindBPWRPage17:              "BPWR page 17",
	KindBPWRPage18:              "BPWR page 18",
	KindBPWRPage80:              "BPWR page 80",
	KindBPWRPage81:              "BPWR page 81",
	KindBPWRCalibrationTimeout:  "BPWR calibration timeout",
	KindBPWRCalibrationTxFailed: "BPWR calibration request TX failed",
	KindBSCPage0:                "BSC page 0",
	KindBSCPage1:                "BSC page 1",
	KindBSCPage2:                "BSC page 2",
	KindBSCPage3:                "BSC page 3",
	KindBSCPage4:                "BSC page 4",
	KindBSCPage5:                "BSC page 5",
	KindBSCCombinedPage0:        "BSC combined page 0",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Forwarded reports whether pages of this kind carry live data that is
// relayed to the host as BROADCAST_DATA
func (k Kind) Forwarded() bool {
	switch k {
	case KindHRMPage0, KindHRMPage1, KindHRMPage2, KindHRMPage3, KindHRMPage4,
		KindBPWRPage16, KindBPWRPage17, KindBPWRPage18,
		KindBSCPage0, KindBSCCombinedPage0:
		return true
	default:
		return false
	}
}

// Event is a decoded profile page or profile signal
type Event interface {
	Kind() Kind

	// Raw returns the 8 data bytes the event was decoded from. Signals
	// that do not originate from a page return zeros.
	Raw() [antmsg.DataPageSize]byte
}
