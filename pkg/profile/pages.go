// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package profile

import "github.com/Thermoquad/antstick/pkg/antmsg"

// page holds the raw bytes of a decoded data page
type page struct {
	raw [antmsg.DataPageSize]byte
}

func (p page) Raw() [antmsg.DataPageSize]byte {
	return p.raw
}

// ============================================================
// Heart rate
// ============================================================

// HeartBeat is the heart beat data carried in bytes 4-7 of every HRM page
type HeartBeat struct {
	BeatTime  uint16 // 1/1024 s
	BeatCount uint8
	HeartRate uint8 // bpm
}

type HRMPage0 struct {
	page
	HeartBeat
}

func (HRMPage0) Kind() Kind { return KindHRMPage0 }

type HRMPage1 struct {
	page
	HeartBeat
	OperatingTime uint32 // 2 s units
}

func (HRMPage1) Kind() Kind { return KindHRMPage1 }

type HRMPage2 struct {
	page
	HeartBeat
	ManufacturerID uint8
	SerialNumber   uint16
}

func (HRMPage2) Kind() Kind { return KindHRMPage2 }

type HRMPage3 struct {
	page
	HeartBeat
	HWVersion   uint8
	SWVersion   uint8
	ModelNumber uint8
}

func (HRMPage3) Kind() Kind { return KindHRMPage3 }

type HRMPage4 struct {
	page
	HeartBeat
	ManufacturerSpecific uint8
	PrevBeatTime         uint16 // 1/1024 s
}

func (HRMPage4) Kind() Kind { return KindHRMPage4 }

// ============================================================
// Bicycle power
// ============================================================

// BPWRPage1 is a calibration message
type BPWRPage1 struct {
	page
	CalibrationID uint8
	Data          [6]byte
}

func (BPWRPage1) Kind() Kind { return KindBPWRPage1 }

// Calibration ids
const (
	CalibrationRequest = 0xAA
	CalibrationSuccess = 0xAC
	CalibrationFailure = 0xAF
)

// BPWRPage16 is the standard power-only page
type BPWRPage16 struct {
	page
	EventCount         uint8
	PedalPower         uint8
	Cadence            uint8 // rpm, 0xFF when invalid
	AccumulatedPower   uint16
	InstantaneousPower uint16 // W
}

func (BPWRPage16) Kind() Kind { return KindBPWRPage16 }

// TorqueData is the layout shared by the wheel and crank torque pages
type TorqueData struct {
	EventCount        uint8
	Ticks             uint8
	Cadence           uint8
	Period            uint16 // 1/2048 s
	AccumulatedTorque uint16 // 1/32 Nm
}

// BPWRPage17 is the standard wheel torque page
type BPWRPage17 struct {
	page
	TorqueData
}

func (BPWRPage17) Kind() Kind { return KindBPWRPage17 }

// BPWRPage18 is the standard crank torque page
type BPWRPage18 struct {
	page
	TorqueData
}

func (BPWRPage18) Kind() Kind { return KindBPWRPage18 }

// BPWRPage80 is the manufacturer information common page
type BPWRPage80 struct {
	page
	HWRevision     uint8
	ManufacturerID uint16
	ModelNumber    uint16
}

func (BPWRPage80) Kind() Kind { return KindBPWRPage80 }

// BPWRPage81 is the product information common page
type BPWRPage81 struct {
	page
	SWRevisionMinor uint8
	SWRevisionMajor uint8
	SerialNumber    uint32
}

func (BPWRPage81) Kind() Kind { return KindBPWRPage81 }

// BPWRCalibrationTimeout signals that a calibration request got no
// calibration response in time
type BPWRCalibrationTimeout struct {
	page
}

func (BPWRCalibrationTimeout) Kind() Kind { return KindBPWRCalibrationTimeout }

// BPWRCalibrationTxFailed signals that the calibration request could not
// be delivered to the sensor
type BPWRCalibrationTxFailed struct {
	page
}

func (BPWRCalibrationTxFailed) Kind() Kind { return KindBPWRCalibrationTxFailed }

// ============================================================
// Bicycle speed and cadence
// ============================================================

// Revolutions is the event data carried in bytes 4-7 of every speed or
// cadence sensor page
type Revolutions struct {
	EventTime uint16 // 1/1024 s
	RevCount  uint16
}

type BSCPage0 struct {
	page
	Revolutions
}

func (BSCPage0) Kind() Kind { return KindBSCPage0 }

type BSCPage1 struct {
	page
	Revolutions
	OperatingTime uint32 // 2 s units
}

func (BSCPage1) Kind() Kind { return KindBSCPage1 }

type BSCPage2 struct {
	page
	Revolutions
	ManufacturerID uint8
	SerialNumber   uint16
}

func (BSCPage2) Kind() Kind { return KindBSCPage2 }

type BSCPage3 struct {
	page
	Revolutions
	HWVersion   uint8
	SWVersion   uint8
	ModelNumber uint8
}

func (BSCPage3) Kind() Kind { return KindBSCPage3 }

// BSCPage4 is the battery status page
type BSCPage4 struct {
	page
	Revolutions
	FractionalBatteryVoltage uint8 // 1/256 V
	CoarseBatteryVoltage     uint8 // V
	BatteryStatus            uint8
}

func (BSCPage4) Kind() Kind { return KindBSCPage4 }

// BSCPage5 is the motion and speed page
type BSCPage5 struct {
	page
	Revolutions
	Stopped bool
}

func (BSCPage5) Kind() Kind { return KindBSCPage5 }

// BSCCombinedPage0 is the only page of a combined speed and cadence sensor
type BSCCombinedPage0 struct {
	page
	Cadence Revolutions
	Speed   Revolutions
}

func (BSCCombinedPage0) Kind() Kind { return KindBSCCombinedPage0 }
