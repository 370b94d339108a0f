// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package profile

import (
	"encoding/binary"
	"fmt"

	"github.com/Thermoquad/antstick/pkg/antmsg"
)

// Byte 0 of HRM and BSC speed or cadence pages
const (
	PageNumberMask = 0x7F
	ToggleBit      = 0x80 // Flipped by the sensor every 4 messages
)

// Decode decodes an 8-byte data page received on a channel of the given profile
func Decode(p Profile, data [antmsg.DataPageSize]byte) (Event, error) {
	switch p {
	case ProfileHRM:
		return decodeHRM(data)
	case ProfileBPWR:
		return decodeBPWR(data)
	case ProfileBSCSpeed, ProfileBSCCadence:
		return decodeBSC(data)
	case ProfileBSCCombined:
		return decodeBSCCombined(data), nil
	default:
		return nil, fmt.Errorf("profile %d: %w", int(p), ErrUnknownProfile)
	}
}

func decodeHRM(data [antmsg.DataPageSize]byte) (Event, error) {
	base := page{raw: data}
	beat := HeartBeat{
		BeatTime:  binary.LittleEndian.Uint16(data[4:6]),
		BeatCount: data[6],
		HeartRate: data[7],
	}

	switch number := data[0] & PageNumberMask; number {
	case 0:
		return HRMPage0{page: base, HeartBeat: beat}, nil
	case 1:
		return HRMPage1{page: base, HeartBeat: beat, OperatingTime: uint24(data[1:4])}, nil
	case 2:
		return HRMPage2{
			page:           base,
			HeartBeat:      beat,
			ManufacturerID: data[1],
			SerialNumber:   binary.LittleEndian.Uint16(data[2:4]),
		}, nil
	case 3:
		return HRMPage3{
			page:        base,
			HeartBeat:   beat,
			HWVersion:   data[1],
			SWVersion:   data[2],
			ModelNumber: data[3],
		}, nil
	case 4:
		return HRMPage4{
			page:                 base,
			HeartBeat:            beat,
			ManufacturerSpecific: data[1],
			PrevBeatTime:         binary.LittleEndian.Uint16(data[2:4]),
		}, nil
	default:
		return nil, fmt.Errorf("HRM page %d: %w", number, ErrUnknownPage)
	}
}

func decodeBPWR(data [antmsg.DataPageSize]byte) (Event, error) {
	base := page{raw: data}

	switch number := data[0]; number {
	case 0x01:
		ev := BPWRPage1{page: base, CalibrationID: data[1]}
		copy(ev.Data[:], data[2:])
		return ev, nil
	case 0x10:
		return BPWRPage16{
			page:               base,
			EventCount:         data[1],
			PedalPower:         data[2],
			Cadence:            data[3],
			AccumulatedPower:   binary.LittleEndian.Uint16(data[4:6]),
			InstantaneousPower: binary.LittleEndian.Uint16(data[6:8]),
		}, nil
	case 0x11:
		return BPWRPage17{page: base, TorqueData: decodeTorque(data)}, nil
	case 0x12:
		return BPWRPage18{page: base, TorqueData: decodeTorque(data)}, nil
	case 0x50:
		return BPWRPage80{
			page:           base,
			HWRevision:     data[3],
			ManufacturerID: binary.LittleEndian.Uint16(data[4:6]),
			ModelNumber:    binary.LittleEndian.Uint16(data[6:8]),
		}, nil
	case 0x51:
		return BPWRPage81{
			page:            base,
			SWRevisionMinor: data[2],
			SWRevisionMajor: data[3],
			SerialNumber:    binary.LittleEndian.Uint32(data[4:8]),
		}, nil
	default:
		return nil, fmt.Errorf("BPWR page 0x%02X: %w", number, ErrUnknownPage)
	}
}

func decodeTorque(data [antmsg.DataPageSize]byte) TorqueData {
	return TorqueData{
		EventCount:        data[1],
		Ticks:             data[2],
		Cadence:           data[3],
		Period:            binary.LittleEndian.Uint16(data[4:6]),
		AccumulatedTorque: binary.LittleEndian.Uint16(data[6:8]),
	}
}

func decodeBSC(data [antmsg.DataPageSize]byte) (Event, error) {
	base := page{raw: data}
	revs := decodeRevolutions(data[4:8])

	switch number := data[0] & PageNumberMask; number {
	case 0:
		return BSCPage0{page: base, Revolutions: revs}, nil
	case 1:
		return BSCPage1{page: base, Revolutions: revs, OperatingTime: uint24(data[1:4])}, nil
	case 2:
		return BSCPage2{
			page:           base,
			Revolutions:    revs,
			ManufacturerID: data[1],
			SerialNumber:   binary.LittleEndian.Uint16(data[2:4]),
		}, nil
	case 3:
		return BSCPage3{
			page:        base,
			Revolutions: revs,
			HWVersion:   data[1],
			SWVersion:   data[2],
			ModelNumber: data[3],
		}, nil
	case 4:
		return BSCPage4{
			page:                     base,
			Revolutions:              revs,
			FractionalBatteryVoltage: data[2],
			CoarseBatteryVoltage:     data[3] & 0x0F,
			BatteryStatus:            (data[3] >> 4) & 0x07,
		}, nil
	case 5:
		return BSCPage5{page: base, Revolutions: revs, Stopped: data[1]&0x01 != 0}, nil
	default:
		return nil, fmt.Errorf("BSC page %d: %w", number, ErrUnknownPage)
	}
}

func decodeBSCCombined(data [antmsg.DataPageSize]byte) Event {
	return BSCCombinedPage0{
		page:    page{raw: data},
		Cadence: decodeRevolutions(data[0:4]),
		Speed:   decodeRevolutions(data[4:8]),
	}
}

func decodeRevolutions(b []byte) Revolutions {
	return Revolutions{
		EventTime: binary.LittleEndian.Uint16(b[0:2]),
		RevCount:  binary.LittleEndian.Uint16(b[2:4]),
	}
}

// uint24 reads a 3-byte little endian value
func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
