// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package profile

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/antstick/internal/util"
	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/Thermoquad/antstick/pkg/telemetry"
)

// ErrUnknownChannel is returned for radio data on a channel with no
// configured profile
var ErrUnknownChannel = errors.New("unknown channel")

// CalibrationTimeoutMessages is the number of power pages to wait for a
// calibration response, 3 s at the 4 Hz channel period
const CalibrationTimeoutMessages = 12

// Broadcaster relays profile data to the host
type Broadcaster interface {
	Broadcast(payload []byte) error
}

// Formatter renders profile events as status text, relays live data pages
// to the host and computes speed and cadence. It owns its accumulators and
// is not safe for concurrent use.
type Formatter struct {
	// Text receives the status text of each page. Optional.
	Text io.Writer

	// Broadcaster receives the channel number followed by the 8 data bytes
	// of every forwarded page. Optional.
	Broadcaster Broadcaster

	// Readings receives computed values. Optional.
	Readings ReadingSink

	config  Config
	speed   *telemetry.Accumulator
	cadence *telemetry.Accumulator

	// calibration counts down the pages left before a pending calibration
	// request on a channel times out
	calibration map[byte]int

	now func() time.Time
}

// NewFormatter creates a formatter for the given configuration
func NewFormatter(config Config, text io.Writer, broadcaster Broadcaster) *Formatter {
	return &Formatter{
		Text:        text,
		Broadcaster: broadcaster,
		config:      config,
		speed:       telemetry.NewSpeedAccumulator(config.WheelCircumferenceMM),
		cadence:     telemetry.NewCadenceAccumulator(),
		calibration: make(map[byte]int),
		now:         time.Now,
	}
}

// Config returns the formatter configuration
func (f *Formatter) Config() Config {
	return f.config
}

// Speed returns the last computed speed in km/h
func (f *Formatter) Speed() uint32 {
	return f.speed.Value()
}

// Cadence returns the last computed cadence in rpm
func (f *Formatter) Cadence() uint32 {
	return f.cadence.Value()
}

// Receive handles a message reported by the radio stack on a channel.
// Received data is decoded with the channel's profile.
func (f *Formatter) Receive(channel byte, code antmsg.ResponseCode, data [antmsg.DataPageSize]byte) error {
	ch, ok := f.config.Channel(channel)
	if !ok {
		return fmt.Errorf("channel %d: %w", channel, ErrUnknownChannel)
	}

	switch code {
	case antmsg.EventRx:
		ev, err := Decode(ch.Profile, data)
		if errors.Is(err, ErrUnknownPage) && ch.Profile.RelaysAll() {
			util.LogDebug("Channel %d: relaying %v", channel, err)
			return f.forward(channel, data)
		}
		if err != nil {
			return fmt.Errorf("channel %d: %w", channel, err)
		}
		return f.Handle(channel, ev)

	case antmsg.EventTransferTxFailed:
		// The calibration request is the only message sent to a power sensor
		if ch.Profile == ProfileBPWR && f.calibrationPending(channel) {
			delete(f.calibration, channel)
			return f.Handle(channel, BPWRCalibrationTxFailed{})
		}
	}

	util.LogDebug("Channel %d: %s", channel, antmsg.FormatResponseCode(code))
	return nil
}

// RequestCalibration starts a calibration on a power channel and returns
// the request page to send to the sensor
func (f *Formatter) RequestCalibration(channel byte) ([antmsg.DataPageSize]byte, error) {
	ch, ok := f.config.Channel(channel)
	if !ok {
		return [antmsg.DataPageSize]byte{}, fmt.Errorf("channel %d: %w", channel, ErrUnknownChannel)
	}
	if ch.Profile != ProfileBPWR {
		return [antmsg.DataPageSize]byte{}, fmt.Errorf("channel %d is %s, not a power channel", channel, ch.Profile)
	}

	f.calibration[channel] = CalibrationTimeoutMessages
	util.LogInfo("Calibration requested on channel %d", channel)
	return CalibrationRequestPage(), nil
}

// CalibrationRequestPage returns the general calibration request page
func CalibrationRequestPage() [antmsg.DataPageSize]byte {
	return [antmsg.DataPageSize]byte{0x01, CalibrationRequest, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
}

// CalibrationRequestChannel reports whether m is a calibration request
// sent as acknowledged data, and the channel it targets
func CalibrationRequestChannel(m *antmsg.Message) (byte, bool) {
	if m.ID() != antmsg.MsgAcknowledgedData {
		return 0, false
	}
	p := m.Payload()
	if len(p) < 1+antmsg.DataPageSize || p[1] != 0x01 || p[2] != CalibrationRequest {
		return 0, false
	}
	return p[0], true
}

func (f *Formatter) calibrationPending(channel byte) bool {
	_, ok := f.calibration[channel]
	return ok
}

// Handle renders an event received on a channel
func (f *Formatter) Handle(channel byte, ev Event) error {
	text, readings := f.render(channel, ev)

	if text != "" && f.Text != nil {
		if _, err := io.WriteString(f.Text, text); err != nil {
			return fmt.Errorf("write status: %w", err)
		}
	}

	if f.Readings != nil {
		for _, r := range readings {
			if err := f.Readings.Publish(r); err != nil {
				util.LogWarning("Publish %s reading: %v", r.Quantity, err)
			}
		}
	}

	// A failed forward must not stall a pending calibration countdown
	var forwardErr error
	if ev.Kind().Forwarded() {
		if err := f.forward(channel, ev.Raw()); err != nil {
			forwardErr = fmt.Errorf("forward %s: %w", ev.Kind(), err)
		}
	}

	return errors.Join(forwardErr, f.checkCalibration(channel, ev))
}

// forward relays the channel number and data page to the host
func (f *Formatter) forward(channel byte, data [antmsg.DataPageSize]byte) error {
	if f.Broadcaster == nil {
		return nil
	}
	payload := make([]byte, 0, 1+antmsg.DataPageSize)
	payload = append(payload, channel)
	payload = append(payload, data[:]...)
	return f.Broadcaster.Broadcast(payload)
}

// checkCalibration advances a pending calibration on a power channel and
// emits a timeout when no response arrived in time
func (f *Formatter) checkCalibration(channel byte, ev Event) error {
	remaining, ok := f.calibration[channel]
	if !ok {
		return nil
	}

	switch e := ev.(type) {
	case BPWRPage1:
		if e.CalibrationID == CalibrationSuccess || e.CalibrationID == CalibrationFailure {
			delete(f.calibration, channel)
		}
		return nil
	case BPWRCalibrationTimeout, BPWRCalibrationTxFailed:
		return nil
	}

	remaining--
	if remaining > 0 {
		f.calibration[channel] = remaining
		return nil
	}
	delete(f.calibration, channel)
	return f.Handle(channel, BPWRCalibrationTimeout{})
}

func (f *Formatter) reading(channel byte, p Profile, q Quantity, value uint32) Reading {
	return Reading{
		Time:     f.now(),
		Channel:  channel,
		Profile:  p.String(),
		Quantity: q,
		Value:    value,
		Unit:     q.Unit(),
	}
}

// bscProfile returns the speed/cadence variant configured on a channel
func (f *Formatter) bscProfile(channel byte) Profile {
	if ch, ok := f.config.Channel(channel); ok {
		return ch.Profile
	}
	return f.config.DisplayType.Profile()
}

// updateRevolutions feeds a speed or cadence sensor sample to the matching
// accumulator
func (f *Formatter) updateRevolutions(channel byte, revs Revolutions) (Quantity, uint32) {
	if f.bscProfile(channel) == ProfileBSCSpeed {
		return QuantitySpeed, f.speed.Update(revs.RevCount, revs.EventTime)
	}
	return QuantityCadence, f.cadence.Update(revs.RevCount, revs.EventTime)
}

func (f *Formatter) render(channel byte, ev Event) (string, []Reading) {
	var readings []Reading
	heartRate := func(b HeartBeat) {
		readings = append(readings, f.reading(channel, ProfileHRM, QuantityHeartRate, uint32(b.HeartRate)))
	}

	switch e := ev.(type) {
	// Heart rate
	case HRMPage0:
		heartRate(e.HeartBeat)
		return fmt.Sprintf("=== HRM page 0 ===\nBeat count: %d\nHeart rate: %d\nBeat time: %d\n",
			e.BeatCount, e.HeartRate, e.BeatTime), readings
	case HRMPage1:
		heartRate(e.HeartBeat)
		return fmt.Sprintf("=== HRM page 1 ===\nOper time: %d\n", e.OperatingTime), readings
	case HRMPage2:
		heartRate(e.HeartBeat)
		return fmt.Sprintf("=== HRM page 2 ===\nManuf id: %d\nSerial num: %d\n",
			e.ManufacturerID, e.SerialNumber), readings
	case HRMPage3:
		heartRate(e.HeartBeat)
		return fmt.Sprintf("=== HRM page 3 ===\nHW version: %d\nSW version: %d\nModel num: %d\n",
			e.HWVersion, e.SWVersion, e.ModelNumber), readings
	case HRMPage4:
		heartRate(e.HeartBeat)
		return fmt.Sprintf("=== HRM page 4 ===\nManuf_spec: %d\nPrev_beat: %d\n",
			e.ManufacturerSpecific, e.PrevBeatTime), readings

	// Bicycle power
	case BPWRPage1:
		util.LogDebug("Received calibration data on channel %d: id 0x%02X % X", channel, e.CalibrationID, e.Data)
		return "", nil
	case BPWRPage16:
		readings = append(readings, f.reading(channel, ProfileBPWR, QuantityPower, uint32(e.InstantaneousPower)))
		if e.Cadence != 0xFF {
			readings = append(readings, f.reading(channel, ProfileBPWR, QuantityCadence, uint32(e.Cadence)))
		}
		return fmt.Sprintf("=== BPWR page 16 ===\nPower_evt_cnt: %d\nAccumulated power: %d W\nInstantaneous: %d W\n",
			e.EventCount, e.AccumulatedPower, e.InstantaneousPower), readings
	case BPWRPage17:
		return fmt.Sprintf("=== BPWR page 17 ===\nWheel_evt_cnt: %d\nWheel_tick: %d\nWheel_period: %d\nWheel_acc_torque: %d\n",
			e.EventCount, e.Ticks, e.Period, e.AccumulatedTorque), nil
	case BPWRPage18:
		return fmt.Sprintf("=== BPWR page 18 ===\nCrank_evt_cnt: %d\nCrank_tick: %d\nCrank_period: %d\nCrank_acc_torque: %d\n",
			e.EventCount, e.Ticks, e.Period, e.AccumulatedTorque), nil
	case BPWRPage80:
		return fmt.Sprintf("=== BPWR page 80 ===\nManuf_id: %d\nHW_version: %d\nmodel_number: %d\n",
			e.ManufacturerID, e.HWRevision, e.ModelNumber), nil
	case BPWRPage81:
		return fmt.Sprintf("=== BPWR page 81 ===\nsw_revision_minor: %d\nsw_revision_major: %d\nserial_number: %d\n",
			e.SWRevisionMinor, e.SWRevisionMajor, e.SerialNumber), nil
	case BPWRCalibrationTimeout:
		util.LogWarning("Calibration request on channel %d timed out", channel)
		return "", nil
	case BPWRCalibrationTxFailed:
		util.LogWarning("Calibration request on channel %d could not be sent, consider retrying", channel)
		return "", nil

	// Speed and cadence
	case BSCPage0:
		q, value := f.updateRevolutions(channel, e.Revolutions)
		readings = append(readings, f.reading(channel, f.bscProfile(channel), q, value))
		return fmt.Sprintf("=== BSC page 0 ===\nevent_time: %d\nrev_count: %d\n",
			e.EventTime, e.RevCount), readings
	case BSCPage1:
		return fmt.Sprintf("=== BSC page 1 ===\noperating_time: %d\n", e.OperatingTime), nil
	case BSCPage2:
		return fmt.Sprintf("=== BSC page 2 ===\nmanuf_id: %d\nserial_num: %d\n",
			e.ManufacturerID, e.SerialNumber), nil
	case BSCPage3:
		return fmt.Sprintf("=== BSC page 3 ===\nhw_version: %d\nsw_version: %d\nmodel_num: %d\n",
			e.HWVersion, e.SWVersion, e.ModelNumber), nil
	case BSCPage4:
		return fmt.Sprintf("=== BSC page 4 ===\nfract_bat_volt: %d\ncoarse_bat_volt: %d\nbat_status: %d\n",
			e.FractionalBatteryVoltage, e.CoarseBatteryVoltage, e.BatteryStatus), nil
	case BSCPage5:
		q, value := f.updateRevolutions(channel, e.Revolutions)
		util.LogInfo("Computed %s value: %d %s", q, value, q.Unit())
		return "", []Reading{f.reading(channel, f.bscProfile(channel), q, value)}
	case BSCCombinedPage0:
		speed := f.speed.Update(e.Speed.RevCount, e.Speed.EventTime)
		cadence := f.cadence.Update(e.Cadence.RevCount, e.Cadence.EventTime)
		util.LogDebug("Computed speed value: %d kph, cadence value: %d rpm", speed, cadence)
		readings = append(readings,
			f.reading(channel, ProfileBSCCombined, QuantitySpeed, speed),
			f.reading(channel, ProfileBSCCombined, QuantityCadence, cadence))
		return fmt.Sprintf("=== BSC page 0 ===\nSpeed: %d kph\nCadence: %d rpm\n", speed, cadence), readings
	}

	util.LogDebug("Unhandled event %s on channel %d", ev.Kind(), channel)
	return "", nil
}
