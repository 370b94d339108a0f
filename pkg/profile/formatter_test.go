// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package profile

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	payloads [][]byte
	err      error
}

func (b *recordingBroadcaster) Broadcast(payload []byte) error {
	if b.err != nil {
		return b.err
	}
	b.payloads = append(b.payloads, append([]byte(nil), payload...))
	return nil
}

type recordingSink struct {
	readings []Reading
}

func (s *recordingSink) Publish(r Reading) error {
	s.readings = append(s.readings, r)
	return nil
}

func newTestFormatter(display DisplayType) (*Formatter, *bytes.Buffer, *recordingBroadcaster, *recordingSink) {
	var text bytes.Buffer
	b := &recordingBroadcaster{}
	sink := &recordingSink{}
	f := NewFormatter(DefaultConfig(display), &text, b)
	f.Readings = sink
	f.now = func() time.Time { return time.Unix(1700000000, 0) }
	return f, &text, b, sink
}

func rx(t *testing.T, f *Formatter, channel byte, data page8) {
	t.Helper()
	require.NoError(t, f.Receive(channel, antmsg.EventRx, data))
}

func TestFormatter_HRMPage0(t *testing.T) {
	f, text, b, sink := newTestFormatter(DisplayCombined)
	data := page8{0x00, 0xFF, 0xFF, 0xFF, 0x34, 0x12, 0x2A, 0x48}

	rx(t, f, 0, data)

	assert.Equal(t, "=== HRM page 0 ===\nBeat count: 42\nHeart rate: 72\nBeat time: 4660\n", text.String())
	require.Len(t, b.payloads, 1)
	assert.Equal(t, append([]byte{0x00}, data[:]...), b.payloads[0])
	require.Len(t, sink.readings, 1)
	assert.Equal(t, Reading{
		Time:     time.Unix(1700000000, 0),
		Channel:  0,
		Profile:  "HRM",
		Quantity: QuantityHeartRate,
		Value:    72,
		Unit:     "bpm",
	}, sink.readings[0])
}

func TestFormatter_Templates(t *testing.T) {
	tests := []struct {
		name    string
		channel byte
		data    page8
		want    string
	}{
		{"HRM page 1", 0, page8{0x01, 0x10, 0x00, 0x00}, "=== HRM page 1 ===\nOper time: 16\n"},
		{"HRM page 2", 0, page8{0x02, 0x01, 0x02, 0x00}, "=== HRM page 2 ===\nManuf id: 1\nSerial num: 2\n"},
		{"HRM page 3", 0, page8{0x03, 0x01, 0x02, 0x03}, "=== HRM page 3 ===\nHW version: 1\nSW version: 2\nModel num: 3\n"},
		{"HRM page 4", 0, page8{0x04, 0x05, 0x00, 0x01}, "=== HRM page 4 ===\nManuf_spec: 5\nPrev_beat: 256\n"},
		{"BPWR page 16", 1, page8{0x10, 0x03, 0xFF, 0xFF, 0x64, 0x00, 0xC8, 0x00},
			"=== BPWR page 16 ===\nPower_evt_cnt: 3\nAccumulated power: 100 W\nInstantaneous: 200 W\n"},
		{"BPWR page 17", 1, page8{0x11, 0x01, 0x02, 0x03, 0x04, 0x00, 0x05, 0x00},
			"=== BPWR page 17 ===\nWheel_evt_cnt: 1\nWheel_tick: 2\nWheel_period: 4\nWheel_acc_torque: 5\n"},
		{"BPWR page 18", 1, page8{0x12, 0x01, 0x02, 0x03, 0x04, 0x00, 0x05, 0x00},
			"=== BPWR page 18 ===\nCrank_evt_cnt: 1\nCrank_tick: 2\nCrank_period: 4\nCrank_acc_torque: 5\n"},
		{"BPWR page 80", 1, page8{0x50, 0xFF, 0xFF, 0x01, 0x02, 0x00, 0x03, 0x00},
			"=== BPWR page 80 ===\nManuf_id: 2\nHW_version: 1\nmodel_number: 3\n"},
		{"BPWR page 81", 1, page8{0x51, 0xFF, 0x01, 0x02, 0x03, 0x00, 0x00, 0x00},
			"=== BPWR page 81 ===\nsw_revision_minor: 1\nsw_revision_major: 2\nserial_number: 3\n"},
		{"BPWR page 1", 1, page8{0x01, CalibrationSuccess}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, text, _, _ := newTestFormatter(DisplayCombined)
			rx(t, f, tt.channel, tt.data)
			assert.Equal(t, tt.want, text.String())
		})
	}
}

func TestFormatter_BSCTemplates(t *testing.T) {
	tests := []struct {
		name string
		data page8
		want string
	}{
		{"page 0", page8{0x00, 0xFF, 0xFF, 0xFF, 0x00, 0x04, 0x0A, 0x00}, "=== BSC page 0 ===\nevent_time: 1024\nrev_count: 10\n"},
		{"page 1", page8{0x01, 0x02, 0x00, 0x00}, "=== BSC page 1 ===\noperating_time: 2\n"},
		{"page 2 prints manufacturer", page8{0x02, 0x07, 0x08, 0x00}, "=== BSC page 2 ===\nmanuf_id: 7\nserial_num: 8\n"},
		{"page 3", page8{0x03, 0x01, 0x02, 0x03}, "=== BSC page 3 ===\nhw_version: 1\nsw_version: 2\nmodel_num: 3\n"},
		{"page 4", page8{0x04, 0xFF, 0x10, 0x12}, "=== BSC page 4 ===\nfract_bat_volt: 16\ncoarse_bat_volt: 2\nbat_status: 1\n"},
		{"page 5 logs only", page8{0x05, 0x00}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, text, _, _ := newTestFormatter(DisplaySpeed)
			rx(t, f, 2, tt.data)
			assert.Equal(t, tt.want, text.String())
		})
	}
}

func TestFormatter_Forwarding(t *testing.T) {
	f, _, b, _ := newTestFormatter(DisplaySpeed)

	rx(t, f, 0, page8{0x03})                   // HRM page 3: forwarded
	rx(t, f, 1, page8{0x10, 0, 0xFF, 0xFF})    // BPWR page 16: forwarded
	rx(t, f, 1, page8{0x50})                   // BPWR page 80: not forwarded
	rx(t, f, 2, page8{0x04})                   // BSC page 4: not forwarded
	rx(t, f, 2, page8{0x00, 0, 0, 0, 0, 4, 1}) // BSC page 0: forwarded

	require.Len(t, b.payloads, 3)
	assert.Equal(t, []byte{0x00, 0x03, 0, 0, 0, 0, 0, 0, 0}, b.payloads[0])
	assert.Equal(t, byte(0x01), b.payloads[1][0])
	assert.Equal(t, byte(0x02), b.payloads[2][0])
	for _, p := range b.payloads {
		assert.Len(t, p, 1+antmsg.DataPageSize)
	}
}

func TestFormatter_BroadcastErrorReturned(t *testing.T) {
	f, text, b, _ := newTestFormatter(DisplayCombined)
	b.err = errors.New("queue full")

	err := f.Receive(0, antmsg.EventRx, page8{0x00})
	assert.ErrorIs(t, err, b.err)
	assert.NotEmpty(t, text.String())
}

func TestFormatter_RelaysUnknownHRMPages(t *testing.T) {
	f, text, b, sink := newTestFormatter(DisplayCombined)

	// Pages 5 to 7 and their toggled variants
	pages := []page8{
		{0x05, 0x01, 0x00, 0x00, 0x10, 0x20, 0x30, 0x48},
		{0x86, 0x02, 0x03, 0x04, 0x10, 0x20, 0x30, 0x48},
		{0x07, 0x64, 0x00, 0x00, 0x10, 0x20, 0x30, 0x48},
	}
	for _, data := range pages {
		rx(t, f, 0, data)
	}

	require.Len(t, b.payloads, len(pages))
	for i, data := range pages {
		assert.Equal(t, append([]byte{0x00}, data[:]...), b.payloads[i])
	}
	assert.Empty(t, text.String())
	assert.Empty(t, sink.readings)
}

func TestFormatter_RelayErrorOnUnknownHRMPage(t *testing.T) {
	f, _, b, _ := newTestFormatter(DisplayCombined)
	b.err = errors.New("queue full")

	assert.ErrorIs(t, f.Receive(0, antmsg.EventRx, page8{0x06}), b.err)
}

func TestFormatter_CalibrationTimesOutWhileBroadcastsFail(t *testing.T) {
	f, _, b, _ := newTestFormatter(DisplayCombined)
	b.err = errors.New("queue full")

	_, err := f.RequestCalibration(1)
	require.NoError(t, err)

	for i := 0; i < CalibrationTimeoutMessages-1; i++ {
		err := f.Receive(1, antmsg.EventRx, page8{0x10, byte(i), 0xFF, 0xFF})
		require.ErrorIs(t, err, b.err)
		assert.Equal(t, CalibrationTimeoutMessages-1-i, f.calibration[1])
	}
	assert.True(t, f.calibrationPending(1))

	err = f.Receive(1, antmsg.EventRx, page8{0x10, 0x20, 0xFF, 0xFF})
	assert.ErrorIs(t, err, b.err)
	assert.False(t, f.calibrationPending(1))
	assert.Empty(t, f.calibration)
}

func TestFormatter_SpeedDisplay(t *testing.T) {
	f, _, _, sink := newTestFormatter(DisplaySpeed)

	rx(t, f, 2, page8{0x00, 0, 0, 0, 0x00, 0x04, 0x0A, 0x00}) // 10 revs at 1024
	rx(t, f, 2, page8{0x00, 0, 0, 0, 0x00, 0x08, 0x0E, 0x00}) // 14 revs at 2048

	// 4 revolutions in 1 second with a 2070 mm wheel
	assert.Equal(t, uint32(29), f.Speed())
	assert.Equal(t, uint32(0), f.Cadence())
	require.Len(t, sink.readings, 2)
	assert.Equal(t, QuantitySpeed, sink.readings[1].Quantity)
	assert.Equal(t, uint32(29), sink.readings[1].Value)
	assert.Equal(t, "BSC speed", sink.readings[1].Profile)
}

func TestFormatter_CadenceDisplayPage5(t *testing.T) {
	f, _, _, sink := newTestFormatter(DisplayCadence)

	rx(t, f, 2, page8{0x05, 0, 0, 0, 0x00, 0x04, 0x01, 0x00})
	rx(t, f, 2, page8{0x05, 0, 0, 0, 0x00, 0x08, 0x02, 0x00})

	assert.Equal(t, uint32(60), f.Cadence())
	require.Len(t, sink.readings, 2)
	assert.Equal(t, QuantityCadence, sink.readings[1].Quantity)
}

func TestFormatter_CombinedPageDrivesBothAccumulators(t *testing.T) {
	f, text, _, sink := newTestFormatter(DisplayCombined)

	rx(t, f, 2, page8{0x00, 0x04, 0x01, 0x00, 0x00, 0x04, 0x0A, 0x00})
	text.Reset()
	// Cadence: 1 rev in 1 s. Speed: 4 revs in 1 s.
	rx(t, f, 2, page8{0x00, 0x08, 0x02, 0x00, 0x00, 0x08, 0x0E, 0x00})

	assert.Equal(t, "=== BSC page 0 ===\nSpeed: 29 kph\nCadence: 60 rpm\n", text.String())
	require.Len(t, sink.readings, 4)
	assert.Equal(t, QuantitySpeed, sink.readings[2].Quantity)
	assert.Equal(t, QuantityCadence, sink.readings[3].Quantity)
}

func TestFormatter_PowerReadings(t *testing.T) {
	f, _, _, sink := newTestFormatter(DisplayCombined)

	rx(t, f, 1, page8{0x10, 0x01, 0xFF, 0x5A, 0x00, 0x00, 0xFA, 0x00})
	rx(t, f, 1, page8{0x10, 0x02, 0xFF, 0xFF, 0x00, 0x00, 0xFB, 0x00})

	require.Len(t, sink.readings, 3)
	assert.Equal(t, Reading{Time: time.Unix(1700000000, 0), Channel: 1, Profile: "BPWR", Quantity: QuantityPower, Value: 250, Unit: "W"}, sink.readings[0])
	assert.Equal(t, QuantityCadence, sink.readings[1].Quantity)
	assert.Equal(t, uint32(90), sink.readings[1].Value)
	assert.Equal(t, uint32(251), sink.readings[2].Value)
}

func TestFormatter_UnknownChannelAndPage(t *testing.T) {
	f, _, _, _ := newTestFormatter(DisplayCombined)

	assert.ErrorIs(t, f.Receive(5, antmsg.EventRx, page8{}), ErrUnknownChannel)
	assert.ErrorIs(t, f.Receive(1, antmsg.EventRx, page8{0x09}), ErrUnknownPage)
	assert.ErrorIs(t, f.Receive(2, antmsg.EventRx, page8{0x09}), ErrUnknownPage)
	assert.NoError(t, f.Receive(0, antmsg.EventRxFail, page8{}))
}

func TestFormatter_CalibrationSuccess(t *testing.T) {
	f, _, _, _ := newTestFormatter(DisplayCombined)

	req, err := f.RequestCalibration(1)
	require.NoError(t, err)
	assert.Equal(t, CalibrationRequestPage(), req)
	assert.True(t, f.calibrationPending(1))

	rx(t, f, 1, page8{0x10})
	rx(t, f, 1, page8{0x01, CalibrationSuccess})
	assert.False(t, f.calibrationPending(1))
}

func TestFormatter_CalibrationTimeout(t *testing.T) {
	f, _, _, _ := newTestFormatter(DisplayCombined)
	_, err := f.RequestCalibration(1)
	require.NoError(t, err)

	for i := 0; i < CalibrationTimeoutMessages-1; i++ {
		rx(t, f, 1, page8{0x10})
	}
	assert.True(t, f.calibrationPending(1))

	rx(t, f, 1, page8{0x10})
	assert.False(t, f.calibrationPending(1))
}

func TestFormatter_CalibrationTxFailed(t *testing.T) {
	f, _, _, _ := newTestFormatter(DisplayCombined)
	_, err := f.RequestCalibration(1)
	require.NoError(t, err)

	require.NoError(t, f.Receive(1, antmsg.EventTransferTxFailed, page8{}))
	assert.False(t, f.calibrationPending(1))
}

func TestFormatter_CalibrationRequiresPowerChannel(t *testing.T) {
	f, _, _, _ := newTestFormatter(DisplayCombined)

	_, err := f.RequestCalibration(0)
	assert.Error(t, err)
	_, err = f.RequestCalibration(7)
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestFormatter_HandleSignals(t *testing.T) {
	f, text, b, _ := newTestFormatter(DisplayCombined)

	require.NoError(t, f.Handle(1, BPWRCalibrationTimeout{}))
	require.NoError(t, f.Handle(1, BPWRCalibrationTxFailed{}))

	assert.Empty(t, text.String())
	assert.Empty(t, b.payloads)
}

func TestCalibrationRequestChannel(t *testing.T) {
	page := CalibrationRequestPage()

	ch, ok := CalibrationRequestChannel(antmsg.NewMessage(antmsg.MsgAcknowledgedData, append([]byte{1}, page[:]...)))
	assert.True(t, ok)
	assert.Equal(t, byte(1), ch)

	// Broadcast data is not a request
	_, ok = CalibrationRequestChannel(antmsg.NewMessage(antmsg.MsgBroadcastData, append([]byte{1}, page[:]...)))
	assert.False(t, ok)

	// Calibration response
	_, ok = CalibrationRequestChannel(antmsg.NewMessage(antmsg.MsgAcknowledgedData, []byte{1, 0x01, CalibrationSuccess, 0, 0, 0, 0, 0, 0}))
	assert.False(t, ok)

	_, ok = CalibrationRequestChannel(antmsg.NewMessage(antmsg.MsgAcknowledgedData, []byte{1, 0x01, CalibrationRequest}))
	assert.False(t, ok)
}
