// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"encoding/binary"
	"math/rand"
	"time"

	"github.com/Thermoquad/antstick/pkg/antmsg"
)

// Page layout shared by the simulated sensors
const (
	backgroundInterval = 16 // Main data pages between background pages
	toggleInterval     = 4  // Pages between HRM toggle bit flips
	ticksPerSecond     = 1024
	toggleBit          = 0x80
)

// Simulated product identity
const (
	simManufacturerID = 0x00FF // Development
	simSerialNumber   = 0x00C0FFEE
	simModelNumber    = 0x0001
	simHWRevision     = 0x01
	simSWMajor        = 0x02
	simSWMinor        = 0x05
)

// sensor generates data pages for one simulated device. next advances the
// sensor by dt and returns the page to broadcast.
type sensor interface {
	next(dt time.Duration) [antmsg.DataPageSize]byte
}

// calibrator is implemented by sensors that answer calibration requests
type calibrator interface {
	calibrate(request [antmsg.DataPageSize]byte) ([antmsg.DataPageSize]byte, bool)
}

// revCounter tracks a revolution count driven by a rate in revolutions
// per minute. Events are timestamped at the last whole revolution.
type revCounter struct {
	revs      float64
	elapsed   float64 // seconds
	eventTime uint16
	revCount  uint16
	total     uint32 // Cumulative operating time in 2 s units
}

func (c *revCounter) advance(rpm float64, dt time.Duration) {
	sec := dt.Seconds()
	c.elapsed += sec
	if rpm <= 0 {
		return
	}
	before := int64(c.revs)
	c.revs += rpm / 60 * sec
	after := int64(c.revs)
	if after == before {
		return
	}
	// Time of the last completed revolution
	lastRev := c.elapsed - (c.revs-float64(after))/(rpm/60)
	c.revCount = uint16(after)
	c.eventTime = uint16(int64(lastRev * ticksPerSecond))
}

func (c *revCounter) put(page []byte) {
	binary.LittleEndian.PutUint16(page[4:6], c.eventTime)
	binary.LittleEndian.PutUint16(page[6:8], c.revCount)
}

func jitter(rng *rand.Rand, base, spread float64) float64 {
	return base + (rng.Float64()*2-1)*spread
}

// hrmSensor simulates a heart rate monitor
type hrmSensor struct {
	rng       *rand.Rand
	rate      float64
	beats     float64
	elapsed   float64
	beatTime  uint16
	beatCount uint8
	prevBeat  uint16
	sent      int
	toggle    byte
}

func newHRMSensor(rng *rand.Rand) *hrmSensor {
	return &hrmSensor{rng: rng, rate: 72}
}

func (s *hrmSensor) next(dt time.Duration) [antmsg.DataPageSize]byte {
	s.rate = jitter(s.rng, s.rate, 1)
	if s.rate < 50 {
		s.rate = 50
	}
	if s.rate > 190 {
		s.rate = 190
	}

	sec := dt.Seconds()
	s.elapsed += sec
	before := int64(s.beats)
	s.beats += s.rate / 60 * sec
	if after := int64(s.beats); after != before {
		s.prevBeat = s.beatTime
		s.beatCount = uint8(after)
		lastBeat := s.elapsed - (s.beats-float64(after))/(s.rate/60)
		s.beatTime = uint16(int64(lastBeat * ticksPerSecond))
	}

	if s.sent%toggleInterval == 0 && s.sent > 0 {
		s.toggle ^= toggleBit
	}

	var page [antmsg.DataPageSize]byte
	number := byte(4)
	if s.sent%backgroundInterval == backgroundInterval-1 {
		number = byte(1 + (s.sent/backgroundInterval)%3)
	}
	s.sent++

	page[0] = number | s.toggle
	switch number {
	case 1:
		total := uint32(s.elapsed / 2)
		page[1] = byte(total)
		page[2] = byte(total >> 8)
		page[3] = byte(total >> 16)
	case 2:
		page[1] = byte(simManufacturerID)
		binary.LittleEndian.PutUint16(page[2:4], uint16(simSerialNumber>>16))
	case 3:
		page[1] = simHWRevision
		page[2] = simSWMajor
		page[3] = byte(simModelNumber)
	case 4:
		page[1] = 0xFF
		binary.LittleEndian.PutUint16(page[2:4], s.prevBeat)
	}
	binary.LittleEndian.PutUint16(page[4:6], s.beatTime)
	page[6] = s.beatCount
	page[7] = byte(s.rate + 0.5)

	return page
}

// powerSensor simulates a bicycle power meter broadcasting standard
// power-only pages
type powerSensor struct {
	rng         *rand.Rand
	power       float64
	cadence     float64
	eventCount  uint8
	accumulated uint16
	sent        int
}

func newPowerSensor(rng *rand.Rand) *powerSensor {
	return &powerSensor{rng: rng, power: 200, cadence: 90}
}

func (s *powerSensor) next(dt time.Duration) [antmsg.DataPageSize]byte {
	var page [antmsg.DataPageSize]byte

	s.sent++
	if s.sent%backgroundInterval == 0 {
		if (s.sent/backgroundInterval)%2 == 1 {
			page[0] = 0x50
			page[1] = 0xFF
			page[2] = 0xFF
			page[3] = simHWRevision
			binary.LittleEndian.PutUint16(page[4:6], simManufacturerID)
			binary.LittleEndian.PutUint16(page[6:8], simModelNumber)
		} else {
			page[0] = 0x51
			page[1] = 0xFF
			page[2] = simSWMinor
			page[3] = simSWMajor
			binary.LittleEndian.PutUint32(page[4:8], simSerialNumber)
		}
		return page
	}

	s.power = jitter(s.rng, s.power, 5)
	if s.power < 0 {
		s.power = 0
	}
	s.cadence = jitter(s.rng, s.cadence, 1)
	if s.cadence < 0 {
		s.cadence = 0
	}
	watts := uint16(s.power + 0.5)
	s.eventCount++
	s.accumulated += watts

	page[0] = 0x10
	page[1] = s.eventCount
	page[2] = 0xFF // Pedal power not used
	page[3] = byte(s.cadence + 0.5)
	binary.LittleEndian.PutUint16(page[4:6], s.accumulated)
	binary.LittleEndian.PutUint16(page[6:8], watts)
	return page
}

// calibrate answers a general calibration request with a successful
// manual zero response
func (s *powerSensor) calibrate(request [antmsg.DataPageSize]byte) ([antmsg.DataPageSize]byte, bool) {
	if request[0] != 0x01 || request[1] != 0xAA {
		return [antmsg.DataPageSize]byte{}, false
	}
	return [antmsg.DataPageSize]byte{0x01, 0xAC, 0x00, 0xFF, 0xFF, 0xFF, 0x00, 0x00}, true
}

// bscSensor simulates a speed, cadence or combined sensor
type bscSensor struct {
	rng        *rand.Rand
	deviceType byte
	wheelMM    int
	speedKPH   float64
	cadenceRPM float64
	speed      revCounter
	cadence    revCounter
	sent       int
}

func newBSCSensor(rng *rand.Rand, deviceType byte, wheelMM int) *bscSensor {
	return &bscSensor{
		rng:        rng,
		deviceType: deviceType,
		wheelMM:    wheelMM,
		speedKPH:   29,
		cadenceRPM: 90,
	}
}

func (s *bscSensor) wheelRPM() float64 {
	metersPerMinute := s.speedKPH * 1000 / 60
	return metersPerMinute / (float64(s.wheelMM) / 1000)
}

func (s *bscSensor) next(dt time.Duration) [antmsg.DataPageSize]byte {
	s.speedKPH = jitter(s.rng, s.speedKPH, 0.3)
	if s.speedKPH < 0 {
		s.speedKPH = 0
	}
	s.cadenceRPM = jitter(s.rng, s.cadenceRPM, 1)
	if s.cadenceRPM < 0 {
		s.cadenceRPM = 0
	}
	s.speed.advance(s.wheelRPM(), dt)
	s.cadence.advance(s.cadenceRPM, dt)

	var page [antmsg.DataPageSize]byte

	if s.deviceType == antmsg.DeviceTypeBSC {
		binary.LittleEndian.PutUint16(page[0:2], s.cadence.eventTime)
		binary.LittleEndian.PutUint16(page[2:4], s.cadence.revCount)
		binary.LittleEndian.PutUint16(page[4:6], s.speed.eventTime)
		binary.LittleEndian.PutUint16(page[6:8], s.speed.revCount)
		return page
	}

	counter := &s.speed
	if s.deviceType == antmsg.DeviceTypeBSCCadence {
		counter = &s.cadence
	}

	number := byte(0)
	if s.sent%backgroundInterval == backgroundInterval-1 {
		number = byte(1 + (s.sent/backgroundInterval)%4)
	}
	s.sent++

	page[0] = number
	switch number {
	case 1:
		total := uint32(counter.elapsed / 2)
		page[1] = byte(total)
		page[2] = byte(total >> 8)
		page[3] = byte(total >> 16)
	case 2:
		page[1] = byte(simManufacturerID)
		binary.LittleEndian.PutUint16(page[2:4], uint16(simSerialNumber>>16))
	case 3:
		page[1] = simHWRevision
		page[2] = simSWMajor
		page[3] = byte(simModelNumber)
	case 4:
		page[1] = 0xFF
		page[2] = 0x80 // 0.5 V fractional
		page[3] = 0x23 // Status good, 3 V coarse
	}
	counter.put(page[:])
	return page
}
