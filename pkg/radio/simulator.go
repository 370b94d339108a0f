// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/Thermoquad/antstick/pkg/telemetry"
)

// DefaultSimInterval is the time between simulated messages
const DefaultSimInterval = 250 * time.Millisecond

// SimulatorConfig configures the simulated sensors
type SimulatorConfig struct {
	Channels []ChannelSetup

	// Interval is the real time between messages. Zero delivers messages
	// without waiting.
	Interval time.Duration

	// Step is the simulated time each channel advances per page. Zero
	// uses the channel period.
	Step time.Duration

	WheelCircumferenceMM int
	Seed                 int64
}

type simChannel struct {
	number byte
	step   time.Duration
	sensor sensor
}

// Simulator is a Source that generates ANT+ pages for HRM, bicycle power
// and speed/cadence sensors. Channels are served round robin.
type Simulator struct {
	interval time.Duration
	channels []simChannel

	mu      sync.Mutex
	pending []Message
	next    int
	closed  bool

	done   chan struct{}
	ticker *time.Ticker
}

// NewSimulator creates a simulator for the configured channels
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("simulator needs at least one channel")
	}
	wheel := cfg.WheelCircumferenceMM
	if wheel <= 0 {
		wheel = telemetry.DefaultWheelCircumferenceMM
	}

	s := &Simulator{
		interval: cfg.Interval,
		done:     make(chan struct{}),
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	for _, ch := range cfg.Channels {
		var sn sensor
		switch ch.DeviceType {
		case antmsg.DeviceTypeHRM:
			sn = newHRMSensor(rng)
		case antmsg.DeviceTypeBPWR:
			sn = newPowerSensor(rng)
		case antmsg.DeviceTypeBSC, antmsg.DeviceTypeBSCSpeed, antmsg.DeviceTypeBSCCadence:
			sn = newBSCSensor(rng, ch.DeviceType, wheel)
		default:
			return nil, fmt.Errorf("channel %d: cannot simulate device type 0x%02X", ch.Number, ch.DeviceType)
		}

		step := cfg.Step
		if step <= 0 {
			step = periodDuration(ch.Period)
		}
		s.channels = append(s.channels, simChannel{number: ch.Number, step: step, sensor: sn})
	}

	if s.interval > 0 {
		s.ticker = time.NewTicker(s.interval)
	}
	return s, nil
}

// periodDuration converts a channel period in 1/32768 s to a duration,
// defaulting to 4 Hz
func periodDuration(period uint16) time.Duration {
	if period == 0 {
		return DefaultSimInterval
	}
	return time.Duration(period) * time.Second / 32768
}

// Receive returns the next simulated message. Injected messages are
// delivered first.
func (s *Simulator) Receive(ctx context.Context) (Message, error) {
	if msg, ok, err := s.popPending(); err != nil || ok {
		return msg, err
	}

	if s.ticker != nil {
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-s.done:
			return Message{}, ErrClosed
		case <-s.ticker.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Message{}, ErrClosed
	}
	if len(s.pending) > 0 {
		msg := s.pending[0]
		s.pending = s.pending[1:]
		return msg, nil
	}

	ch := &s.channels[s.next]
	s.next = (s.next + 1) % len(s.channels)
	return Message{Channel: ch.number, Code: antmsg.EventRx, Data: ch.sensor.next(ch.step)}, nil
}

func (s *Simulator) popPending() (Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Message{}, false, ErrClosed
	}
	if len(s.pending) == 0 {
		return Message{}, false, nil
	}
	msg := s.pending[0]
	s.pending = s.pending[1:]
	return msg, true, nil
}

// Inject queues a message for delivery ahead of generated pages
func (s *Simulator) Inject(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, msg)
}

// Transmit sends acknowledged data to a simulated sensor. The transfer
// result is reported as an event. A calibration request to a power sensor
// also queues its calibration response.
func (s *Simulator) Transmit(channel byte, data [antmsg.DataPageSize]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	for _, ch := range s.channels {
		if ch.number != channel {
			continue
		}
		cal, ok := ch.sensor.(calibrator)
		if !ok {
			s.pending = append(s.pending, Message{Channel: channel, Code: antmsg.EventTransferTxFailed})
			return nil
		}
		s.pending = append(s.pending, Message{Channel: channel, Code: antmsg.EventTransferTxCompleted})
		if reply, ok := cal.calibrate(data); ok {
			s.pending = append(s.pending, Message{Channel: channel, Code: antmsg.EventRx, Data: reply})
		}
		return nil
	}

	return fmt.Errorf("channel %d: %w", channel, ErrUnknownChannel)
}

// Close stops the simulator. Pending Receive calls return ErrClosed.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	if s.ticker != nil {
		s.ticker.Stop()
	}
	return nil
}
