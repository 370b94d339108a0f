// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package emulator runs the emulated radio: a host link answering the ANT
// serial protocol and a radio loop relaying sensor data to the host.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/antstick/internal/util"
	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/Thermoquad/antstick/pkg/profile"
	"github.com/Thermoquad/antstick/pkg/radio"
	"github.com/Thermoquad/antstick/pkg/responder"
)

// Defaults
const (
	DefaultQueueSize  = 64
	DefaultMaxBackoff = 30 * time.Second
	calibrationQueue  = 4
)

// Dialer opens the host connection and describes it
type Dialer func() (io.ReadWriteCloser, string, error)

// Emulator connects a radio source to a host. The host connection is
// reopened with exponential backoff when it is lost.
type Emulator struct {
	config profile.Config
	source radio.Source
	dial   Dialer

	// Optional outputs
	Text     io.Writer
	Readings profile.ReadingSink
	Observer responder.FrameObserver

	Responder responder.Config
	Stats     *responder.Statistics
	Channels  *responder.ChannelTracker

	MaxBackoff time.Duration

	queue     responder.BroadcastQueue
	calibrate chan byte
	connected chan string
}

// New creates an emulator
func New(config profile.Config, source radio.Source, dial Dialer) *Emulator {
	return &Emulator{
		config:     config,
		source:     source,
		dial:       dial,
		Responder:  responder.DefaultConfig(),
		Stats:      responder.NewStatistics(),
		Channels:   responder.NewChannelTracker(),
		MaxBackoff: DefaultMaxBackoff,
		queue:      responder.NewBroadcastQueue(DefaultQueueSize),
		calibrate:  make(chan byte, calibrationQueue),
		connected:  make(chan string, 1),
	}
}

// Connected delivers the description of each established host connection
func (e *Emulator) Connected() <-chan string {
	return e.connected
}

// Run serves the host and the radio until ctx is cancelled or the radio
// source fails. Cancellation returns nil.
func (e *Emulator) Run(ctx context.Context) error {
	conn, info, err := e.dial()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	formatter := profile.NewFormatter(e.config, e.Text, e.queue)
	formatter.Readings = e.Readings

	errc := make(chan error, 2)
	go func() { errc <- e.radioLoop(ctx, formatter) }()
	go func() { errc <- e.hostLoop(ctx, conn, info) }()

	err = <-errc
	cancel()
	<-errc

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// observe watches host frames for calibration requests and passes them
// to the radio loop
func (e *Emulator) observe(dir responder.Direction, frame []byte) {
	if e.Observer != nil {
		e.Observer(dir, frame)
	}
	if dir != responder.Inbound {
		return
	}

	msg, err := antmsg.Parse(frame)
	if err != nil {
		return
	}
	if ch, ok := profile.CalibrationRequestChannel(msg); ok {
		select {
		case e.calibrate <- ch:
		default:
			util.LogWarning("Calibration request on channel %d dropped", ch)
		}
	}
}

// hostLoop serves one host connection after another
func (e *Emulator) hostLoop(ctx context.Context, conn io.ReadWriteCloser, info string) error {
	for {
		e.notifyConnected(info)
		util.LogInfo("Host connected: %s", info)

		link := responder.NewLink(conn, responder.New(e.Responder))
		link.Stats = e.Stats
		link.Channels = e.Channels
		link.Observer = e.observe

		err := link.Serve(ctx, e.queue)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			util.LogWarning("Host link lost: %v", err)
		} else {
			util.LogInfo("Host closed the connection")
		}

		conn, info, err = e.reconnect(ctx)
		if err != nil {
			return err
		}
	}
}

func (e *Emulator) notifyConnected(info string) {
	select {
	case e.connected <- info:
	default:
	}
}

// reconnect reopens the host connection with exponential backoff. It only
// fails when ctx is cancelled.
func (e *Emulator) reconnect(ctx context.Context) (io.ReadWriteCloser, string, error) {
	backoff := 100 * time.Millisecond
	maxBackoff := e.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}

	for {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(backoff):
		}

		conn, info, err := e.dial()
		if err == nil {
			return conn, info, nil
		}
		util.LogDebug("Reconnect failed: %v", err)

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// radioLoop feeds radio messages to the formatter, which forwards live
// data to the host through the broadcast queue
func (e *Emulator) radioLoop(ctx context.Context, f *profile.Formatter) error {
	type received struct {
		msg radio.Message
		err error
	}
	messages := make(chan received, 16)

	go func() {
		for {
			msg, err := e.source.Receive(ctx)
			select {
			case messages <- received{msg: msg, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case r := <-messages:
			if r.err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("radio: %w", r.err)
			}
			e.handleRadio(f, r.msg)

		case ch := <-e.calibrate:
			e.startCalibration(f, ch)
		}
	}
}

func (e *Emulator) handleRadio(f *profile.Formatter, msg radio.Message) {
	err := f.Receive(msg.Channel, msg.Code, msg.Data)
	switch {
	case err == nil:
	case errors.Is(err, responder.ErrQueueFull):
		util.LogDebug("Host not keeping up, dropped data on channel %d", msg.Channel)
	case errors.Is(err, profile.ErrUnknownChannel), errors.Is(err, profile.ErrUnknownPage):
		util.LogDebug("Radio: %v", err)
	default:
		util.LogWarning("Radio: %v", err)
	}
}

func (e *Emulator) startCalibration(f *profile.Formatter, channel byte) {
	page, err := f.RequestCalibration(channel)
	if err != nil {
		util.LogWarning("Calibration: %v", err)
		return
	}

	tx, ok := e.source.(radio.Transmitter)
	if !ok {
		util.LogWarning("Calibration: radio cannot transmit")
		return
	}
	if err := tx.Transmit(channel, page); err != nil {
		util.LogWarning("Calibration: %v", err)
	}
}

// ChannelSetups returns the receive channels the radio needs for a
// profile configuration
func ChannelSetups(config profile.Config) []radio.ChannelSetup {
	setups := make([]radio.ChannelSetup, 0, len(config.Channels))
	for _, ch := range config.Channels {
		setups = append(setups, radio.ChannelSetup{
			Number:           ch.Number,
			DeviceType:       ch.DeviceType(),
			DeviceNumber:     ch.DeviceNumber,
			TransmissionType: ch.TransmissionType,
			Period:           ch.Period,
		})
	}
	return setups
}
