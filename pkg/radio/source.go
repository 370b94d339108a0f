// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package radio provides the sources of ANT+ sensor data behind the
// emulated USB radio: a simulator and a stream of ANT frames from another
// radio.
package radio

import (
	"context"
	"errors"

	"github.com/Thermoquad/antstick/pkg/antmsg"
)

var (
	// ErrClosed is returned by Receive after the source has been closed
	ErrClosed = errors.New("radio source closed")

	// ErrUnknownChannel is returned for a channel the source does not serve
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrNotSupported is returned when a transmission is not accepted
	ErrNotSupported = errors.New("not supported")
)

// Message is an event reported by the radio on a channel
type Message struct {
	Channel byte
	Code    antmsg.ResponseCode // antmsg.EventRx when Data holds a received page
	Data    [antmsg.DataPageSize]byte
}

// Source delivers radio messages
type Source interface {
	// Receive blocks until the next message, ctx is done or the source
	// fails
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// Transmitter is implemented by sources that can send acknowledged data
// to a sensor
type Transmitter interface {
	Transmit(channel byte, data [antmsg.DataPageSize]byte) error
}

// ChannelSetup describes one receive channel
type ChannelSetup struct {
	Number           byte
	DeviceType       byte
	DeviceNumber     uint16
	TransmissionType byte
	Period           uint16 // 1/32768 s
}

// ANTPlusFrequency is the RF channel of ANT+ devices, 2457 MHz
const ANTPlusFrequency = 57
