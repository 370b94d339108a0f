// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package responder answers host commands the way an ANT USB radio does.
//
// The responder is a scripted simulation of the radio's happy path: every
// command succeeds and the reply depends only on the inbound frame. No
// channel state influences replies; ChannelTracker only observes.
package responder

import (
	"fmt"

	"github.com/Thermoquad/antstick/pkg/antmsg"
)

// Responder maps inbound host frames to reply messages
type Responder struct {
	config Config
}

// New creates a responder with the given configuration
func New(config Config) *Responder {
	return &Responder{config: config}
}

// Config returns the responder configuration
func (r *Responder) Config() Config {
	return r.config
}

// Handle parses an inbound frame and returns the replies to send, in order.
// Malformed frames are rejected with an error wrapping
// antmsg.ErrMalformedFrame and produce no replies.
func (r *Responder) Handle(inbound []byte) ([]antmsg.Request, error) {
	msg, err := antmsg.Parse(inbound)
	if err != nil {
		return nil, err
	}
	return r.HandleMessage(msg), nil
}

// HandleMessage returns the replies to an already decoded message
func (r *Responder) HandleMessage(m *antmsg.Message) []antmsg.Request {
	id := m.ID()
	channel := m.Channel()

	switch id {
	case antmsg.MsgRequest:
		if sub, ok := m.PayloadByte(0); ok && sub == 0x00 {
			if requested, _ := m.PayloadByte(1); requested == antmsg.MsgChannelID {
				return []antmsg.Request{{ID: antmsg.MsgChannelID, Payload: r.config.ChannelID.Payload()}}
			}
			capabilities := r.config.Capabilities
			return []antmsg.Request{{ID: antmsg.MsgCapabilities, Payload: capabilities[:]}}
		}

	case antmsg.MsgAssignChannel,
		antmsg.MsgChannelID,
		antmsg.MsgChannelRadioFreq,
		antmsg.MsgChannelMesgPeriod,
		antmsg.MsgProximitySearchConfig,
		antmsg.MsgSetLPSearchTimeout,
		antmsg.MsgChannelSearchTimeout,
		antmsg.MsgOpenChannel:
		return []antmsg.Request{ResponseEvent(channel, id, antmsg.ResponseNoError)}

	case antmsg.MsgCloseChannel:
		return []antmsg.Request{
			ResponseEvent(channel, antmsg.MsgCloseChannel, antmsg.ResponseNoError),
			ResponseEvent(channel, antmsg.MsgEvent, antmsg.EventChannelClosed),
		}

	case antmsg.MsgAcknowledgedData:
		return []antmsg.Request{
			ResponseEvent(channel, antmsg.MsgAcknowledgedData, antmsg.ResponseNoError),
			ResponseEvent(channel, antmsg.MsgEvent, antmsg.EventTransferTxCompleted),
		}
	}

	// Unknown ids and requests for other channels are echoed as successful
	return []antmsg.Request{ResponseEvent(channel, id, antmsg.ResponseNoError)}
}

// Respond handles an inbound frame and returns the encoded reply frames
func (r *Responder) Respond(inbound []byte) ([][]byte, error) {
	requests, err := r.Handle(inbound)
	if err != nil {
		return nil, err
	}
	return EncodeAll(requests)
}

// BroadcastData frames a payload received from the radio as BROADCAST_DATA
// for the host. The payload is forwarded unmodified.
func (r *Responder) BroadcastData(payload []byte) ([]byte, error) {
	frame, err := antmsg.Encode(antmsg.MsgBroadcastData, payload)
	if err != nil {
		return nil, fmt.Errorf("broadcast data: %w", err)
	}
	return frame, nil
}

// ResponseEvent builds a RESPONSE_EVENT reply. id is the message id being
// answered, or antmsg.MsgEvent for an RF event.
func ResponseEvent(channel, id byte, code antmsg.ResponseCode) antmsg.Request {
	return antmsg.Request{
		ID:      antmsg.MsgResponseEvent,
		Payload: []byte{channel, id, byte(code)},
	}
}

// EncodeAll frames a sequence of replies, preserving order
func EncodeAll(requests []antmsg.Request) ([][]byte, error) {
	frames := make([][]byte, 0, len(requests))
	for _, req := range requests {
		frame, err := antmsg.EncodeRequest(req)
		if err != nil {
			return nil, fmt.Errorf("reply 0x%02X: %w", req.ID, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
