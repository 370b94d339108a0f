// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Thermoquad/antstick/internal/util"
	"github.com/Thermoquad/antstick/pkg/antmsg"
)

const streamBufferSize = 64

// StreamSource reads ANT frames produced by another radio and reports the
// channel data and events they carry
type StreamSource struct {
	rc      io.ReadCloser
	w       io.Writer
	writeMu sync.Mutex

	messages chan Message
	err      error // Set before messages is closed
	done     chan struct{}
	once     sync.Once
}

// NewStreamSource starts reading frames from rc. If rc is also an
// io.Writer the source can transmit acknowledged data.
func NewStreamSource(rc io.ReadCloser) *StreamSource {
	s := &StreamSource{
		rc:       rc,
		messages: make(chan Message, streamBufferSize),
		done:     make(chan struct{}),
	}
	if w, ok := rc.(io.Writer); ok {
		s.w = w
	}
	go s.readLoop()
	return s
}

func (s *StreamSource) readLoop() {
	defer close(s.messages)

	decoder := antmsg.NewDecoder()
	buf := make([]byte, 256)

	for {
		n, err := s.rc.Read(buf)
		if n > 0 {
			msgs, errs := decoder.Decode(buf[:n])
			for _, e := range errs {
				util.LogDebug("radio stream: %v", e)
			}
			for _, m := range msgs {
				msg, ok := TranslateMessage(m)
				if !ok {
					util.LogDebug("radio stream: ignoring %s", antmsg.MessageName(m.ID(), m.Payload()))
					continue
				}
				select {
				case s.messages <- msg:
				case <-s.done:
					s.err = ErrClosed
					return
				}
			}
		}
		if err != nil {
			select {
			case <-s.done:
				err = ErrClosed
			default:
				if errors.Is(err, io.EOF) {
					err = ErrClosed
				}
			}
			s.err = err
			return
		}
	}
}

// TranslateMessage converts a frame from a radio into a channel message.
// Data messages become antmsg.EventRx with the page, and channel events
// keep their code. Other frames are not reported.
func TranslateMessage(m *antmsg.Message) (Message, bool) {
	p := m.Payload()

	switch m.ID() {
	case antmsg.MsgBroadcastData, antmsg.MsgAcknowledgedData, antmsg.MsgBurstData:
		if len(p) < 1+antmsg.DataPageSize {
			return Message{}, false
		}
		msg := Message{Channel: p[0] & 0x1F, Code: antmsg.EventRx}
		copy(msg.Data[:], p[1:1+antmsg.DataPageSize])
		return msg, true

	case antmsg.MsgResponseEvent:
		if len(p) < 3 || p[1] != antmsg.MsgEvent {
			return Message{}, false
		}
		return Message{Channel: p[0], Code: antmsg.ResponseCode(p[2])}, true
	}

	return Message{}, false
}

// Receive returns the next message read from the stream. Messages decoded
// before a read error are delivered before the error.
func (s *StreamSource) Receive(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-s.done:
		return Message{}, ErrClosed
	case msg, ok := <-s.messages:
		if !ok {
			return Message{}, s.err
		}
		return msg, nil
	}
}

// Send writes requests to the radio
func (s *StreamSource) Send(reqs ...antmsg.Request) error {
	if s.w == nil {
		return fmt.Errorf("stream is read-only: %w", ErrNotSupported)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, r := range reqs {
		frame, err := antmsg.EncodeRequest(r)
		if err != nil {
			return err
		}
		if _, err := s.w.Write(frame); err != nil {
			return fmt.Errorf("write %s: %w", antmsg.FormatMessageID(r.ID), err)
		}
	}
	return nil
}

// Setup configures and opens receive channels on the radio
func (s *StreamSource) Setup(network byte, key []byte, channels []ChannelSetup) error {
	reqs, err := SetupCommands(network, key, channels)
	if err != nil {
		return err
	}
	return s.Send(reqs...)
}

// Transmit sends an acknowledged data page on a channel
func (s *StreamSource) Transmit(channel byte, data [antmsg.DataPageSize]byte) error {
	payload := make([]byte, 0, 1+antmsg.DataPageSize)
	payload = append(payload, channel)
	payload = append(payload, data[:]...)
	return s.Send(antmsg.Request{ID: antmsg.MsgAcknowledgedData, Payload: payload})
}

// Close stops reading and closes the underlying stream
func (s *StreamSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.rc.Close()
	})
	return err
}
