// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package responder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Thermoquad/antstick/internal/util"
	"github.com/Thermoquad/antstick/pkg/antmsg"
)

// Direction of a frame on the host link
type Direction int

const (
	Inbound  Direction = iota // host to radio
	Outbound                  // radio to host
)

func (d Direction) String() string {
	if d == Inbound {
		return "in"
	}
	return "out"
}

// FrameObserver is called with every frame crossing the host link
type FrameObserver func(dir Direction, frame []byte)

// ErrQueueFull is returned when a broadcast cannot be queued because the
// serve loop is not keeping up
var ErrQueueFull = errors.New("broadcast queue full")

// BroadcastQueue hands radio payloads to the serve loop, which owns all
// writes to the host
type BroadcastQueue chan []byte

// NewBroadcastQueue creates a queue holding up to size payloads
func NewBroadcastQueue(size int) BroadcastQueue {
	return make(BroadcastQueue, size)
}

// Broadcast queues a copy of payload without blocking
func (q BroadcastQueue) Broadcast(payload []byte) error {
	p := make([]byte, len(payload))
	copy(p, payload)
	select {
	case q <- p:
		return nil
	default:
		return ErrQueueFull
	}
}

// Link connects a Responder to a host byte stream
type Link struct {
	conn      io.ReadWriter
	responder *Responder
	decoder   *antmsg.Decoder

	Stats    *Statistics
	Channels *ChannelTracker

	// Observer, if set, sees every inbound and outbound frame
	Observer FrameObserver
}

// NewLink creates a link serving responder over conn
func NewLink(conn io.ReadWriter, responder *Responder) *Link {
	return &Link{
		conn:      conn,
		responder: responder,
		decoder:   antmsg.NewDecoder(),
		Stats:     NewStatistics(),
		Channels:  NewChannelTracker(),
	}
}

// HandleBytes feeds raw host bytes through the decoder and writes the replies
// to every completed frame. Framing errors are logged and the frame dropped;
// only a failed write is returned.
func (l *Link) HandleBytes(data []byte) error {
	for _, b := range data {
		skipped := l.decoder.Skipped()
		msg, err := l.decoder.DecodeByte(b)
		if err != nil {
			l.Stats.RecordDecodeError(err)
			util.LogWarning("Dropped host frame: %v", err)
			continue
		}
		if msg == nil {
			continue
		}

		if skipped > 0 {
			l.Stats.RecordSkipped(skipped)
			util.LogDebug("Skipped %d bytes before frame", skipped)
		}
		if err := l.handleMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

func (l *Link) handleMessage(msg *antmsg.Message) error {
	l.observe(Inbound, msg.Raw())

	anomalies := antmsg.ValidateMessage(msg)
	for _, a := range anomalies {
		util.LogDebug("%s: %s", antmsg.MessageName(msg.ID(), msg.Payload()), a.Message)
	}
	l.Stats.RecordInbound(msg, anomalies)
	l.Channels.Observe(msg)

	util.LogDebug("<- %s (0x%02X) % X", antmsg.MessageName(msg.ID(), msg.Payload()), msg.ID(), msg.Payload())

	frames, err := EncodeAll(l.responder.HandleMessage(msg))
	if err != nil {
		return err
	}
	for _, frame := range frames {
		if err := l.write(frame); err != nil {
			return err
		}
	}
	l.Stats.RecordReplies(len(frames))
	return nil
}

// Broadcast writes payload to the host as a BROADCAST_DATA frame
func (l *Link) Broadcast(payload []byte) error {
	frame, err := l.responder.BroadcastData(payload)
	if err != nil {
		return err
	}
	if err := l.write(frame); err != nil {
		return err
	}
	l.Stats.RecordBroadcast()
	return nil
}

func (l *Link) write(frame []byte) error {
	if _, err := l.conn.Write(frame); err != nil {
		l.Stats.RecordWriteError()
		return fmt.Errorf("write to host: %w", err)
	}
	l.observe(Outbound, frame)
	util.LogDebug("-> % X", frame)
	return nil
}

func (l *Link) observe(dir Direction, frame []byte) {
	if l.Observer != nil {
		l.Observer(dir, frame)
	}
}

// hostRead is one read result from the host link
type hostRead struct {
	data []byte
	err  error
}

// Serve runs the link until ctx is cancelled, the host closes the stream or
// a read or write fails. Payloads received on broadcasts are written as
// BROADCAST_DATA frames from the same goroutine that writes replies, so
// frames are never interleaved. A clean end of stream returns nil.
//
// Reads run on their own goroutine, which stays blocked in conn.Read after
// ctx is cancelled. The caller must close the connection to release it.
func (l *Link) Serve(ctx context.Context, broadcasts <-chan []byte) error {
	reads := make(chan hostRead, 16)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := l.conn.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case reads <- hostRead{data: data}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				select {
				case reads <- hostRead{err: err}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case r := <-reads:
			if r.err != nil {
				if errors.Is(r.err, io.EOF) {
					return nil
				}
				return fmt.Errorf("read from host: %w", r.err)
			}
			if err := l.HandleBytes(r.data); err != nil {
				return err
			}

		case payload, ok := <-broadcasts:
			if !ok {
				broadcasts = nil
				continue
			}
			if err := l.Broadcast(payload); err != nil {
				if errors.Is(err, antmsg.ErrPayloadTooLarge) {
					util.LogWarning("Dropped broadcast: %v", err)
					continue
				}
				return err
			}
		}
	}
}
