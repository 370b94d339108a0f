// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package publish delivers computed sensor readings to consumers outside
// the host link.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Thermoquad/antstick/internal/util"
	"github.com/Thermoquad/antstick/pkg/profile"
)

// DefaultChannel is the pub/sub channel readings are published on
const DefaultChannel = "antstick.readings"

// DefaultTimeout bounds each publish call
const DefaultTimeout = 2 * time.Second

// redisClient is the subset of the redis client used by Publisher
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Publisher publishes msgpack encoded readings on a redis channel
type Publisher struct {
	client  redisClient
	channel string
	timeout time.Duration
}

// Connect opens a redis connection from a redis:// URL and checks it is
// reachable
func Connect(ctx context.Context, url, channel string) (*Publisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", opt.Addr, err)
	}
	util.LogInfo("Redis: publishing readings to %s on %s", channel, opt.Addr)

	return newPublisher(client, channel), nil
}

func newPublisher(client redisClient, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel, timeout: DefaultTimeout}
}

// Channel returns the pub/sub channel name
func (p *Publisher) Channel() string {
	return p.channel
}

// Publish encodes and publishes a reading
func (p *Publisher) Publish(r profile.Reading) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s reading: %w", r.Quantity, err)
	}
	return nil
}

// Close closes the redis connection
func (p *Publisher) Close() error {
	return p.client.Close()
}

// Encode returns the msgpack encoding of a reading
func Encode(r profile.Reading) ([]byte, error) {
	data, err := msgpack.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("encode reading: %w", err)
	}
	return data, nil
}

// Decode parses a msgpack encoded reading
func Decode(data []byte) (profile.Reading, error) {
	var r profile.Reading
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return profile.Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	return r, nil
}

// Tee fans readings out to several sinks. Every sink is called and the
// errors are joined.
type Tee []profile.ReadingSink

// Publish delivers a reading to every sink
func (t Tee) Publish(r profile.Reading) error {
	var errs []error
	for _, s := range t {
		if err := s.Publish(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChannelSink delivers readings on a Go channel without blocking. Readings
// are dropped while the channel is full.
type ChannelSink chan profile.Reading

// Publish queues a reading
func (c ChannelSink) Publish(r profile.Reading) error {
	select {
	case c <- r:
	default:
	}
	return nil
}
