// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/antstick/pkg/profile"
)

type published struct {
	channel string
	message []byte
}

type fakeClient struct {
	published []published
	err       error
	closed    bool
}

func (c *fakeClient) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if c.err != nil {
		return redis.NewIntResult(0, c.err)
	}
	c.published = append(c.published, published{channel: channel, message: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

type errSink struct{ err error }

func (s errSink) Publish(profile.Reading) error { return s.err }

func testReading() profile.Reading {
	return profile.Reading{
		Time:     time.Unix(1700000000, 0).UTC(),
		Channel:  2,
		Profile:  "BSC",
		Quantity: profile.QuantitySpeed,
		Value:    29,
		Unit:     profile.QuantitySpeed.Unit(),
	}
}

func TestPublisher_Publish(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "")
	assert.Equal(t, DefaultChannel, p.Channel())

	require.NoError(t, p.Publish(testReading()))
	require.Len(t, client.published, 1)
	assert.Equal(t, DefaultChannel, client.published[0].channel)

	got, err := Decode(client.published[0].message)
	require.NoError(t, err)
	assert.True(t, testReading().Time.Equal(got.Time))
	got.Time = testReading().Time
	assert.Equal(t, testReading(), got)

	require.NoError(t, p.Close())
	assert.True(t, client.closed)
}

func TestPublisher_Error(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	p := newPublisher(client, "bike")

	err := p.Publish(testReading())
	assert.ErrorContains(t, err, "speed")
	assert.ErrorContains(t, err, "connection refused")
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-url", DefaultChannel)
	assert.Error(t, err)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte{0xC1})
	assert.Error(t, err)
}

func TestTee(t *testing.T) {
	ch := make(ChannelSink, 1)
	client := &fakeClient{}
	failure := errors.New("sink failed")

	tee := Tee{ch, errSink{failure}, newPublisher(client, "x")}
	err := tee.Publish(testReading())
	assert.ErrorIs(t, err, failure)

	// Sinks after a failing one still receive the reading
	assert.Len(t, client.published, 1)
	assert.Equal(t, testReading(), <-ch)
}

func TestChannelSink_DropsWhenFull(t *testing.T) {
	ch := make(ChannelSink, 1)
	require.NoError(t, ch.Publish(testReading()))
	require.NoError(t, ch.Publish(testReading()))
	assert.Len(t, ch, 1)
}
