// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/Thermoquad/antstick/pkg/responder"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.now = fixedClock(time.Unix(1700000000, 0))

	request := antmsg.MustEncode(antmsg.MsgRequest, []byte{0x00, antmsg.MsgCapabilities})
	reply := antmsg.MustEncode(antmsg.MsgCapabilities, []byte{0x08, 0x03, 0x00, 0xBA, 0x36, 0x00})

	require.NoError(t, w.Write(responder.Inbound, request))
	w.Observe(responder.Outbound, reply)
	assert.Equal(t, 2, w.Count())
	assert.NoError(t, w.Err())

	records, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, responder.Inbound, records[0].Direction)
	assert.Equal(t, request, records[0].Frame)
	assert.Equal(t, time.Unix(1700000000, int64(time.Millisecond)), records[0].Timestamp())

	assert.Equal(t, responder.Outbound, records[1].Direction)
	assert.Equal(t, reply, records[1].Frame)
	assert.True(t, records[1].Time > records[0].Time)
}

func TestRecord_ArrayEncoding(t *testing.T) {
	data, err := cbor.Marshal(Record{Time: 5, Direction: responder.Outbound, Frame: []byte{0xA4}})
	require.NoError(t, err)

	var raw []interface{}
	require.NoError(t, cbor.Unmarshal(data, &raw))
	require.Len(t, raw, 3)
	assert.Equal(t, uint64(5), raw[0])
	assert.Equal(t, uint64(responder.Outbound), raw[1])
	assert.Equal(t, []byte{0xA4}, raw[2])
}

func TestWriter_StickyError(t *testing.T) {
	w := NewWriter(failingWriter{})

	err := w.Write(responder.Inbound, []byte{0xA4})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")

	// Observe swallows the error, Err keeps it
	w.Observe(responder.Inbound, []byte{0xA4})
	assert.Equal(t, err, w.Err())
	assert.Equal(t, 0, w.Count())
}

func TestReader_Empty(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil)).Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadAll_Truncated(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(responder.Inbound, []byte{0xA4, 0x01, 0x4A, 0x00, 0xEF}))
	require.NoError(t, w.Write(responder.Outbound, []byte{0xA4, 0x01, 0x6F, 0x00, 0xCA}))

	data := buf.Bytes()
	records, err := ReadAll(bytes.NewReader(data[:len(data)-2]))
	assert.Error(t, err)
	assert.Len(t, records, 1)
}

func TestWriter_Close(t *testing.T) {
	assert.NoError(t, NewWriter(&bytes.Buffer{}).Close())
}
