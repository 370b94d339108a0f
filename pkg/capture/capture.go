// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records host link traffic as a CBOR sequence and reads
// it back for replay.
//
// Each record is a CBOR array:
//
//	[unix_nanos, direction, frame]
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/antstick/internal/util"
	"github.com/Thermoquad/antstick/pkg/responder"
)

// Record is one captured frame
type Record struct {
	_         struct{} `cbor:",toarray"`
	Time      int64    // Unix nanoseconds
	Direction responder.Direction
	Frame     []byte
}

// Timestamp returns the record time
func (r Record) Timestamp() time.Time {
	return time.Unix(0, r.Time)
}

// Writer appends records to a capture stream. It is safe for concurrent
// use.
type Writer struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	w   io.Writer
	err    error
	logged bool
	n      int

	now func() time.Time
}

// NewWriter creates a capture writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w), w: w, now: time.Now}
}

// Write appends a frame. The first write error is kept and returned by
// every later call.
func (w *Writer) Write(dir responder.Direction, frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}

	rec := Record{Time: w.now().UnixNano(), Direction: dir, Frame: frame}
	if err := w.enc.Encode(rec); err != nil {
		w.err = fmt.Errorf("capture write: %w", err)
		return w.err
	}
	w.n++
	return nil
}

// Observe records a frame and logs failures. It matches
// responder.FrameObserver.
func (w *Writer) Observe(dir responder.Direction, frame []byte) {
	if err := w.Write(dir, frame); err != nil {
		w.mu.Lock()
		first := !w.logged
		w.logged = true
		w.mu.Unlock()
		if first {
			util.LogWarning("Capture stopped: %v", err)
		}
	}
}

// Count returns the number of records written
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Err returns the first write error
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close closes the underlying writer if it is an io.Closer
func (w *Writer) Close() error {
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reader reads records from a capture stream
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a capture reader
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("capture read: %w", err)
	}
	return rec, nil
}

// ReadAll returns every record in the stream
func ReadAll(r io.Reader) ([]Record, error) {
	reader := NewReader(r)
	var out []Record
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
