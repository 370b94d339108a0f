// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package responder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Thermoquad/antstick/internal/util"
	"github.com/Thermoquad/antstick/pkg/antmsg"
)

// Counters is a point-in-time copy of host link statistics
type Counters struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	InboundFrames    uint64
	RepliesSent      uint64
	BroadcastsSent   uint64
	DecodeErrors     uint64
	ChecksumErrors   uint64
	LengthMismatches uint64
	InvalidChannels  uint64
	UnknownIDs       uint64
	SkippedBytes     uint64
	WriteErrors      uint64

	// PerID counts inbound frames by message id
	PerID map[byte]uint64

	// Rates (calculated)
	FrameRate float64 // inbound frames/sec
	ErrorRate float64 // errors/sec
}

// Statistics tracks host link traffic and error rates. It is safe for
// concurrent use: the serve loop updates it while dashboards read snapshots.
type Statistics struct {
	mu sync.Mutex
	Counters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		Counters: Counters{
			StartTime:      now,
			LastUpdateTime: now,
			PerID:          make(map[byte]uint64),
		},
	}
}

// RecordInbound updates statistics for a decoded inbound frame and its
// validation anomalies
func (s *Statistics) RecordInbound(m *antmsg.Message, anomalies []antmsg.ValidationError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.InboundFrames++
	s.PerID[m.ID()]++

	for _, a := range anomalies {
		switch a.Type {
		case antmsg.AnomalyChecksum:
			s.ChecksumErrors++
		case antmsg.AnomalyLengthMismatch:
			s.LengthMismatches++
		case antmsg.AnomalyInvalidChannel:
			s.InvalidChannels++
		case antmsg.AnomalyUnknownID:
			s.UnknownIDs++
		}
	}

	s.LastUpdateTime = time.Now()
}

// RecordDecodeError counts a frame the decoder could not complete
func (s *Statistics) RecordDecodeError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if errors.Is(err, antmsg.ErrChecksumMismatch) {
		s.ChecksumErrors++
	} else {
		s.DecodeErrors++
	}
	s.LastUpdateTime = time.Now()
}

// RecordSkipped counts bytes discarded while searching for a sync byte
func (s *Statistics) RecordSkipped(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SkippedBytes += uint64(n)
}

// RecordReplies counts reply frames written to the host
func (s *Statistics) RecordReplies(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RepliesSent += uint64(n)
}

// RecordBroadcast counts a BROADCAST_DATA frame written to the host
func (s *Statistics) RecordBroadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BroadcastsSent++
}

// RecordWriteError counts a failed write to the host
func (s *Statistics) RecordWriteError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WriteErrors++
}

// Snapshot returns a copy of the counters with rates calculated
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calculateRates()
	snap := s.Counters
	snap.PerID = make(map[byte]uint64, len(s.PerID))
	for id, n := range s.PerID {
		snap.PerID[id] = n
	}
	return snap
}

// ErrorCount returns the total of all error counters
func (c Counters) ErrorCount() uint64 {
	return c.DecodeErrors + c.ChecksumErrors + c.LengthMismatches + c.InvalidChannels + c.WriteErrors
}

// calculateRates must be called with the lock held
func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.InboundFrames) / elapsed
		s.ErrorRate = float64(s.Counters.ErrorCount()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	return s.Snapshot().String()
}

// String returns a formatted summary of the counters
func (c Counters) String() string {
	var checksumPercent, decodePercent float64
	if total := c.InboundFrames + c.DecodeErrors; total > 0 {
		checksumPercent = float64(c.ChecksumErrors) * 100.0 / float64(total)
		decodePercent = float64(c.DecodeErrors) * 100.0 / float64(total)
	}

	elapsed := time.Since(c.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Inbound Frames:  %8d\n", c.InboundFrames)
	result += fmt.Sprintf("Replies Sent:    %8d\n", c.RepliesSent)
	result += fmt.Sprintf("Broadcasts Sent: %8d\n", c.BroadcastsSent)

	if c.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", c.ChecksumErrors, checksumPercent)
	}
	if c.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", c.DecodeErrors, decodePercent)
	}
	if c.LengthMismatches > 0 {
		result += fmt.Sprintf("  Length Mismatch:  %5d\n", c.LengthMismatches)
	}
	if c.InvalidChannels > 0 {
		result += fmt.Sprintf("  Invalid Channel:  %5d\n", c.InvalidChannels)
	}
	if c.UnknownIDs > 0 {
		result += fmt.Sprintf("  Unknown IDs:      %5d\n", c.UnknownIDs)
	}
	if c.SkippedBytes > 0 {
		result += fmt.Sprintf("Skipped Bytes:   %8d\n", c.SkippedBytes)
	}
	if c.WriteErrors > 0 {
		result += fmt.Sprintf("Write Errors:    %8d\n", c.WriteErrors)
	}

	if len(c.PerID) > 0 {
		result += "By message id:\n"
		ids := make([]int, 0, len(c.PerID))
		for id := range c.PerID {
			ids = append(ids, int(id))
		}
		sort.Ints(ids)
		for _, id := range ids {
			result += fmt.Sprintf("  %-32s %5d\n", antmsg.FormatMessageID(byte(id)), c.PerID[byte(id)])
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", c.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", c.ErrorRate)
	result += "================================\n"

	return result
}

// StartReporter logs a one-line traffic summary every interval while frames
// are flowing. It stops when ctx is cancelled.
func (s *Statistics) StartReporter(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var prevIn, prevOut uint64
		for {
			select {
			case <-ticker.C:
				snap := s.Snapshot()
				out := snap.RepliesSent + snap.BroadcastsSent
				if snap.InboundFrames != prevIn || out != prevOut {
					util.LogInfo("Host link: %d in | %d out | %d errors",
						snap.InboundFrames-prevIn, out-prevOut, snap.ErrorCount())
				}
				prevIn = snap.InboundFrames
				prevOut = out

			case <-ctx.Done():
				return
			}
		}
	}()
}
