// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"fmt"

	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/Thermoquad/antstick/pkg/responder"
)

// Mismatch is a recorded reply that differs from what the responder
// produces today
type Mismatch struct {
	Index    int // Record index, or -1 for replies missing at the end
	Expected []byte
	Got      []byte
}

func (m Mismatch) String() string {
	switch {
	case m.Got == nil:
		return fmt.Sprintf("record %d: missing reply % X", m.Index, m.Expected)
	case m.Expected == nil:
		return fmt.Sprintf("record %d: unexpected reply % X", m.Index, m.Got)
	default:
		return fmt.Sprintf("record %d: reply % X, expected % X", m.Index, m.Got, m.Expected)
	}
}

// Verify replays the inbound frames of a capture through r and compares
// the replies with the recorded outbound frames. Recorded broadcast data
// came from the radio and is skipped.
func Verify(records []Record, r *responder.Responder) []Mismatch {
	var mismatches []Mismatch
	var pending [][]byte
	pendingFrom := 0

	flush := func() {
		for _, p := range pending {
			mismatches = append(mismatches, Mismatch{Index: pendingFrom, Expected: p})
		}
		pending = nil
	}

	for i, rec := range records {
		switch rec.Direction {
		case responder.Inbound:
			flush()
			replies, err := r.Respond(rec.Frame)
			if err != nil {
				// Malformed frames get no reply
				continue
			}
			pending = replies
			pendingFrom = i

		case responder.Outbound:
			if len(rec.Frame) > antmsg.PosID && rec.Frame[antmsg.PosID] == antmsg.MsgBroadcastData {
				continue
			}
			if len(pending) == 0 {
				mismatches = append(mismatches, Mismatch{Index: i, Got: rec.Frame})
				continue
			}
			if !bytes.Equal(pending[0], rec.Frame) {
				mismatches = append(mismatches, Mismatch{Index: i, Expected: pending[0], Got: rec.Frame})
			}
			pending = pending[1:]
		}
	}
	flush()

	return mismatches
}
