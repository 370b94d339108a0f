// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package antmsg

import "fmt"

// AnomalyType represents different types of message anomalies
type AnomalyType int

const (
	AnomalyChecksum AnomalyType = iota
	AnomalyLengthMismatch
	AnomalyInvalidChannel
	AnomalyUnknownID
)

// MaxChannels is the number of channels advertised in the CAPABILITIES reply
const MaxChannels = 8

// ValidationError represents a message validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// expectedLengths lists the fixed payload length of messages that have one
var expectedLengths = map[byte]int{
	MsgUnassignChannel:       1,
	MsgChannelID:             5,
	MsgChannelMesgPeriod:     3,
	MsgChannelSearchTimeout:  2,
	MsgChannelRadioFreq:      2,
	MsgSetNetworkKey:         9,
	MsgSetLPSearchTimeout:    2,
	MsgProximitySearchConfig: 2,
	MsgOpenChannel:           1,
	MsgCloseChannel:          1,
	MsgBroadcastData:         1 + DataPageSize,
	MsgAcknowledgedData:      1 + DataPageSize,
	MsgBurstData:             1 + DataPageSize,
	MsgCapabilities:          6,
}

// channelMessages carry a channel number in their first payload byte
var channelMessages = map[byte]bool{
	MsgUnassignChannel:       true,
	MsgAssignChannel:         true,
	MsgChannelID:             true,
	MsgChannelMesgPeriod:     true,
	MsgChannelSearchTimeout:  true,
	MsgChannelRadioFreq:      true,
	MsgSetLPSearchTimeout:    true,
	MsgProximitySearchConfig: true,
	MsgOpenChannel:           true,
	MsgCloseChannel:          true,
	MsgBroadcastData:         true,
	MsgAcknowledgedData:      true,
	MsgResponseEvent:         true,
}

// ValidateMessage checks a decoded message for anomalies.
// Returns a slice of validation errors (empty if the message is valid).
// Anomalies are informational: the responder answers anomalous messages anyway.
func ValidateMessage(m *Message) []ValidationError {
	errors := []ValidationError{}

	if !m.ChecksumValid() {
		errors = append(errors, ValidationError{
			Type:    AnomalyChecksum,
			Message: fmt.Sprintf("Checksum mismatch (got 0x%02X, expected 0x%02X)", m.checksum, m.expectedChecksum()),
			Details: map[string]interface{}{"received": m.checksum, "expected": m.expectedChecksum()},
		})
	}

	if FormatMessageID(m.id) == "UNKNOWN" {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownID,
			Message: fmt.Sprintf("Unknown message id 0x%02X", m.id),
			Details: map[string]interface{}{"id": m.id},
		})
	}

	if want, ok := expectedLengths[m.id]; ok && len(m.payload) != want {
		errors = append(errors, ValidationError{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("%s payload length %d (expected %d)", FormatMessageID(m.id), len(m.payload), want),
			Details: map[string]interface{}{"length": len(m.payload), "expected": want},
		})
	}

	if channelMessages[m.id] && len(m.payload) > 0 && m.payload[0] >= MaxChannels {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidChannel,
			Message: fmt.Sprintf("Invalid channel=%d (max %d)", m.payload[0], MaxChannels-1),
			Details: map[string]interface{}{"channel": m.payload[0], "max": MaxChannels - 1},
		})
	}

	return errors
}
