// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package antmsg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMessageID(t *testing.T) {
	tests := map[byte]string{
		MsgRequest:          "REQUEST",
		MsgAssignChannel:    "ASSIGN_CHANNEL",
		MsgCapabilities:     "CAPABILITIES",
		MsgBroadcastData:    "BROADCAST_DATA",
		MsgAcknowledgedData: "ACKNOWLEDGED_DATA",
		MsgAddChannelID:     "ADD_CHANNEL_ID/ADD_ENCRYPTION_ID",
		0xFF:                "UNKNOWN",
	}
	for id, want := range tests {
		assert.Equal(t, want, FormatMessageID(id), "id 0x%02X", id)
	}
}

func TestMessageName_ResolvesChannelEvent(t *testing.T) {
	assert.Equal(t, "CHANNEL_EVENT", MessageName(MsgResponseEvent, []byte{0x00, MsgEvent, byte(EventChannelClosed)}))
	assert.Equal(t, "CHANNEL_RESPONSE", MessageName(MsgResponseEvent, []byte{0x00, MsgOpenChannel, byte(ResponseNoError)}))
	assert.Equal(t, "CHANNEL_EVENT/CHANNEL_RESPONSE", MessageName(MsgResponseEvent, nil))
	assert.Equal(t, "OPEN_CHANNEL", MessageName(MsgOpenChannel, []byte{0x00}))
}

func TestFormatResponseCode(t *testing.T) {
	assert.Equal(t, "RESPONSE_NO_ERROR", FormatResponseCode(ResponseNoError))
	assert.Equal(t, "EVENT_CHANNEL_CLOSED", FormatResponseCode(EventChannelClosed))
	assert.Equal(t, "EVENT_TRANSFER_TX_COMPLETED", FormatResponseCode(EventTransferTxCompleted))
	assert.Equal(t, "UNKNOWN", FormatResponseCode(0xEE))
}

func TestFormatMessage(t *testing.T) {
	msg := NewMessage(MsgResponseEvent, []byte{0x02, MsgEvent, byte(EventChannelClosed)})
	out := FormatMessage(msg)
	assert.Contains(t, out, "CHANNEL_EVENT (0x40) len=3")
	assert.Contains(t, out, "Channel: 2, Event: EVENT_CHANNEL_CLOSED (0x07)")
	assert.NotContains(t, out, "checksum=")
}

func TestFormatMessage_BadChecksum(t *testing.T) {
	frame := MustEncode(MsgOpenChannel, []byte{0x00})
	frame[len(frame)-1] = 0x00
	msg, err := Parse(frame)
	assert.NoError(t, err)
	assert.Contains(t, FormatMessage(msg), "checksum=0x00")
}

func TestFormatPayload(t *testing.T) {
	tests := []struct {
		name    string
		id      byte
		payload []byte
		want    string
	}{
		{"capabilities", MsgCapabilities, []byte{0x08, 0x03, 0x00, 0xBA, 0x36, 0x00}, "Channels: 8, Networks: 3"},
		{"channel id", MsgChannelID, []byte{0x00, 0x01, 0x00, 0x78, 0x01}, "Device: 1, Type: 0x78"},
		{"request", MsgRequest, []byte{0x00, MsgChannelID}, "Requested: CHANNEL_ID (0x51)"},
		{"period", MsgChannelMesgPeriod, []byte{0x00, 0x86, 0x1F}, "Period: 8070 (4.06 Hz)"},
		{"frequency", MsgChannelRadioFreq, []byte{0x00, 57}, "Frequency: 2457 MHz"},
		{"broadcast", MsgBroadcastData, []byte{0x01, 0xAA, 0xBB}, "Channel: 1, Data: AA BB"},
		{"reply", MsgResponseEvent, []byte{0x00, MsgAssignChannel, 0x00}, "Reply to: ASSIGN_CHANNEL (0x42), Code: RESPONSE_NO_ERROR"},
		{"empty", MsgResetSystem, nil, "(no payload)"},
		{"fallback", MsgSetNetworkKey, []byte{0x00, 0xB9}, "Payload: 00 B9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatPayload(tt.id, tt.payload)
			assert.True(t, strings.Contains(out, tt.want), "got %q, want substring %q", out, tt.want)
		})
	}
}
