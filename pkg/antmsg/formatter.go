// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package antmsg

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FormatMessage formats a message into a human-readable string
func FormatMessage(m *Message) string {
	timestamp := m.timestamp.Format("15:04:05.000")
	name := MessageName(m.id, m.payload)

	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d", timestamp, name, m.id, len(m.payload))
	if !m.ChecksumValid() {
		result += fmt.Sprintf(" checksum=0x%02X (expected 0x%02X)", m.checksum, m.expectedChecksum())
	}
	result += "\n"

	return result + FormatPayload(m.id, m.payload)
}

// FormatMessageID returns the human-readable name for a message id.
// Ids shared by two meanings return both names; use MessageName to resolve
// them from the payload.
func FormatMessageID(id byte) string {
	switch id {
	// Configuration
	case MsgUnassignChannel:
		return "UNASSIGN_CHANNEL"
	case MsgAssignChannel:
		return "ASSIGN_CHANNEL"
	case MsgChannelMesgPeriod:
		return "CHANNEL_MESG_PERIOD"
	case MsgChannelSearchTimeout:
		return "CHANNEL_SEARCH_TIMEOUT"
	case MsgChannelRadioFreq:
		return "CHANNEL_RADIO_FREQ"
	case MsgSetNetworkKey:
		return "SET_NETWORK_KEY"
	case MsgTransmitPower:
		return "TRANSMIT_POWER"
	case MsgSearchWaveform:
		return "SEARCH_WAVEFORM"
	case MsgChannelID:
		return "CHANNEL_ID"
	case MsgAddChannelID:
		return "ADD_CHANNEL_ID/ADD_ENCRYPTION_ID"
	case MsgConfigIDList:
		return "CONFIG_ID_LIST/ENCRYPTION_ID"
	case MsgChannelTransmitPower:
		return "CHANNEL_TRANSMIT_POWER"
	case MsgSetLPSearchTimeout:
		return "SET_LP_SEARCH_TIMEOUT"
	case MsgSerialNumSetChannelID:
		return "SERIAL_NUM_SET_CHANNEL_ID"
	case MsgProximitySearchConfig:
		return "PROX_SEARCH_CONFIG"

	// Notifications
	case MsgStartup:
		return "STARTUP"
	case MsgSerialError:
		return "SERIAL_ERROR"

	// Control
	case MsgResetSystem:
		return "RESET_SYSTEM"
	case MsgOpenChannel:
		return "OPEN_CHANNEL"
	case MsgCloseChannel:
		return "CLOSE_CHANNEL"
	case MsgRequest:
		return "REQUEST"

	// Data
	case MsgBroadcastData:
		return "BROADCAST_DATA"
	case MsgAcknowledgedData:
		return "ACKNOWLEDGED_DATA"
	case MsgBurstData:
		return "BURST_DATA"

	// Channel events and requested responses
	case MsgResponseEvent:
		return "CHANNEL_EVENT/CHANNEL_RESPONSE"
	case MsgChannelStatus:
		return "CHANNEL_STATUS"
	case MsgTestCWInit:
		return "TEST_CW_INIT"
	case MsgCapabilities:
		return "CAPABILITIES"

	default:
		return "UNKNOWN"
	}
}

// MessageName returns the name of a message, resolving ids that carry two
// meanings from the payload.
//
// 0x40 is a CHANNEL_EVENT when its second payload byte is MsgEvent and a
// CHANNEL_RESPONSE otherwise. 0x59 and 0x5A have identical payload shapes
// for both meanings, so their combined name is kept.
func MessageName(id byte, payload []byte) string {
	if id == MsgResponseEvent && len(payload) >= 2 {
		if payload[1] == MsgEvent {
			return "CHANNEL_EVENT"
		}
		return "CHANNEL_RESPONSE"
	}
	return FormatMessageID(id)
}

// FormatResponseCode returns the human-readable name for a response or event code
func FormatResponseCode(code ResponseCode) string {
	switch code {
	case ResponseNoError:
		return "RESPONSE_NO_ERROR"
	case EventRxSearchTimeout:
		return "EVENT_RX_SEARCH_TIMEOUT"
	case EventRxFail:
		return "EVENT_RX_FAIL"
	case EventTx:
		return "EVENT_TX"
	case EventTransferRxFailed:
		return "EVENT_TRANSFER_RX_FAILED"
	case EventTransferTxCompleted:
		return "EVENT_TRANSFER_TX_COMPLETED"
	case EventTransferTxFailed:
		return "EVENT_TRANSFER_TX_FAILED"
	case EventChannelClosed:
		return "EVENT_CHANNEL_CLOSED"
	case EventRxFailGoToSearch:
		return "EVENT_RX_FAIL_GO_TO_SEARCH"
	case EventChannelCollision:
		return "EVENT_CHANNEL_COLLISION"
	case EventTransferTxStart:
		return "EVENT_TRANSFER_TX_START"
	case ChannelInWrongState:
		return "CHANNEL_IN_WRONG_STATE"
	case ChannelNotOpened:
		return "CHANNEL_NOT_OPENED"
	case ChannelIDNotSet:
		return "CHANNEL_ID_NOT_SET"
	case CloseAllChannels:
		return "CLOSE_ALL_CHANNELS"
	case TransferInProgress:
		return "TRANSFER_IN_PROGRESS"
	case TransferSequenceNumberErr:
		return "TRANSFER_SEQUENCE_NUMBER_ERROR"
	case TransferInError:
		return "TRANSFER_IN_ERROR"
	case MessageSizeExceedsLimit:
		return "MESSAGE_SIZE_EXCEEDS_LIMIT"
	case InvalidMessage:
		return "INVALID_MESSAGE"
	case InvalidNetworkNumber:
		return "INVALID_NETWORK_NUMBER"
	case InvalidListID:
		return "INVALID_LIST_ID"
	case InvalidScanTxChannel:
		return "INVALID_SCAN_TX_CHANNEL"
	case InvalidParameterProvided:
		return "INVALID_PARAMETER_PROVIDED"
	case EventSerialQueueOverflow:
		return "EVENT_SERIAL_QUE_OVERFLOW"
	case EventQueueOverflow:
		return "EVENT_QUE_OVERFLOW"
	case NVMFullError:
		return "NVM_FULL_ERROR"
	case NVMWriteError:
		return "NVM_WRITE_ERROR"
	case UsbStringWriteFail:
		return "USB_STRING_WRITE_FAIL"
	case MesgSerialErrorID:
		return "MESG_SERIAL_ERROR_ID"
	case EventRx:
		return "EVENT_RX"
	default:
		return "UNKNOWN"
	}
}

// FormatPayload formats a message payload based on message id
func FormatPayload(id byte, payload []byte) string {
	switch id {
	case MsgRequest:
		// 0 => channel, 1 => requested message id
		if len(payload) >= 2 {
			return fmt.Sprintf("  Channel: %d, Requested: %s (0x%02X)\n",
				payload[0], FormatMessageID(payload[1]), payload[1])
		}

	case MsgResponseEvent:
		// 0 => channel, 1 => message id or MsgEvent, 2 => code
		if len(payload) >= 3 {
			code := ResponseCode(payload[2])
			if payload[1] == MsgEvent {
				return fmt.Sprintf("  Channel: %d, Event: %s (0x%02X)\n",
					payload[0], FormatResponseCode(code), payload[2])
			}
			return fmt.Sprintf("  Channel: %d, Reply to: %s (0x%02X), Code: %s (0x%02X)\n",
				payload[0], FormatMessageID(payload[1]), payload[1], FormatResponseCode(code), payload[2])
		}

	case MsgCapabilities:
		// 0 => channels, 1 => networks, 2 => standard, 3 => advanced, 4 => advanced 2, 5 => SensRcore channels
		if len(payload) >= 6 {
			return fmt.Sprintf("  Channels: %d, Networks: %d, Standard: 0x%02X, Advanced: 0x%02X/0x%02X, SensRcore: %d\n",
				payload[0], payload[1], payload[2], payload[3], payload[4], payload[5])
		}

	case MsgChannelID:
		// 0 => channel, 1-2 => device number (LE), 3 => device type, 4 => transmission type
		if len(payload) >= 5 {
			return fmt.Sprintf("  Channel: %d, Device: %d, Type: 0x%02X, Transmission: 0x%02X\n",
				payload[0], binary.LittleEndian.Uint16(payload[1:3]), payload[3], payload[4])
		}

	case MsgAssignChannel:
		// 0 => channel, 1 => channel type, 2 => network
		if len(payload) >= 3 {
			return fmt.Sprintf("  Channel: %d, Type: 0x%02X, Network: %d\n", payload[0], payload[1], payload[2])
		}

	case MsgChannelMesgPeriod:
		// 0 => channel, 1-2 => period in 1/32768 s (LE)
		if len(payload) >= 3 {
			period := binary.LittleEndian.Uint16(payload[1:3])
			return fmt.Sprintf("  Channel: %d, Period: %d (%.2f Hz)\n", payload[0], period, periodHz(period))
		}

	case MsgChannelRadioFreq:
		// 0 => channel, 1 => offset from 2400 MHz
		if len(payload) >= 2 {
			return fmt.Sprintf("  Channel: %d, Frequency: %d MHz\n", payload[0], 2400+int(payload[1]))
		}

	case MsgOpenChannel, MsgCloseChannel, MsgUnassignChannel:
		if len(payload) >= 1 {
			return fmt.Sprintf("  Channel: %d\n", payload[0])
		}

	case MsgBroadcastData, MsgAcknowledgedData, MsgBurstData:
		// 0 => channel, 1-8 => data page
		if len(payload) >= 1 {
			return fmt.Sprintf("  Channel: %d, Data: %s\n", payload[0], hexBytes(payload[1:]))
		}
	}

	if len(payload) == 0 {
		return "  (no payload)\n"
	}
	return "  Payload: " + hexBytes(payload) + "\n"
}

func periodHz(period uint16) float64 {
	if period == 0 {
		return 0
	}
	return 32768.0 / float64(period)
}

func hexBytes(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
