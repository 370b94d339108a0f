// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package antmsg implements the ANT serial message format used between a
// host and an ANT USB radio.
//
// Every message is framed as:
//
//	[sync][length][id][payload 0..17][checksum]
//
// where checksum is the XOR of all preceding bytes. This package provides
// frame encoding, parsing of delimited frames, a streaming decoder for raw
// transport bytes, and human-readable formatting for monitor tools.
package antmsg

// Sync bytes
const (
	SyncTx = 0xA4 // Host to radio, also used for radio replies in emulation
	SyncRx = 0xA5
)

// Frame layout
const (
	SyncSize     = 1
	LengthSize   = 1
	IDSize       = 1
	ChecksumSize = 1
	HeaderSize   = SyncSize + LengthSize + IDSize
	OverheadSize = HeaderSize + ChecksumSize

	MaxPayloadSize = 17
	MaxFrameSize   = MaxPayloadSize + OverheadSize
)

// Frame byte positions
const (
	PosSync = iota
	PosLength
	PosID
	PosPayload
)

// Standard data page size carried by broadcast, acknowledged and burst data
const DataPageSize = 8

// Message IDs - Configuration
const (
	MsgUnassignChannel       = 0x41
	MsgAssignChannel         = 0x42
	MsgChannelMesgPeriod     = 0x43
	MsgChannelSearchTimeout  = 0x44
	MsgChannelRadioFreq      = 0x45
	MsgSetNetworkKey         = 0x46
	MsgTransmitPower         = 0x47
	MsgSearchWaveform        = 0x49
	MsgChannelID             = 0x51
	MsgAddChannelID          = 0x59 // Also ADD_ENCRYPTION_ID
	MsgConfigIDList          = 0x5A // Also ENCRYPTION_ID
	MsgChannelTransmitPower  = 0x60
	MsgSetLPSearchTimeout    = 0x63
	MsgSerialNumSetChannelID = 0x65
	MsgProximitySearchConfig = 0x71
)

// Message IDs - Notifications
const (
	MsgStartup     = 0x6F
	MsgSerialError = 0xAE
)

// Message IDs - Control
const (
	MsgResetSystem  = 0x4A
	MsgOpenChannel  = 0x4B
	MsgCloseChannel = 0x4C
	MsgRequest      = 0x4D
)

// Message IDs - Data
const (
	MsgBroadcastData    = 0x4E
	MsgAcknowledgedData = 0x4F
	MsgBurstData        = 0x50
)

// Message IDs - Channel events and requested responses
const (
	MsgResponseEvent = 0x40 // CHANNEL_EVENT or CHANNEL_RESPONSE, see MessageName
	MsgChannelStatus = 0x52
	MsgTestCWInit    = 0x53
	MsgCapabilities  = 0x54
)

// MsgEvent is the message id slot value of a RESPONSE_EVENT payload that
// carries an RF event instead of a reply to a command.
const MsgEvent = 0x01

// ResponseCode is the third payload byte of a RESPONSE_EVENT message
type ResponseCode uint8

// Response and event codes
const (
	ResponseNoError           ResponseCode = 0x00
	EventRxSearchTimeout      ResponseCode = 0x01
	EventRxFail               ResponseCode = 0x02
	EventTx                   ResponseCode = 0x03
	EventTransferRxFailed     ResponseCode = 0x04
	EventTransferTxCompleted  ResponseCode = 0x05
	EventTransferTxFailed     ResponseCode = 0x06
	EventChannelClosed        ResponseCode = 0x07
	EventRxFailGoToSearch     ResponseCode = 0x08
	EventChannelCollision     ResponseCode = 0x09
	EventTransferTxStart      ResponseCode = 0x0A
	ChannelInWrongState       ResponseCode = 0x15
	ChannelNotOpened          ResponseCode = 0x16
	ChannelIDNotSet           ResponseCode = 0x18
	CloseAllChannels          ResponseCode = 0x19
	TransferInProgress        ResponseCode = 0x1F
	TransferSequenceNumberErr ResponseCode = 0x20
	TransferInError           ResponseCode = 0x21
	MessageSizeExceedsLimit   ResponseCode = 0x27
	InvalidMessage            ResponseCode = 0x28
	InvalidNetworkNumber      ResponseCode = 0x29
	InvalidListID             ResponseCode = 0x30
	InvalidScanTxChannel      ResponseCode = 0x31
	InvalidParameterProvided  ResponseCode = 0x33
	EventSerialQueueOverflow  ResponseCode = 0x34
	EventQueueOverflow        ResponseCode = 0x35
	NVMFullError              ResponseCode = 0x40
	NVMWriteError             ResponseCode = 0x41
	UsbStringWriteFail        ResponseCode = 0x70
	MesgSerialErrorID         ResponseCode = 0xAE
	EventRx                   ResponseCode = 0x80 // Data received, reported by the radio stack
)

// ANT+ device types used by the emulated profiles
const (
	DeviceTypeBSC        = 0x79 // Combined speed and cadence
	DeviceTypeBSCSpeed   = 0x7B
	DeviceTypeBSCCadence = 0x7A
	DeviceTypeHRM        = 0x78
	DeviceTypeBPWR       = 0x0B
)
