// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"encoding/binary"
	"fmt"

	"github.com/Thermoquad/antstick/pkg/antmsg"
)

// Channel types
const (
	ChannelTypeSlaveRx  = 0x00
	ChannelTypeMasterTx = 0x10
)

// SearchTimeoutInfinite disables the channel search timeout
const SearchTimeoutInfinite = 0xFF

// SetupCommands returns the host command sequence that configures and
// opens receive channels on a network. The network key is only set when
// key is not empty.
func SetupCommands(network byte, key []byte, channels []ChannelSetup) ([]antmsg.Request, error) {
	var reqs []antmsg.Request

	reqs = append(reqs, antmsg.Request{ID: antmsg.MsgResetSystem, Payload: []byte{0x00}})

	if len(key) > 0 {
		if len(key) != 8 {
			return nil, fmt.Errorf("network key must be 8 bytes, got %d", len(key))
		}
		reqs = append(reqs, antmsg.Request{ID: antmsg.MsgSetNetworkKey, Payload: append([]byte{network}, key...)})
	}

	for _, ch := range channels {
		id := make([]byte, 5)
		id[0] = ch.Number
		binary.LittleEndian.PutUint16(id[1:3], ch.DeviceNumber)
		id[3] = ch.DeviceType
		id[4] = ch.TransmissionType

		period := make([]byte, 3)
		period[0] = ch.Number
		binary.LittleEndian.PutUint16(period[1:3], ch.Period)

		reqs = append(reqs,
			antmsg.Request{ID: antmsg.MsgAssignChannel, Payload: []byte{ch.Number, ChannelTypeSlaveRx, network}},
			antmsg.Request{ID: antmsg.MsgChannelID, Payload: id},
			antmsg.Request{ID: antmsg.MsgChannelSearchTimeout, Payload: []byte{ch.Number, SearchTimeoutInfinite}},
			antmsg.Request{ID: antmsg.MsgChannelRadioFreq, Payload: []byte{ch.Number, ANTPlusFrequency}},
			antmsg.Request{ID: antmsg.MsgChannelMesgPeriod, Payload: period},
			antmsg.Request{ID: antmsg.MsgOpenChannel, Payload: []byte{ch.Number}},
		)
	}

	return reqs, nil
}
