// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package antmsg

import "errors"

var (
	// ErrPayloadTooLarge is returned when a payload exceeds MaxPayloadSize
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")

	// ErrMalformedFrame is returned when a frame's length byte disagrees with its buffer
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrChecksumMismatch is returned by strict decoding when the checksum byte is wrong
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
