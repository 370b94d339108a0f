// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package profile

import "time"

// Quantity is a physical value computed from profile pages
type Quantity string

const (
	QuantityHeartRate Quantity = "heart_rate"
	QuantitySpeed     Quantity = "speed"
	QuantityCadence   Quantity = "cadence"
	QuantityPower     Quantity = "power"
)

// Unit returns the unit readings of the quantity are expressed in
func (q Quantity) Unit() string {
	switch q {
	case QuantityHeartRate:
		return "bpm"
	case QuantitySpeed:
		return "km/h"
	case QuantityCadence:
		return "rpm"
	case QuantityPower:
		return "W"
	default:
		return ""
	}
}

// Reading is one computed value, published for consumers outside the host link
type Reading struct {
	Time     time.Time `msgpack:"time"`
	Channel  uint8     `msgpack:"channel"`
	Profile  string    `msgpack:"profile"`
	Quantity Quantity  `msgpack:"quantity"`
	Value    uint32    `msgpack:"value"`
	Unit     string    `msgpack:"unit"`
}

// ReadingSink receives computed readings
type ReadingSink interface {
	Publish(r Reading) error
}
