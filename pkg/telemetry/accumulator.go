// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package telemetry converts wrapping 16-bit revolution and event time
// counters reported by ANT+ sensors into speed and cadence values.
package telemetry

// Counter resolution and scaling
const (
	// TicksPerSecond is the resolution of ANT+ event time counters
	TicksPerSecond = 1024

	// counterRange is added to a delta when a 16-bit counter wraps
	counterRange = 1 << 16

	// DefaultWheelCircumferenceMM is a 700x23C road wheel
	DefaultWheelCircumferenceMM = 2070
)

// CadenceCoefficient converts revolutions per tick into rpm
const CadenceCoefficient = TicksPerSecond * 60

// SpeedCoefficient returns the coefficient converting wheel revolutions per
// tick into km/h for the given wheel circumference. The integer steps are
// applied in this order, so 2070 mm yields 7630.
func SpeedCoefficient(wheelMM int) int64 {
	return int64(wheelMM) * TicksPerSecond * 36 / 10 / 1000
}

// Accumulator tracks one counter pair across samples. It is not safe for
// concurrent use; each sensor channel owns its own instance.
type Accumulator struct {
	coefficient int64

	prevRevCount  uint16
	prevEventTime uint16

	accRevCount  int64
	accEventTime int64

	prevAccRevCount  int64
	prevAccEventTime int64

	value uint32
}

// NewAccumulator creates an accumulator with a scale coefficient
func NewAccumulator(coefficient int64) *Accumulator {
	return &Accumulator{coefficient: coefficient}
}

// NewSpeedAccumulator creates an accumulator producing km/h
func NewSpeedAccumulator(wheelMM int) *Accumulator {
	return NewAccumulator(SpeedCoefficient(wheelMM))
}

// NewCadenceAccumulator creates an accumulator producing rpm
func NewCadenceAccumulator() *Accumulator {
	return NewAccumulator(CadenceCoefficient)
}

// Update feeds a sample and returns the computed value.
//
// A sample whose revolution count equals the previous one is a duplicate and
// returns the last value without touching state. Each counter is assumed to
// wrap at most once between samples. When no accumulated time has elapsed
// since the last computation the previous value is returned and the new
// revolutions are carried over to the next sample.
func (a *Accumulator) Update(revCount, eventTime uint16) uint32 {
	if revCount == a.prevRevCount {
		return a.value
	}

	a.accRevCount += int64(revCount) - int64(a.prevRevCount)
	if a.prevRevCount > revCount {
		a.accRevCount += counterRange
	}

	a.accEventTime += int64(eventTime) - int64(a.prevEventTime)
	if a.prevEventTime > eventTime {
		a.accEventTime += counterRange
	}

	a.prevRevCount = revCount
	a.prevEventTime = eventTime

	elapsed := a.accEventTime - a.prevAccEventTime
	if elapsed <= 0 {
		return a.value
	}

	a.value = uint32(a.coefficient * (a.accRevCount - a.prevAccRevCount) / elapsed)
	a.prevAccRevCount = a.accRevCount
	a.prevAccEventTime = a.accEventTime

	return a.value
}

// Value returns the last computed value
func (a *Accumulator) Value() uint32 {
	return a.value
}

// Revolutions returns the total revolutions observed, rollovers included
func (a *Accumulator) Revolutions() int64 {
	return a.accRevCount
}

// Reset clears all counter history
func (a *Accumulator) Reset() {
	*a = Accumulator{coefficient: a.coefficient}
}
