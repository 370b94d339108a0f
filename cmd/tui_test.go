// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Thermoquad/antstick/pkg/profile"
	"github.com/Thermoquad/antstick/pkg/responder"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{90 * time.Second, "1 minute and 30 seconds"},
		{26*time.Hour + 2*time.Minute + 5*time.Second, "1 day, 2 hours, 2 minutes, and 5 seconds"},
		{2 * time.Hour, "2 hours"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatUptime(tt.d), "%v", tt.d)
	}
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := &lineWriter{send: func(s string) { lines = append(lines, s) }}

	n, err := w.Write([]byte("=== HRM page 0 ===\nBeat count: 5\nHeart"))
	assert.NoError(t, err)
	assert.Equal(t, 38, n)
	assert.Equal(t, []string{"=== HRM page 0 ===", "Beat count: 5"}, lines)

	w.Write([]byte(" rate: 72\n\n"))
	assert.Equal(t, []string{"=== HRM page 0 ===", "Beat count: 5", "Heart rate: 72"}, lines)
}

func TestModel_Readings(t *testing.T) {
	m := initialModel("sim", responder.NewStatistics(), responder.NewChannelTracker())

	next, _ := m.Update(readingMsg(profile.Reading{Channel: 2, Quantity: profile.QuantitySpeed, Value: 29, Unit: "km/h"}))
	next, _ = next.Update(tickMsg(time.Now()))
	view := next.View()

	assert.Contains(t, view, "ch2 speed:")
	assert.Contains(t, view, "29 km/h")
	assert.Contains(t, view, "no channels assigned")
}

func TestServeConfig(t *testing.T) {
	defer func(d string, w int) { displayName, wheelMM = d, w }(displayName, wheelMM)

	displayName, wheelMM = "speed", 2100
	config, err := serveConfig()
	assert.NoError(t, err)
	assert.Equal(t, 2100, config.WheelCircumferenceMM)
	assert.Equal(t, profile.DisplaySpeed, config.DisplayType)

	displayName = "tandem"
	_, err = serveConfig()
	assert.Error(t, err)

	displayName, wheelMM = "combined", 0
	_, err = serveConfig()
	assert.Error(t, err)
}
