// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package util

import (
	"bytes"
	"os"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
)

func TestSetLogOutput(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	LogWarning("dropped %d bytes", 3)
	assert.Contains(t, buf.String(), "dropped 3 bytes")
}

func TestEnableDebug(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	level := pterm.DefaultLogger.Level
	defer func() {
		SetLogOutput(os.Stderr)
		pterm.DefaultLogger.Level = level
	}()

	pterm.DefaultLogger.Level = pterm.LogLevelInfo
	LogDebug("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	EnableDebug()
	LogDebug("frame %02X", 0x4D)
	assert.Contains(t, buf.String(), "frame 4D")
}
