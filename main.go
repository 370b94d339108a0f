// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Antstick - ANT+ USB radio emulator
//
// Answers the ANT serial protocol of a host application and relays heart
// rate, bicycle power and speed/cadence data from simulated or real sensors.

package main

import (
	"os"

	"github.com/Thermoquad/antstick/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
