// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/Thermoquad/antstick/pkg/capture"
	"github.com/Thermoquad/antstick/pkg/responder"
)

var replayCheck bool

var replayCmd = &cobra.Command{
	Use:   "replay <capture>",
	Short: "Display or verify a capture file",
	Long: `Display the host traffic recorded by 'serve --capture'.

With --check, every recorded host frame is answered again by the emulated
radio and the replies are compared with the recorded ones. Broadcast data
from the radio is skipped. Any difference exits with status 1.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayCheck, "check", false, "Verify recorded replies")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := capture.ReadAll(f)
	if err != nil {
		// Keep what was read from a capture cut short
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if !replayCheck {
		for _, rec := range records {
			m, err := antmsg.Parse(rec.Frame)
			if err != nil {
				fmt.Printf("[%s] %-3s % X (%v)\n", rec.Timestamp().Format("15:04:05.000"), rec.Direction, rec.Frame, err)
				continue
			}
			fmt.Printf("[%s] %-3s %s (0x%02X) len=%d\n%s",
				rec.Timestamp().Format("15:04:05.000"), rec.Direction,
				antmsg.MessageName(m.ID(), m.Payload()), m.ID(), m.Length(),
				antmsg.FormatPayload(m.ID(), m.Payload()))
		}
		return nil
	}

	mismatches := capture.Verify(records, responder.New(responder.DefaultConfig()))
	for _, m := range mismatches {
		fmt.Println(m.String())
	}
	fmt.Printf("%d records, %d mismatches\n", len(records), len(mismatches))

	if len(mismatches) > 0 {
		os.Exit(1)
	}
	return nil
}
