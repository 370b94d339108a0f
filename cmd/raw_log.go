// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/antstick/pkg/antmsg"
	"github.com/Thermoquad/antstick/pkg/responder"
)

var (
	errorsOnly bool
	strictLog  bool
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display ANT frames in human-readable format",
	Long: `Continuously decode and display ANT serial frames as they arrive.

Point it at a real ANT radio or at a host application to see each frame
with its timestamp, message name and decoded payload. Frames that fail
validation (checksum, length or channel number) are highlighted.

A traffic summary is printed on exit.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&errorsOnly, "errors-only", false, "Only show frames that fail validation")
	rawLogCmd.Flags().BoolVar(&strictLog, "strict", false, "Drop frames with a bad checksum")
}

// printValidationErrors prints the anomalies found in a frame
func printValidationErrors(m *antmsg.Message, anomalies []antmsg.ValidationError) {
	timestamp := m.Timestamp().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (0x%02X)\n",
		timestamp, antmsg.MessageName(m.ID(), m.Payload()), m.ID())
	for i, a := range anomalies {
		fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, a.Message)
	}
	fmt.Printf("  Raw: % X\n\n", m.Raw())
}

// printDecodeError prints a framing error in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n\n", timestamp, err)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Antstick - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := responder.NewStatistics()
	decoder := antmsg.NewDecoder()
	decoder.Strict = strictLog

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		conn.Close()
	}()

	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		for i := 0; i < n; i++ {
			skipped := decoder.Skipped()
			m, decodeErr := decoder.DecodeByte(buf[i])
			if decodeErr != nil {
				stats.RecordDecodeError(decodeErr)
				printDecodeError(decodeErr)
				continue
			}
			if m == nil {
				continue
			}
			if skipped > 0 {
				stats.RecordSkipped(skipped)
			}

			anomalies := antmsg.ValidateMessage(m)
			stats.RecordInbound(m, anomalies)
			if len(anomalies) > 0 {
				printValidationErrors(m, anomalies)
			} else if !errorsOnly {
				fmt.Print(antmsg.FormatMessage(m))
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, ErrConnectionClosed) {
				fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			}
			break
		}
	}

	fmt.Print(stats.String())
	return nil
}
