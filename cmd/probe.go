// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/antstick/pkg/antmsg"
)

var (
	probeTimeout int
	probeCount   int
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Request capabilities from an ANT radio",
	Long: `Send REQUEST_MESSAGE for CAPABILITIES to an ANT radio and wait for the reply.

The radio can be a real ANT USB stick or another antstick instance. This is
useful for verifying:
  - The serial port or WebSocket bridge is reachable
  - The radio answers the ANT serial protocol
  - Round trip latency of the link

Exit codes:
  0 - All probes answered
  1 - One or more probes failed/timed out
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 5, "Timeout in seconds for each probe")
	probeCmd.Flags().IntVar(&probeCount, "count", 3, "Number of probes to send")
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Antstick - Radio Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per probe\n", probeTimeout)
	fmt.Printf("Count: %d probes\n\n", probeCount)

	// A single reader for the whole run, replies arrive on capabilities
	capabilities := make(chan *antmsg.Message, 1)
	readErr := make(chan error, 1)
	go func() {
		decoder := antmsg.NewDecoder()
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			msgs, _ := decoder.Decode(buf[:n])
			for _, m := range msgs {
				// Broadcast data and other replies are ignored
				if m.ID() == antmsg.MsgCapabilities {
					select {
					case capabilities <- m:
					default:
					}
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	request := antmsg.MustEncode(antmsg.MsgRequest, []byte{0x00, antmsg.MsgCapabilities})
	successCount := 0
	failCount := 0

	for i := 1; i <= probeCount; i++ {
		fmt.Printf("Probe %d/%d: ", i, probeCount)

		startTime := time.Now()
		if _, err := conn.Write(request); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		select {
		case m := <-capabilities:
			rtt := time.Since(startTime)
			fmt.Printf("CAPABILITIES %s, rtt=%v\n", formatCapabilities(m.Payload()), rtt.Round(time.Millisecond))
			successCount++

		case err := <-readErr:
			fmt.Printf("READ FAILED: %v\n", err)
			failCount += probeCount - i + 1
			i = probeCount

		case <-time.After(time.Duration(probeTimeout) * time.Second):
			fmt.Printf("TIMEOUT (no response in %ds)\n", probeTimeout)
			failCount++
		}

		if i < probeCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Probe statistics ---\n")
	fmt.Printf("%d probes sent, %d replies received, %.0f%% loss\n",
		probeCount, successCount, float64(failCount)/float64(probeCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// formatCapabilities summarizes a CAPABILITIES payload
func formatCapabilities(p []byte) string {
	if len(p) < 2 {
		return fmt.Sprintf("(% X)", p)
	}
	return fmt.Sprintf("channels=%d networks=%d (% X)", p[0], p[1], p)
}
