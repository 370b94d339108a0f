// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/antstick/internal/emulator"
	"github.com/Thermoquad/antstick/internal/util"
	"github.com/Thermoquad/antstick/pkg/capture"
	"github.com/Thermoquad/antstick/pkg/profile"
	"github.com/Thermoquad/antstick/pkg/publish"
	"github.com/Thermoquad/antstick/pkg/radio"
	"github.com/Thermoquad/antstick/pkg/responder"
	"github.com/Thermoquad/antstick/pkg/telemetry"
)

var (
	radioMode     string
	radioPort     string
	radioBaud     int
	radioURL      string
	networkKeyHex string
	simInterval   time.Duration
	simSeed       int64

	wheelMM     int
	displayName string

	capturePath  string
	redisURL     string
	redisChannel string

	serveTUI      bool
	statsInterval int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Emulate an ANT USB radio on the host connection",
	Long: `Answer the ANT serial protocol on the host connection and relay live
sensor data to it.

The emulated radio accepts every channel configuration command and reports
success. Data pages come from the radio source:

  sim    Simulated heart rate, bicycle power and speed/cadence sensors
  port   ANT frames from a real radio on a serial port (--radio-port)
  url    ANT frames from a WebSocket bridge (--radio-url)

Channel 0 carries heart rate, channel 1 bicycle power and channel 2 the
speed/cadence display selected with --display. Readings can be published to
redis and host traffic recorded to a capture file for replay.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&radioMode, "radio", "sim", "Radio source: sim, port or url")
	serveCmd.Flags().StringVar(&radioPort, "radio-port", "", "Serial port of the radio (--radio port)")
	serveCmd.Flags().IntVar(&radioBaud, "radio-baud", 57600, "Baud rate of the radio")
	serveCmd.Flags().StringVar(&radioURL, "radio-url", "", "WebSocket URL of the radio bridge (--radio url)")
	serveCmd.Flags().StringVar(&networkKeyHex, "network-key", "", "Network key for the radio, 16 hex digits")
	serveCmd.Flags().DurationVar(&simInterval, "sim-interval", radio.DefaultSimInterval/3, "Time between simulated pages")
	serveCmd.Flags().Int64Var(&simSeed, "sim-seed", time.Now().UnixNano(), "Seed of the simulated sensors")

	serveCmd.Flags().IntVar(&wheelMM, "wheel-mm", telemetry.DefaultWheelCircumferenceMM, "Wheel circumference in mm")
	serveCmd.Flags().StringVar(&displayName, "display", "combined", "Speed/cadence display: combined, speed or cadence")

	serveCmd.Flags().StringVar(&capturePath, "capture", "", "Record host traffic to a capture file")
	serveCmd.Flags().StringVar(&redisURL, "redis", "", "Publish readings to redis (redis://host:6379/0)")
	serveCmd.Flags().StringVar(&redisChannel, "redis-channel", publish.DefaultChannel, "Redis pub/sub channel for readings")

	serveCmd.Flags().BoolVar(&serveTUI, "tui", false, "Show a terminal dashboard")
	serveCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics log interval in seconds (0 disables)")
}

// serveConfig builds the profile configuration from flags
func serveConfig() (profile.Config, error) {
	display, err := profile.ParseDisplayType(displayName)
	if err != nil {
		return profile.Config{}, err
	}
	config := profile.DefaultConfig(display)
	config.WheelCircumferenceMM = wheelMM
	if err := config.Validate(); err != nil {
		return profile.Config{}, err
	}
	return config, nil
}

// openRadio opens the radio source selected by flags
func openRadio(config profile.Config) (radio.Source, string, error) {
	setups := emulator.ChannelSetups(config)

	var ep endpoint
	switch radioMode {
	case "sim":
		sim, err := radio.NewSimulator(radio.SimulatorConfig{
			Channels:             setups,
			Interval:             simInterval,
			WheelCircumferenceMM: config.WheelCircumferenceMM,
			Seed:                 simSeed,
		})
		if err != nil {
			return nil, "", err
		}
		return sim, "Simulated sensors", nil
	case "port":
		ep = endpoint{port: radioPort, baud: radioBaud}
	case "url":
		ep = endpoint{url: radioURL, username: wsUsername, noSSLVerify: wsNoSSLVerify}
	default:
		return nil, "", fmt.Errorf("unknown radio source %q (use sim, port or url)", radioMode)
	}

	if !ep.configured() {
		return nil, "", fmt.Errorf("--radio %s needs --radio-%s", radioMode, radioMode)
	}

	key, err := hex.DecodeString(networkKeyHex)
	if err != nil {
		return nil, "", fmt.Errorf("invalid network key: %w", err)
	}

	conn, info, err := ep.open()
	if err != nil {
		return nil, "", err
	}
	src := radio.NewStreamSource(conn)
	if err := src.Setup(0, key, setups); err != nil {
		src.Close()
		return nil, "", fmt.Errorf("configure radio: %w", err)
	}
	return src, info, nil
}

// serveSession holds everything opened for a serve run
type serveSession struct {
	emu       *emulator.Emulator
	source    radio.Source
	radioInfo string
	closers   []io.Closer
}

func (s *serveSession) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			util.LogWarning("Close: %v", err)
		}
	}
}

func openSession(ctx context.Context, readings profile.ReadingSink) (*serveSession, error) {
	config, err := serveConfig()
	if err != nil {
		return nil, err
	}
	host := hostEndpoint()
	if !host.configured() {
		return nil, fmt.Errorf("either --port or --url must be specified")
	}

	s := &serveSession{}

	source, radioInfo, err := openRadio(config)
	if err != nil {
		return nil, err
	}
	s.source = source
	s.radioInfo = radioInfo
	s.closers = append(s.closers, source)

	sinks := publish.Tee{}
	if readings != nil {
		sinks = append(sinks, readings)
	}
	if redisURL != "" {
		pub, err := publish.Connect(ctx, redisURL, redisChannel)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, pub)
		sinks = append(sinks, pub)
	}

	dial := func() (io.ReadWriteCloser, string, error) {
		return host.open()
	}
	s.emu = emulator.New(config, source, dial)
	if len(sinks) > 0 {
		s.emu.Readings = sinks
	}

	if capturePath != "" {
		f, err := os.Create(capturePath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("create capture: %w", err)
		}
		w := capture.NewWriter(f)
		s.closers = append(s.closers, w)
		s.emu.Observer = w.Observe
	}

	return s, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveTUI {
		return runServeTUI(ctx)
	}

	s, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	s.emu.Text = os.Stdout

	fmt.Printf("Antstick - ANT+ USB Radio Emulator\n")
	fmt.Printf("Radio: %s\n", s.radioInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if statsInterval > 0 {
		s.emu.Stats.StartReporter(ctx, time.Duration(statsInterval)*time.Second)
	}

	err = s.emu.Run(ctx)
	fmt.Print(s.emu.Stats.String())
	printChannels(s.emu.Channels)
	return err
}

func printChannels(t *responder.ChannelTracker) {
	for _, ch := range t.Snapshot() {
		if ch.State != responder.ChannelUnassigned {
			fmt.Println(ch.String())
		}
	}
}
