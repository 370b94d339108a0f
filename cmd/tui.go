// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/antstick/internal/util"
	"github.com/Thermoquad/antstick/pkg/profile"
	"github.com/Thermoquad/antstick/pkg/publish"
	"github.com/Thermoquad/antstick/pkg/responder"
)

const maxLogEntries = 500

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
}

// readingKey identifies the latest reading shown for a quantity
type readingKey struct {
	channel  uint8
	quantity profile.Quantity
}

// Dashboard model
type model struct {
	radioInfo string
	hostInfo  string
	started   time.Time

	stats    *responder.Statistics
	channels *responder.ChannelTracker
	counters responder.Counters
	chans    []responder.ChannelInfo

	readings map[readingKey]profile.Reading
	log      []logEntry
	viewport viewport.Model

	err      error
	width    int
	height   int
	quitting bool
}

// Messages
type tickMsg time.Time
type readingMsg profile.Reading
type logMsg string
type connectedMsg string
type emulatorDoneMsg struct{ err error }

// formatUptime formats a duration as a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialModel(radioInfo string, stats *responder.Statistics, channels *responder.ChannelTracker) model {
	return model{
		radioInfo: radioInfo,
		hostInfo:  "connecting...",
		started:   time.Now(),
		stats:     stats,
		channels:  channels,
		readings:  make(map[readingKey]profile.Reading),
		viewport:  viewport.New(76, 8),
		width:     80,
		height:    24,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Fixed rows above the event log
const headerRows = 18

func (m *model) resize() {
	m.viewport.Width = m.width - 4
	h := m.height - headerRows
	if h < 3 {
		h = 3
	}
	m.viewport.Height = h
}

func (m *model) addLogEntry(message string) {
	m.log = append(m.log, logEntry{timestamp: time.Now(), message: message})
	if len(m.log) > maxLogEntries {
		m.log = m.log[len(m.log)-maxLogEntries:]
	}

	atBottom := m.viewport.AtBottom()
	var b strings.Builder
	for _, e := range m.log {
		fmt.Fprintf(&b, "%s %s\n", headerStyle.Render(e.timestamp.Format("15:04:05.000")), e.message)
	}
	m.viewport.SetContent(b.String())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tickMsg:
		m.counters = m.stats.Snapshot()
		m.chans = m.channels.Snapshot()
		return m, tickCmd()

	case readingMsg:
		r := profile.Reading(msg)
		m.readings[readingKey{channel: r.Channel, quantity: r.Quantity}] = r
		return m, nil

	case logMsg:
		m.addLogEntry(string(msg))
		return m, nil

	case connectedMsg:
		m.hostInfo = string(msg)
		m.addLogEntry("Host connected: " + string(msg))
		return m, nil

	case emulatorDoneMsg:
		m.err = msg.err
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("ANTSTICK - ANT+ RADIO EMULATOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Host: %s | Radio: %s | Up %s | Press 'q' to quit",
		m.hostInfo, m.radioInfo, formatUptime(time.Since(m.started)))))
	s.WriteString("\n\n")

	// Host link statistics
	c := m.counters
	errs := valueStyle
	if c.ErrorCount() > 0 {
		errs = errorStyle
	}
	var stats strings.Builder
	fmt.Fprintf(&stats, "%s %s   %s %s   %s %s   %s %s\n",
		labelStyle.Render("In:"), valueStyle.Render(fmt.Sprintf("%d", c.InboundFrames)),
		labelStyle.Render("Replies:"), valueStyle.Render(fmt.Sprintf("%d", c.RepliesSent)),
		labelStyle.Render("Data:"), valueStyle.Render(fmt.Sprintf("%d", c.BroadcastsSent)),
		labelStyle.Render("Errors:"), errs.Render(fmt.Sprintf("%d", c.ErrorCount())),
	)
	fmt.Fprintf(&stats, "%s %s   %s %s",
		labelStyle.Render("Frame Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", c.FrameRate)),
		labelStyle.Render("Error Rate:"), errs.Render(fmt.Sprintf("%.1f err/s", c.ErrorRate)),
	)
	s.WriteString(boxStyle.Render(stats.String()))
	s.WriteString("\n")

	// Channels and latest readings
	var chans strings.Builder
	shown := 0
	for _, ch := range m.chans {
		if ch.State == responder.ChannelUnassigned {
			continue
		}
		chans.WriteString(ch.String())
		chans.WriteString("\n")
		shown++
	}
	if shown == 0 {
		chans.WriteString(headerStyle.Render("(no channels assigned by the host)\n"))
	}

	keys := make([]readingKey, 0, len(m.readings))
	for k := range m.readings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].channel != keys[j].channel {
			return keys[i].channel < keys[j].channel
		}
		return keys[i].quantity < keys[j].quantity
	})
	for _, k := range keys {
		r := m.readings[k]
		fmt.Fprintf(&chans, "%s %s   ",
			labelStyle.Render(fmt.Sprintf("ch%d %s:", r.Channel, r.Quantity)),
			valueStyle.Render(fmt.Sprintf("%d %s", r.Value, r.Unit)),
		)
	}
	s.WriteString(boxStyle.Render(strings.TrimRight(chans.String(), " \n")))
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 2).Render(m.viewport.View()))

	return s.String()
}

// lineWriter sends complete lines to the dashboard
type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	send func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			return len(p), nil
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			w.send(line)
		}
	}
}

func runServeTUI(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readings := make(publish.ChannelSink, 64)
	s, err := openSession(ctx, readings)
	if err != nil {
		return err
	}
	defer s.Close()

	m := initialModel(s.radioInfo, s.emu.Stats, s.emu.Channels)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	lines := &lineWriter{send: func(line string) { p.Send(logMsg(line)) }}
	util.SetLogOutput(lines)
	defer util.SetLogOutput(os.Stderr)
	s.emu.Text = lines

	go func() {
		for {
			select {
			case r := <-readings:
				p.Send(readingMsg(r))
			case info := <-s.emu.Connected():
				p.Send(connectedMsg(info))
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		err := s.emu.Run(ctx)
		done <- err
		p.Send(emulatorDoneMsg{err: err})
	}()

	final, err := p.Run()
	cancel()
	runErr := <-done

	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if fm, ok := final.(model); ok && fm.err != nil {
		return fm.err
	}
	return runErr
}
