// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// PasswordEnv holds the WebSocket password
const PasswordEnv = "ANTSTICK_PASSWORD"

// Connection is a byte stream to the host or to a radio
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

const (
	wsHandshakeTimeout = 10 * time.Second
	wsDialTimeout      = 15 * time.Second
	wsWriteTimeout     = 5 * time.Second
)

// SerialConnection is an ANT link over a serial port, such as the CDC ACM
// device of a USB radio or a UART bridge
type SerialConnection struct {
	serial.Port
}

// OpenSerialConnection opens portName at 8N1 and discards anything the
// device buffered before the port was opened, so the first frame decoded
// belongs to this session
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush serial port %s: %w", portName, err)
	}

	return &SerialConnection{Port: port}, nil
}

// WebSocketConnection carries ANT frames in binary WebSocket messages. A
// message may hold several frames or part of one; the frame decoder
// reassembles them.
type WebSocketConnection struct {
	conn    *websocket.Conn
	pending []byte
	closed  bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	for len(w.pending) == 0 {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		// Text messages are bridge status, not frames
		if messageType == websocket.BinaryMessage {
			w.pending = data
		}
	}

	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

// Write sends p as one binary message. A host that stops reading fails the
// write after wsWriteTimeout instead of stalling the serve loop.
func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return 0, err
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

func basicAuth(username, password string) http.Header {
	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}
	return headers
}

// OpenWebSocketConnection dials a ws:// or wss:// bridge with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	switch u.Scheme {
	case "ws":
	case "wss":
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipSSLVerify}
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsDialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, basicAuth(username, password))
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection to %s failed (HTTP %d): %w", u.Host, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection to %s failed: %w", u.Host, err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword reads the WebSocket password from the environment or prompts
// for it
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// endpoint selects a serial port or a WebSocket URL
type endpoint struct {
	port        string
	baud        int
	url         string
	username    string
	noSSLVerify bool
}

// hostEndpoint returns the host connection selected by the global flags
func hostEndpoint() endpoint {
	return endpoint{
		port:        portName,
		baud:        baudRate,
		url:         wsURL,
		username:    wsUsername,
		noSSLVerify: wsNoSSLVerify,
	}
}

func (e endpoint) configured() bool {
	return e.port != "" || e.url != ""
}

// open connects to the endpoint and describes it
func (e endpoint) open() (Connection, string, error) {
	if e.url != "" {
		password := ""
		if e.username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(e.url, e.username, password, e.noSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", e.url), nil
	}

	if e.port != "" {
		conn, err := OpenSerialConnection(e.port, e.baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", e.port, e.baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// OpenConnection opens the host connection selected by the global flags
func OpenConnection() (Connection, string, error) {
	return hostEndpoint().open()
}
