// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/linewatch/internal/models"
)

// MockFeedServer is an in-process production-line feed. It accepts websocket
// clients, records every frame they send and lets the test push frames or
// drop connections.
type MockFeedServer struct {
	Server   *httptest.Server
	upgrader websocket.Upgrader
	accepted chan *FeedConn

	// WelcomeClientID, when set, is announced in a welcome frame to each
	// new connection.
	WelcomeClientID string

	// AutoAck answers every heartbeat with heartbeat_ack.
	AutoAck atomic.Bool

	refuse atomic.Bool

	mu       sync.Mutex
	conns    []*FeedConn
	received []models.Frame
	dials    int
}

// FeedConn is the server side of one accepted client.
type FeedConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewMockFeedServer starts a feed server that is closed when the test ends.
func NewMockFeedServer(t *testing.T) *MockFeedServer {
	t.Helper()

	mfs := &MockFeedServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		accepted: make(chan *FeedConn, 16),
	}

	mfs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mfs.mu.Lock()
		mfs.dials++
		mfs.mu.Unlock()

		if mfs.refuse.Load() {
			http.Error(w, "feed unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := mfs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fc := &FeedConn{conn: conn}

		mfs.mu.Lock()
		mfs.conns = append(mfs.conns, fc)
		mfs.mu.Unlock()

		if mfs.WelcomeClientID != "" {
			fc.Send(models.TypeWelcome, models.Welcome{ //nolint:errcheck
				ClientID:      mfs.WelcomeClientID,
				ServerVersion: "mock-1.0",
				Message:       "connected to mock feed",
			})
		}
		mfs.accepted <- fc

		mfs.readLoop(fc)
	}))

	t.Cleanup(mfs.Close)
	return mfs
}

func (m *MockFeedServer) readLoop(fc *FeedConn) {
	for {
		_, data, err := fc.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		m.mu.Lock()
		m.received = append(m.received, frame)
		m.mu.Unlock()

		if frame.Type == models.TypeHeartbeat && m.AutoAck.Load() {
			fc.Send(models.TypeHeartbeatAck, models.HeartbeatAck{ServerTime: time.Now().UTC().Format(time.RFC3339)}) //nolint:errcheck
		}
	}
}

// URL returns the ws:// endpoint of the server.
func (m *MockFeedServer) URL() string {
	return "ws" + strings.TrimPrefix(m.Server.URL, "http") + "/feed"
}

// SetRefuse makes new dials fail with 503 until reset.
func (m *MockFeedServer) SetRefuse(refuse bool) {
	m.refuse.Store(refuse)
}

// Dials returns the number of HTTP requests the server has seen.
func (m *MockFeedServer) Dials() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// Accept waits for the next client connection.
func (m *MockFeedServer) Accept(t *testing.T, timeout time.Duration) *FeedConn {
	t.Helper()
	select {
	case fc := <-m.accepted:
		return fc
	case <-time.After(timeout):
		t.Fatalf("no client connected within %v", timeout)
		return nil
	}
}

// Received returns a copy of every frame clients have sent.
func (m *MockFeedServer) Received() []models.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Frame, len(m.received))
	copy(out, m.received)
	return out
}

// WaitForReceived polls until a frame of msgType has arrived or timeout.
func (m *MockFeedServer) WaitForReceived(msgType string, timeout time.Duration) (models.Frame, bool) {
	deadline := time.Now().Add(timeout)
	for {
		for _, f := range m.Received() {
			if f.Type == msgType {
				return f, true
			}
		}
		if time.Now().After(deadline) {
			return models.Frame{}, false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Close drops all clients and stops the server.
func (m *MockFeedServer) Close() {
	m.mu.Lock()
	conns := m.conns
	m.conns = nil
	m.mu.Unlock()

	for _, fc := range conns {
		fc.Close()
	}
	m.Server.Close()
}

// Send writes a frame of msgType with data as its payload.
func (c *FeedConn) Send(msgType string, data any) error {
	payload, err := json.Marshal(models.NewMessage(msgType, time.Now(), data))
	if err != nil {
		return err
	}
	return c.SendRaw(payload)
}

// SendRaw writes raw bytes as one text frame.
func (c *FeedConn) SendRaw(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close drops the connection without a close handshake.
func (c *FeedConn) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.conn.Close() //nolint:errcheck
}
