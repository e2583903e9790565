// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 256
)

// AllLines is the line filter that matches every line.
const AllLines = "*"

// clientIDCounter gives clients a monotonically increasing ID so broadcasts
// visit them in a stable order.
var clientIDCounter atomic.Uint64

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id         uint64
	name       string
	hub        *Hub
	conn       *websocket.Conn
	send       chan Message
	removed    chan struct{}
	lineFilter string
}

// NewClient creates a new Client. lineFilter restricts line-scoped messages
// to one line; empty or AllLines receives everything.
func NewClient(hub *Hub, conn *websocket.Conn, lineFilter string) *Client {
	if lineFilter == AllLines {
		lineFilter = ""
	}
	return &Client{
		id:         clientIDCounter.Add(1),
		name:       uuid.NewString(),
		hub:        hub,
		conn:       conn,
		send:       make(chan Message, sendBuffer),
		removed:    make(chan struct{}),
		lineFilter: lineFilter,
	}
}

// ID returns the client's ordering identifier
func (c *Client) ID() uint64 {
	return c.id
}

// Name returns the client's log identifier.
func (c *Client) Name() string {
	return c.name
}

// Wants reports whether msg passes the client's line filter. Messages that
// are not scoped to a line always pass.
func (c *Client) Wants(msg Message) bool {
	return c.lineFilter == "" || msg.LineID == "" || msg.LineID == c.lineFilter
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.removed:
		}
		c.conn.Close() //nolint:errcheck // best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				logging.Error().Err(err).Str("client_id", c.name).Msg("unexpected websocket close error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			metrics.WSErrors.WithLabelValues("decode").Inc()
			logging.Debug().Err(err).Str("client_id", c.name).Msg("ignoring malformed client message")
			continue
		}

		if msg.Type == MessageTypePing {
			select {
			case c.send <- Message{Type: MessageTypePong, Timestamp: time.Now().UTC()}:
			default:
			}
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}

			payload, err := MarshalMessage(message)
			if err != nil {
				metrics.WSErrors.WithLabelValues("encode").Inc()
				logging.Error().Err(err).Str("message_type", message.Type).Msg("failed to encode message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Debug().Err(err).Str("client_id", c.name).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
