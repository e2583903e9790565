// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/linewatch/internal/connection"
	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/metrics"
	"github.com/tomtom215/linewatch/internal/models"
	"github.com/tomtom215/linewatch/internal/realtime"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for downstream WebSocket communication
const (
	MessageTypeLineLatest       = "line_latest"
	MessageTypeConnectionStatus = "connection_status"
	MessageTypeAlarm            = "alarm"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
)

const broadcastBuffer = 256

// Message represents a downstream WebSocket message.
// LineID is set for line-scoped messages and drives client filtering.
type Message struct {
	Type      string      `json:"type"`
	LineID    string      `json:"line_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// StatusData is sent with connection_status messages.
type StatusData struct {
	From  models.ConnectionStatus `json:"from"`
	To    models.ConnectionStatus `json:"to"`
	Error string                  `json:"error,omitempty"`
}

// Source is the realtime service surface the hub listens to.
type Source interface {
	SubscribeAllLatest(fn realtime.LatestFunc) func()
	Status() models.ConnectionStatus
	OnStatusChange(fn connection.StatusFunc) func()
	OnAlarm(fn realtime.AlarmFunc) func()
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// statusMu orders lastStatus updates with their broadcasts. It is
	// taken after mu, never before.
	statusMu   sync.Mutex
	lastStatus *Message
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, broadcastBuffer),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Bind forwards throttled line projections, connection status changes and
// alarms from src to every matching client. The current status is sent
// right away unless a transition already arrived, and every client that
// registers later starts with the latest status. The returned func
// detaches.
func (h *Hub) Bind(src Source) func() {
	unsubs := []func(){
		src.SubscribeAllLatest(h.BroadcastLatest),
		src.OnStatusChange(h.BroadcastStatus),
		src.OnAlarm(h.BroadcastAlarm),
	}
	current := src.Status()
	h.sendStatus(models.StatusChange{From: current, To: current, At: time.Now().UTC()}, true)

	return func() {
		for _, u := range unsubs {
			u()
		}
		h.statusMu.Lock()
		h.lastStatus = nil
		h.statusMu.Unlock()
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// It is designed for use with suture supervision.
//
// When the context is canceled all connected clients are closed and the
// method returns ctx.Err(), so a supervisor can restart the hub without
// leaving orphaned connections.
//
// Selection is prioritised: shutdown first, then client lifecycle events,
// then broadcasts. Client state is therefore always consistent before a
// message is fanned out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.statusMu.Lock()
	if h.lastStatus != nil {
		select {
		case client.send <- *h.lastStatus:
			metrics.WSMessagesSent.Inc()
		default:
		}
	}
	h.statusMu.Unlock()
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().
		Str("client_id", client.Name()).
		Str("line_filter", client.lineFilter).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		h.dropLocked(client)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("client_id", client.Name()).Int("total_clients", total).Msg("websocket client disconnected")
}

// logGracefulShutdown closes all clients and logs the shutdown. ctx.Err() is
// not logged as an error since cancellation is the expected path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// sortedClientsLocked returns the clients ordered by ID.
func (h *Hub) sortedClientsLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients sends a message to every interested client in ID order.
// A client whose send buffer is full is dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	for _, client := range h.sortedClientsLocked() {
		if !client.Wants(message) {
			continue
		}
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		h.dropLocked(client)
		metrics.WSMessagesDropped.Inc()
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
		logging.Warn().Str("client_id", client.Name()).Msg("dropping slow websocket client")
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
	}
}

// closeAllClients closes every connected client in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClientsLocked() {
		h.dropLocked(client)
	}
	metrics.WSConnections.Set(0)
}

// dropLocked removes client and closes its channels. Only the hub closes them.
func (h *Hub) dropLocked(client *Client) {
	delete(h.clients, client)
	close(client.send)
	close(client.removed)
}

// Broadcast queues a message for fan-out. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(message Message) bool {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- message:
		return true
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("message_type", message.Type).Msg("broadcast channel full, dropping message")
		return false
	}
}

// BroadcastLatest sends a throttled line projection.
func (h *Hub) BroadcastLatest(lineID string, sample models.Sample) {
	h.Broadcast(Message{
		Type:      MessageTypeLineLatest,
		LineID:    lineID,
		Timestamp: sample.Timestamp,
		Data:      sample,
	})
}

// BroadcastStatus sends a connection status change and remembers it for
// clients that register later.
func (h *Hub) BroadcastStatus(change models.StatusChange) {
	h.sendStatus(change, false)
}

// sendStatus records and broadcasts change. With onlyFirst it does nothing
// once a status is already known.
func (h *Hub) sendStatus(change models.StatusChange, onlyFirst bool) {
	msg := Message{
		Type:      MessageTypeConnectionStatus,
		Timestamp: change.At,
		Data: StatusData{
			From:  change.From,
			To:    change.To,
			Error: change.ErrString(),
		},
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	h.statusMu.Lock()
	defer h.statusMu.Unlock()
	if onlyFirst && h.lastStatus != nil {
		return
	}
	h.lastStatus = &msg
	h.Broadcast(msg)
}

// BroadcastAlarm sends a raised or acknowledged alarm, scoped to its line.
func (h *Hub) BroadcastAlarm(alarm models.Alarm) {
	h.Broadcast(Message{
		Type:      MessageTypeAlarm,
		LineID:    alarm.ProductionLineID.String(),
		Timestamp: alarm.RaisedAt,
		Data:      alarm,
	})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
