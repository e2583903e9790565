// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package connection

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/linewatch/internal/clock"
	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/metrics"
	"github.com/tomtom215/linewatch/internal/models"
)

const (
	// writeWait bounds a single websocket write.
	writeWait = 10 * time.Second

	// closeGrace bounds the close handshake on teardown.
	closeGrace = time.Second
)

// Config configures a Manager.
type Config struct {
	// HandshakeTimeout bounds one dial including the websocket upgrade.
	HandshakeTimeout time.Duration
	// ReadLimit is the maximum inbound frame size in bytes. Zero is unlimited.
	ReadLimit int64
	// ClientID is sent in heartbeats until the feed assigns one.
	ClientID string

	Heartbeat HeartbeatConfig
	Backoff   Backoff
	// MaxRetries moves the manager to the error state after this many
	// consecutive failed reconnects. Zero retries forever.
	MaxRetries int

	// BreakerThreshold opens the dial circuit after this many consecutive
	// dial failures. Zero disables the breaker.
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		ReadLimit:        1 << 20,
		ClientID:         "linewatch",
		Heartbeat:        DefaultHeartbeat(),
		Backoff:          DefaultBackoff(),
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// DialFunc opens a websocket to endpoint.
type DialFunc func(ctx context.Context, endpoint string) (*websocket.Conn, error)

// FrameHandler receives every inbound text frame of a connected session.
type FrameHandler func(raw []byte)

// StatusFunc observes status transitions.
type StatusFunc func(models.StatusChange)

// Option customizes a Manager.
type Option func(*Manager)

// WithClock injects the scheduler used for backoff and heartbeat timers.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithDialFunc replaces the gorilla dialer.
func WithDialFunc(fn DialFunc) Option {
	return func(m *Manager) { m.dial = fn }
}

// WithRandom replaces the jitter source. fn must return values in [0, 1).
func WithRandom(fn func() float64) Option {
	return func(m *Manager) { m.random = fn }
}

type statusObserver struct {
	fn     StatusFunc
	active atomic.Bool
}

// Stats is a snapshot of the manager state.
type Stats struct {
	Status            models.ConnectionStatus `json:"status"`
	Endpoint          string                  `json:"endpoint"`
	ClientID          string                  `json:"client_id"`
	Attempts          int                     `json:"reconnect_attempts"`
	TotalReconnects   uint64                  `json:"total_reconnects"`
	LastError         string                  `json:"last_error,omitempty"`
	ConnectedSince    *time.Time              `json:"connected_since,omitempty"`
	LastHeartbeatAck  *time.Time              `json:"last_heartbeat_ack,omitempty"`
	AwaitingHeartbeat bool                    `json:"awaiting_heartbeat"`
	BreakerState      string                  `json:"breaker_state"`
}

// Manager owns the single upstream websocket session.
//
// It dials, reads frames and hands them to the FrameHandler, keeps the
// session alive with heartbeats and reconnects with exponential backoff
// after transport failures. All timers run on the injected clock and carry
// the session generation they were created for; a callback whose generation
// is no longer current does nothing.
type Manager struct {
	cfg     Config
	clock   clock.Clock
	dial    DialFunc
	random  func() float64
	breaker *dialBreaker
	onFrame FrameHandler

	mu         sync.Mutex
	status     models.ConnectionStatus
	endpoint   string
	gen        uint64
	conn       *websocket.Conn
	inflight   chan struct{}
	dialCancel context.CancelFunc

	attempts        int
	totalReconnects uint64
	lastErr         error
	clientID        string
	connectedAt     time.Time

	backoffTimer clock.Timer
	hb           heartbeatState

	observers  map[uint64]*statusObserver
	nextObs    uint64
	pending    []models.StatusChange
	delivering bool

	writeMu sync.Mutex
}

// New creates a disconnected Manager. onFrame may be nil.
func New(cfg Config, onFrame FrameHandler, opts ...Option) *Manager {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if onFrame == nil {
		onFrame = func([]byte) {}
	}

	m := &Manager{
		cfg:       cfg,
		clock:     clock.Real(),
		random:    rand.Float64,
		onFrame:   onFrame,
		status:    models.StatusDisconnected,
		clientID:  cfg.ClientID,
		observers: make(map[uint64]*statusObserver),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dial == nil {
		m.dial = gorillaDial(cfg.HandshakeTimeout)
	}
	m.breaker = newDialBreaker("feed-dial", cfg.BreakerThreshold, cfg.BreakerTimeout)
	metrics.SetConnectionState(string(models.StatusDisconnected))
	return m
}

func gorillaDial(handshakeTimeout time.Duration) DialFunc {
	dialer := &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  handshakeTimeout,
		EnableCompression: true,
	}
	return func(ctx context.Context, endpoint string) (*websocket.Conn, error) {
		conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
		if resp != nil && resp.Body != nil {
			if cerr := resp.Body.Close(); cerr != nil {
				logging.Debug().Err(cerr).Msg("Failed to close handshake response body")
			}
		}
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
			}
			return nil, fmt.Errorf("websocket dial failed: %w", err)
		}
		return conn, nil
	}
}

// ValidateEndpoint checks that endpoint is a ws:// or wss:// URL.
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return ErrEndpointRequired
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return ErrInvalidEndpoint
	}
	return nil
}

// Connect starts a session to endpoint and waits for the attempt to finish.
//
// It is a no-op while already connected to the same endpoint. While an
// attempt is in flight it waits for that attempt instead of starting
// another. From reconnecting it cancels the pending backoff and dials
// immediately. From error it starts over with a fresh retry budget. Transport failures are not returned; they show up as status
// transitions. The error is non-nil only for an invalid endpoint or when
// ctx ends before the attempt completes.
func (m *Manager) Connect(ctx context.Context, endpoint string) error {
	if err := ValidateEndpoint(endpoint); err != nil {
		return err
	}

	var stale *websocket.Conn
	m.mu.Lock()
	switch {
	case m.status == models.StatusConnected && m.endpoint == endpoint:
		m.mu.Unlock()
		return nil
	case m.status == models.StatusConnecting && m.endpoint == endpoint:
		// join the in-flight attempt
	case m.status == models.StatusConnected || m.status == models.StatusConnecting:
		// endpoint changed under a live or pending session
		m.endpoint = endpoint
		stale = m.manualReconnectLocked()
	default:
		if m.status == models.StatusError {
			// a retry budget spent by an earlier run does not carry over
			m.attempts = 0
		}
		m.endpoint = endpoint
		m.stopBackoffLocked()
		m.startAttemptLocked()
	}
	wait := m.inflight
	m.mu.Unlock()

	closeConn(stale)
	m.flush()
	return waitFor(ctx, wait)
}

// Reconnect tears down the current session, if any, and dials the last
// endpoint immediately regardless of any pending backoff. It is a no-op
// while an attempt is already in flight.
func (m *Manager) Reconnect(ctx context.Context) error {
	var stale *websocket.Conn
	m.mu.Lock()
	if m.endpoint == "" {
		m.mu.Unlock()
		return ErrEndpointRequired
	}
	if m.status != models.StatusConnecting {
		stale = m.manualReconnectLocked()
	}
	wait := m.inflight
	m.mu.Unlock()

	closeConn(stale)
	m.flush()
	return waitFor(ctx, wait)
}

func waitFor(ctx context.Context, done <-chan struct{}) error {
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// manualReconnectLocked forces a fresh attempt from any state. The caller
// closes the returned connection, if any, outside the lock.
func (m *Manager) manualReconnectLocked() *websocket.Conn {
	var stale *websocket.Conn
	m.stopBackoffLocked()
	switch m.status {
	case models.StatusConnected:
		stale = m.endSessionLocked()
		m.lastErr = ErrReconnectRequested
		m.transitionLocked(models.StatusReconnecting, ErrReconnectRequested)
	case models.StatusConnecting:
		m.abortAttemptLocked()
		m.transitionLocked(models.StatusReconnecting, ErrReconnectRequested)
	}
	m.attempts = 0
	m.startAttemptLocked()
	return stale
}

// Disconnect closes the session and suppresses reconnection until the next
// Connect or Reconnect. It is safe from any state and from inside status
// observers and frame handlers.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.stopBackoffLocked()
	m.abortAttemptLocked()
	conn := m.endSessionLocked()
	m.attempts = 0
	m.transitionLocked(models.StatusDisconnected, nil)
	m.mu.Unlock()

	closeConn(conn)
	m.flush()
}

// startAttemptLocked moves to connecting and dials in the background.
func (m *Manager) startAttemptLocked() {
	if !m.transitionLocked(models.StatusConnecting, nil) {
		return
	}
	m.gen++
	gen := m.gen
	endpoint := m.endpoint

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HandshakeTimeout)
	m.dialCancel = cancel
	done := make(chan struct{})
	m.inflight = done

	logging.Info().Str("endpoint", endpoint).Int("attempt", m.attempts).Msg("Connecting to feed")
	go m.runAttempt(ctx, cancel, gen, endpoint, done)
}

func (m *Manager) runAttempt(ctx context.Context, cancel context.CancelFunc, gen uint64, endpoint string, done chan struct{}) {
	conn, err := m.breaker.Dial(func() (*websocket.Conn, error) {
		return m.dial(ctx, endpoint)
	})
	cancel()

	m.mu.Lock()
	if gen != m.gen || m.status != models.StatusConnecting {
		m.finishAttemptLocked(done)
		m.mu.Unlock()
		closeConn(conn)
		return
	}
	m.dialCancel = nil

	if err != nil {
		err = fmt.Errorf("dial %s: %w", endpoint, err)
		logging.Warn().Err(err).Msg("Feed connection attempt failed")
		m.lastErr = err
		m.scheduleReconnectLocked(err)
		m.finishAttemptLocked(done)
		m.mu.Unlock()
		m.flush()
		return
	}

	if m.cfg.ReadLimit > 0 {
		conn.SetReadLimit(m.cfg.ReadLimit)
	}
	m.conn = conn
	m.attempts = 0
	m.connectedAt = m.clock.Now()
	m.transitionLocked(models.StatusConnected, nil)
	m.startHeartbeatLocked(gen)
	m.finishAttemptLocked(done)
	m.mu.Unlock()

	logging.Info().Str("endpoint", endpoint).Msg("Feed connected")
	m.flush()

	go m.readLoop(gen, conn)
}

func (m *Manager) finishAttemptLocked(done chan struct{}) {
	if m.inflight == done {
		close(done)
		m.inflight = nil
	}
}

// abortAttemptLocked cancels an in-flight dial and releases its waiters.
func (m *Manager) abortAttemptLocked() {
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	if m.inflight != nil {
		close(m.inflight)
		m.inflight = nil
	}
	m.gen++
}

// endSessionLocked invalidates the current session and detaches its
// connection. The caller closes the returned connection outside the lock.
func (m *Manager) endSessionLocked() *websocket.Conn {
	m.gen++
	m.stopHeartbeatLocked()
	conn := m.conn
	m.conn = nil
	m.connectedAt = time.Time{}
	return conn
}

func (m *Manager) readLoop(gen uint64, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			m.handleSessionEnd(gen, err)
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if !m.isLive(gen) {
			return
		}
		m.onFrame(data)
	}
}

func (m *Manager) isLive(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen && m.status == models.StatusConnected
}

// handleSessionEnd reacts to a transport failure of session gen.
func (m *Manager) handleSessionEnd(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.status != models.StatusConnected {
		m.mu.Unlock()
		return
	}
	conn := m.endSessionLocked()
	if websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logging.Info().Err(cause).Msg("Feed closed the connection")
	} else {
		logging.Warn().Err(cause).Msg("Feed connection lost")
	}
	m.lastErr = cause
	m.scheduleReconnectLocked(cause)
	m.mu.Unlock()

	closeConn(conn)
	m.flush()
}

// scheduleReconnectLocked moves to reconnecting and arms the backoff timer,
// or to error once MaxRetries is exhausted.
func (m *Manager) scheduleReconnectLocked(cause error) {
	if !m.transitionLocked(models.StatusReconnecting, cause) {
		return
	}

	if m.cfg.MaxRetries > 0 && m.attempts >= m.cfg.MaxRetries {
		logging.Error().Int("attempts", m.attempts).Msg("Giving up on feed reconnection")
		m.lastErr = fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, m.attempts, cause)
		m.transitionLocked(models.StatusError, m.lastErr)
		return
	}

	delay := m.cfg.Backoff.Delay(m.attempts, m.random)
	m.attempts++
	m.totalReconnects++
	m.gen++
	gen := m.gen
	metrics.RecordReconnectScheduled(delay)
	logging.Info().Dur("delay", delay).Int("attempt", m.attempts).Msg("Scheduling feed reconnect")

	m.backoffTimer = m.clock.AfterFunc(delay, func() { m.backoffFired(gen) })
}

func (m *Manager) backoffFired(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.status != models.StatusReconnecting {
		m.mu.Unlock()
		return
	}
	m.backoffTimer = nil
	m.startAttemptLocked()
	m.mu.Unlock()
	m.flush()
}

func (m *Manager) stopBackoffLocked() {
	if m.backoffTimer != nil {
		m.backoffTimer.Stop()
		m.backoffTimer = nil
	}
}

// Send writes msg to the live session.
func (m *Manager) Send(msg models.Message) error {
	m.mu.Lock()
	if m.status != models.StatusConnected || m.conn == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	conn := m.conn
	gen := m.gen
	m.mu.Unlock()

	if err := m.write(conn, msg); err != nil {
		m.handleSessionEnd(gen, err)
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	metrics.FeedMessagesSent.WithLabelValues(metrics.FrameTypeLabel(msg.Type)).Inc()
	return nil
}

func (m *Manager) write(conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func closeConn(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	if err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGrace),
	); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		logging.Debug().Err(err).Msg("Failed to send close frame")
	}
	if err := conn.Close(); err != nil {
		logging.Debug().Err(err).Msg("Failed to close connection")
	}
}

// transitionLocked applies from -> to if legal and queues observers.
func (m *Manager) transitionLocked(to models.ConnectionStatus, cause error) bool {
	from := m.status
	if from == to {
		return false
	}
	if !CanTransition(from, to) {
		logging.Warn().Str("from", string(from)).Str("to", string(to)).Msg("Rejected illegal connection transition")
		return false
	}
	m.status = to
	m.pending = append(m.pending, models.StatusChange{From: from, To: to, Err: cause, At: m.clock.Now()})
	metrics.RecordTransition(string(from), string(to))
	logging.Debug().Str("from", string(from)).Str("to", string(to)).Msg("Connection status changed")
	return true
}

// OnStatusChange registers fn for every transition. Observers are called
// one transition at a time, in transition order, without the manager lock.
// The returned function unregisters fn.
func (m *Manager) OnStatusChange(fn StatusFunc) func() {
	obs := &statusObserver{fn: fn}
	obs.active.Store(true)

	m.mu.Lock()
	m.nextObs++
	id := m.nextObs
	m.observers[id] = obs
	m.mu.Unlock()

	return func() {
		obs.active.Store(false)
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// flush delivers queued transitions. Only one goroutine delivers at a time;
// transitions queued meanwhile are picked up by that goroutine, so
// observers see them serially and in order even when they re-enter the
// manager.
func (m *Manager) flush() {
	m.mu.Lock()
	if m.delivering {
		m.mu.Unlock()
		return
	}
	m.delivering = true
	for len(m.pending) > 0 {
		batch := m.pending
		m.pending = nil
		observers := m.observerListLocked()
		m.mu.Unlock()

		for _, change := range batch {
			for _, obs := range observers {
				if obs.active.Load() {
					notify(obs.fn, change)
				}
			}
		}

		m.mu.Lock()
	}
	m.delivering = false
	m.mu.Unlock()
}

func (m *Manager) observerListLocked() []*statusObserver {
	ids := make([]uint64, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*statusObserver, len(ids))
	for i, id := range ids {
		out[i] = m.observers[id]
	}
	return out
}

func notify(fn StatusFunc, change models.StatusChange) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Msg("Status observer panicked")
		}
	}()
	fn(change)
}

// SetClientID replaces the client id sent in heartbeats.
func (m *Manager) SetClientID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientID = id
}

// Status returns the current connection status.
func (m *Manager) Status() models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Attempts returns the consecutive reconnect attempts since the last
// successful connection.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// LastError returns the most recent transport error.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Stats returns a snapshot of the manager state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{
		Status:            m.status,
		Endpoint:          m.endpoint,
		ClientID:          m.clientID,
		Attempts:          m.attempts,
		TotalReconnects:   m.totalReconnects,
		AwaitingHeartbeat: m.hb.awaitingAck,
		BreakerState:      m.breaker.State(),
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	if !m.connectedAt.IsZero() {
		t := m.connectedAt
		st.ConnectedSince = &t
	}
	if !m.hb.lastAck.IsZero() {
		t := m.hb.lastAck
		st.LastHeartbeatAck = &t
	}
	return st
}
