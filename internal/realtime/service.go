// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package realtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/linewatch/internal/buffer"
	"github.com/tomtom215/linewatch/internal/cache"
	"github.com/tomtom215/linewatch/internal/clock"
	"github.com/tomtom215/linewatch/internal/connection"
	"github.com/tomtom215/linewatch/internal/dispatch"
	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/metrics"
	"github.com/tomtom215/linewatch/internal/models"
	"github.com/tomtom215/linewatch/internal/throttle"
)

// BufferConfig bounds the per-line history.
type BufferConfig struct {
	// Capacity is the number of samples kept per line.
	Capacity int
	// MaxLines bounds the number of tracked lines. Zero is unbounded.
	MaxLines int
	// IdleTTL drops lines that received no sample for this long. Zero
	// keeps idle lines forever.
	IdleTTL time.Duration
	// SweepInterval is how often idle lines are swept.
	SweepInterval time.Duration
}

// Config configures a Service.
type Config struct {
	Endpoint   string
	Connection connection.Config
	Buffer     BufferConfig

	// ThrottleInterval is the minimum spacing of latest-sample publishes
	// per line.
	ThrottleInterval time.Duration

	// CommandRate and CommandBurst limit outbound commands. A rate of zero
	// disables the limit.
	CommandRate  float64
	CommandBurst int

	AlarmCapacity int
}

// DefaultConfig returns production defaults for endpoint.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:   endpoint,
		Connection: connection.DefaultConfig(),
		Buffer: BufferConfig{
			Capacity:      buffer.DefaultCapacity,
			MaxLines:      256,
			IdleTTL:       time.Hour,
			SweepInterval: time.Minute,
		},
		ThrottleInterval: throttle.DefaultInterval,
		CommandRate:      5,
		CommandBurst:     10,
		AlarmCapacity:    DefaultAlarmCapacity,
	}
}

type options struct {
	clock  clock.Clock
	dial   connection.DialFunc
	random func() float64
}

// Option customizes a Service.
type Option func(*options)

// WithClock drives every timer of the service from c.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithDialer replaces the websocket dialer.
func WithDialer(fn connection.DialFunc) Option {
	return func(o *options) { o.dial = fn }
}

// WithRandom replaces the backoff jitter source.
func WithRandom(fn func() float64) Option {
	return func(o *options) { o.random = fn }
}

// Service ties the connection, dispatcher, per-line buffers and throttled
// projector together and exposes them to consumers.
type Service struct {
	cfg   Config
	clock clock.Clock

	conn       *connection.Manager
	dispatcher *dispatch.Dispatcher
	store      *buffer.Store[models.Sample]
	projector  *throttle.Projector[models.Sample]
	alarms     *AlarmTracker
	limiter    *rate.Limiter

	history   *registry[HistoryFunc]
	latest    *registry[LatestFunc]
	alarmSubs *registry[AlarmFunc]

	mu           sync.Mutex
	initialized  bool
	running      bool
	internal     []func()
	sweepTimer   clock.Timer
	sweepGen     uint64
	lastErr      error
	startTime    time.Time
	lastMessage  time.Time
	systemStatus *models.SystemStatus

	messagesReceived atomic.Uint64
	dataPoints       atomic.Uint64
	errorCount       atomic.Uint64
}

// New builds a stopped Service.
func New(cfg Config, opts ...Option) *Service {
	o := options{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		cfg:        cfg,
		clock:      o.clock,
		dispatcher: dispatch.New(),
		alarms:     NewAlarmTracker(cfg.AlarmCapacity, o.clock),
		limiter:    newLimiter(cfg.CommandRate, cfg.CommandBurst),
		history:    newRegistry[HistoryFunc](),
		latest:     newRegistry[LatestFunc](),
		alarmSubs:  newRegistry[AlarmFunc](),
	}

	connOpts := []connection.Option{connection.WithClock(o.clock)}
	if o.dial != nil {
		connOpts = append(connOpts, connection.WithDialFunc(o.dial))
	}
	if o.random != nil {
		connOpts = append(connOpts, connection.WithRandom(o.random))
	}
	s.conn = connection.New(cfg.Connection, s.dispatcher.Dispatch, connOpts...)

	s.store = buffer.NewStore[models.Sample](buffer.Options[models.Sample]{
		Capacity:    cfg.Buffer.Capacity,
		MaxEntities: cfg.Buffer.MaxLines,
		IdleTTL:     cfg.Buffer.IdleTTL,
		Clock:       o.clock,
		Clone:       models.Sample.Clone,
	})
	s.store.OnEvict(s.lineEvicted)
	s.projector = throttle.New[models.Sample](cfg.ThrottleInterval, o.clock, s.publishLatest,
		throttle.WithClone(models.Sample.Clone))
	s.dispatcher.OnError(s.recordError)
	s.conn.OnStatusChange(s.connectionChanged)

	return s
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Initialize registers the internal frame handlers. It is idempotent.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.internal = []func(){
		s.dispatcher.Subscribe(models.TypeProductionData, s.handleProductionData),
		s.dispatcher.Subscribe(models.TypeAlarm, s.handleAlarm),
		s.dispatcher.Subscribe(models.TypeAlarmAcknowledged, s.handleAlarmAcknowledged),
		s.dispatcher.Subscribe(models.TypeSystemStatus, s.handleSystemStatus),
		s.dispatcher.Subscribe(models.TypeWelcome, s.handleWelcome),
		s.dispatcher.Subscribe(models.TypeHeartbeatAck, s.handleHeartbeatAck),
		s.dispatcher.Subscribe(models.TypeServerShutdown, s.handleServerShutdown),
		s.dispatcher.Subscribe(models.TypeWildcard, s.countFrame),
	}
	s.initialized = true

	logging.Info().Int("handlers", len(s.internal)).Msg("Realtime service initialized")
	return nil
}

// Start initializes the service if needed and connects to the feed. It
// returns once the first connection attempt has finished; a failed attempt
// is not an error, reconnection carries on in the background. Start is
// idempotent.
func (s *Service) Start(ctx context.Context) error {
	if err := s.Initialize(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.startTime = s.clock.Now()
	s.projector.Start()
	s.scheduleSweepLocked()
	s.mu.Unlock()

	logging.Info().Str("endpoint", s.cfg.Endpoint).Msg("Starting realtime service")

	if err := s.conn.Connect(ctx, s.cfg.Endpoint); err != nil {
		s.Stop()
		return fmt.Errorf("start realtime service: %w", err)
	}
	return nil
}

// Stop disconnects, cancels pending publishes, clears all buffered data and
// removes the internal frame handlers. Consumer subscriptions stay
// registered. Stop is idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running && !s.initialized {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.initialized = false
	s.sweepGen++
	if s.sweepTimer != nil {
		s.sweepTimer.Stop()
		s.sweepTimer = nil
	}
	internal := s.internal
	s.internal = nil
	s.systemStatus = nil
	s.mu.Unlock()

	s.conn.Disconnect()
	for _, unsubscribe := range internal {
		unsubscribe()
	}
	s.projector.Stop()
	cleared := s.store.ClearAll()
	s.alarms.Clear()

	metrics.BufferLines.Set(0)
	metrics.ProjectorPending.Set(0)
	metrics.AlarmsActive.Set(0)
	logging.Info().Int("lines_cleared", cleared).Msg("Realtime service stopped")
}

// Reconnect drops the current feed session and dials again immediately.
func (s *Service) Reconnect(ctx context.Context) error {
	if !s.IsRunning() {
		return ErrNotRunning
	}
	return s.conn.Reconnect(ctx)
}

// IsRunning reports whether Start has been called without a later Stop.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the feed connection status.
func (s *Service) Status() models.ConnectionStatus {
	return s.conn.Status()
}

func (s *Service) scheduleSweepLocked() {
	interval := s.cfg.Buffer.SweepInterval
	if interval <= 0 || s.cfg.Buffer.IdleTTL <= 0 {
		return
	}
	gen := s.sweepGen
	s.sweepTimer = s.clock.AfterFunc(interval, func() { s.sweep(gen) })
}

func (s *Service) sweep(gen uint64) {
	s.mu.Lock()
	if gen != s.sweepGen || !s.running {
		s.mu.Unlock()
		return
	}
	s.sweepTimer = nil
	s.mu.Unlock()

	if ids := s.store.Sweep(); len(ids) > 0 {
		logging.Info().Strs("lines", ids).Msg("Dropped idle production lines")
	}

	s.mu.Lock()
	if gen == s.sweepGen && s.running {
		s.scheduleSweepLocked()
	}
	s.mu.Unlock()
}

// lineEvicted runs when the store drops a line on its own.
func (s *Service) lineEvicted(lineID string, reason cache.EvictReason) {
	s.projector.Forget(lineID)
	metrics.BufferLineEvictions.WithLabelValues(string(reason)).Inc()
	metrics.BufferLines.Set(float64(s.store.Len()))
	logging.Debug().Str("line_id", lineID).Str("reason", string(reason)).Msg("Production line evicted")
	s.notifyHistory(lineID, []models.Sample{})
}

func (s *Service) publishLatest(lineID string, sample models.Sample) {
	metrics.ProjectorPublishes.Inc()
	metrics.ProjectorPending.Set(float64(s.projector.Pending()))
	deliver := func(fn LatestFunc) { fn(lineID, sample.Clone()) }
	s.latest.each(lineID, deliver)
	s.latest.each(allLines, deliver)
}

// notifyHistory hands every subscriber its own deep copy of history.
func (s *Service) notifyHistory(lineID string, history []models.Sample) {
	deliver := func(fn HistoryFunc) {
		out := make([]models.Sample, len(history))
		for i := range history {
			out[i] = history[i].Clone()
		}
		fn(lineID, out)
	}
	s.history.each(lineID, deliver)
	s.history.each(allLines, deliver)
}

func (s *Service) notifyAlarm(a models.Alarm) {
	s.alarmSubs.each(allLines, func(fn AlarmFunc) { fn(a) })
}

func (s *Service) recordError(err error) {
	s.errorCount.Add(1)
	s.setLastError(err)
}

// connectionChanged keeps lastErr on the most recent failure, whether it
// came from the transport or from a frame.
func (s *Service) connectionChanged(c models.StatusChange) {
	if c.Err != nil {
		s.setLastError(c.Err)
	}
}

func (s *Service) setLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// History returns every buffered sample of lineID, oldest first.
func (s *Service) History(lineID string) []models.Sample {
	return s.store.Snapshot(lineID)
}

// Recent returns the newest n samples of lineID, oldest first.
func (s *Service) Recent(lineID string, n int) []models.Sample {
	return s.store.Recent(lineID, n)
}

// Latest returns the last throttled projection of lineID.
func (s *Service) Latest(lineID string) (models.Sample, bool) {
	return s.projector.Latest(lineID)
}

// AllLatest returns the last throttled projection of every line.
func (s *Service) AllLatest() map[string]models.Sample {
	return s.projector.All()
}

// Lines returns the ids of all buffered lines in sorted order.
func (s *Service) Lines() []string {
	return s.store.Entities()
}

// Alarms returns tracked alarms, most recently updated first.
func (s *Service) Alarms() []models.Alarm {
	return s.alarms.List()
}

// Alarm returns one tracked alarm.
func (s *Service) Alarm(id string) (models.Alarm, bool) {
	return s.alarms.Get(id)
}

// SystemStatus returns the last system_status payload.
func (s *Service) SystemStatus() (models.SystemStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.systemStatus == nil {
		return models.SystemStatus{}, false
	}
	return *s.systemStatus, true
}

// SubscribeHistory calls fn with the history of lineID now and after every
// change. The returned function unsubscribes.
func (s *Service) SubscribeHistory(lineID string, fn HistoryFunc) func() {
	_, unsubscribe := s.history.add(lineID, fn)
	history := s.store.Snapshot(lineID)
	guard(lineID, func() { fn(lineID, history) })
	return unsubscribe
}

// SubscribeGlobal calls fn with the history of every line now and with a
// line's history after each change to it.
func (s *Service) SubscribeGlobal(fn HistoryFunc) func() {
	_, unsubscribe := s.history.add(allLines, fn)
	for _, lineID := range s.store.Entities() {
		history := s.store.Snapshot(lineID)
		guard(lineID, func() { fn(lineID, history) })
	}
	return unsubscribe
}

// SubscribeLatest calls fn with every throttled projection of lineID,
// starting with the current one if there is one.
func (s *Service) SubscribeLatest(lineID string, fn LatestFunc) func() {
	_, unsubscribe := s.latest.add(lineID, fn)
	if sample, ok := s.projector.Latest(lineID); ok {
		guard(lineID, func() { fn(lineID, sample) })
	}
	return unsubscribe
}

// SubscribeAllLatest calls fn with every throttled projection of every
// line, starting with the current ones.
func (s *Service) SubscribeAllLatest(fn LatestFunc) func() {
	_, unsubscribe := s.latest.add(allLines, fn)
	current := s.projector.All()
	ids := make([]string, 0, len(current))
	for id := range current {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sample := current[id]
		guard(id, func() { fn(id, sample) })
	}
	return unsubscribe
}

// Subscribe registers a raw frame handler with the dispatcher.
func (s *Service) Subscribe(msgType string, fn dispatch.Handler) func() {
	return s.dispatcher.Subscribe(msgType, fn)
}

// OnStatusChange observes feed connection transitions.
func (s *Service) OnStatusChange(fn connection.StatusFunc) func() {
	return s.conn.OnStatusChange(fn)
}

// OnError observes protocol and handler errors.
func (s *Service) OnError(fn dispatch.ErrorFunc) func() {
	return s.dispatcher.OnError(fn)
}

// OnAlarm observes raised and acknowledged alarms.
func (s *Service) OnAlarm(fn AlarmFunc) func() {
	_, unsubscribe := s.alarmSubs.add(allLines, fn)
	return unsubscribe
}

// ClearLine drops the buffered history and projection of lineID and tells
// its subscribers. It reports whether the line existed.
func (s *Service) ClearLine(lineID string) bool {
	existed := s.store.Clear(lineID)
	s.projector.Forget(lineID)
	if existed {
		metrics.BufferLines.Set(float64(s.store.Len()))
		logging.Info().Str("line_id", lineID).Msg("Cleared production line data")
		s.notifyHistory(lineID, []models.Sample{})
	}
	return existed
}

// ClearAll drops the data of every line and tells their subscribers.
func (s *Service) ClearAll() int {
	lines := s.store.Entities()
	s.store.ClearAll()
	s.projector.Reset()
	metrics.BufferLines.Set(0)
	metrics.ProjectorPending.Set(0)
	for _, lineID := range lines {
		s.notifyHistory(lineID, []models.Sample{})
	}
	logging.Info().Int("lines", len(lines)).Msg("Cleared all production line data")
	return len(lines)
}
