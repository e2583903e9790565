// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package websocket

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/linewatch/internal/connection"
	"github.com/tomtom215/linewatch/internal/logging"
	"github.com/tomtom215/linewatch/internal/metrics"
	"github.com/tomtom215/linewatch/internal/models"
	"github.com/tomtom215/linewatch/internal/realtime"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// setupHub creates a hub running until the test ends.
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.RunWithContext(ctx) //nolint:errcheck
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// createTestClient creates a client without a network connection.
func createTestClient(hub *Hub, line string, buffer int) *Client {
	c := NewClient(hub, nil, line)
	c.send = make(chan Message, buffer)
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("client received nothing")
		return Message{}
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func sample(line string, seq float64) models.Sample {
	return models.Sample{
		LineID:    line,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:      models.ProductionData{ProductionLineID: models.ID(line), ScrewMotorSpeed: seq},
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	checks := []struct {
		name  string
		check bool
	}{
		{"clients map", hub.clients != nil},
		{"broadcast channel", hub.broadcast != nil},
		{"Register channel", hub.Register != nil},
		{"Unregister channel", hub.Unregister != nil},
		{"empty clients", hub.GetClientCount() == 0},
	}
	for _, c := range checks {
		if !c.check {
			t.Errorf("%s not initialized", c.name)
		}
	}
}

func TestHub_ClientRegistration(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub, "", 4)

	hub.Register <- client
	waitFor(t, "registration", func() bool { return hub.GetClientCount() == 1 })
	if got := testutil.ToFloat64(metrics.WSConnections); got != 1 {
		t.Errorf("websocket_connections = %v, want 1", got)
	}

	hub.Unregister <- client
	waitFor(t, "unregistration", func() bool { return hub.GetClientCount() == 0 })

	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed after unregister")
	}

	// A second unregister must not close the channel twice.
	hub.Unregister <- client
	waitFor(t, "no-op unregister", func() bool { return hub.GetClientCount() == 0 })
}

func TestHub_LineFilter(t *testing.T) {
	hub := setupHub(t)
	all := createTestClient(hub, "", 8)
	star := createTestClient(hub, AllLines, 8)
	seven := createTestClient(hub, "7", 8)
	for _, c := range []*Client{all, star, seven} {
		hub.Register <- c
	}
	waitFor(t, "registration", func() bool { return hub.GetClientCount() == 3 })

	hub.BroadcastLatest("12", sample("12", 1))
	hub.BroadcastLatest("7", sample("7", 2))

	for _, c := range []*Client{all, star} {
		if msg := receive(t, c); msg.LineID != "12" || msg.Type != MessageTypeLineLatest {
			t.Errorf("first message = %+v, want line_latest for 12", msg)
		}
		if msg := receive(t, c); msg.LineID != "7" {
			t.Errorf("second message line = %q, want 7", msg.LineID)
		}
	}

	msg := receive(t, seven)
	if msg.LineID != "7" {
		t.Fatalf("filtered client got line %q, want 7", msg.LineID)
	}
	if s, ok := msg.Data.(models.Sample); !ok || s.Data.ScrewMotorSpeed != 2 {
		t.Errorf("data = %#v, want sample with speed 2", msg.Data)
	}
	expectNothing(t, seven)

	// Unscoped messages reach filtered clients too.
	hub.BroadcastStatus(models.StatusChange{
		From: models.StatusConnected,
		To:   models.StatusReconnecting,
		Err:  errors.New("eof"),
		At:   time.Now(),
	})
	msg = receive(t, seven)
	status, ok := msg.Data.(StatusData)
	if msg.Type != MessageTypeConnectionStatus || !ok {
		t.Fatalf("got %+v, want connection_status", msg)
	}
	if status.To != models.StatusReconnecting || status.Error != "eof" {
		t.Errorf("status = %+v", status)
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := setupHub(t)
	slow := createTestClient(hub, "", 1)
	fast := createTestClient(hub, "", 8)
	hub.Register <- slow
	hub.Register <- fast
	waitFor(t, "registration", func() bool { return hub.GetClientCount() == 2 })

	dropped := testutil.ToFloat64(metrics.WSMessagesDropped)

	hub.BroadcastLatest("1", sample("1", 1))
	hub.BroadcastLatest("1", sample("1", 2))

	waitFor(t, "slow client removal", func() bool { return hub.GetClientCount() == 1 })
	if d := testutil.ToFloat64(metrics.WSMessagesDropped) - dropped; d != 1 {
		t.Errorf("dropped delta = %v, want 1", d)
	}

	receive(t, fast)
	receive(t, fast)

	// The slow client keeps its buffered message, then sees the close.
	receive(t, slow)
	if _, ok := <-slow.send; ok {
		t.Error("slow client channel should be closed")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- hub.RunWithContext(ctx) }()

	clients := []*Client{createTestClient(hub, "", 1), createTestClient(hub, "3", 1)}
	for _, c := range clients {
		hub.Register <- c
	}
	waitFor(t, "registration", func() bool { return hub.GetClientCount() == 2 })

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if hub.GetClientCount() != 0 {
		t.Errorf("clients after shutdown = %d", hub.GetClientCount())
	}
	for i, c := range clients {
		if _, ok := <-c.send; ok {
			t.Errorf("client %d channel still open", i)
		}
	}
}

func TestGetShutdownReason(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()

	tests := []struct {
		name string
		ctx  context.Context
		want ShutdownReason
	}{
		{"canceled", canceled, ShutdownReasonContextCanceled},
		{"deadline", expired, ShutdownReasonContextDeadline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getShutdownReason(tt.ctx); got != tt.want {
				t.Errorf("getShutdownReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHub_BroadcastQueueFull(t *testing.T) {
	hub := NewHub() // not running, nothing drains the queue
	for i := 0; i < broadcastBuffer; i++ {
		if !hub.Broadcast(Message{Type: MessageTypeLineLatest}) {
			t.Fatalf("Broadcast %d rejected before queue was full", i)
		}
	}
	if hub.Broadcast(Message{Type: MessageTypeLineLatest}) {
		t.Error("Broadcast should reject when the queue is full")
	}
}

// fakeSource records the callbacks Bind registers.
type fakeSource struct {
	mu       sync.Mutex
	latest   realtime.LatestFunc
	status   connection.StatusFunc
	alarm    realtime.AlarmFunc
	current  models.ConnectionStatus
	detached int
}

func (f *fakeSource) Status() models.ConnectionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeSource) SubscribeAllLatest(fn realtime.LatestFunc) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = fn
	return f.detach
}

func (f *fakeSource) OnStatusChange(fn connection.StatusFunc) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = fn
	return f.detach
}

func (f *fakeSource) OnAlarm(fn realtime.AlarmFunc) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alarm = fn
	return f.detach
}

func (f *fakeSource) detach() {
	f.mu.Lock()
	f.detached++
	f.mu.Unlock()
}

func TestHub_Bind(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub, "4", 8)
	hub.Register <- client
	waitFor(t, "registration", func() bool { return hub.GetClientCount() == 1 })

	src := &fakeSource{current: models.StatusConnecting}
	detach := hub.Bind(src)

	msg := receive(t, client)
	if status, ok := msg.Data.(StatusData); msg.Type != MessageTypeConnectionStatus || !ok || status.To != models.StatusConnecting {
		t.Fatalf("first message = %+v, want current status connecting", msg)
	}

	src.latest("4", sample("4", 9))
	if msg := receive(t, client); msg.Type != MessageTypeLineLatest {
		t.Errorf("type = %q, want line_latest", msg.Type)
	}

	src.alarm(models.Alarm{ID: "a1", ProductionLineID: "4", Severity: models.SeverityHigh})
	msg = receive(t, client)
	if msg.Type != MessageTypeAlarm || msg.LineID != "4" {
		t.Errorf("got %+v, want alarm for line 4", msg)
	}

	// Alarms for other lines are filtered.
	src.alarm(models.Alarm{ID: "a2", ProductionLineID: "5"})
	expectNothing(t, client)

	src.status(models.StatusChange{From: models.StatusConnecting, To: models.StatusConnected})
	if msg := receive(t, client); msg.Type != MessageTypeConnectionStatus {
		t.Errorf("type = %q, want connection_status", msg.Type)
	}

	detach()
	if src.detached != 3 {
		t.Errorf("detached = %d, want 3", src.detached)
	}
}

func TestHub_LateClientGetsCurrentStatus(t *testing.T) {
	hub := setupHub(t)
	src := &fakeSource{current: models.StatusReconnecting}
	detach := hub.Bind(src)
	defer detach()

	early := createTestClient(hub, "", 8)
	hub.Register <- early
	waitFor(t, "registration", func() bool { return hub.GetClientCount() == 1 })
	msg := receive(t, early)
	if status, ok := msg.Data.(StatusData); !ok || status.To != models.StatusReconnecting {
		t.Fatalf("late client got %+v, want reconnecting", msg)
	}

	src.status(models.StatusChange{From: models.StatusReconnecting, To: models.StatusConnected, At: time.Now()})
	for {
		// The replay may reach a client registered right after Bind twice.
		if status, _ := receive(t, early).Data.(StatusData); status.To == models.StatusConnected {
			break
		}
	}

	late := createTestClient(hub, "9", 8)
	hub.Register <- late
	waitFor(t, "registration", func() bool { return hub.GetClientCount() == 2 })
	msg = receive(t, late)
	if status, ok := msg.Data.(StatusData); !ok || status.From != models.StatusReconnecting || status.To != models.StatusConnected {
		t.Errorf("late client got %+v, want reconnecting -> connected", msg)
	}
	expectNothing(t, late)
}

func TestHub_BindSkipsReplayAfterTransition(t *testing.T) {
	hub := NewHub()
	hub.BroadcastStatus(models.StatusChange{From: models.StatusConnecting, To: models.StatusConnected})
	hub.Bind(&fakeSource{current: models.StatusConnecting})

	hub.statusMu.Lock()
	defer hub.statusMu.Unlock()
	if status := hub.lastStatus.Data.(StatusData); status.To != models.StatusConnected {
		t.Errorf("remembered status = %s, want connected", status.To)
	}
}

func TestMarshalMessage(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		want    []string
	}{
		{"pong", Message{Type: MessageTypePong}, []string{`"type":"pong"`, `"data":null`}},
		{"line scoped", Message{Type: MessageTypeLineLatest, LineID: "3", Data: sample("3", 1)}, []string{`"line_id":"3"`, `"screw_motor_speed":1`}},
		{"status", Message{Type: MessageTypeConnectionStatus, Data: StatusData{From: "connecting", To: "connected"}}, []string{`"to":"connected"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalMessage(tt.message)
			if err != nil {
				t.Fatalf("MarshalMessage() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(data), w) {
					t.Errorf("%s missing %s", data, w)
				}
			}
		})
	}
}
