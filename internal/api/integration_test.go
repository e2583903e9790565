// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/linewatch/internal/models"
	"github.com/tomtom215/linewatch/internal/realtime"
	"github.com/tomtom215/linewatch/internal/testinfra"
	ws "github.com/tomtom215/linewatch/internal/websocket"
)

const integrationTimeout = 3 * time.Second

// TestIntegration_FeedToAPI runs a real realtime service against a mock
// upstream feed and drives it through the HTTP API and a websocket client.
func TestIntegration_FeedToAPI(t *testing.T) {
	feed := testinfra.NewMockFeedServer(t)

	cfg := realtime.DefaultConfig(feed.URL())
	cfg.Connection.Heartbeat.Enabled = false
	cfg.Connection.BreakerThreshold = 0
	cfg.Connection.Backoff.Jitter = 0
	cfg.CommandRate = 0
	cfg.ThrottleInterval = 10 * time.Millisecond

	svc := realtime.New(cfg)
	t.Cleanup(svc.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := ws.NewHub()
	go hub.RunWithContext(ctx)
	t.Cleanup(hub.Bind(svc))

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	upstream := feed.Accept(t, integrationTimeout)

	router := NewRouter(NewHandler(svc, hub, []string{"*"}, time.Second), NewChiMiddlewareFromServer([]string{"*"}, 0, 0)).SetupChi()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	if resp := get(t, srv.URL+"/api/v1/health/ready"); resp.StatusCode != http.StatusOK {
		t.Fatalf("ready = %d, want 200", resp.StatusCode)
	}

	client, _, err := dialWS(srv, "?line=1", "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	waitForClients(t, hub, 1)

	if err := upstream.Send(models.TypeProductionData, models.ProductionData{ProductionLineID: "1", ScrewMotorSpeed: 42}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var history []models.Sample
	deadline := time.Now().Add(integrationTimeout)
	for len(history) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sample never reached the history endpoint")
		}
		resp := get(t, srv.URL+"/api/v1/lines/1/history")
		var env struct {
			Data []models.Sample `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_ = resp.Body.Close()
		history = env.Data
		if len(history) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if history[0].LineID != "1" {
		t.Errorf("history[0].LineID = %q, want 1", history[0].LineID)
	}

	_ = client.SetReadDeadline(time.Now().Add(integrationTimeout))
	for {
		var msg ws.Message
		if err := client.ReadJSON(&msg); err != nil {
			t.Fatalf("websocket read: %v", err)
		}
		if msg.Type == ws.MessageTypeLineLatest {
			break
		}
	}

	resp, err := http.Post( //nolint:noctx // test server URL
		srv.URL+"/api/v1/lines/1/request", "application/json", strings.NewReader(""),
	)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("request status = %d, want 202", resp.StatusCode)
	}
	frame, ok := feed.WaitForReceived(models.TypeRequestData, integrationTimeout)
	if !ok {
		t.Fatal("request_data never reached the feed")
	}
	if !strings.Contains(string(frame.Data), `"1"`) {
		t.Errorf("request_data payload = %s", frame.Data)
	}

	svc.Stop()
	if resp := get(t, srv.URL+"/api/v1/health/ready"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready after Stop = %d, want 503", resp.StatusCode)
	}
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test server URL
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
