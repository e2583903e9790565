// Linewatch - Real-time Production Line Telemetry Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linewatch

package services

import (
	"context"
	"fmt"

	"github.com/tomtom215/linewatch/internal/logging"
)

// Feed matches the lifecycle methods of *realtime.Service.
type Feed interface {
	Start(ctx context.Context) error
	Stop()
}

// FeedService runs the upstream telemetry feed under supervision.
//
// Start returns after the first connection attempt; the feed's own
// reconnect loop keeps the session alive afterwards, so Serve simply parks
// until shutdown. A failed Start is returned to suture, which restarts the
// service with backoff.
type FeedService struct {
	feed Feed
	name string
}

// NewFeedService creates a feed service wrapper.
func NewFeedService(feed Feed) *FeedService {
	return &FeedService{
		feed: feed,
		name: "telemetry-feed",
	}
}

// Serve implements suture.Service.
func (f *FeedService) Serve(ctx context.Context) error {
	if err := f.feed.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("feed start failed: %w", err)
	}

	<-ctx.Done()
	f.feed.Stop()
	logging.Info().Msg("Telemetry feed service stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (f *FeedService) String() string {
	return f.name
}
