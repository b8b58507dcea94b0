package store

import (
	"context"
	"time"

	"github.com/oshokin/guardian/internal/logger"
)

// DefaultPollInterval is the refresh period of polled queries.
const DefaultPollInterval = 30 * time.Second

// Handler receives the outcome of every poll.
type Handler func(ctx context.Context, snap AlertSnapshot, err error)

// Poll refreshes key immediately and then every interval until ctx ends.
// Failures are passed to handle and never stop the loop.
func (s *Store) Poll(ctx context.Context, key Key, interval time.Duration, handle Handler) error {
	if _, err := s.query(key); err != nil {
		return err
	}

	if interval <= 0 {
		interval = DefaultPollInterval
	}

	if handle == nil {
		handle = func(context.Context, AlertSnapshot, error) {}
	}

	logger.DebugKV(ctx, "Polling query", "query", key, "interval", interval.String())

	poll := func() {
		snap, err := s.Refresh(ctx, key)
		if ctx.Err() != nil {
			return
		}

		handle(ctx, snap, err)
	}

	poll()

	// Setup polling ticker with fixed interval.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			poll()
		}
	}
}
