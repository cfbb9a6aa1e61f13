package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"memosetup/core"
)

// ReadinessConfig bounds the PostgreSQL readiness poll.
type ReadinessConfig struct {
	// MaxWait caps the whole poll.
	MaxWait time.Duration
	// Interval is the delay before the second attempt; it doubles each
	// retry up to MaxInterval.
	Interval    time.Duration
	MaxInterval time.Duration
}

// WaitForPostgres polls the server with lightweight connection attempts
// until it answers or MaxWait elapses. A freshly started container needs a
// few seconds before it accepts connections, so a fixed sleep is neither
// sufficient nor necessary.
func WaitForPostgres(ctx context.Context, desc core.ConnectionDescriptor, rc ReadinessConfig, sugar *zap.SugaredLogger) error {
	addr := fmt.Sprintf("%s:%d", desc.Host, desc.Port)

	db, err := sql.Open("pgx", desc.URL())
	if err != nil {
		return fmt.Errorf("opening postgres connection: %w", err)
	}
	defer db.Close()

	deadline := time.Now().Add(rc.MaxWait)
	interval := rc.Interval
	var lastErr error

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			sugar.Infow("PostgreSQL ready", "addr", addr, "attempts", attempt)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().Add(interval).After(deadline) {
			break
		}

		sugar.Debugw("PostgreSQL not ready yet",
			"addr", addr,
			"attempt", attempt,
			"retry_in", interval)

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}

		if interval *= 2; interval > rc.MaxInterval {
			interval = rc.MaxInterval
		}
	}

	return fmt.Errorf("postgres not ready after %s: %s", rc.MaxWait, ClassifyConnectionError(lastErr, addr))
}
