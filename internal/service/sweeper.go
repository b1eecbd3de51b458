package service

import (
	"context"
	"log/slog"
	"time"
)

// SessionSweeper periodically deletes expired sessions. Validation already
// rejects expired tokens on its own; the sweeper only keeps the table small.
type SessionSweeper struct {
	auth     *AuthService
	interval time.Duration
	logger   *slog.Logger
}

func NewSessionSweeper(auth *AuthService, interval time.Duration, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{auth: auth, interval: interval, logger: logger}
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// returns immediately.
func (s *SessionSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	n, err := s.auth.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("swept expired sessions", "count", n)
	}
}
