package service

import (
	"context"
	"fmt"
	"time"

	repo "github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/repo"
	"go.uber.org/zap"
)

// Sweeper removes stored refresh tokens whose expiry has passed. It only has
// work to do when sessions are stored with an expiry.
type Sweeper struct {
	tokens   repo.TokenRepo
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewSweeper(tokens repo.TokenRepo, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{tokens: tokens, interval: interval, log: log, now: time.Now}
}

// Sweep runs one pass and returns the number of removed sessions.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired sessions removed", zap.Int64("count", n))
	}
	return n, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("session sweep interval must be positive, got %v", s.interval)
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("session sweep failed", zap.Error(err))
			}
		}
	}
}
