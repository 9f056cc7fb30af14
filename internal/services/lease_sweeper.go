package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// LeaseExpirer releases audit leases whose deadline has passed.
type LeaseExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// LeaseSweeper periodically returns abandoned audits to the queue.
type LeaseSweeper struct {
	expirer LeaseExpirer
	logger  *zap.Logger
	cron    *cron.Cron
}

func NewLeaseSweeper(expirer LeaseExpirer, interval time.Duration, logger *zap.Logger) (*LeaseSweeper, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LeaseSweeper{
		expirer: expirer,
		logger:  logger,
		cron:    cron.New(cron.WithSeconds()),
	}
	if _, err := s.cron.AddFunc("@every "+interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Sweep runs one expiry pass.
func (s *LeaseSweeper) Sweep(ctx context.Context) int {
	n, err := s.expirer.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("lease sweep failed", zap.Int("expired", n), zap.Error(err))
		return n
	}
	if n > 0 {
		s.logger.Info("expired audit leases", zap.Int("count", n))
	}
	return n
}

func (s *LeaseSweeper) Start() {
	s.cron.Start()
	s.logger.Info("lease sweeper started")
}

func (s *LeaseSweeper) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("lease sweeper stopped")
}
