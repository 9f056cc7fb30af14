package services

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/internal/infrastructure/buffer"
	"github.com/fastygo/orderdesk/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// JournalConfig controls how the event journal is drained.
type JournalConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	Retention   time.Duration
}

// JournalProcessor writes order events to the event repository and falls back
// to the BoltDB journal when the repository is unreachable.
type JournalProcessor struct {
	journal *buffer.Journal
	monitor ConnectionHealth
	events  repository.EventRepository
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     JournalConfig
}

func NewJournalProcessor(
	journal *buffer.Journal,
	monitor ConnectionHealth,
	events repository.EventRepository,
	logger *zap.Logger,
	cfg JournalConfig,
) (*JournalProcessor, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	jp := &JournalProcessor{
		journal: journal,
		monitor: monitor,
		events:  events,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	if journal == nil {
		return jp, nil
	}
	if _, err := jp.cron.AddFunc("@every "+cfg.Interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := jp.Drain(ctx); err != nil {
			jp.logger.Error("journal drain failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}
	if _, err := jp.cron.AddFunc("@hourly", jp.prune); err != nil {
		return nil, err
	}
	return jp, nil
}

func (jp *JournalProcessor) Start() {
	if jp == nil || jp.cron == nil {
		return
	}
	jp.cron.Start()
	jp.logger.Info("event journal processor started")
}

func (jp *JournalProcessor) Stop(ctx context.Context) {
	if jp == nil || jp.cron == nil {
		return
	}
	stopCtx := jp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	jp.logger.Info("event journal processor stopped")
}

// Publish stores the event immediately when possible and journals it otherwise.
func (jp *JournalProcessor) Publish(ctx context.Context, event domain.OrderEvent) error {
	if jp == nil || jp.events == nil {
		return errors.New("event journal not configured")
	}
	if jp.monitor == nil || jp.monitor.IsOnline() {
		err := jp.events.Append(ctx, event)
		if err == nil || jp.journal == nil {
			return err
		}
		jp.logger.Warn("event store unavailable, journaling event",
			zap.String("order_id", event.OrderID),
			zap.Error(err))
	}
	if jp.journal == nil {
		return errors.New("event store offline and no journal configured")
	}
	return jp.journal.Append(buffer.NewEntry(event))
}

// Drain forwards journaled events to the event repository.
func (jp *JournalProcessor) Drain(ctx context.Context) error {
	if jp == nil || jp.journal == nil {
		return nil
	}
	if jp.monitor != nil && !jp.monitor.IsOnline() {
		jp.logger.Debug("skipping journal drain (offline)")
		return nil
	}

	entries, err := jp.journal.Peek(jp.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := jp.events.Append(ctx, entry.Event); err != nil {
			jp.logger.Error("failed to forward journaled event",
				zap.String("event_id", entry.Event.ID),
				zap.String("order_id", entry.Event.OrderID),
				zap.Error(err))
			if entry.Attempts+1 >= jp.cfg.MaxAttempts {
				jp.logger.Warn("dropping journaled event (max attempts reached)", zap.String("event_id", entry.Event.ID))
				if err := jp.journal.Remove(entry); err != nil {
					jp.logger.Warn("failed to remove journaled event", zap.Error(err))
				}
				continue
			}
			if err := jp.journal.Remove(entry); err != nil {
				jp.logger.Warn("failed to remove journaled event", zap.Error(err))
			}
			if err := jp.journal.Retry(entry); err != nil {
				jp.logger.Error("failed to requeue journaled event", zap.Error(err))
			}
			continue
		}
		if err := jp.journal.Remove(entry); err != nil {
			jp.logger.Warn("failed to purge forwarded event", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of journaled events.
func (jp *JournalProcessor) Size() int {
	if jp == nil || jp.journal == nil {
		return 0
	}
	size, err := jp.journal.Size()
	if err != nil {
		return 0
	}
	return size
}

func (jp *JournalProcessor) prune() {
	removed, err := jp.journal.Prune(time.Now().Add(-jp.cfg.Retention))
	if err != nil {
		jp.logger.Error("journal prune failed", zap.Error(err))
		return
	}
	if removed > 0 {
		jp.logger.Warn("pruned stale journaled events", zap.Int("count", removed))
	}
}
