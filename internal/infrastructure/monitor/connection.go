package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/orderdesk/internal/infrastructure/buffer"
)

const probeTimeout = 3 * time.Second

// Monitor polls the order store, the lease store and the event journal.
// The journal processor consults IsOnline to decide between writing events
// through and journaling them.
type Monitor struct {
	storage string
	pg      *pgxpool.Pool
	redis   *redislib.Client
	journal *buffer.Journal

	interval time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	status Status

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a monitor; nil dependencies report as skipped, which is how
// the memory storage driver runs.
func New(storage string, pg *pgxpool.Pool, redis *redislib.Client, journal *buffer.Journal, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		storage:  storage,
		pg:       pg,
		redis:    redis,
		journal:  journal,
		interval: interval,
		logger:   logger.Named("monitor"),
		status:   Status{Storage: storage, PostgreSQL: ProbeSkipped, Redis: ProbeSkipped, Journal: ProbeSkipped},
		stop:     make(chan struct{}),
	}
}

// Start probes once synchronously, then keeps polling until Stop.
func (m *Monitor) Start() {
	m.Refresh()
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Refresh()
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// IsOnline reports whether the order store is reachable. Without Postgres
// the store is in-process and always online.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.PostgreSQL.ok()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Refresh probes every dependency once, concurrently.
func (m *Monitor) Refresh() {
	next := Status{Storage: m.storage}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		next.PostgreSQL = m.pingPostgres(ctx)
		return nil
	})
	g.Go(func() error {
		next.Redis = m.pingRedis(ctx)
		return nil
	})
	g.Go(func() error {
		next.Journal, next.JournalSize = m.journalSize()
		return nil
	})
	_ = g.Wait()
	next.LastCheck = time.Now()

	m.mu.Lock()
	prev := m.status
	m.status = next
	m.mu.Unlock()

	m.logTransition("postgres", prev.PostgreSQL, next.PostgreSQL, "order events will be journaled")
	m.logTransition("redis", prev.Redis, next.Redis, "audit locks unavailable")
}

func (m *Monitor) logTransition(name string, prev, next Probe, impact string) {
	switch {
	case prev == next:
	case next == ProbeDown:
		m.logger.Warn(name+" unreachable", zap.String("impact", impact))
	case prev == ProbeDown && next == ProbeUp:
		m.logger.Info(name + " recovered")
	}
}

func (m *Monitor) pingPostgres(ctx context.Context) Probe {
	if m.pg == nil {
		return ProbeSkipped
	}
	return probeOf(m.pg.Ping(ctx))
}

func (m *Monitor) pingRedis(ctx context.Context) Probe {
	if m.redis == nil {
		return ProbeSkipped
	}
	return probeOf(m.redis.Ping(ctx).Err())
}

func (m *Monitor) journalSize() (Probe, int) {
	if m.journal == nil {
		return ProbeSkipped, 0
	}
	size, err := m.journal.Size()
	if err != nil {
		m.logger.Warn("journal size check failed", zap.Error(err))
		return ProbeDown, 0
	}
	return ProbeUp, size
}

func probeOf(err error) Probe {
	if err != nil {
		return ProbeDown
	}
	return ProbeUp
}
