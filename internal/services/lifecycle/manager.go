package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownFunc releases one component.
type ShutdownFunc func(ctx context.Context) error

type hook struct {
	name string
	fn   ShutdownFunc
}

// Manager starts long-running components and stops them in reverse order
// when the process is asked to terminate or a component fails.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	mu    sync.Mutex
	hooks []hook

	failOnce sync.Once
	failure  error
}

// New returns a manager whose Context is cancelled on SIGINT, SIGTERM or the
// first component failure.
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Context is done once shutdown has been requested.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a shutdown hook. Hooks run in reverse registration order.
func (m *Manager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Go runs a blocking component in the background. A non-nil return value
// triggers shutdown.
func (m *Manager) Go(name string, run func() error) {
	go func() {
		if err := run(); err != nil {
			m.logger.Error("component failed", zap.String("component", name), zap.Error(err))
			m.failOnce.Do(func() { m.failure = err })
			m.cancel()
		}
	}()
}

// Listen cancels the manager context on SIGINT or SIGTERM.
func (m *Manager) Listen() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			m.cancel()
		case <-m.ctx.Done():
		}
	}()
}

// Wait blocks until shutdown is requested, then runs every hook.
func (m *Manager) Wait() error {
	<-m.ctx.Done()
	err := m.Shutdown(context.Background())
	return errors.Join(m.failure, err)
}

// Shutdown runs all hooks within the configured timeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	hooks := m.hooks
	m.hooks = nil
	m.mu.Unlock()

	var result error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.fn(ctx); err != nil {
			m.logger.Error("shutdown hook failed", zap.String("component", h.name), zap.Error(err))
			result = errors.Join(result, err)
			continue
		}
		m.logger.Info("component stopped", zap.String("component", h.name))
	}
	return result
}
