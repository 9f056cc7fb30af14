package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/internal/infrastructure/buffer"
	"github.com/fastygo/orderdesk/repository"
	"github.com/fastygo/orderdesk/repository/memory"
)

type health struct{ online atomic.Bool }

func (h *health) IsOnline() bool { return h.online.Load() }

// flakyEvents fails every Append while broken is set.
type flakyEvents struct {
	repository.EventRepository
	broken atomic.Bool
}

func (f *flakyEvents) Append(ctx context.Context, event domain.OrderEvent) error {
	if f.broken.Load() {
		return errors.New("connection refused")
	}
	return f.EventRepository.Append(ctx, event)
}

type processorFixture struct {
	processor *JournalProcessor
	journal   *buffer.Journal
	events    *flakyEvents
	health    *health
}

func newProcessor(t *testing.T, cfg JournalConfig) processorFixture {
	t.Helper()
	journal, err := buffer.Open(filepath.Join(t.TempDir(), "journal.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	h := &health{}
	h.online.Store(true)
	events := &flakyEvents{EventRepository: memory.NewEventRepository()}

	processor, err := NewJournalProcessor(journal, h, events, nil, cfg)
	require.NoError(t, err)
	return processorFixture{processor: processor, journal: journal, events: events, health: h}
}

func submittedOrder(t *testing.T) *domain.Order {
	t.Helper()
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	store := &domain.Store{ID: "S001", Name: "朝阳店", ManagerName: "王经理", Status: domain.StoreStatusActive}
	o := domain.NewOrder("O2025011501", store, "2025-01-15", now)
	require.NoError(t, o.Submit([]domain.OrderItem{{ProductID: "P001", ProductName: "东北大米", QuantityOrdered: 2}}, "王经理", now))
	o.Touch(now)
	return o
}

func (f processorFixture) stored(t *testing.T) []domain.OrderEvent {
	t.Helper()
	events, err := f.events.ListByOrder(context.Background(), "O2025011501")
	require.NoError(t, err)
	return events
}

func TestRecorderWritesThroughWhenOnline(t *testing.T) {
	f := newProcessor(t, JournalConfig{})
	recorder := NewEventRecorder(f.processor)

	require.NoError(t, recorder.RecordOrderEvent(context.Background(), submittedOrder(t)))

	events := f.stored(t)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSubmitted, events[0].Name)
	assert.Zero(t, f.processor.Size())
}

func TestPublishJournalsWhileOffline(t *testing.T) {
	f := newProcessor(t, JournalConfig{})
	ctx := context.Background()
	f.health.online.Store(false)

	recorder := NewEventRecorder(f.processor)
	require.NoError(t, recorder.RecordOrderEvent(ctx, submittedOrder(t)))
	assert.Empty(t, f.stored(t))
	assert.Equal(t, 1, f.processor.Size())

	// draining while offline is a no-op
	require.NoError(t, f.processor.Drain(ctx))
	assert.Equal(t, 1, f.processor.Size())

	f.health.online.Store(true)
	require.NoError(t, f.processor.Drain(ctx))
	assert.Len(t, f.stored(t), 1)
	assert.Zero(t, f.processor.Size())
}

func TestPublishJournalsWhenStoreFails(t *testing.T) {
	f := newProcessor(t, JournalConfig{})
	f.events.broken.Store(true)

	event, err := domain.NewOrderEvent(submittedOrder(t))
	require.NoError(t, err)
	require.NoError(t, f.processor.Publish(context.Background(), event))
	assert.Equal(t, 1, f.processor.Size())
}

func TestDrainDropsAfterMaxAttempts(t *testing.T) {
	f := newProcessor(t, JournalConfig{MaxAttempts: 2})
	ctx := context.Background()

	event, err := domain.NewOrderEvent(submittedOrder(t))
	require.NoError(t, err)
	require.NoError(t, f.journal.Append(buffer.NewEntry(event)))
	f.events.broken.Store(true)

	require.NoError(t, f.processor.Drain(ctx))
	entries, err := f.journal.Peek(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)

	require.NoError(t, f.processor.Drain(ctx))
	assert.Zero(t, f.processor.Size())
}

func TestPublishWithoutJournal(t *testing.T) {
	h := &health{}
	events := memory.NewEventRepository()
	processor, err := NewJournalProcessor(nil, h, events, nil, JournalConfig{})
	require.NoError(t, err)

	event, err := domain.NewOrderEvent(submittedOrder(t))
	require.NoError(t, err)
	assert.Error(t, processor.Publish(context.Background(), event))

	h.online.Store(true)
	assert.NoError(t, processor.Publish(context.Background(), event))
	assert.NoError(t, processor.Drain(context.Background()))
	assert.Zero(t, processor.Size())
}

type stubExpirer struct {
	n   int
	err error
}

func (s stubExpirer) ExpireStale(context.Context) (int, error) { return s.n, s.err }

func TestLeaseSweeper(t *testing.T) {
	sweeper, err := NewLeaseSweeper(stubExpirer{n: 3}, time.Minute, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, sweeper.Sweep(context.Background()))

	failing, err := NewLeaseSweeper(stubExpirer{n: 1, err: errors.New("boom")}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, failing.Sweep(context.Background()))

	failing.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	failing.Stop(ctx)
}

func TestJobsScheduledOnlyWithJournal(t *testing.T) {
	without, err := NewJournalProcessor(nil, nil, memory.NewEventRepository(), nil, JournalConfig{})
	require.NoError(t, err)
	assert.Empty(t, without.cron.Entries())

	f := newProcessor(t, JournalConfig{})
	assert.Len(t, f.processor.cron.Entries(), 2)
}
