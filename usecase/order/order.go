package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/orderdesk/domain"
	appLogger "github.com/fastygo/orderdesk/pkg/logger"
	"github.com/fastygo/orderdesk/repository"
	"github.com/fastygo/orderdesk/usecase"
)

// ItemInput is one requested line of a submission.
type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// SubmitInput is a store's daily submission.
type SubmitInput struct {
	Items       []ItemInput
	SubmittedBy string
}

type Options struct {
	Location *time.Location
	Clock    usecase.Clock
	// Events backs History; nil disables it.
	Events repository.EventRepository
}

type UseCase struct {
	orders   repository.OrderRepository
	products repository.CatalogRepository
	stores   repository.StoreRepository
	events   repository.EventRepository
	recorder usecase.EventRecorder
	logger   *zap.Logger
	location *time.Location
	now      usecase.Clock
}

func New(
	orders repository.OrderRepository,
	products repository.CatalogRepository,
	stores repository.StoreRepository,
	recorder usecase.EventRecorder,
	logger *zap.Logger,
	opts Options,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &UseCase{
		orders:   orders,
		products: products,
		stores:   stores,
		events:   opts.Events,
		recorder: recorder,
		logger:   logger,
		location: opts.Location,
		now:      opts.Clock,
	}
}

func (uc *UseCase) Get(ctx context.Context, id string) (*domain.Order, error) {
	return uc.orders.Get(ctx, id)
}

func (uc *UseCase) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	for _, status := range filter.Statuses {
		if !status.IsValid() {
			return nil, domain.NewValidationError("status", "unknown order status "+string(status))
		}
	}
	return uc.orders.List(ctx, filter)
}

// History lists the journaled events of an order.
func (uc *UseCase) History(ctx context.Context, id string) ([]domain.OrderEvent, error) {
	if _, err := uc.orders.Get(ctx, id); err != nil {
		return nil, err
	}
	if uc.events == nil {
		return []domain.OrderEvent{}, nil
	}
	events, err := uc.events.ListByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.OrderEvent{}
	}
	return events, nil
}

// Open returns the store's order for today, creating a Pending one when none exists.
func (uc *UseCase) Open(ctx context.Context, storeID string) (*domain.Order, error) {
	store, err := uc.activeStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	businessDate := usecase.BusinessDate(now, uc.location)

	existing, err := uc.orders.FindOpen(ctx, store.ID, businessDate)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, domain.ErrOrderNotFound):
		return nil, err
	}

	order, err := uc.newOrder(ctx, store, businessDate, now)
	if err != nil {
		return nil, err
	}
	if err := uc.orders.Create(ctx, order); err != nil {
		if errors.Is(err, domain.ErrDuplicateSubmission) {
			// lost a race with another opener
			return uc.orders.FindOpen(ctx, store.ID, businessDate)
		}
		return nil, err
	}
	appLogger.FromContext(appLogger.ContextWithOrder(ctx, order.ID), uc.logger).Info("order opened", zap.String("store_id", store.ID))
	return order, nil
}

// Submit moves the store's order for today to Submitted with the given items.
// A failed submission leaves any existing order untouched.
func (uc *UseCase) Submit(ctx context.Context, storeID string, input SubmitInput) (*domain.Order, error) {
	store, err := uc.activeStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, domain.NewValidationError("items", "order must contain at least one item")
	}
	items, err := uc.resolveItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	submittedBy := strings.TrimSpace(input.SubmittedBy)
	if submittedBy == "" {
		submittedBy = store.ManagerName
	}
	now := uc.now()
	businessDate := usecase.BusinessDate(now, uc.location)

	existing, err := uc.orders.FindOpen(ctx, store.ID, businessDate)
	var order *domain.Order
	switch {
	case err == nil:
		if existing.Status != domain.StatusPending {
			return nil, domain.ErrDuplicateSubmission
		}
		order = existing.Clone()
		if err := order.Submit(items, submittedBy, now); err != nil {
			return nil, err
		}
		order.Touch(now)
		if err := uc.orders.Update(ctx, order, existing.Version); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				return nil, domain.ErrDuplicateSubmission
			}
			return nil, err
		}
	case errors.Is(err, domain.ErrOrderNotFound):
		order, err = uc.newOrder(ctx, store, businessDate, now)
		if err != nil {
			return nil, err
		}
		if err := order.Submit(items, submittedBy, now); err != nil {
			return nil, err
		}
		order.Touch(now)
		if err := uc.orders.Create(ctx, order); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := uc.stores.TouchLastOrder(ctx, store.ID, businessDate); err != nil {
		uc.logger.Warn("failed to update store last order date", zap.String("store_id", store.ID), zap.Error(err))
	}
	uc.record(ctx, order)
	appLogger.FromContext(appLogger.ContextWithOrder(ctx, order.ID), uc.logger).Info("order submitted",
		zap.String("store_id", store.ID),
		zap.Int("items", order.ItemCount),
		zap.Int("quantity", order.TotalQuantity),
	)
	return order, nil
}

func (uc *UseCase) activeStore(ctx context.Context, storeID string) (*domain.Store, error) {
	if strings.TrimSpace(storeID) == "" {
		return nil, domain.NewValidationError("storeId", "store id is required")
	}
	store, err := uc.stores.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if !store.IsActive() {
		return nil, domain.NewValidationError("storeId", "store "+storeID+" is not active")
	}
	return store, nil
}

func (uc *UseCase) newOrder(ctx context.Context, store *domain.Store, businessDate string, now time.Time) (*domain.Order, error) {
	seq, err := uc.orders.NextSequence(ctx, businessDate)
	if err != nil {
		return nil, err
	}
	return domain.NewOrder(domain.FormatOrderID(businessDate, seq), store, businessDate, now), nil
}

// resolveItems loads the products concurrently and snapshots them into lines.
func (uc *UseCase) resolveItems(ctx context.Context, inputs []ItemInput) ([]domain.OrderItem, error) {
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.ProductID) == "" {
			return nil, domain.NewValidationError("productId", "product id is required")
		}
		if _, dup := seen[in.ProductID]; dup {
			return nil, domain.NewValidationError("items", "product "+in.ProductID+" appears more than once")
		}
		seen[in.ProductID] = struct{}{}
	}

	items := make([]domain.OrderItem, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			product, err := uc.products.GetProduct(gctx, in.ProductID)
			if err != nil {
				return err
			}
			item, err := domain.NewOrderItem(product, in.Quantity)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (uc *UseCase) record(ctx context.Context, order *domain.Order) {
	if uc.recorder == nil {
		return
	}
	if err := uc.recorder.RecordOrderEvent(ctx, order); err != nil {
		uc.logger.Error("failed to record order event", zap.String("order_id", order.ID), zap.Error(err))
	}
}
