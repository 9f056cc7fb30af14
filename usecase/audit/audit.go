package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/orderdesk/domain"
	appLogger "github.com/fastygo/orderdesk/pkg/logger"
	"github.com/fastygo/orderdesk/repository"
	"github.com/fastygo/orderdesk/usecase"
)

// OverMaxPolicy decides what happens when an approved quantity exceeds the
// product's maxOrder.
type OverMaxPolicy string

const (
	OverMaxWarn  OverMaxPolicy = "warn"
	OverMaxBlock OverMaxPolicy = "block"
)

func (p OverMaxPolicy) Valid() bool {
	return p == OverMaxWarn || p == OverMaxBlock
}

const DefaultLeaseTTL = 30 * time.Minute

type Config struct {
	LeaseTTL      time.Duration
	OverMaxPolicy OverMaxPolicy
	Clock         usecase.Clock
}

// Coordinator serialises auditors on an order. The lease store gives fast
// mutual exclusion; the order's version check guarantees a single winner even
// when the lease store and the order store disagree.
type Coordinator struct {
	orders   repository.OrderRepository
	products repository.CatalogRepository
	leases   repository.LeaseRepository
	recorder usecase.EventRecorder
	logger   *zap.Logger
	ttl      time.Duration
	policy   OverMaxPolicy
	now      usecase.Clock
}

func New(
	orders repository.OrderRepository,
	products repository.CatalogRepository,
	leases repository.LeaseRepository,
	recorder usecase.EventRecorder,
	logger *zap.Logger,
	cfg Config,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	if !cfg.OverMaxPolicy.Valid() {
		cfg.OverMaxPolicy = OverMaxWarn
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Coordinator{
		orders:   orders,
		products: products,
		leases:   leases,
		recorder: recorder,
		logger:   logger,
		ttl:      cfg.LeaseTTL,
		policy:   cfg.OverMaxPolicy,
		now:      cfg.Clock,
	}
}

// AcquireLock claims a Submitted order for auditor. Calling it again as the
// current holder renews the lease and is not recorded as a new event.
func (c *Coordinator) AcquireLock(ctx context.Context, orderID, auditor string) (*domain.Order, error) {
	auditor = strings.TrimSpace(auditor)
	current, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	next := current.Clone()
	entered, err := next.AcquireAudit(auditor, now, c.ttl)
	if err != nil {
		return nil, err
	}

	if current.LeaseExpired(now) && current.AuditorName != auditor {
		c.dropLease(ctx, orderID, current.AuditorName)
	}
	ok, err := c.leases.Acquire(ctx, orderID, auditor, c.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire audit lease: %w", err)
	}
	if !ok {
		holder, _ := c.leases.Holder(ctx, orderID)
		if holder == "" {
			holder = current.AuditorName
		}
		return nil, domain.NewLockConflict(holder)
	}

	next.Touch(now)
	if err := c.orders.Update(ctx, next, current.Version); err != nil {
		if entered {
			c.dropLease(ctx, orderID, auditor)
		}
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, c.conflictAfterRace(ctx, orderID, auditor, now)
		}
		return nil, err
	}

	if entered {
		c.record(ctx, next)
		c.log(ctx, orderID).Info("audit lock acquired", zap.String("auditor", auditor))
	}
	return next, nil
}

// AdjustItemQuantity records an approved quantity for one line of an order
// held by auditor.
func (c *Coordinator) AdjustItemQuantity(ctx context.Context, orderID, auditor, productID string, quantity int, remark *string) (*domain.Order, error) {
	product, err := c.products.GetProduct(ctx, productID)
	if err != nil && !errors.Is(err, domain.ErrProductNotFound) {
		return nil, err
	}
	known := err == nil
	maxOrder := 0
	if known {
		maxOrder = product.MaxOrder
	}

	exceeds := false
	order, err := c.mutate(ctx, orderID, func(o *domain.Order, now time.Time) error {
		if err := o.CheckAdjustable(auditor, productID); err != nil {
			return err
		}
		exceeds = known && quantity > maxOrder
		if exceeds && c.policy == OverMaxBlock {
			return domain.NewValidationError("quantityApproved",
				fmt.Sprintf("approved quantity %d exceeds maximum %d for %s", quantity, maxOrder, productID))
		}
		return o.AdjustItem(auditor, domain.ItemAdjustment{
			ProductID:    productID,
			Quantity:     quantity,
			Remark:       remark,
			ExceedsLimit: exceeds,
		}, now, c.ttl)
	})
	if err != nil {
		return nil, err
	}
	if exceeds {
		c.log(ctx, orderID).Warn("approved quantity exceeds product maximum",
			zap.String("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Int("max_order", maxOrder),
		)
	}
	if _, err := c.leases.Acquire(ctx, orderID, auditor, c.ttl); err != nil {
		c.log(ctx, orderID).Warn("failed to renew audit lease", zap.Error(err))
	}
	return order, nil
}

// Approve finalises the order. Lines without an adjustment are approved as ordered.
func (c *Coordinator) Approve(ctx context.Context, orderID, auditor string) (*domain.Order, error) {
	order, err := c.mutate(ctx, orderID, func(o *domain.Order, now time.Time) error {
		return o.Approve(auditor, now)
	})
	if err != nil {
		return nil, err
	}
	c.finish(ctx, order, auditor)
	c.log(ctx, orderID).Info("order approved",
		zap.String("auditor", auditor),
		zap.String("amount", order.TotalAmount().StringFixed(2)),
	)
	return order, nil
}

func (c *Coordinator) Reject(ctx context.Context, orderID, auditor, reason string) (*domain.Order, error) {
	order, err := c.mutate(ctx, orderID, func(o *domain.Order, now time.Time) error {
		return o.Reject(auditor, reason, now)
	})
	if err != nil {
		return nil, err
	}
	c.finish(ctx, order, auditor)
	c.log(ctx, orderID).Info("order rejected", zap.String("auditor", auditor))
	return order, nil
}

// Release hands the order back to the Submitted queue.
func (c *Coordinator) Release(ctx context.Context, orderID, auditor string) (*domain.Order, error) {
	order, err := c.mutate(ctx, orderID, func(o *domain.Order, now time.Time) error {
		return o.Release(auditor, now)
	})
	if err != nil {
		return nil, err
	}
	c.finish(ctx, order, auditor)
	c.log(ctx, orderID).Info("audit lock released", zap.String("auditor", auditor))
	return order, nil
}

// CurrentLockHolder reports the auditor holding a live lease on the order.
func (c *Coordinator) CurrentLockHolder(ctx context.Context, orderID string) (string, bool, error) {
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return "", false, err
	}
	holder, ok := order.LockHolder(c.now())
	return holder, ok, nil
}

// ExpireLease reverts one order whose lease deadline has passed.
func (c *Coordinator) ExpireLease(ctx context.Context, orderID string) (*domain.Order, error) {
	var holder string
	order, err := c.mutate(ctx, orderID, func(o *domain.Order, now time.Time) error {
		holder = o.AuditorName
		return o.ExpireLease(now)
	})
	if err != nil {
		return nil, err
	}
	c.finish(ctx, order, holder)
	c.logger.Warn("audit lease expired", zap.String("order_id", orderID), zap.String("auditor", holder))
	return order, nil
}

// ExpireStale reverts every Auditing order whose lease has elapsed and
// returns how many were released. Orders that changed concurrently are skipped.
func (c *Coordinator) ExpireStale(ctx context.Context) (int, error) {
	auditing, err := c.orders.List(ctx, repository.OrderFilter{
		Statuses: []domain.OrderStatus{domain.StatusAuditing},
	})
	if err != nil {
		return 0, err
	}
	now := c.now()
	expired := 0
	for i := range auditing {
		if !auditing[i].LeaseExpired(now) {
			continue
		}
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		_, err := c.ExpireLease(ctx, auditing[i].ID)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, domain.ErrVersionConflict),
			domain.IsDomainError(err, domain.ErrCodeInvalidTransition):
			c.logger.Debug("lease changed before expiry", zap.String("order_id", auditing[i].ID))
		default:
			return expired, err
		}
	}
	return expired, nil
}

// mutate applies fn to a copy of the stored order and saves it under the
// version check, so a rejected action never changes stored state.
func (c *Coordinator) mutate(ctx context.Context, orderID string, fn func(o *domain.Order, now time.Time) error) (*domain.Order, error) {
	current, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	next := current.Clone()
	if err := fn(next, now); err != nil {
		return nil, err
	}
	next.Touch(now)
	if err := c.orders.Update(ctx, next, current.Version); err != nil {
		return nil, err
	}
	return next, nil
}

func (c *Coordinator) conflictAfterRace(ctx context.Context, orderID, auditor string, now time.Time) error {
	latest, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if holder, ok := latest.LockHolder(now); ok && holder != auditor {
		return domain.NewLockConflict(holder)
	}
	if latest.Status != domain.StatusSubmitted && latest.Status != domain.StatusAuditing {
		return domain.NewInvalidTransition(latest.Status, "acquire audit lock")
	}
	return domain.ErrVersionConflict
}

func (c *Coordinator) finish(ctx context.Context, order *domain.Order, auditor string) {
	c.dropLease(ctx, order.ID, auditor)
	c.record(ctx, order)
}

func (c *Coordinator) dropLease(ctx context.Context, orderID, holder string) {
	if holder == "" {
		return
	}
	if err := c.leases.Release(ctx, orderID, holder); err != nil {
		c.logger.Warn("failed to release audit lease",
			zap.String("order_id", orderID),
			zap.String("auditor", holder),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) record(ctx context.Context, order *domain.Order) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordOrderEvent(ctx, order); err != nil {
		c.logger.Error("failed to record order event", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (c *Coordinator) log(ctx context.Context, orderID string) *zap.Logger {
	return appLogger.FromContext(appLogger.ContextWithOrder(ctx, orderID), c.logger)
}
