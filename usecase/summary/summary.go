package summary

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository"
	"github.com/fastygo/orderdesk/usecase"
)

// Dimension selects which rollup a report carries.
type Dimension string

const (
	ByProductDimension  Dimension = "product"
	ByStoreDimension    Dimension = "store"
	ByCategoryDimension Dimension = "category"
	TrendDimension      Dimension = "trend"
	OverviewDimension   Dimension = "overview"
)

// ParseDimension maps the query value to a Dimension; empty means product.
func ParseDimension(raw string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(raw))); d {
	case "":
		return ByProductDimension, nil
	case ByProductDimension, ByStoreDimension, ByCategoryDimension, TrendDimension, OverviewDimension:
		return d, nil
	}
	return "", domain.NewValidationError("by", "unknown summary dimension "+raw)
}

type Query struct {
	From    string
	To      string
	StoreID string
	By      Dimension
}

// Report is a summary over a date range. Only the selected rollup is set.
type Report struct {
	From       string            `json:"from"`
	To         string            `json:"to"`
	By         Dimension         `json:"by"`
	Overview   *Overview         `json:"overview,omitempty"`
	Products   []ProductSummary  `json:"products,omitempty"`
	Stores     []StoreSummary    `json:"stores,omitempty"`
	Categories []CategorySummary `json:"categories,omitempty"`
	Trend      []TrendPoint      `json:"trend,omitempty"`
}

// MarshalJSON always emits the selected rollup, as [] when it has no rows.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	out := struct {
		plain
		Products   *[]ProductSummary  `json:"products,omitempty"`
		Stores     *[]StoreSummary    `json:"stores,omitempty"`
		Categories *[]CategorySummary `json:"categories,omitempty"`
		Trend      *[]TrendPoint      `json:"trend,omitempty"`
	}{plain: plain(r)}
	switch r.By {
	case ByProductDimension:
		rows := append([]ProductSummary{}, r.Products...)
		out.Products = &rows
	case ByStoreDimension:
		rows := append([]StoreSummary{}, r.Stores...)
		out.Stores = &rows
	case ByCategoryDimension:
		rows := append([]CategorySummary{}, r.Categories...)
		out.Categories = &rows
	case TrendDimension:
		rows := append([]TrendPoint{}, r.Trend...)
		out.Trend = &rows
	}
	return json.Marshal(out)
}

// countedStatuses are the orders that contribute to reports.
var countedStatuses = []domain.OrderStatus{
	domain.StatusSubmitted,
	domain.StatusAuditing,
	domain.StatusApproved,
}

type UseCase struct {
	orders   repository.OrderRepository
	products repository.CatalogRepository
	stores   repository.StoreRepository
	logger   *zap.Logger
	location *time.Location
	now      usecase.Clock
}

func New(
	orders repository.OrderRepository,
	products repository.CatalogRepository,
	stores repository.StoreRepository,
	logger *zap.Logger,
	location *time.Location,
	clock usecase.Clock,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}
	if clock == nil {
		clock = time.Now
	}
	return &UseCase{
		orders:   orders,
		products: products,
		stores:   stores,
		logger:   logger,
		location: location,
		now:      clock,
	}
}

// Summary builds the requested rollup. Missing dates default to today.
func (uc *UseCase) Summary(ctx context.Context, q Query) (*Report, error) {
	today := usecase.BusinessDate(uc.now(), uc.location)
	if q.From == "" {
		q.From = today
	}
	if q.To == "" {
		q.To = q.From
	}
	if q.By == "" {
		q.By = ByProductDimension
	}
	if _, _, err := ParseRange(q.From, q.To); err != nil {
		return nil, err
	}

	orders, err := uc.orders.List(ctx, repository.OrderFilter{
		StoreID:  q.StoreID,
		Statuses: countedStatuses,
		From:     q.From,
		To:       q.To,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{From: q.From, To: q.To, By: q.By}
	switch q.By {
	case ByProductDimension:
		report.Products = ByProduct(orders)
	case ByStoreDimension:
		report.Stores = ByStore(orders)
	case ByCategoryDimension:
		report.Categories = ByCategory(orders)
	case TrendDimension:
		report.Trend, err = Trend(orders, q.From, q.To)
		if err != nil {
			return nil, err
		}
	case OverviewDimension:
		overview := BuildOverview(orders)
		report.Overview = &overview
	default:
		return nil, domain.NewValidationError("by", "unknown summary dimension "+string(q.By))
	}
	uc.logger.Debug("summary built",
		zap.String("from", q.From),
		zap.String("to", q.To),
		zap.String("by", string(q.By)),
		zap.Int("orders", len(orders)),
	)
	return report, nil
}

// Dashboard reports store participation for one business date.
func (uc *UseCase) Dashboard(ctx context.Context, date string) (*Dashboard, error) {
	if date == "" {
		date = usecase.BusinessDate(uc.now(), uc.location)
	}
	if _, _, err := ParseRange(date, date); err != nil {
		return nil, err
	}
	stores, err := uc.stores.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := uc.orders.List(ctx, repository.OrderFilter{
		Statuses: countedStatuses,
		From:     date,
		To:       date,
	})
	if err != nil {
		return nil, err
	}
	products, err := uc.products.ListProducts(ctx, repository.ProductFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	dashboard := BuildDashboard(date, stores, orders, products)
	return &dashboard, nil
}
