package summary_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository/memory"
	orderUC "github.com/fastygo/orderdesk/usecase/order"
	"github.com/fastygo/orderdesk/usecase/summary"
)

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// fixture has three counted orders over 2025-01-15..17 plus one pending
// order on the 17th:
//
//	S001 01-15  P001×20, P002×10   1809
//	S002 01-15  P001×2,  P003×10    219
//	S001 01-17  P002×1             89.9
//	S002 01-17  pending
func fixture(t *testing.T) *summary.UseCase {
	t.Helper()
	ctx := context.Background()

	catalog := memory.NewCatalog()
	require.NoError(t, catalog.LoadSeed("../../testdata/seed.json"))
	orders := memory.NewOrderRepository()

	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	orderUseCase := orderUC.New(orders, catalog, catalog, nil, nil, orderUC.Options{Location: time.UTC, Clock: clock})

	submit := func(storeID string, items ...orderUC.ItemInput) {
		_, err := orderUseCase.Submit(ctx, storeID, orderUC.SubmitInput{Items: items})
		require.NoError(t, err)
	}
	submit("S001", orderUC.ItemInput{ProductID: "P001", Quantity: 20}, orderUC.ItemInput{ProductID: "P002", Quantity: 10})
	submit("S002", orderUC.ItemInput{ProductID: "P001", Quantity: 2}, orderUC.ItemInput{ProductID: "P003", Quantity: 10})

	now = time.Date(2025, 1, 17, 10, 0, 0, 0, time.UTC)
	submit("S001", orderUC.ItemInput{ProductID: "P002", Quantity: 1})
	_, err := orderUseCase.Open(ctx, "S002")
	require.NoError(t, err)

	return summary.New(orders, catalog, catalog, nil, time.UTC, clock)
}

func TestSummaryByProduct(t *testing.T) {
	uc := fixture(t)

	report, err := uc.Summary(context.Background(), summary.Query{From: "2025-01-15", To: "2025-01-17"})
	require.NoError(t, err)
	assert.Equal(t, summary.ByProductDimension, report.By)
	require.Len(t, report.Products, 3)

	rice, oil, apple := report.Products[0], report.Products[1], report.Products[2]
	assert.Equal(t, "P001", rice.ProductID)
	assert.Equal(t, 22, rice.TotalQuantity)
	assert.Equal(t, 2, rice.StoreCount)
	assertAmount(t, "1001", rice.TotalAmount)

	assert.Equal(t, "P002", oil.ProductID)
	assert.Equal(t, 11, oil.TotalQuantity)
	assertAmount(t, "988.9", oil.TotalAmount)

	assert.Equal(t, "P003", apple.ProductID)
	assertAmount(t, "128", apple.TotalAmount)
}

func TestSummaryByStoreAndFilter(t *testing.T) {
	uc := fixture(t)
	ctx := context.Background()

	report, err := uc.Summary(ctx, summary.Query{From: "2025-01-15", To: "2025-01-17", By: summary.ByStoreDimension})
	require.NoError(t, err)
	require.Len(t, report.Stores, 2)
	assert.Equal(t, "S001", report.Stores[0].StoreID)
	assert.Equal(t, 2, report.Stores[0].OrderCount)
	assertAmount(t, "1898.9", report.Stores[0].TotalAmount)
	assert.Equal(t, "S002", report.Stores[1].StoreID)
	assert.Equal(t, 1, report.Stores[1].OrderCount)

	filtered, err := uc.Summary(ctx, summary.Query{From: "2025-01-15", To: "2025-01-17", StoreID: "S002"})
	require.NoError(t, err)
	require.Len(t, filtered.Products, 2)
	assert.Equal(t, "P003", filtered.Products[0].ProductID)
	assert.Equal(t, "P001", filtered.Products[1].ProductID)
}

func TestSummaryTrendIsZeroFilled(t *testing.T) {
	uc := fixture(t)

	report, err := uc.Summary(context.Background(), summary.Query{From: "2025-01-15", To: "2025-01-17", By: summary.TrendDimension})
	require.NoError(t, err)
	require.Len(t, report.Trend, 3)

	assert.Equal(t, "2025-01-15", report.Trend[0].Date)
	assert.Equal(t, 2, report.Trend[0].OrderCount)
	assertAmount(t, "2028", report.Trend[0].TotalAmount)

	assert.Equal(t, "2025-01-16", report.Trend[1].Date)
	assert.Zero(t, report.Trend[1].OrderCount)
	assertAmount(t, "0", report.Trend[1].TotalAmount)

	assert.Equal(t, 1, report.Trend[2].OrderCount)
	assertAmount(t, "89.9", report.Trend[2].TotalAmount)
}

func TestSummaryOverviewAndCategory(t *testing.T) {
	uc := fixture(t)
	ctx := context.Background()

	report, err := uc.Summary(ctx, summary.Query{From: "2025-01-15", To: "2025-01-17", By: summary.OverviewDimension})
	require.NoError(t, err)
	require.NotNil(t, report.Overview)
	assert.Equal(t, 43, report.Overview.TotalItems)
	assert.Equal(t, 3, report.Overview.ProductTypes)
	assert.Equal(t, 2, report.Overview.OrderedStoreCount)
	assertAmount(t, "2117.9", report.Overview.TotalAmount)

	report, err = uc.Summary(ctx, summary.Query{From: "2025-01-15", To: "2025-01-17", By: summary.ByCategoryDimension})
	require.NoError(t, err)
	require.Len(t, report.Categories, 3)
	assert.Equal(t, []string{"grain", "oil", "fruit"}, []string{
		report.Categories[0].Category,
		report.Categories[1].Category,
		report.Categories[2].Category,
	})
}

func TestSummaryEmptyRange(t *testing.T) {
	uc := fixture(t)

	report, err := uc.Summary(context.Background(), summary.Query{From: "2025-02-01", To: "2025-02-28"})
	require.NoError(t, err)
	assert.Empty(t, report.Products)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"2025-02-01","to":"2025-02-28","by":"product","products":[]}`, string(raw))

	for _, tc := range []struct {
		by  summary.Dimension
		key string
	}{
		{summary.ByStoreDimension, "stores"},
		{summary.ByCategoryDimension, "categories"},
	} {
		report, err := uc.Summary(context.Background(), summary.Query{From: "2025-02-01", To: "2025-02-02", By: tc.by})
		require.NoError(t, err)
		raw, err := json.Marshal(report)
		require.NoError(t, err)
		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "[]", string(body[tc.key]), tc.key)
		assert.Len(t, body, 4)
	}
}

func TestSummaryDefaultsToToday(t *testing.T) {
	uc := fixture(t)

	report, err := uc.Summary(context.Background(), summary.Query{})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-17", report.From)
	assert.Equal(t, "2025-01-17", report.To)
	require.Len(t, report.Products, 1)
	assert.Equal(t, "P002", report.Products[0].ProductID)
}

func TestSummaryRejectsBadRanges(t *testing.T) {
	uc := fixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		query summary.Query
		field string
	}{
		{"malformed from", summary.Query{From: "2025/01/15"}, "from"},
		{"to before from", summary.Query{From: "2025-01-17", To: "2025-01-15"}, "to"},
		{"trend too long", summary.Query{From: "2024-01-01", To: "2025-06-30", By: summary.TrendDimension}, "to"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Summary(ctx, tc.query)
			require.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
			assert.Equal(t, tc.field, domain.MetaOf(err)["field"])
		})
	}
}

func TestDashboard(t *testing.T) {
	uc := fixture(t)

	dashboard, err := uc.Dashboard(context.Background(), "2025-01-17")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-17", dashboard.Date)
	assert.Equal(t, 2, dashboard.TotalStores)
	assert.Equal(t, 1, dashboard.OrderedStores)
	assert.Equal(t, 1, dashboard.NotOrderedStores)
	assert.Equal(t, 1, dashboard.TotalItemsOrdered)
	assert.Equal(t, 3, dashboard.TotalSKUs)
}

func TestParseDimension(t *testing.T) {
	d, err := summary.ParseDimension("")
	require.NoError(t, err)
	assert.Equal(t, summary.ByProductDimension, d)

	d, err = summary.ParseDimension(" Trend ")
	require.NoError(t, err)
	assert.Equal(t, summary.TrendDimension, d)

	_, err = summary.ParseDimension("region")
	require.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
	assert.Equal(t, "by", domain.MetaOf(err)["field"])
}

func TestByProductTieBreaksOnID(t *testing.T) {
	orders := []domain.Order{{
		StoreID: "S1",
		Items: []domain.OrderItem{
			{ProductID: "B", Price: decimal.NewFromInt(10), QuantityOrdered: 1},
			{ProductID: "A", Price: decimal.NewFromInt(5), QuantityOrdered: 2},
		},
	}}

	rows := summary.ByProduct(orders)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].ProductID)
	assert.Equal(t, "B", rows[1].ProductID)
}

func TestApprovedQuantitiesDriveTotals(t *testing.T) {
	approved := 8
	orders := []domain.Order{{
		StoreID: "S1",
		Items: []domain.OrderItem{
			{ProductID: "P002", Price: decimal.RequireFromString("89.9"), QuantityOrdered: 10, QuantityApproved: &approved},
		},
	}}

	rows := summary.ByProduct(orders)
	require.Len(t, rows, 1)
	assert.Equal(t, 8, rows[0].TotalQuantity)
	assertAmount(t, "719.2", rows[0].TotalAmount)
}
