package summary

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastygo/orderdesk/domain"
)

// MaxTrendDays bounds the length of a trend series.
const MaxTrendDays = 366

type ProductSummary struct {
	ProductID     string          `json:"productId"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Unit          string          `json:"unit"`
	TotalQuantity int             `json:"totalQuantity"`
	StoreCount    int             `json:"storeCount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

type StoreSummary struct {
	StoreID       string          `json:"storeId"`
	Name          string          `json:"name"`
	Region        string          `json:"region"`
	OrderCount    int             `json:"orderCount"`
	ItemCount     int             `json:"itemCount"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

type CategorySummary struct {
	Category      string          `json:"category"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

type TrendPoint struct {
	Date        string          `json:"date"`
	OrderCount  int             `json:"orderCount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type Overview struct {
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	TotalItems        int             `json:"totalItems"`
	ProductTypes      int             `json:"productTypes"`
	OrderedStoreCount int             `json:"orderedStoreCount"`
}

type Dashboard struct {
	Date              string `json:"date"`
	TotalStores       int    `json:"totalStores"`
	OrderedStores     int    `json:"orderedStores"`
	NotOrderedStores  int    `json:"notOrderedStores"`
	TotalItemsOrdered int    `json:"totalItemsOrdered"`
	TotalSKUs         int    `json:"totalSKUs"`
}

// ByProduct rolls effective quantities and amounts up per product, largest
// amount first.
func ByProduct(orders []domain.Order) []ProductSummary {
	index := make(map[string]*ProductSummary)
	stores := make(map[string]map[string]struct{})
	for _, o := range orders {
		for _, item := range o.Items {
			row, ok := index[item.ProductID]
			if !ok {
				row = &ProductSummary{
					ProductID:   item.ProductID,
					Name:        item.ProductName,
					Category:    item.Category,
					Unit:        item.Unit,
					TotalAmount: decimal.Zero,
				}
				index[item.ProductID] = row
				stores[item.ProductID] = make(map[string]struct{})
			}
			row.TotalQuantity += item.EffectiveQuantity()
			row.TotalAmount = row.TotalAmount.Add(item.Amount())
			stores[item.ProductID][o.StoreID] = struct{}{}
		}
	}

	out := make([]ProductSummary, 0, len(index))
	for id, row := range index {
		row.StoreCount = len(stores[id])
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalAmount.Cmp(out[j].TotalAmount); c != 0 {
			return c > 0
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// ByStore rolls orders up per store, largest amount first.
func ByStore(orders []domain.Order) []StoreSummary {
	index := make(map[string]*StoreSummary)
	for _, o := range orders {
		row, ok := index[o.StoreID]
		if !ok {
			row = &StoreSummary{
				StoreID:     o.StoreID,
				Name:        o.StoreName,
				Region:      o.StoreRegion,
				TotalAmount: decimal.Zero,
			}
			index[o.StoreID] = row
		}
		row.OrderCount++
		row.ItemCount += len(o.Items)
		for _, item := range o.Items {
			row.TotalQuantity += item.EffectiveQuantity()
		}
		row.TotalAmount = row.TotalAmount.Add(o.TotalAmount())
	}

	out := make([]StoreSummary, 0, len(index))
	for _, row := range index {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalAmount.Cmp(out[j].TotalAmount); c != 0 {
			return c > 0
		}
		return out[i].StoreID < out[j].StoreID
	})
	return out
}

func ByCategory(orders []domain.Order) []CategorySummary {
	index := make(map[string]*CategorySummary)
	for _, o := range orders {
		for _, item := range o.Items {
			row, ok := index[item.Category]
			if !ok {
				row = &CategorySummary{Category: item.Category, TotalAmount: decimal.Zero}
				index[item.Category] = row
			}
			row.TotalQuantity += item.EffectiveQuantity()
			row.TotalAmount = row.TotalAmount.Add(item.Amount())
		}
	}

	out := make([]CategorySummary, 0, len(index))
	for _, row := range index {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalAmount.Cmp(out[j].TotalAmount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Trend returns one point per calendar day in [from, to], including days
// without orders. Orders are bucketed by business date.
func Trend(orders []domain.Order, from, to string) ([]TrendPoint, error) {
	start, end, err := ParseRange(from, to)
	if err != nil {
		return nil, err
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > MaxTrendDays {
		return nil, domain.NewValidationError("to", "date range is too long")
	}

	points := make([]TrendPoint, days)
	slot := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(domain.DateLayout)
		points[i] = TrendPoint{Date: date, TotalAmount: decimal.Zero}
		slot[date] = i
	}
	for _, o := range orders {
		i, ok := slot[o.BusinessDate]
		if !ok {
			continue
		}
		points[i].OrderCount++
		points[i].TotalAmount = points[i].TotalAmount.Add(o.TotalAmount())
	}
	return points, nil
}

func BuildOverview(orders []domain.Order) Overview {
	out := Overview{TotalAmount: decimal.Zero}
	products := make(map[string]struct{})
	stores := make(map[string]struct{})
	for _, o := range orders {
		stores[o.StoreID] = struct{}{}
		out.TotalAmount = out.TotalAmount.Add(o.TotalAmount())
		for _, item := range o.Items {
			out.TotalItems += item.EffectiveQuantity()
			products[item.ProductID] = struct{}{}
		}
	}
	out.ProductTypes = len(products)
	out.OrderedStoreCount = len(stores)
	return out
}

// BuildDashboard counts which active stores ordered on date.
func BuildDashboard(date string, stores []domain.Store, orders []domain.Order, products []domain.Product) Dashboard {
	out := Dashboard{Date: date}
	active := make(map[string]struct{}, len(stores))
	for _, s := range stores {
		if s.IsActive() {
			active[s.ID] = struct{}{}
		}
	}
	out.TotalStores = len(active)

	ordered := make(map[string]struct{})
	for _, o := range orders {
		if o.BusinessDate != date {
			continue
		}
		out.TotalItemsOrdered += o.TotalQuantity
		if _, ok := active[o.StoreID]; ok {
			ordered[o.StoreID] = struct{}{}
		}
	}
	out.OrderedStores = len(ordered)
	out.NotOrderedStores = out.TotalStores - out.OrderedStores

	for _, p := range products {
		if p.IsActive {
			out.TotalSKUs++
		}
	}
	return out
}

// ParseRange validates an inclusive business-date range.
func ParseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(domain.DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewValidationError("from", "from must be a date in yyyy-mm-dd format")
	}
	end, err := time.Parse(domain.DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewValidationError("to", "to must be a date in yyyy-mm-dd format")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, domain.NewValidationError("to", "to must not be before from")
	}
	return start, end, nil
}
