package memory

import (
	"fmt"
	"time"

	"github.com/fastygo/orderdesk/domain"
	"github.com/fastygo/orderdesk/repository"
)

// LoadSeed fills the catalog from a JSON fixture file.
func (c *Catalog) LoadSeed(path string) error {
	seed, err := repository.ReadSeed(path)
	if err != nil {
		return err
	}
	for _, p := range seed.Products {
		if err := c.PutProduct(p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	for _, cat := range seed.FlatCategories() {
		c.PutCategory(cat)
	}
	for _, s := range seed.Stores {
		c.PutStore(s)
	}
	return nil
}

func timeFromDate(businessDate string) (time.Time, error) {
	day, err := time.Parse(domain.DateLayout, businessDate)
	if err != nil {
		return time.Time{}, domain.NewValidationError("businessDate", "invalid business date")
	}
	return day, nil
}
