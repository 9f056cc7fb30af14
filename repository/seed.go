package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fastygo/orderdesk/domain"
)

// Seed is the catalog fixture format accepted by both storage drivers.
// Level-2 categories may be listed flat or nested under Children.
type Seed struct {
	Products   []domain.Product  `json:"products"`
	Categories []domain.Category `json:"categories"`
	Stores     []domain.Store    `json:"stores"`
}

// ReadSeed parses and validates a seed file.
func ReadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for i := range seed.Products {
		if err := seed.Products[i].Validate(); err != nil {
			return nil, fmt.Errorf("seed product %s: %w", seed.Products[i].ID, err)
		}
	}
	if _, err := domain.BuildCategoryTree(seed.FlatCategories(), nil); err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	return &seed, nil
}

// FlatCategories lists every category with parents ahead of their children.
func (s *Seed) FlatCategories() []domain.Category {
	var flat []domain.Category
	for _, cat := range s.Categories {
		children := cat.Children
		cat.Children = nil
		flat = append(flat, cat)
		flat = append(flat, children...)
	}
	return flat
}
