package domain

import (
	"fmt"
	"sort"
)

// Category is a node in the two-level product category tree.
type Category struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Code         string     `json:"code"`
	Level        int        `json:"level"`
	ParentID     string     `json:"parentId,omitempty"`
	ProductCount int        `json:"productCount"`
	Status       string     `json:"status"`
	Sort         int        `json:"sort"`
	Children     []Category `json:"children,omitempty"`
}

// BuildCategoryTree arranges flat categories into a sorted two-level tree.
// Every level-2 category must reference an existing level-1 parent.
// productCounts is keyed by category code; level-1 counts include their children.
func BuildCategoryTree(flat []Category, productCounts map[string]int) ([]Category, error) {
	roots := make(map[string]*Category)
	var order []string
	for _, c := range flat {
		switch c.Level {
		case 1:
			if c.ParentID != "" {
				return nil, NewValidationError("parentId", fmt.Sprintf("top-level category %s cannot have a parent", c.ID))
			}
			if _, dup := roots[c.ID]; dup {
				return nil, NewValidationError("id", fmt.Sprintf("duplicate category %s", c.ID))
			}
			node := c
			node.Children = nil
			node.ProductCount = productCounts[c.Code]
			roots[c.ID] = &node
			order = append(order, c.ID)
		case 2:
		default:
			return nil, NewValidationError("level", fmt.Sprintf("category %s has unsupported level %d", c.ID, c.Level))
		}
	}

	for _, c := range flat {
		if c.Level != 2 {
			continue
		}
		parent, ok := roots[c.ParentID]
		if !ok {
			return nil, NewValidationError("parentId", fmt.Sprintf("category %s references unknown parent %q", c.ID, c.ParentID))
		}
		child := c
		child.Children = nil
		child.ProductCount = productCounts[c.Code]
		parent.Children = append(parent.Children, child)
		parent.ProductCount += child.ProductCount
	}

	tree := make([]Category, 0, len(order))
	for _, id := range order {
		node := roots[id]
		sortCategories(node.Children)
		tree = append(tree, *node)
	}
	sortCategories(tree)
	return tree, nil
}

func sortCategories(list []Category) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Sort != list[j].Sort {
			return list[i].Sort < list[j].Sort
		}
		return list[i].ID < list[j].ID
	})
}
