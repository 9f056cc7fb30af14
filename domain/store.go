package domain

import "time"

const (
	StoreStatusActive   = "active"
	StoreStatusInactive = "inactive"
)

// Store represents a retail outlet placing orders.
type Store struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Region        string     `json:"region"`
	ManagerName   string     `json:"managerName"`
	ManagerPhone  string     `json:"managerPhone"`
	Status        string     `json:"status"`
	LastOrderDate *time.Time `json:"lastOrderDate,omitempty"`
}

func (s *Store) IsActive() bool {
	return s != nil && s.Status == StoreStatusActive
}
