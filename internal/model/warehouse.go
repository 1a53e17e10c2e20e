package model

import "time"

// Warehouse is a location that holds inventory and takes part in transfers
// and loans.
type Warehouse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
