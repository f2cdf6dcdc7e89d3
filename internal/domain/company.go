package domain

import "time"

// Company is a client organization that owns tickets and users.
// Inactive companies are hidden from listings but stay referenceable.
type Company struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
