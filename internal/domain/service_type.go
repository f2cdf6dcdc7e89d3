package domain

import "time"

// ServiceType is a category from the service catalog.
type ServiceType struct {
	ID          int64
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
}
