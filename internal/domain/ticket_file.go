package domain

import "time"

// TicketFile describes an attachment stored on disk.
type TicketFile struct {
	ID           int64
	TicketID     int64
	StoredName   string
	OriginalName string
	StoragePath  string
	SizeBytes    int64
	ContentType  string
	UploadedBy   int64
	UploadedAt   time.Time
}
