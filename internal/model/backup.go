package model

import "time"

type Backup struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Filename    string    `json:"filename"`
	SizeBytes   int64     `json:"size_bytes"`
	SHA256      string    `json:"sha256"`
	Destination string    `json:"destination"`
	CreatedAt   time.Time `json:"created_at"`
}
