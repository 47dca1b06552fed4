package model

import "time"

// Document is a path-keyed record in the shared back-office document store.
// Origin records (dividend snapshot entries and the like) live here; the
// payout engine only ever merges status fields into them.
type Document struct {
	Path      string `gorm:"primaryKey"`
	Data      JSONB  `gorm:"type:jsonb;default:'{}'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Document) TableName() string {
	return "documents"
}
