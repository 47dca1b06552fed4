package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	OutboxStatusPending   = "pending"
	OutboxStatusPublished = "published"
	OutboxStatusFailed    = "failed"
)

const (
	EventBatchCreated        = "payout_batch_created"
	EventPayoutStatusChanged = "payout_status_changed"
)

// PayoutEvent is an outbox row written in the same transaction as the
// payout mutation it describes, relayed to Kafka by cmd/outbox-relay.
type PayoutEvent struct {
	EventID     uuid.UUID `gorm:"type:uuid;primary_key"`
	EventType   string    `gorm:"not null"`
	Payload     JSONB     `gorm:"type:jsonb;not null"`
	Status      string    `gorm:"not null;default:'pending'"`
	CreatedAt   time.Time `gorm:"autoCreateTime;not null"`
	PublishedAt *time.Time
}

func (PayoutEvent) TableName() string {
	return "payout_events"
}
