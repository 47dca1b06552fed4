package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "PENDING"
	PayoutProcessing PayoutStatus = "PROCESSING"
	PayoutCompleted  PayoutStatus = "COMPLETED"
	PayoutFailed     PayoutStatus = "FAILED"
)

// IsTerminal reports whether no further transition is expected.
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutCompleted || s == PayoutFailed
}

// Label is the lowercase form written to origin records.
func (s PayoutStatus) Label() string {
	switch s {
	case PayoutPending:
		return "pending"
	case PayoutProcessing:
		return "processing"
	case PayoutCompleted:
		return "completed"
	case PayoutFailed:
		return "failed"
	}
	return string(s)
}

type PayoutMethod string

const (
	MethodLINEPay      PayoutMethod = "LINE_PAY"
	MethodBankTransfer PayoutMethod = "BANK_TRANSFER"
	MethodCash         PayoutMethod = "CASH"
)

// PayoutRecord is the durable unit of work tracking one disbursement.
// Amount is in the smallest unit of the platform currency.
type PayoutRecord struct {
	ID               uuid.UUID    `gorm:"type:uuid;primary_key"`
	BatchID          uuid.UUID    `gorm:"type:uuid;not null;index"`
	TenantID         string       `gorm:"not null;index"`
	EmployeeID       string       `gorm:"not null;index"`
	Status           PayoutStatus `gorm:"type:varchar(50);default:'PENDING';index:idx_payout_batch_status"`
	Method           PayoutMethod `gorm:"type:varchar(50);not null"`
	Amount           int64        `gorm:"not null"`
	Description      string
	TargetIdentifier string
	ReferenceID      string
	ReferenceType    string `gorm:"index"`
	ProviderPayoutID string
	FailureReason    string
	ProcessingTime   *time.Time
	CompletionTime   *time.Time
	Metadata         JSONB               `gorm:"type:jsonb;default:'{}'"`
	History          []PayoutStatusEvent `gorm:"foreignKey:PayoutID"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (PayoutRecord) TableName() string {
	return "payout_records"
}

// PayoutStatusEvent is one entry of a record's append-only status history.
// Seq gives a total order per record independent of timestamp resolution.
type PayoutStatusEvent struct {
	Seq       uint64       `gorm:"primaryKey;autoIncrement"`
	PayoutID  uuid.UUID    `gorm:"type:uuid;not null;index"`
	Status    PayoutStatus `gorm:"type:varchar(50);not null"`
	Note      string
	CreatedAt time.Time `gorm:"index"`
}

func (PayoutStatusEvent) TableName() string {
	return "payout_status_events"
}

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONB) GormDataType() string {
	return "jsonb"
}
