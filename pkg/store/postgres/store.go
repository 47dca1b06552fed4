package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/posdesk/posdesk/pkg/config"
	"github.com/posdesk/posdesk/pkg/model"
	"github.com/posdesk/posdesk/pkg/payout"
)

type Store struct {
	db *gorm.DB
}

func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	return &Store{db: db}, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.PayoutRecord{},
		&model.PayoutStatusEvent{},
		&model.PayoutEvent{},
		&model.Document{},
	)
}

// PayoutRepository implements payout.RecordStore on Postgres.
type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) CreateBatch(ctx context.Context, records []*model.PayoutRecord, outbox *model.PayoutEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(records, 100).Error; err != nil {
			return err
		}
		if outbox != nil {
			if err := tx.Create(outbox).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PayoutRecord, error) {
	var record model.PayoutRecord
	err := r.db.WithContext(ctx).
		Preload("History", historyOrder).
		First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payout.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *PayoutRepository) ListByBatchStatus(ctx context.Context, batchID uuid.UUID, status model.PayoutStatus) ([]model.PayoutRecord, error) {
	var records []model.PayoutRecord
	err := r.db.WithContext(ctx).
		Preload("History", historyOrder).
		Where("batch_id = ? AND status = ?", batchID, status).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

func (r *PayoutRepository) ListStalePendingBatches(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var batchIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.PayoutRecord{}).
		Distinct("batch_id").
		Where("status = ? AND created_at < ?", model.PayoutPending, cutoff).
		Pluck("batch_id", &batchIDs).Error
	return batchIDs, err
}

// AppendStatus commits a full status transition in one transaction. The
// guarded UPDATE both closes the PENDING claim race (when from is set) and
// enforces terminal-state immutability.
func (r *PayoutRepository) AppendStatus(ctx context.Context, id uuid.UUID, from *model.PayoutStatus, entry model.PayoutStatusEvent, columns map[string]interface{}, metadata model.JSONB, outbox *model.PayoutEvent) (*model.PayoutRecord, bool, error) {
	var updated *model.PayoutRecord
	claimed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&model.PayoutRecord{}).
			Where("id = ?", id).
			Where("status NOT IN ?", []model.PayoutStatus{model.PayoutCompleted, model.PayoutFailed})
		if from != nil {
			query = query.Where("status = ?", *from)
		}

		result := query.Updates(columns)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			var current model.PayoutRecord
			if err := tx.First(&current, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return payout.ErrRecordNotFound
				}
				return err
			}
			if from != nil && current.Status != *from {
				// Conditional claim lost to a concurrent transition.
				return nil
			}
			if current.Status.IsTerminal() {
				return payout.ErrTerminalState
			}
			return nil
		}
		claimed = true

		entry.PayoutID = id
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if len(metadata) > 0 {
			patch, err := json.Marshal(metadata)
			if err != nil {
				return err
			}
			if err := tx.Exec(
				`UPDATE payout_records SET metadata = COALESCE(metadata, '{}'::jsonb) || ?::jsonb WHERE id = ?`,
				string(patch), id,
			).Error; err != nil {
				return err
			}
		}

		if outbox != nil {
			if err := tx.Create(outbox).Error; err != nil {
				return err
			}
		}

		var record model.PayoutRecord
		if err := tx.Preload("History", historyOrder).First(&record, "id = ?", id).Error; err != nil {
			return err
		}
		updated = &record
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return updated, claimed, nil
}

func historyOrder(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// DocumentRepository implements payout.DocumentStore over the path-keyed
// document table shared with the rest of the back office.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) GetByPath(ctx context.Context, path string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).First(&doc, "path = ?", path).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payout.ErrRecordNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) MergeDocument(ctx context.Context, path string, fields model.JSONB) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Exec(
		`UPDATE documents SET data = COALESCE(data, '{}'::jsonb) || ?::jsonb, updated_at = NOW() WHERE path = ?`,
		string(patch), path,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return payout.ErrRecordNotFound
	}
	return nil
}
