package payout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/posdesk/posdesk/pkg/model"
)

// fakeRecordStore is an in-memory RecordStore with the same transition
// semantics as the Postgres repository: conditional claims, terminal-state
// guard, transactional history append, metadata patch, outbox rows.
type fakeRecordStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.PayoutRecord
	outbox  []*model.PayoutEvent
	nextSeq uint64
	writes  int

	createErr error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[uuid.UUID]*model.PayoutRecord)}
}

func cloneRecord(record *model.PayoutRecord) *model.PayoutRecord {
	clone := *record
	clone.History = append([]model.PayoutStatusEvent(nil), record.History...)
	clone.Metadata = model.JSONB{}
	for k, v := range record.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}

func (s *fakeRecordStore) CreateBatch(ctx context.Context, records []*model.PayoutRecord, outbox *model.PayoutEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}

	for _, record := range records {
		stored := cloneRecord(record)
		for i := range stored.History {
			s.nextSeq++
			stored.History[i].Seq = s.nextSeq
		}
		s.records[record.ID] = stored
	}
	if outbox != nil {
		s.outbox = append(s.outbox, outbox)
	}
	s.writes++
	return nil
}

func (s *fakeRecordStore) GetByID(ctx context.Context, id uuid.UUID) (*model.PayoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneRecord(record), nil
}

func (s *fakeRecordStore) ListByBatchStatus(ctx context.Context, batchID uuid.UUID, status model.PayoutStatus) ([]model.PayoutRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.PayoutRecord
	for _, record := range s.records {
		if record.BatchID == batchID && record.Status == status {
			out = append(out, *cloneRecord(record))
		}
	}
	return out, nil
}

func (s *fakeRecordStore) ListStalePendingBatches(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, record := range s.records {
		if record.Status == model.PayoutPending && record.CreatedAt.Before(cutoff) && !seen[record.BatchID] {
			seen[record.BatchID] = true
			out = append(out, record.BatchID)
		}
	}
	return out, nil
}

func (s *fakeRecordStore) AppendStatus(ctx context.Context, id uuid.UUID, from *model.PayoutStatus, entry model.PayoutStatusEvent, columns map[string]interface{}, metadata model.JSONB, outbox *model.PayoutEvent) (*model.PayoutRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, false, ErrRecordNotFound
	}

	if from != nil && record.Status != *from {
		return nil, false, nil
	}
	if record.Status.IsTerminal() {
		return nil, false, ErrTerminalState
	}

	for key, value := range columns {
		switch key {
		case "status":
			record.Status = value.(model.PayoutStatus)
		case "updated_at":
			record.UpdatedAt = value.(time.Time)
		case FieldProviderPayoutID:
			record.ProviderPayoutID = value.(string)
		case FieldFailureReason:
			record.FailureReason = value.(string)
		case FieldProcessingTime:
			t := value.(time.Time)
			record.ProcessingTime = &t
		case FieldCompletionTime:
			t := value.(time.Time)
			record.CompletionTime = &t
		}
	}

	s.nextSeq++
	entry.Seq = s.nextSeq
	entry.PayoutID = id
	record.History = append(record.History, entry)

	if len(metadata) > 0 {
		if record.Metadata == nil {
			record.Metadata = model.JSONB{}
		}
		for k, v := range metadata {
			record.Metadata[k] = v
		}
	}

	if outbox != nil {
		s.outbox = append(s.outbox, outbox)
	}
	s.writes++

	return cloneRecord(record), true, nil
}

// fakeDocumentStore is an in-memory DocumentStore.
type fakeDocumentStore struct {
	mu       sync.Mutex
	docs     map[string]*model.Document
	merges   []string
	mergeErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]*model.Document)}
}

func (s *fakeDocumentStore) put(path string, data model.JSONB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = &model.Document{Path: path, Data: data, UpdatedAt: time.Now()}
}

func (s *fakeDocumentStore) get(path string) *model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[path]
}

func (s *fakeDocumentStore) MergeDocument(ctx context.Context, path string, fields model.JSONB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mergeErr != nil {
		return s.mergeErr
	}

	doc, ok := s.docs[path]
	if !ok {
		return ErrRecordNotFound
	}

	s.merges = append(s.merges, path)
	if doc.Data == nil {
		doc.Data = model.JSONB{}
	}
	for k, v := range fields {
		doc.Data[k] = v
	}

	now := time.Now()
	if !now.After(doc.UpdatedAt) {
		now = doc.UpdatedAt.Add(time.Nanosecond)
	}
	doc.UpdatedAt = now
	return nil
}

// fakeDispatcher records fire-and-forget scheduling signals.
type fakeDispatcher struct {
	mu       sync.Mutex
	batches  []uuid.UUID
	failWith error
}

func (d *fakeDispatcher) ScheduleBatch(ctx context.Context, batchID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return d.failWith
	}
	d.batches = append(d.batches, batchID)
	return nil
}
