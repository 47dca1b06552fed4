package payout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/posdesk/posdesk/pkg/model"
)

func newTestEngine(t *testing.T) (*Engine, *fakeRecordStore, *fakeDocumentStore) {
	t.Helper()
	records := newFakeRecordStore()
	docs := newFakeDocumentStore()
	origins := NewOriginSync(docs, zap.NewNop())
	return NewEngine(records, origins, zap.NewNop()), records, docs
}

func seedRecord(t *testing.T, store *fakeRecordStore, status model.PayoutStatus) *model.PayoutRecord {
	t.Helper()
	now := time.Now()
	record := &model.PayoutRecord{
		ID:               uuid.New(),
		BatchID:          uuid.New(),
		TenantID:         "tenant-1",
		EmployeeID:       "emp-9",
		Status:           status,
		Method:           model.MethodLINEPay,
		Amount:           1000,
		TargetIdentifier: "line-user-9",
		ReferenceID:      "snap-1/payout-1",
		ReferenceType:    "dividend",
		Metadata:         model.JSONB{},
		History: []model.PayoutStatusEvent{
			{Status: model.PayoutPending, Note: "initializing payout request", CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateBatch(context.Background(), []*model.PayoutRecord{record}, nil); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return record
}

func TestUpdateStatusAppendsExactlyOneHistoryEntry(t *testing.T) {
	engine, records, _ := newTestEngine(t)
	seeded := seedRecord(t, records, model.PayoutPending)

	before, err := records.GetByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}

	updated, err := engine.UpdateStatus(context.Background(), ByID(seeded.ID), model.PayoutProcessing, "processing payout started", nil)
	if err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}

	if len(updated.History) != len(before.History)+1 {
		t.Fatalf("expected history length %d, got %d", len(before.History)+1, len(updated.History))
	}
	last := updated.History[len(updated.History)-1]
	if last.Status != model.PayoutProcessing {
		t.Fatalf("expected last history status PROCESSING, got %s", last.Status)
	}
	if last.Note != "processing payout started" {
		t.Fatalf("unexpected history note %q", last.Note)
	}
	if updated.Status != model.PayoutProcessing {
		t.Fatalf("expected record status PROCESSING, got %s", updated.Status)
	}
	if !updated.UpdatedAt.After(before.UpdatedAt) {
		t.Fatalf("expected updated_at to advance strictly: before=%v after=%v", before.UpdatedAt, updated.UpdatedAt)
	}
}

func TestUpdateStatusByIDAndByRecordProduceSameState(t *testing.T) {
	engine, records, _ := newTestEngine(t)
	first := seedRecord(t, records, model.PayoutPending)
	second := seedRecord(t, records, model.PayoutPending)

	byID, err := engine.UpdateStatus(context.Background(), ByID(first.ID), model.PayoutProcessing, "processing payout started", nil)
	if err != nil {
		t.Fatalf("UpdateStatus by id: %v", err)
	}

	loaded, err := records.GetByID(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	byRecord, err := engine.UpdateStatus(context.Background(), ByRecord(loaded), model.PayoutProcessing, "processing payout started", nil)
	if err != nil {
		t.Fatalf("UpdateStatus by record: %v", err)
	}

	if byID.Status != byRecord.Status {
		t.Fatalf("status mismatch: %s vs %s", byID.Status, byRecord.Status)
	}
	if len(byID.History) != len(byRecord.History) {
		t.Fatalf("history length mismatch: %d vs %d", len(byID.History), len(byRecord.History))
	}
	if byID.History[1].Note != byRecord.History[1].Note {
		t.Fatalf("history note mismatch: %q vs %q", byID.History[1].Note, byRecord.History[1].Note)
	}
}

func TestUpdateStatusUnknownRecord(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.UpdateStatus(context.Background(), ByID(uuid.New()), model.PayoutProcessing, "processing payout started", nil)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUpdateStatusRejectsTerminalTransitions(t *testing.T) {
	engine, records, _ := newTestEngine(t)
	seeded := seedRecord(t, records, model.PayoutCompleted)

	_, err := engine.UpdateStatus(context.Background(), ByID(seeded.ID), model.PayoutFailed, "late failure", nil)
	if !errors.Is(err, ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}
}

func TestUpdateStatusMergesFields(t *testing.T) {
	engine, records, _ := newTestEngine(t)
	seeded := seedRecord(t, records, model.PayoutProcessing)

	completionTime := time.Now()
	updated, err := engine.UpdateStatus(context.Background(), ByID(seeded.ID), model.PayoutCompleted, "payout completed by provider", map[string]interface{}{
		FieldProviderPayoutID: "lp-77",
		FieldCompletionTime:   completionTime,
		"settlement_ref":      "st-42",
	})
	if err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}

	if updated.ProviderPayoutID != "lp-77" {
		t.Fatalf("expected provider payout id lp-77, got %q", updated.ProviderPayoutID)
	}
	if updated.CompletionTime == nil || !updated.CompletionTime.Equal(completionTime) {
		t.Fatalf("expected completion time %v, got %v", completionTime, updated.CompletionTime)
	}
	if updated.Metadata["settlement_ref"] != "st-42" {
		t.Fatalf("expected metadata settlement_ref st-42, got %v", updated.Metadata["settlement_ref"])
	}
}

func TestTerminalTransitionSyncsOriginRecord(t *testing.T) {
	engine, records, docs := newTestEngine(t)
	seeded := seedRecord(t, records, model.PayoutProcessing)

	path := "dividend_snapshots/snap-1/equity_payouts/emp-9"
	docs.put(path, model.JSONB{"amount": float64(1000)})
	before := docs.get(path).UpdatedAt

	if _, err := engine.UpdateStatus(context.Background(), ByID(seeded.ID), model.PayoutCompleted, "payout completed by provider", nil); err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}

	doc := docs.get(path)
	if doc.Data["status"] != "completed" {
		t.Fatalf("expected origin status completed, got %v", doc.Data["status"])
	}
	if doc.Data["payoutStatus"] != "completed" {
		t.Fatalf("expected origin payoutStatus completed, got %v", doc.Data["payoutStatus"])
	}
	if doc.Data["payoutId"] != seeded.ID.String() {
		t.Fatalf("expected origin payoutId %s, got %v", seeded.ID, doc.Data["payoutId"])
	}
	if !doc.UpdatedAt.After(before) {
		t.Fatalf("expected origin updated_at to advance")
	}
}

func TestOriginSyncFailureDoesNotFailTransition(t *testing.T) {
	engine, records, docs := newTestEngine(t)
	seeded := seedRecord(t, records, model.PayoutProcessing)
	docs.mergeErr = errors.New("document store unavailable")

	updated, err := engine.UpdateStatus(context.Background(), ByID(seeded.ID), model.PayoutFailed, "processing payout failed", map[string]interface{}{
		FieldFailureReason: "provider declined",
	})
	if err != nil {
		t.Fatalf("expected transition to succeed despite sync failure, got %v", err)
	}
	if updated.Status != model.PayoutFailed {
		t.Fatalf("expected FAILED, got %s", updated.Status)
	}
	if updated.FailureReason != "provider declined" {
		t.Fatalf("expected failure reason recorded, got %q", updated.FailureReason)
	}
}

func TestClaimProcessingOnlyFromPending(t *testing.T) {
	engine, records, _ := newTestEngine(t)
	seeded := seedRecord(t, records, model.PayoutProcessing)

	loaded, err := records.GetByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}

	_, ok, err := engine.ClaimProcessing(context.Background(), loaded, "processing payout started")
	if err != nil {
		t.Fatalf("ClaimProcessing error: %v", err)
	}
	if ok {
		t.Fatalf("expected claim to be rejected for non-PENDING record")
	}
}
