package onboarding

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
	phones  map[string]string
	now     func() time.Time
}

// NewMemoryRepository builds an in-memory record store with the same
// compare-and-set semantics as the Postgres repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		records: make(map[string]Record),
		phones:  make(map[string]string),
		now:     time.Now,
	}
}

func (r *memoryRepository) UpsertByPhone(_ context.Context, phone string, initial State) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()

	if id, ok := r.phones[phone]; ok {
		rec := r.records[id]
		if reconcile(rec.State, initial) {
			rec.State = initial
			rec.UpdatedAt = now
			r.records[id] = rec
		}
		return cloneRecord(rec), nil
	}

	rec := Record{
		ID:        uuid.NewString(),
		Phone:     phone,
		State:     initial,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.records[rec.ID] = rec
	r.phones[phone] = rec.ID
	return cloneRecord(rec), nil
}

func (r *memoryRepository) GetByPhone(_ context.Context, phone string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.phones[phone]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(r.records[id]), nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r *memoryRepository) UpdateState(_ context.Context, id string, expected, next State, patch Patch) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.State != expected {
		return Record{}, ErrConflict
	}
	if patch.ExpectRiskDecision != nil && rec.RiskDecision != *patch.ExpectRiskDecision {
		return Record{}, ErrConflict
	}
	if patch.HashedPassword != nil && rec.HashedPassword != "" {
		return Record{}, ErrConflict
	}
	if patch.HashedPIN != nil && rec.HashedPIN != "" {
		return Record{}, ErrConflict
	}
	if patch.Profile != nil && rec.Profile != nil {
		return Record{}, ErrConflict
	}
	if patch.AccountID != nil && rec.AccountID != "" {
		return Record{}, ErrConflict
	}
	if patch.KYCSubmission != nil && rec.KYC.Status != "" && rec.KYC.Status != KYCRejected {
		return Record{}, ErrConflict
	}

	now := r.now().UTC()
	applyPatch(&rec, patch)
	rec.State = next
	rec.UpdatedAt = now
	r.records[id] = rec
	return cloneRecord(rec), nil
}

func (r *memoryRepository) ReplacePasswordHash(_ context.Context, id, oldHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.HashedPassword != oldHash {
		return ErrConflict
	}
	rec.HashedPassword = newHash
	rec.UpdatedAt = r.now().UTC()
	r.records[id] = rec
	return nil
}

func applyPatch(rec *Record, patch Patch) {
	if patch.HashedPassword != nil {
		rec.HashedPassword = *patch.HashedPassword
	}
	if patch.HashedPIN != nil {
		rec.HashedPIN = *patch.HashedPIN
	}
	if patch.Profile != nil {
		p := *patch.Profile
		rec.Profile = &p
	}
	if patch.RiskDecision != nil {
		rec.RiskDecision = *patch.RiskDecision
	}
	if patch.RiskEvaluatedAt != nil {
		t := *patch.RiskEvaluatedAt
		rec.RiskEvaluatedAt = &t
	}
	if patch.AccountID != nil {
		rec.AccountID = *patch.AccountID
	}
	if s := patch.KYCSubmission; s != nil {
		at := s.SubmittedAt
		rec.KYC = KYC{
			Status:         KYCPending,
			DocumentType:   s.DocumentType,
			DocumentNumber: s.DocumentNumber,
			DocumentPath:   s.DocumentPath,
			Attempt:        s.Attempt,
			SubmittedAt:    &at,
		}
	}
	if rv := patch.KYCReview; rv != nil {
		at := rv.VerifiedAt
		rec.KYC.Status = rv.Status
		rec.KYC.VerifiedAt = &at
		rec.KYC.VerifiedBy = rv.VerifiedBy
		rec.KYC.RejectionReason = rv.Reason
	}
	if patch.RecoveryCodeHashes != nil {
		rec.RecoveryCodeHashes = append([]string(nil), patch.RecoveryCodeHashes...)
	}
}
