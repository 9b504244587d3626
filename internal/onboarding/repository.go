package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists onboarding records.
type Repository interface {
	// UpsertByPhone creates the record for phone or returns the existing
	// one. An existing record is advanced to initial when it is still behind
	// it and is never moved backwards.
	UpsertByPhone(ctx context.Context, phone string, initial State) (Record, error)
	GetByPhone(ctx context.Context, phone string) (Record, error)
	GetByID(ctx context.Context, id string) (Record, error)
	// UpdateState moves the record from expected to next and applies patch in
	// one compare-and-set. It returns ErrConflict when the stored state is no
	// longer expected or a write-once field in patch is already set.
	UpdateState(ctx context.Context, id string, expected, next State, patch Patch) (Record, error)
	// ReplacePasswordHash swaps the stored hash only while it still equals
	// oldHash. Used for parameter upgrades on login.
	ReplacePasswordHash(ctx context.Context, id, oldHash, newHash string) error
}

// reconcile reports whether an existing record in current should be moved
// to initial by an upsert.
func reconcile(current, initial State) bool {
	return stateRank[current] < stateRank[initial]
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed onboarding repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, phone, state, hashed_password, hashed_pin,
        first_name, last_name, date_of_birth, gender, pan_number, address_line1, address_line2,
        city, region, pincode, country, profile_completed_at,
        risk_decision, risk_evaluated_at, account_id,
        kyc_status, kyc_document_type, kyc_document_number, kyc_document_path, kyc_attempt,
        kyc_submitted_at, kyc_verified_at, kyc_verified_by, kyc_rejection_reason,
        recovery_code_hashes, created_at, updated_at`

// UpsertByPhone inserts or reconciles in a single statement so concurrent
// verifications for one phone converge on one row.
func (r *PostgresRepository) UpsertByPhone(ctx context.Context, phone string, initial State) (Record, error) {
	early := make([]string, 0, 2)
	for s, rank := range stateRank {
		if rank < stateRank[initial] {
			early = append(early, string(s))
		}
	}
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx, `INSERT INTO onboarding_records (id, phone, state, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)
        ON CONFLICT (phone) DO UPDATE SET
            state = CASE WHEN onboarding_records.state = ANY($5) THEN EXCLUDED.state ELSE onboarding_records.state END,
            updated_at = CASE WHEN onboarding_records.state = ANY($5) THEN EXCLUDED.updated_at ELSE onboarding_records.updated_at END
        RETURNING `+recordColumns, uuid.New(), phone, string(initial), now, early)
	return scanRecord(row)
}

// GetByPhone fetches a record by its normalized phone.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (Record, error) {
	return scanRecord(r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM onboarding_records WHERE phone = $1`, phone))
}

// GetByID fetches a record by identifier.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Record, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrNotFound
	}
	return scanRecord(r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM onboarding_records WHERE id = $1`, recordID))
}

// UpdateState issues a guarded UPDATE. Write-once fields add an IS NULL
// condition so a concurrent writer cannot overwrite them.
func (r *PostgresRepository) UpdateState(ctx context.Context, id string, expected, next State, patch Patch) (Record, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrNotFound
	}

	args := []any{recordID, string(expected), string(next), time.Now().UTC()}
	sets := []string{"state = $3", "updated_at = $4"}
	conds := []string{"id = $1", "state = $2"}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.HashedPassword != nil {
		set("hashed_password", *patch.HashedPassword)
		conds = append(conds, "hashed_password IS NULL")
	}
	if patch.HashedPIN != nil {
		set("hashed_pin", *patch.HashedPIN)
		conds = append(conds, "hashed_pin IS NULL")
	}
	if p := patch.Profile; p != nil {
		set("first_name", p.FirstName)
		set("last_name", p.LastName)
		set("date_of_birth", p.DateOfBirth)
		set("gender", p.Gender)
		set("pan_number", p.PAN)
		set("address_line1", p.AddressLine1)
		set("address_line2", nullable(p.AddressLine2))
		set("city", p.City)
		set("region", p.Region)
		set("pincode", p.Pincode)
		set("country", p.Country)
		set("profile_completed_at", p.CompletedAt.UTC())
		conds = append(conds, "profile_completed_at IS NULL")
	}
	if want := patch.ExpectRiskDecision; want != nil {
		if *want == "" {
			conds = append(conds, "risk_decision IS NULL")
		} else {
			args = append(args, string(*want))
			conds = append(conds, fmt.Sprintf("risk_decision = $%d", len(args)))
		}
	}
	if patch.RiskDecision != nil {
		set("risk_decision", string(*patch.RiskDecision))
	}
	if patch.RiskEvaluatedAt != nil {
		set("risk_evaluated_at", patch.RiskEvaluatedAt.UTC())
	}
	if patch.AccountID != nil {
		accountID, err := uuid.Parse(*patch.AccountID)
		if err != nil {
			return Record{}, fmt.Errorf("invalid account id: %w", err)
		}
		set("account_id", accountID)
		conds = append(conds, "account_id IS NULL")
	}
	if s := patch.KYCSubmission; s != nil {
		set("kyc_status", string(KYCPending))
		set("kyc_document_type", s.DocumentType)
		set("kyc_document_number", s.DocumentNumber)
		set("kyc_document_path", nullable(s.DocumentPath))
		set("kyc_attempt", s.Attempt)
		set("kyc_submitted_at", s.SubmittedAt.UTC())
		sets = append(sets, "kyc_verified_at = NULL", "kyc_verified_by = NULL", "kyc_rejection_reason = NULL")
		args = append(args, string(KYCRejected))
		conds = append(conds, fmt.Sprintf("(kyc_status IS NULL OR kyc_status = $%d)", len(args)))
	}
	if rv := patch.KYCReview; rv != nil {
		set("kyc_status", string(rv.Status))
		set("kyc_verified_at", rv.VerifiedAt.UTC())
		set("kyc_verified_by", rv.VerifiedBy)
		set("kyc_rejection_reason", nullable(rv.Reason))
	}
	if patch.RecoveryCodeHashes != nil {
		set("recovery_code_hashes", patch.RecoveryCodeHashes)
	}

	query := fmt.Sprintf(`UPDATE onboarding_records SET %s WHERE %s RETURNING %s`,
		strings.Join(sets, ", "), strings.Join(conds, " AND "), recordColumns)

	rec, err := scanRecord(r.db.QueryRow(ctx, query, args...))
	if !errors.Is(err, ErrNotFound) {
		return rec, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM onboarding_records WHERE id = $1)`, recordID).Scan(&exists); err != nil {
		return Record{}, err
	}
	if !exists {
		return Record{}, ErrNotFound
	}
	return Record{}, ErrConflict
}

// ReplacePasswordHash compares on the current hash value.
func (r *PostgresRepository) ReplacePasswordHash(ctx context.Context, id, oldHash, newHash string) error {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE onboarding_records SET hashed_password = $3, updated_at = $4
        WHERE id = $1 AND hashed_password = $2`, recordID, oldHash, newHash, time.Now().UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec                                  Record
		id                                   uuid.UUID
		accountID                            *uuid.UUID
		state                                string
		hashedPassword, hashedPIN            *string
		firstName, lastName, gender, pan     *string
		addr1, addr2, city, region, pin, cty *string
		dob, profileAt                       *time.Time
		riskDecision                         *string
		kycStatus, docType, docNumber        *string
		docPath, verifiedBy, rejection       *string
		kycAttempt                           int
		recoveryCodes                        []string
	)
	err := row.Scan(&id, &rec.Phone, &state, &hashedPassword, &hashedPIN,
		&firstName, &lastName, &dob, &gender, &pan, &addr1, &addr2,
		&city, &region, &pin, &cty, &profileAt,
		&riskDecision, &rec.RiskEvaluatedAt, &accountID,
		&kycStatus, &docType, &docNumber, &docPath, &kycAttempt,
		&rec.KYC.SubmittedAt, &rec.KYC.VerifiedAt, &verifiedBy, &rejection,
		&recoveryCodes, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}

	rec.ID = id.String()
	rec.State = State(state)
	rec.HashedPassword = deref(hashedPassword)
	rec.HashedPIN = deref(hashedPIN)
	if profileAt != nil {
		p := &Profile{
			FirstName:    deref(firstName),
			LastName:     deref(lastName),
			Gender:       deref(gender),
			PAN:          deref(pan),
			AddressLine1: deref(addr1),
			AddressLine2: deref(addr2),
			City:         deref(city),
			Region:       deref(region),
			Pincode:      deref(pin),
			Country:      deref(cty),
			CompletedAt:  profileAt.UTC(),
		}
		if dob != nil {
			p.DateOfBirth = dob.UTC()
		}
		rec.Profile = p
	}
	rec.RiskDecision = RiskDecision(deref(riskDecision))
	if accountID != nil {
		rec.AccountID = accountID.String()
	}
	rec.KYC.Status = KYCStatus(deref(kycStatus))
	rec.KYC.DocumentType = deref(docType)
	rec.KYC.DocumentNumber = deref(docNumber)
	rec.KYC.DocumentPath = deref(docPath)
	rec.KYC.Attempt = kycAttempt
	rec.KYC.VerifiedBy = deref(verifiedBy)
	rec.KYC.RejectionReason = deref(rejection)
	rec.RecoveryCodeHashes = recoveryCodes
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
