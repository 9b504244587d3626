package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no account matches.
var ErrNotFound = errors.New("account not found")

// Repository persists accounts. One account per user.
type Repository interface {
	// CreateIfAbsent inserts account unless the user already owns one, and
	// returns whichever account is stored.
	CreateIfAbsent(ctx context.Context, account Account) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	GetByUser(ctx context.Context, userID string) (Account, error)
	// MarkFull sets tier FULL and clears the daily limit. Already full
	// accounts are returned unchanged.
	MarkFull(ctx context.Context, id string, at time.Time) (Account, error)
}

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, user_id, tier, daily_limit, status, created_at, upgraded_at`

// CreateIfAbsent relies on the unique user_id constraint.
func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, a Account) (Account, error) {
	accountID, err := uuid.Parse(a.ID)
	if err != nil {
		return Account{}, err
	}
	userID, err := uuid.Parse(a.UserID)
	if err != nil {
		return Account{}, err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, user_id, tier, daily_limit, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id) DO NOTHING`, accountID, userID, a.Tier, a.DailyLimit, a.Status, a.CreatedAt.UTC())
	if err != nil {
		return Account{}, err
	}
	return r.GetByUser(ctx, a.UserID)
}

// Get fetches an account by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID))
}

// GetByUser fetches the account owned by userID.
func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (Account, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, uid))
}

// MarkFull upgrades the tier in place.
func (r *PostgresRepository) MarkFull(ctx context.Context, id string, at time.Time) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	a, err := scanAccount(r.db.QueryRow(ctx, `UPDATE accounts
        SET tier = $2, daily_limit = NULL, upgraded_at = $3
        WHERE id = $1 AND tier <> $2
        RETURNING `+accountColumns, accountID, TierFull, at.UTC()))
	if errors.Is(err, ErrNotFound) {
		// either missing or already full
		return r.Get(ctx, id)
	}
	return a, err
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a          Account
		id, userID uuid.UUID
		createdAt  time.Time
		upgradedAt *time.Time
	)
	if err := row.Scan(&id, &userID, &a.Tier, &a.DailyLimit, &a.Status, &createdAt, &upgradedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.ID = id.String()
	a.UserID = userID.String()
	a.CreatedAt = createdAt.UTC()
	if upgradedAt != nil {
		t := upgradedAt.UTC()
		a.UpgradedAt = &t
	}
	return a, nil
}
