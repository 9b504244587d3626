package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultLimitedDailyLimit caps a LIMITED account's daily volume.
const DefaultLimitedDailyLimit int64 = 10_000

// Service provisions and upgrades accounts.
type Service struct {
	repo       Repository
	dailyLimit int64
	now        func() time.Time
}

// NewService builds an account service. dailyLimit <= 0 selects the default.
func NewService(repo Repository, dailyLimit int64) *Service {
	if dailyLimit <= 0 {
		dailyLimit = DefaultLimitedDailyLimit
	}
	return &Service{repo: repo, dailyLimit: dailyLimit, now: time.Now}
}

// CreateLimited provisions a LIMITED account for userID. Repeated calls
// return the account created first.
func (s *Service) CreateLimited(ctx context.Context, userID string) (Account, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return Account{}, fmt.Errorf("invalid user id: %w", err)
	}
	limit := s.dailyLimit
	return s.repo.CreateIfAbsent(ctx, Account{
		ID:         uuid.NewString(),
		UserID:     userID,
		Tier:       TierLimited,
		DailyLimit: &limit,
		Status:     statusActive,
		CreatedAt:  s.now().UTC(),
	})
}

// Get retrieves an account.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.Get(ctx, id)
}

// GetByUser retrieves the account owned by userID.
func (s *Service) GetByUser(ctx context.Context, userID string) (Account, error) {
	return s.repo.GetByUser(ctx, userID)
}

// UpgradeToFull lifts the tier limit. Upgrading a FULL account is a no-op.
func (s *Service) UpgradeToFull(ctx context.Context, id string) (Account, error) {
	return s.repo.MarkFull(ctx, id, s.now())
}
