package account

import "time"

const (
	// TierLimited accounts carry a daily transaction ceiling.
	TierLimited = "LIMITED"
	// TierFull accounts have no tier ceiling.
	TierFull = "FULL"

	statusActive = "active"
)

// Account is the transactional account granted at the end of onboarding.
type Account struct {
	ID         string
	UserID     string
	Tier       string
	DailyLimit *int64
	Status     string
	CreatedAt  time.Time
	UpgradedAt *time.Time
}
