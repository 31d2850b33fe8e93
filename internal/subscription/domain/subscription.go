package domain

import "time"

// Subscription is a user's network-access entitlement window and quota.
type Subscription struct {
	ID         int64
	UserID     int64
	StartDate  time.Time
	ExpiryDate time.Time
	Quota      int64 // bytes
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Active reports whether the subscription covers the given instant.
func (s *Subscription) Active(now time.Time) bool {
	return !now.Before(s.StartDate) && now.Before(s.ExpiryDate)
}
