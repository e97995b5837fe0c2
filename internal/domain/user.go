// Package domain contains core domain types for the mailsmith application.
package domain

import (
	"time"
)

// Subscription status values mirrored from the billing provider webhook.
const (
	SubscriptionDeleted = "deleted"
	SubscriptionPastDue = "past_due"
)

// User represents a user in the system with their credits balance.
type User struct {
	UserID             string    `json:"user_id"`
	Username           string    `json:"username"`
	Credits            int       `json:"credits"`
	SubscriptionStatus string    `json:"subscription_status,omitempty"`
	LastSeenAt         time.Time `json:"last_seen_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasValidSubscription returns true if the user has an active subscription
// that is not deleted or past due.
func (u *User) HasValidSubscription() bool {
	return u.SubscriptionStatus != "" &&
		u.SubscriptionStatus != SubscriptionDeleted &&
		u.SubscriptionStatus != SubscriptionPastDue
}

// CanGenerate returns true if the user may start a paid generation:
// either a positive credits balance or a valid subscription.
func (u *User) CanGenerate() bool {
	return u.Credits > 0 || u.HasValidSubscription()
}
