package domain

import (
	"time"
)

// CustomTemplate is a user-uploaded email template hosted at a remote URL.
// Stock templates are served from the embedded catalog; custom ones are
// recorded here and resolved by exact name match.
type CustomTemplate struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
