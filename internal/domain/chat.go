package domain

import (
	"fmt"
)

// Chat turn roles accepted from the client. The system and tool-result roles
// are composed server-side and never accepted at the boundary.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one prior turn of the email-editing conversation, supplied by
// the client in original order.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Validate rejects turns with unknown roles or empty content.
func (t ChatTurn) Validate() error {
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return fmt.Errorf("invalid chat turn role %q", t.Role)
	}
	if t.Content == "" {
		return fmt.Errorf("chat turn content is empty")
	}
	return nil
}

// BrandProfile carries free-form brand context forwarded verbatim into the
// system prompt. No validation is performed on these fields.
type BrandProfile struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	LogoURL        string `json:"logoUrl"`
	Tone           string `json:"tone"`
	OtherDetails   string `json:"otherDetails"`
}
