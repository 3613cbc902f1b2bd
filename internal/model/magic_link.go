package model

import "time"

// MagicLink is a short-lived email login code. Purpose is one of "login",
// "register", or "invite"; invite codes carry the target family.
type MagicLink struct {
	ID        int64
	Token     string
	Email     string
	Purpose   string
	FamilyID  *int64
	ExpiresAt time.Time
	UsedAt    *time.Time
	Attempts  int
	CreatedAt time.Time
}
