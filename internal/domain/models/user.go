package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const CreatedBySystem = "system"

type User struct {
	ID              uuid.UUID   `db:"id" json:"id"`
	Username        string      `db:"username" json:"username"`
	PasswordHash    []byte      `db:"password_hash" json:"-"`
	IsSuperadmin    bool        `db:"is_superadmin" json:"is_superadmin"`
	AllowedSessions []uuid.UUID `db:"allowed_sessions" json:"allowed_sessions"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	CreatedBy       string      `db:"created_by" json:"created_by"`
}

// Unrestricted reports whether the user may see every session: superadmins
// and users with an empty allow-list.
func (u User) Unrestricted() bool {
	return u.IsSuperadmin || len(u.AllowedSessions) == 0
}

func (u User) CanAccessSession(sessionID uuid.UUID) bool {
	if u.Unrestricted() {
		return true
	}
	return slices.Contains(u.AllowedSessions, sessionID)
}

// UserPatch carries the optional fields of a user update. Nil means
// "leave unchanged"; an empty Password is treated the same way.
type UserPatch struct {
	Username        *string
	Password        *string
	IsSuperadmin    *bool
	AllowedSessions *[]uuid.UUID
}

type UserCreate struct {
	Username        string
	Password        string
	IsSuperadmin    bool
	AllowedSessions []uuid.UUID
}
