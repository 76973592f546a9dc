package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one event (a wedding, a party) collecting guest photos.
type Session struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	CreatedBy   uuid.UUID `db:"created_by" json:"created_by"`
	IsActive    bool      `db:"is_active" json:"is_active"`
}

func NewSession(name string, description *string, createdBy uuid.UUID) Session {
	return Session{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   createdBy,
		IsActive:    true,
	}
}

// SessionFilter narrows a session listing. Nil fields do not filter.
type SessionFilter struct {
	IDs    []uuid.UUID
	Active *bool
}

// PublicSession is what an unauthenticated guest learns about a session.
type PublicSession struct {
	SessionID   uuid.UUID `json:"session_id"`
	SessionName string    `json:"session_name"`
	Active      bool      `json:"active"`
}

type SessionQR struct {
	QRCode    string `json:"qr_code"`
	UploadURL string `json:"upload_url"`
}
