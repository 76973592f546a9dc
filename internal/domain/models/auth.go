package models

import "github.com/google/uuid"

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	UserID       uuid.UUID `json:"-"`
}

type TokenClaims struct {
	UserID    uuid.UUID
	Username  string
	IssuedAt  int64
	ExpiresAt int64
}
