package jwt

import (
	"errors"
	"fmt"
	"time"

	"qr_photo/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidTokenClaims = errors.New("invalid token claims")
	ErrWrongTokenType     = errors.New("wrong token type")
)

func NewToken(user models.User, tokenType string, secret string, duration time.Duration) (string, error) {
	now := time.Now()

	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["uid"] = user.ID.String()
	claims["username"] = user.Username
	claims["typ"] = tokenType
	claims["jti"] = uuid.NewString()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(duration).Unix()

	return token.SignedString([]byte(secret))
}

// ParseToken verifies the signature and expiry of tokenString and checks
// that it was issued as tokenType.
func ParseToken(tokenString, tokenType, secret string) (models.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.TokenClaims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.TokenClaims{}, ErrInvalidTokenClaims
	}

	return ClaimsFromMap(claims, tokenType)
}

// ClaimsFromMap converts verified map claims, as produced by the parser or
// the echo-jwt middleware, into TokenClaims.
func ClaimsFromMap(claims jwt.MapClaims, tokenType string) (models.TokenClaims, error) {
	if typ, _ := claims["typ"].(string); typ != tokenType {
		return models.TokenClaims{}, ErrWrongTokenType
	}

	uid, ok := claims["uid"].(string)
	if !ok {
		return models.TokenClaims{}, ErrInvalidTokenClaims
	}

	userID, err := uuid.Parse(uid)
	if err != nil {
		return models.TokenClaims{}, ErrInvalidTokenClaims
	}

	username, _ := claims["username"].(string)

	out := models.TokenClaims{
		UserID:   userID,
		Username: username,
	}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Unix()
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Unix()
	}

	return out, nil
}
