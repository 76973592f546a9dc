package http

import (
	"log/slog"

	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/lib/jwt"

	gojwt "github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	headerTokenLookup = "header:Authorization:Bearer "
	// browsers cannot set headers on a websocket handshake
	liveTokenLookup = headerTokenLookup + ",query:token"
)

// JWTMiddleware verifies the bearer token signature and expiry. Failures
// are answered with the unauthenticated envelope.
func (r *Routers) JWTMiddleware(secret string) echo.MiddlewareFunc {
	return r.jwtMiddleware(secret, headerTokenLookup)
}

// LiveJWTMiddleware is JWTMiddleware for the live feed, which also takes
// the token from the token query parameter.
func (r *Routers) LiveJWTMiddleware(secret string) echo.MiddlewareFunc {
	return r.jwtMiddleware(secret, liveTokenLookup)
}

func (r *Routers) jwtMiddleware(secret, lookup string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(secret),
		TokenLookup: lookup,
		ErrorHandler: func(c echo.Context, err error) error {
			return fail(c, r.log, apperr.ErrUnauthenticated)
		},
	})
}

// LoadUser runs after JWTMiddleware. It checks the token type and puts
// the current user into the context; a token whose user was deleted is
// rejected.
func (r *Routers) LoadUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		const op = "http.routers.LoadUser"

		log := r.log.With(slog.String("op", op))

		token, ok := c.Get("user").(*gojwt.Token)
		if !ok {
			return fail(c, log, apperr.ErrUnauthenticated)
		}

		mapClaims, ok := token.Claims.(gojwt.MapClaims)
		if !ok {
			return fail(c, log, apperr.ErrUnauthenticated)
		}

		claims, err := jwt.ClaimsFromMap(mapClaims, jwt.TypeAccess)
		if err != nil {
			return fail(c, log, apperr.ErrUnauthenticated)
		}

		user, err := r.AuthService.CurrentUser(c.Request().Context(), claims.UserID)
		if err != nil {
			return fail(c, log, err)
		}

		c.Set(currentUserKey, user)

		return next(c)
	}
}

func (r *Routers) RequireSuperadmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !currentUser(c).IsSuperadmin {
			return fail(c, r.log, apperr.New(apperr.KindUnauthorized, "superadmin access required"))
		}

		return next(c)
	}
}
