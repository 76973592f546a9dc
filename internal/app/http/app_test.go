package httpapp

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/jwt"
	"qr_photo/internal/lib/logger/handlers/slogdiscard"
	httprouters "qr_photo/internal/transport/http"
	"qr_photo/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, maxUpload int64) *Server {
	t.Helper()

	return newLoggedTestServer(t, slogdiscard.NewDiscardLogger(), maxUpload)
}

func newLoggedTestServer(t *testing.T, log *slog.Logger, maxUpload int64) *Server {
	t.Helper()

	s := New(log, Options{Port: "0", Secret: "secret", MaxUploadSize: maxUpload}, httprouters.NewRouter(log, nil, nil, nil, nil, nil))
	s.BuildRouters()

	return s
}

func TestUploadBodyLimit(t *testing.T) {
	assert.Equal(t, "100M", uploadBodyLimit(0))
	assert.Equal(t, "1430K", uploadBodyLimit(1<<20))
}

func TestErrorHandler(t *testing.T) {
	s := newTestServer(t, 1024)

	tests := []struct {
		name   string
		method string
		path   string
		body   []byte
		status int
		kind   string
	}{
		{"unknown route", http.MethodGet, "/missing", nil, http.StatusNotFound, "not_found"},
		{"wrong method", http.MethodPost, "/health", nil, http.StatusMethodNotAllowed, "not_found"},
		{"missing token", http.MethodGet, "/api/sessions", nil, http.StatusUnauthorized, "unauthenticated"},
		{"body too large", http.MethodPost, "/api/photos", bytes.Repeat([]byte("a"), 200<<10), http.StatusRequestEntityTooLarge, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			s.Handler().ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)

			var envelope response.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
			assert.Equal(t, "error", envelope.Status)
			assert.Equal(t, tt.kind, envelope.Error)
		})
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"ok"}`, rec.Body.String())
}

func TestRedactToken(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"token only", "/api/sessions/x/live?token=abc", "/api/sessions/x/live?token=REDACTED"},
		{"token among others", "/api/sessions?active=all&token=abc", "/api/sessions?active=all&token=REDACTED"},
		{"no token", "/api/sessions?active=all", "/api/sessions?active=all"},
		{"no query", "/health", "/health"},
		{"unparseable", "/api/%zz?token=abc", "/api/%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redactToken(tt.uri))
		})
	}
}

func TestRequestLogHidesQueryToken(t *testing.T) {
	var buf bytes.Buffer
	s := newLoggedTestServer(t, slog.New(slog.NewJSONHandler(&buf, nil)), 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+uuid.NewString()+"/live?token=secret-token-value", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, buf.String(), "secret-token-value")
	assert.Contains(t, buf.String(), "token=REDACTED")
}

func TestQueryTokenRejectedOutsideLiveFeed(t *testing.T) {
	s := newTestServer(t, 0)

	token, err := jwt.NewToken(models.User{ID: uuid.New(), Username: "admin"}, jwt.TypeAccess, "secret", time.Hour)
	require.NoError(t, err)

	for _, path := range []string{"/api/sessions", "/api/users", "/api/auth/me"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path+"?token="+token, nil))

			require.Equal(t, http.StatusUnauthorized, rec.Code)

			var envelope response.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
			assert.Equal(t, "unauthenticated", envelope.Error)
		})
	}
}
