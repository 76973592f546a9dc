package http_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"qr_photo/internal/app"
	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/logger/handlers/slogdiscard"
	"qr_photo/internal/testsuite"
	"qr_photo/internal/transport/http/dto/response"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// smallest valid GIF, enough for content sniffing
var gifPixel, _ = base64.StdEncoding.DecodeString("R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

type IntegrationTestSuite struct {
	suite.Suite
	app     *app.App
	server  *httptest.Server
	baseURL string

	adminToken string
	session    models.Session
}

func (s *IntegrationTestSuite) SetupSuite() {
	application, err := app.New(context.Background(), slogdiscard.NewDiscardLogger(), testsuite.Config())
	require.NoError(s.T(), err, "Failed to initialize application")

	s.app = application
	s.server = httptest.NewServer(application.Handler())
	s.baseURL = s.server.URL

	var tokens models.TokenPair
	status := s.doJSON(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": testsuite.SuperadminUsername,
		"password": testsuite.SuperadminPassword,
	}, &tokens)
	require.Equal(s.T(), http.StatusOK, status)
	require.Equal(s.T(), "bearer", tokens.TokenType)
	s.adminToken = tokens.AccessToken

	status = s.doJSON(http.MethodPost, "/api/sessions", s.adminToken, map[string]string{"name": "Graduation"}, &s.session)
	require.Equal(s.T(), http.StatusCreated, status)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	s.server.Close()
	s.app.Stop()
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) request(method, path, token string, body io.Reader) *http.Response {
	req, err := http.NewRequest(method, s.baseURL+path, body)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *IntegrationTestSuite) doJSON(method, path, token string, in, out interface{}) int {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		s.Require().NoError(err)
		body = bytes.NewReader(b)
	}

	resp := s.request(method, path, token, body)
	defer resp.Body.Close()

	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *IntegrationTestSuite) expectError(resp *http.Response, status int, kind string) response.ErrorResponse {
	defer resp.Body.Close()

	var envelope response.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	s.Equal(status, resp.StatusCode)
	s.Equal("error", envelope.Status)
	s.Equal(kind, envelope.Error)
	return envelope
}

func (s *IntegrationTestSuite) TestHealthAndRoot() {
	var out response.Response
	s.Equal(http.StatusOK, s.doJSON(http.MethodGet, "/health", "", nil, &out))
	s.Equal("success", out.Status)

	s.Equal(http.StatusOK, s.doJSON(http.MethodGet, "/api/", "", nil, &out))
	s.Equal("QR Photo Upload API", out.Message)
}

func (s *IntegrationTestSuite) TestUnknownRouteUsesEnvelope() {
	s.expectError(s.request(http.MethodGet, "/nope", "", nil), http.StatusNotFound, "not_found")

	// unknown paths under the secured group pass the token check first
	s.expectError(s.request(http.MethodGet, "/api/nope", "", nil), http.StatusUnauthorized, "unauthenticated")
	s.expectError(s.request(http.MethodGet, "/api/nope", s.adminToken, nil), http.StatusNotFound, "not_found")
}

func (s *IntegrationTestSuite) TestProtectedRoutesRequireToken() {
	s.expectError(s.request(http.MethodGet, "/api/sessions", "", nil), http.StatusUnauthorized, "unauthenticated")
	s.expectError(s.request(http.MethodGet, "/api/sessions", "garbage", nil), http.StatusUnauthorized, "unauthenticated")
	s.expectError(s.request(http.MethodGet, "/api/users", "", nil), http.StatusUnauthorized, "unauthenticated")
}

func (s *IntegrationTestSuite) TestRefreshTokenIsNotAnAccessToken() {
	var tokens models.TokenPair
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": testsuite.SuperadminUsername,
		"password": testsuite.SuperadminPassword,
	}, &tokens))

	s.expectError(s.request(http.MethodGet, "/api/auth/me", tokens.RefreshToken, nil), http.StatusUnauthorized, "unauthenticated")
}

func (s *IntegrationTestSuite) TestLoginValidation() {
	resp := s.request(http.MethodPost, "/api/auth/login", "", strings.NewReader(`{"username":"superadmin"}`))
	s.expectError(resp, http.StatusBadRequest, "validation_error")

	resp = s.request(http.MethodPost, "/api/auth/login", "", strings.NewReader(`{not json`))
	s.expectError(resp, http.StatusBadRequest, "validation_error")
}

func (s *IntegrationTestSuite) TestUsersRequireSuperadmin() {
	var user models.User
	s.Require().Equal(http.StatusCreated, s.doJSON(http.MethodPost, "/api/users", s.adminToken, map[string]interface{}{
		"username": "viewer",
		"password": "viewer-pass",
	}, &user))

	var tokens models.TokenPair
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "viewer",
		"password": "viewer-pass",
	}, &tokens))

	s.expectError(s.request(http.MethodGet, "/api/users", tokens.AccessToken, nil), http.StatusForbidden, "unauthorized")

	var sessions []models.Session
	s.Equal(http.StatusOK, s.doJSON(http.MethodGet, "/api/sessions", tokens.AccessToken, nil, &sessions))
	s.NotEmpty(sessions)
}

func (s *IntegrationTestSuite) TestMalformedIDs() {
	env := s.expectError(s.request(http.MethodGet, "/api/sessions/not-a-uuid", s.adminToken, nil), http.StatusNotFound, "not_found")
	s.Equal("session not found", env.Details)

	env = s.expectError(s.request(http.MethodGet, "/api/photos/not-a-uuid", s.adminToken, nil), http.StatusNotFound, "not_found")
	s.Equal("photo not found", env.Details)

	s.expectError(s.request(http.MethodGet, "/api/public/sessions/not-a-uuid/check", "", nil), http.StatusNotFound, "session_inactive_or_missing")
}

func (s *IntegrationTestSuite) TestListSessionsActiveFilter() {
	var inactive models.Session
	s.Require().Equal(http.StatusCreated, s.doJSON(http.MethodPost, "/api/sessions", s.adminToken, map[string]string{"name": "Old party"}, &inactive))

	var out response.Response
	s.Require().Equal(http.StatusOK, s.doJSON(http.MethodDelete, "/api/sessions/"+inactive.ID.String(), s.adminToken, nil, &out))

	ids := func(query string) map[string]bool {
		var list []models.Session
		s.Require().Equal(http.StatusOK, s.doJSON(http.MethodGet, "/api/sessions"+query, s.adminToken, nil, &list))
		set := make(map[string]bool, len(list))
		for _, sess := range list {
			set[sess.ID.String()] = true
		}
		return set
	}

	s.False(ids("")[inactive.ID.String()])
	s.True(ids("?active=false")[inactive.ID.String()])
	s.True(ids("?active=all")[inactive.ID.String()])
	s.True(ids("?active=all")[s.session.ID.String()])

	s.expectError(s.request(http.MethodGet, "/api/sessions?active=maybe", s.adminToken, nil), http.StatusBadRequest, "validation_error")

	// deleted sessions are kept, only deactivated
	var got models.Session
	s.Equal(http.StatusOK, s.doJSON(http.MethodGet, "/api/sessions/"+inactive.ID.String(), s.adminToken, nil, &got))
	s.False(got.IsActive)
}

func (s *IntegrationTestSuite) TestUploadRules() {
	body := func(sessionID string) io.Reader {
		b, _ := json.Marshal(map[string]interface{}{
			"session_id": sessionID,
			"filename":   "pixel",
			"image_data": "data:image/gif;base64," + base64.StdEncoding.EncodeToString(gifPixel),
		})
		return bytes.NewReader(b)
	}

	resp := s.request(http.MethodPost, "/api/photos", "", body("not-a-uuid"))
	s.expectError(resp, http.StatusNotFound, "session_inactive_or_missing")

	resp = s.request(http.MethodPost, "/api/photos", "", strings.NewReader(`{"session_id":"x"}`))
	s.expectError(resp, http.StatusBadRequest, "validation_error")

	resp = s.request(http.MethodPost, "/api/photos", "", body(s.session.ID.String()))
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var photo models.Photo
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&photo))
	s.Equal("image/gif", photo.ContentType)
	s.Equal(int64(len(gifPixel)), photo.FileSize)
	s.Equal(base64.StdEncoding.EncodeToString(gifPixel), photo.ImageData)

	thumb := s.request(http.MethodGet, "/api/photos/"+photo.ID.String()+"/thumbnail", s.adminToken, nil)
	defer thumb.Body.Close()
	s.Equal(http.StatusOK, thumb.StatusCode)
	s.Equal("image/jpeg", thumb.Header.Get("Content-Type"))
	s.Equal("private, max-age=3600", thumb.Header.Get("Cache-Control"))

	s.expectError(s.request(http.MethodGet, "/api/photos/"+photo.ID.String()+"/thumbnail?width=abc", s.adminToken, nil), http.StatusBadRequest, "validation_error")
}

func (s *IntegrationTestSuite) TestBulkDownloadHTTP() {
	s.expectError(s.request(http.MethodPost, "/api/photos/bulk-download", s.adminToken, strings.NewReader(`{"ids":1}`)), http.StatusBadRequest, "validation_error")
	s.expectError(s.request(http.MethodPost, "/api/photos/bulk-download", s.adminToken, strings.NewReader(`[]`)), http.StatusBadRequest, "empty_selection")
	s.expectError(s.request(http.MethodPost, "/api/photos/bulk-download", s.adminToken, strings.NewReader(`["junk"]`)), http.StatusNotFound, "not_found")

	b, _ := json.Marshal(map[string]interface{}{
		"session_id": s.session.ID.String(),
		"filename":   "pixel.gif",
		"image_data": base64.StdEncoding.EncodeToString(gifPixel),
	})
	var photo models.Photo
	s.Require().Equal(http.StatusCreated, s.doJSON(http.MethodPost, "/api/photos", "", json.RawMessage(b), &photo))

	resp := s.request(http.MethodPost, "/api/photos/bulk-download", s.adminToken, strings.NewReader(fmt.Sprintf(`[%q]`, photo.ID)))
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("application/zip", resp.Header.Get("Content-Type"))
	s.Equal(`attachment; filename="Graduation_photos.zip"`, resp.Header.Get("Content-Disposition"))

	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(data, []byte("PK")))
}

func (s *IntegrationTestSuite) TestMetricsEndpoint() {
	resp := s.request(http.MethodGet, "/metrics", "", nil)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(data), "qr_photo_http_requests_total")
}

func (s *IntegrationTestSuite) TestQueryTokenOnlyOpensLiveFeed() {
	s.expectError(s.request(http.MethodGet, "/api/sessions?token="+s.adminToken, "", nil), http.StatusUnauthorized, "unauthenticated")
	s.expectError(s.request(http.MethodGet, "/api/users?token="+s.adminToken, "", nil), http.StatusUnauthorized, "unauthenticated")

	liveURL := "ws" + strings.TrimPrefix(s.baseURL, "http") + "/api/sessions/" + s.session.ID.String() + "/live"

	conn, resp, err := websocket.DefaultDialer.Dial(liveURL+"?token="+s.adminToken, nil)
	s.Require().NoError(err)
	s.Equal(http.StatusSwitchingProtocols, resp.StatusCode)
	s.NoError(conn.Close())

	_, resp, err = websocket.DefaultDialer.Dial(liveURL+"?token=garbage", nil)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.expectError(resp, http.StatusUnauthorized, "unauthenticated")
}
