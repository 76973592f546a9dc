// Package client is a Go client for the QR photo REST API. Authentication
// state is an explicit Session value: Login returns one, every protected
// call takes one, and Logout invalidates it on the server.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/transport/http/dto"
	"qr_photo/internal/transport/http/dto/request"
	"qr_photo/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is the token pair of a logged in user.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s Session) Valid() bool {
	return s.AccessToken != ""
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var errNoSession = apperr.New(apperr.KindUnauthenticated, "not logged in")

func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var pair models.TokenPair
	err := c.do(ctx, nil, http.MethodPost, "/api/auth/login", request.LoginRequest{
		Username: username,
		Password: password,
	}, &pair)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}

	return Session{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Refresh trades the session's refresh token for a new pair. The old
// refresh token stops working.
func (c *Client) Refresh(ctx context.Context, sess Session) (Session, error) {
	if sess.RefreshToken == "" {
		return Session{}, fmt.Errorf("refresh: %w", errNoSession)
	}

	var pair models.TokenPair
	err := c.do(ctx, nil, http.MethodPost, "/api/auth/refresh", request.RefreshRequest{
		RefreshToken: sess.RefreshToken,
	}, &pair)
	if err != nil {
		return Session{}, fmt.Errorf("refresh: %w", err)
	}

	return Session{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (c *Client) Logout(ctx context.Context, sess Session) error {
	if err := c.do(ctx, &sess, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (c *Client) Me(ctx context.Context, sess Session) (models.User, error) {
	var user models.User
	if err := c.do(ctx, &sess, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return models.User{}, fmt.Errorf("me: %w", err)
	}
	return user, nil
}

func (c *Client) CreateSession(ctx context.Context, sess Session, name string, description *string) (models.Session, error) {
	var out models.Session
	err := c.do(ctx, &sess, http.MethodPost, "/api/sessions", dto.CreateSessionRequest{
		Name:        name,
		Description: description,
	}, &out)
	if err != nil {
		return models.Session{}, fmt.Errorf("create session: %w", err)
	}
	return out, nil
}

// ListSessions lists sessions visible to the caller. active is "" (only
// active ones), "true", "false" or "all".
func (c *Client) ListSessions(ctx context.Context, sess Session, active string) ([]models.Session, error) {
	path := "/api/sessions"
	if active != "" {
		path += "?active=" + url.QueryEscape(active)
	}

	var out []models.Session
	if err := c.do(ctx, &sess, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (c *Client) GetSession(ctx context.Context, sess Session, id uuid.UUID) (models.Session, error) {
	var out models.Session
	if err := c.do(ctx, &sess, http.MethodGet, "/api/sessions/"+id.String(), nil, &out); err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	return out, nil
}

func (c *Client) SetSessionActive(ctx context.Context, sess Session, id uuid.UUID, active bool) (models.Session, error) {
	var out models.Session
	err := c.do(ctx, &sess, http.MethodPatch, "/api/sessions/"+id.String(), dto.UpdateSessionRequest{
		IsActive: &active,
	}, &out)
	if err != nil {
		return models.Session{}, fmt.Errorf("update session: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteSession(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := c.do(ctx, &sess, http.MethodDelete, "/api/sessions/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (c *Client) SessionQR(ctx context.Context, sess Session, id uuid.UUID) (models.SessionQR, error) {
	var out models.SessionQR
	if err := c.do(ctx, &sess, http.MethodGet, "/api/sessions/"+id.String()+"/qr", nil, &out); err != nil {
		return models.SessionQR{}, fmt.Errorf("session qr: %w", err)
	}
	return out, nil
}

// CheckSession is the unauthenticated check the guest upload page runs.
func (c *Client) CheckSession(ctx context.Context, id uuid.UUID) (models.PublicSession, error) {
	var out models.PublicSession
	if err := c.do(ctx, nil, http.MethodGet, "/api/public/sessions/"+id.String()+"/check", nil, &out); err != nil {
		return models.PublicSession{}, fmt.Errorf("check session: %w", err)
	}
	return out, nil
}

// UploadPhoto uploads data as a guest. An empty contentType is detected
// by the server.
func (c *Client) UploadPhoto(ctx context.Context, sessionID uuid.UUID, filename, contentType string, data []byte) (models.Photo, error) {
	var out models.Photo
	err := c.do(ctx, nil, http.MethodPost, "/api/photos", dto.UploadPhotoRequest{
		SessionID:   sessionID.String(),
		Filename:    filename,
		ContentType: contentType,
		ImageData:   base64.StdEncoding.EncodeToString(data),
		FileSize:    int64(len(data)),
	}, &out)
	if err != nil {
		return models.Photo{}, fmt.Errorf("upload photo: %w", err)
	}
	return out, nil
}

func (c *Client) ListSessionPhotos(ctx context.Context, sess Session, sessionID uuid.UUID) ([]models.Photo, error) {
	var out []models.Photo
	if err := c.do(ctx, &sess, http.MethodGet, "/api/photos/session/"+sessionID.String(), nil, &out); err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return out, nil
}

func (c *Client) GetPhoto(ctx context.Context, sess Session, id uuid.UUID) (models.Photo, error) {
	var out models.Photo
	if err := c.do(ctx, &sess, http.MethodGet, "/api/photos/"+id.String(), nil, &out); err != nil {
		return models.Photo{}, fmt.Errorf("get photo: %w", err)
	}
	return out, nil
}

// Thumbnail fetches a JPEG preview. width 0 uses the server default.
func (c *Client) Thumbnail(ctx context.Context, sess Session, id uuid.UUID, width int) ([]byte, error) {
	path := "/api/photos/" + id.String() + "/thumbnail"
	if width > 0 {
		path += "?width=" + strconv.Itoa(width)
	}

	var buf bytes.Buffer
	if _, err := c.stream(ctx, &sess, http.MethodGet, path, nil, &buf); err != nil {
		return nil, fmt.Errorf("thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Client) DeletePhoto(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := c.do(ctx, &sess, http.MethodDelete, "/api/photos/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

// BulkDownload streams the zip archive of ids into w and returns the file
// name suggested by the server.
func (c *Client) BulkDownload(ctx context.Context, sess Session, ids []uuid.UUID, w io.Writer) (string, error) {
	body := make([]string, 0, len(ids))
	for _, id := range ids {
		body = append(body, id.String())
	}

	resp, err := c.stream(ctx, &sess, http.MethodPost, "/api/photos/bulk-download", body, w)
	if err != nil {
		return "", fmt.Errorf("bulk download: %w", err)
	}

	filename := "photos.zip"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}

	return filename, nil
}

// Watch opens the live feed of a session. Events arrive on the returned
// channel until ctx ends or the server closes the feed.
func (c *Client) Watch(ctx context.Context, sess Session, sessionID uuid.UUID) (<-chan models.PhotoEvent, error) {
	if !sess.Valid() {
		return nil, fmt.Errorf("watch: %w", errNoSession)
	}

	u, err := url.Parse(c.baseURL + "/api/sessions/" + sessionID.String() + "/live")
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+sess.AccessToken)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			defer resp.Body.Close()
			return nil, fmt.Errorf("watch: %w", decodeError(resp))
		}
		return nil, fmt.Errorf("watch: %w", err)
	}

	events := make(chan models.PhotoEvent)

	go func() {
		done := make(chan struct{})
		defer close(events)
		defer close(done)
		defer conn.Close()

		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-done:
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var e models.PhotoEvent
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}

			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (c *Client) CreateUser(ctx context.Context, sess Session, req dto.CreateUserRequest) (models.User, error) {
	var out models.User
	if err := c.do(ctx, &sess, http.MethodPost, "/api/users", req, &out); err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return out, nil
}

func (c *Client) ListUsers(ctx context.Context, sess Session) ([]models.User, error) {
	var out []models.User
	if err := c.do(ctx, &sess, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateUser(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateUserRequest) (models.User, error) {
	var out models.User
	if err := c.do(ctx, &sess, http.MethodPut, "/api/users/"+id.String(), req, &out); err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := c.do(ctx, &sess, http.MethodDelete, "/api/users/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// do sends a JSON request and decodes a JSON response into out, which may
// be nil.
func (c *Client) do(ctx context.Context, sess *Session, method, path string, in, out interface{}) error {
	resp, err := c.send(ctx, sess, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// stream copies a successful response body into w.
func (c *Client) stream(ctx context.Context, sess *Session, method, path string, in interface{}, w io.Writer) (*http.Response, error) {
	resp, err := c.send(ctx, sess, method, path, in)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// send performs the request. Non-2xx responses are decoded from the error
// envelope into an *apperr.Error and returned as the error.
func (c *Client) send(ctx context.Context, sess *Session, method, path string, in interface{}) (*http.Response, error) {
	if sess != nil && !sess.Valid() {
		return nil, errNoSession
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	return nil, decodeError(resp)
}

func decodeError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read error response: %w", err)
	}

	var envelope response.ErrorResponse
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error == "" {
		return &apperr.Error{
			Kind:    apperr.KindInternal,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	return apperr.New(apperr.Kind(envelope.Error), envelope.Details)
}

// IsKind reports whether err carries an API error of the given kind.
func IsKind(err error, kind apperr.Kind) bool {
	var e *apperr.Error
	return errors.As(err, &e) && e.Kind == kind
}
