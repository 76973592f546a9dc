package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/lib/logger/sl"
	"qr_photo/internal/repository"
	"qr_photo/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = apperr.NotFound("session not found")
	ErrSessionDenied   = apperr.New(apperr.KindUnauthorized, "access denied to this session")
	ErrNameRequired    = apperr.Validation("session name is required")
)

type QRRenderer interface {
	Base64PNG(content string) (string, error)
}

type SessionService struct {
	log           *slog.Logger
	repo          repository.SessionRepository
	qr            QRRenderer
	publicBaseURL string
}

func NewSessionService(log *slog.Logger, repo repository.SessionRepository, qr QRRenderer, publicBaseURL string) *SessionService {
	return &SessionService{
		log:           log,
		repo:          repo,
		qr:            qr,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *SessionService) CreateSession(ctx context.Context, caller models.User, name string, description *string) (models.Session, error) {
	const op = "services.SessionService.CreateSession"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", caller.ID.String()),
	)

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Session{}, fmt.Errorf("%s: %w", op, ErrNameRequired)
	}

	session := models.NewSession(name, description, caller.ID)

	if err := s.repo.SaveSession(ctx, session); err != nil {
		log.Error("failed to save session", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("session created", slog.String("session_id", session.ID.String()))

	return session, nil
}

// ListSessions returns the sessions visible to caller, newest first. A nil
// active lists both active and deactivated sessions.
func (s *SessionService) ListSessions(ctx context.Context, caller models.User, active *bool) ([]models.Session, error) {
	const op = "services.SessionService.ListSessions"

	filter := models.SessionFilter{Active: active}
	if !caller.Unrestricted() {
		filter.IDs = caller.AllowedSessions
	}

	sessions, err := s.repo.ListSessions(ctx, filter)
	if err != nil {
		s.log.Error("failed to list sessions", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sessions, nil
}

func (s *SessionService) GetSession(ctx context.Context, caller models.User, id uuid.UUID) (models.Session, error) {
	const op = "services.SessionService.GetSession"

	session, err := s.accessibleSession(ctx, caller, id)
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

// CheckPublicSession is the unauthenticated check of the guest upload
// page. Missing and inactive sessions are reported the same way.
func (s *SessionService) CheckPublicSession(ctx context.Context, id uuid.UUID) (models.PublicSession, error) {
	const op = "services.SessionService.CheckPublicSession"

	session, err := s.repo.SessionByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return models.PublicSession{}, fmt.Errorf("%s: %w", op, apperr.ErrSessionNotActive)
		}
		s.log.Error("failed to get session", slog.String("op", op), sl.Err(err))
		return models.PublicSession{}, fmt.Errorf("%s: %w", op, err)
	}

	if !session.IsActive {
		return models.PublicSession{}, fmt.Errorf("%s: %w", op, apperr.ErrSessionNotActive)
	}

	return models.PublicSession{
		SessionID:   session.ID,
		SessionName: session.Name,
		Active:      session.IsActive,
	}, nil
}

func (s *SessionService) UploadURL(id uuid.UUID) string {
	return s.publicBaseURL + "/upload/" + id.String()
}

func (s *SessionService) GenerateQR(ctx context.Context, caller models.User, id uuid.UUID) (models.SessionQR, error) {
	const op = "services.SessionService.GenerateQR"

	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", id.String()),
	)

	if _, err := s.accessibleSession(ctx, caller, id); err != nil {
		return models.SessionQR{}, fmt.Errorf("%s: %w", op, err)
	}

	uploadURL := s.UploadURL(id)

	code, err := s.qr.Base64PNG(uploadURL)
	if err != nil {
		log.Error("failed to render qr code", sl.Err(err))
		return models.SessionQR{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.SessionQR{
		QRCode:    code,
		UploadURL: uploadURL,
	}, nil
}

// SetSessionActive switches guest uploads for the session on or off.
func (s *SessionService) SetSessionActive(ctx context.Context, caller models.User, id uuid.UUID, active bool) (models.Session, error) {
	const op = "services.SessionService.SetSessionActive"

	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", id.String()),
		slog.Bool("active", active),
	)

	session, err := s.accessibleSession(ctx, caller, id)
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.SetSessionActive(ctx, id, active); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return models.Session{}, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		log.Error("failed to update session", sl.Err(err))
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	session.IsActive = active
	log.Info("session status changed")

	return session, nil
}

// DeleteSession deactivates the session. Photos are kept.
func (s *SessionService) DeleteSession(ctx context.Context, caller models.User, id uuid.UUID) error {
	const op = "services.SessionService.DeleteSession"

	if _, err := s.SetSessionActive(ctx, caller, id, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// accessibleSession checks the caller's allow-list before looking the
// session up.
func (s *SessionService) accessibleSession(ctx context.Context, caller models.User, id uuid.UUID) (models.Session, error) {
	if !caller.CanAccessSession(id) {
		return models.Session{}, ErrSessionDenied
	}

	session, err := s.repo.SessionByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return models.Session{}, ErrSessionNotFound
		}
		s.log.Error("failed to get session", slog.String("session_id", id.String()), sl.Err(err))
		return models.Session{}, err
	}

	return session, nil
}
