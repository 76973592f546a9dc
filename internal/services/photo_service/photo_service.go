package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/lib/apperr"
	"qr_photo/internal/lib/archive"
	"qr_photo/internal/lib/imaging"
	"qr_photo/internal/lib/logger/sl"
	"qr_photo/internal/metrics"
	"qr_photo/internal/repository"
	"qr_photo/internal/storage"

	"github.com/google/uuid"
)

// uploads labelled with this type are sniffed like unlabelled ones
const genericContentType = "application/octet-stream"

var (
	ErrPhotoNotFound    = apperr.NotFound("photo not found")
	ErrPhotoDenied      = apperr.New(apperr.KindUnauthorized, "access denied to this session")
	ErrNoAccessible     = apperr.NotFound("no accessible photos found")
	ErrInvalidImageData = apperr.Validation("image_data is not valid base64")
	ErrNoPreview        = apperr.Validation("photo cannot be previewed")
)

type Thumbnailer interface {
	Thumbnail(key string, data []byte, width int) ([]byte, error)
}

// Publisher fans photo events out to live session feeds. Publish must not
// block.
type Publisher interface {
	Publish(event models.PhotoEvent)
}

type PhotoService struct {
	log      *slog.Logger
	photos   repository.PhotoRepository
	sessions repository.SessionRepository
	thumbs   Thumbnailer
	events   Publisher
	maxSize  int64
}

// NewPhotoService creates the photo service. A maxSize of zero accepts
// uploads of any size; events may be nil.
func NewPhotoService(log *slog.Logger, photos repository.PhotoRepository, sessions repository.SessionRepository, thumbs Thumbnailer, events Publisher, maxSize int64) *PhotoService {
	return &PhotoService{
		log:      log,
		photos:   photos,
		sessions: sessions,
		thumbs:   thumbs,
		events:   events,
		maxSize:  maxSize,
	}
}

func (s *PhotoService) publish(eventType string, photo models.Photo) {
	if s.events == nil {
		return
	}
	s.events.Publish(models.NewPhotoEvent(eventType, photo))
}

// UploadPhoto stores a guest photo. The target session must exist and be
// active, otherwise nothing is written.
func (s *PhotoService) UploadPhoto(ctx context.Context, input models.PhotoUpload) (models.Photo, error) {
	const op = "services.PhotoService.UploadPhoto"

	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", input.SessionID.String()),
		slog.String("filename", input.Filename),
	)

	photo, err := s.uploadPhoto(ctx, input)
	if err != nil {
		kind := apperr.KindOf(err)
		metrics.UploadsRejected.WithLabelValues(string(kind)).Inc()
		if kind == apperr.KindInternal {
			log.Error("failed to upload photo", sl.Err(err))
		} else {
			log.Info("upload rejected", sl.Err(err))
		}
		return models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.PhotosUploaded.Inc()
	metrics.PhotoBytesUploaded.Add(float64(photo.FileSize))
	log.Info("photo uploaded", slog.String("photo_id", photo.ID.String()), slog.Int64("file_size", photo.FileSize))

	s.publish(models.EventPhotoUploaded, photo)

	return photo, nil
}

func (s *PhotoService) uploadPhoto(ctx context.Context, input models.PhotoUpload) (models.Photo, error) {
	session, err := s.sessions.SessionByID(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return models.Photo{}, apperr.ErrSessionNotActive
		}
		return models.Photo{}, err
	}
	if !session.IsActive {
		return models.Photo{}, apperr.ErrSessionNotActive
	}

	if strings.TrimSpace(input.Filename) == "" {
		return models.Photo{}, apperr.Validation("filename is required")
	}

	encoded := stripDataURL(input.ImageData)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(data) == 0 {
		return models.Photo{}, ErrInvalidImageData
	}

	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return models.Photo{}, apperr.Validation(fmt.Sprintf("photo exceeds maximum size of %d bytes", s.maxSize))
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" || contentType == genericContentType {
		contentType = http.DetectContentType(data)
	}

	fileSize := input.FileSize
	if fileSize <= 0 {
		fileSize = int64(len(data))
	}

	photo := models.NewPhoto(session.ID, input.Filename, contentType, encoded, fileSize)

	if err := s.photos.SavePhoto(ctx, photo); err != nil {
		return models.Photo{}, err
	}

	return photo, nil
}

// stripDataURL drops a "data:image/png;base64," prefix that browsers put
// in front of FileReader results.
func stripDataURL(data string) string {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		if i := strings.Index(data, ","); i >= 0 {
			return data[i+1:]
		}
	}
	return data
}

func (s *PhotoService) ListPhotosForSession(ctx context.Context, caller models.User, sessionID uuid.UUID) ([]models.Photo, error) {
	const op = "services.PhotoService.ListPhotosForSession"

	if !caller.CanAccessSession(sessionID) {
		return nil, fmt.Errorf("%s: %w", op, ErrPhotoDenied)
	}

	photos, err := s.photos.PhotosBySession(ctx, sessionID)
	if err != nil {
		s.log.Error("failed to list photos", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return photos, nil
}

func (s *PhotoService) GetPhoto(ctx context.Context, caller models.User, id uuid.UUID) (models.Photo, error) {
	const op = "services.PhotoService.GetPhoto"

	photo, err := s.accessiblePhoto(ctx, caller, id)
	if err != nil {
		return models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}

	return photo, nil
}

// PhotoThumbnail renders a JPEG preview no wider or taller than width.
func (s *PhotoService) PhotoThumbnail(ctx context.Context, caller models.User, id uuid.UUID, width int) ([]byte, error) {
	const op = "services.PhotoService.PhotoThumbnail"

	log := s.log.With(
		slog.String("op", op),
		slog.String("photo_id", id.String()),
	)

	photo, err := s.accessiblePhoto(ctx, caller, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := photo.Bytes()
	if err != nil {
		log.Warn("stored image data is corrupt", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrNoPreview, err)
	}

	thumb, err := s.thumbs.Thumbnail(photo.ID.String(), data, width)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedImage) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrNoPreview, err)
		}
		log.Error("failed to render thumbnail", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return thumb, nil
}

func (s *PhotoService) DeletePhoto(ctx context.Context, caller models.User, id uuid.UUID) error {
	const op = "services.PhotoService.DeletePhoto"

	log := s.log.With(
		slog.String("op", op),
		slog.String("photo_id", id.String()),
	)

	photo, err := s.accessiblePhoto(ctx, caller, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.photos.DeletePhoto(ctx, id); err != nil {
		if errors.Is(err, storage.ErrPhotoNotFound) {
			return fmt.Errorf("%s: %w", op, ErrPhotoNotFound)
		}
		log.Error("failed to delete photo", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("photo deleted")

	s.publish(models.EventPhotoDeleted, photo)

	return nil
}

// BulkDownload resolves a selection of photo ids into an archive plan.
// Unknown ids and photos outside the caller's sessions are skipped; the
// archive is named after the session of the first remaining photo.
func (s *PhotoService) BulkDownload(ctx context.Context, caller models.User, ids []uuid.UUID) (models.PhotoArchive, error) {
	const op = "services.PhotoService.BulkDownload"

	log := s.log.With(
		slog.String("op", op),
		slog.Int("requested", len(ids)),
	)

	if len(ids) == 0 {
		return models.PhotoArchive{}, fmt.Errorf("%s: %w", op, apperr.ErrEmptySelection)
	}

	ids = dedupe(ids)

	found, err := s.photos.PhotosByIDs(ctx, ids)
	if err != nil {
		log.Error("failed to load photos", sl.Err(err))
		return models.PhotoArchive{}, fmt.Errorf("%s: %w", op, err)
	}

	byID := make(map[uuid.UUID]models.Photo, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	photos := make([]models.Photo, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !caller.CanAccessSession(p.SessionID) {
			continue
		}
		// headers go out before the zip body, so corrupt payloads are dropped here
		if _, err := p.Bytes(); err != nil {
			log.Warn("skipping photo with corrupt data", slog.String("photo_id", p.ID.String()), sl.Err(err))
			continue
		}
		photos = append(photos, p)
	}

	if len(photos) == 0 {
		return models.PhotoArchive{}, fmt.Errorf("%s: %w", op, ErrNoAccessible)
	}

	sessionName := "photos"
	session, err := s.sessions.SessionByID(ctx, photos[0].SessionID)
	switch {
	case err == nil:
		sessionName = session.Name
	case !errors.Is(err, storage.ErrSessionNotFound):
		log.Error("failed to get session", sl.Err(err))
		return models.PhotoArchive{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("archive selection resolved", slog.Int("photos", len(photos)))

	return models.PhotoArchive{
		Filename: archive.SafeFilename(sessionName) + "_photos.zip",
		Photos:   photos,
	}, nil
}

// WriteArchive streams the selection to w as a zip file. Photos whose
// stored data cannot be decoded are left out.
func (s *PhotoService) WriteArchive(w io.Writer, a models.PhotoArchive) error {
	const op = "services.PhotoService.WriteArchive"

	log := s.log.With(
		slog.String("op", op),
		slog.String("filename", a.Filename),
	)

	zw := archive.NewBuilder(w)

	for _, p := range a.Photos {
		data, err := p.Bytes()
		if err != nil {
			log.Warn("skipping photo with corrupt data", slog.String("photo_id", p.ID.String()), sl.Err(err))
			continue
		}

		if _, err := zw.Add(p.ArchiveName(), p.ID.String()[:8], p.UploadedAt, data); err != nil {
			log.Error("failed to write archive entry", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := zw.Close(); err != nil {
		log.Error("failed to finish archive", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.ArchivesBuilt.Inc()
	metrics.ArchivePhotos.Observe(float64(zw.Len()))
	log.Info("archive streamed", slog.Int("entries", zw.Len()))

	return nil
}

// accessiblePhoto loads the photo first, the access check needs its session.
func (s *PhotoService) accessiblePhoto(ctx context.Context, caller models.User, id uuid.UUID) (models.Photo, error) {
	photo, err := s.photos.PhotoByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrPhotoNotFound) {
			return models.Photo{}, ErrPhotoNotFound
		}
		s.log.Error("failed to get photo", slog.String("photo_id", id.String()), sl.Err(err))
		return models.Photo{}, err
	}

	if !caller.CanAccessSession(photo.SessionID) {
		return models.Photo{}, ErrPhotoDenied
	}

	return photo, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
