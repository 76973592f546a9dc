package models

import (
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Photo struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SessionID   uuid.UUID `db:"session_id" json:"session_id"`
	Filename    string    `db:"filename" json:"filename"`
	ContentType string    `db:"content_type" json:"content_type"`
	ImageData   string    `db:"image_data" json:"image_data"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}

func NewPhoto(sessionID uuid.UUID, filename, contentType, imageData string, fileSize int64) Photo {
	return Photo{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Filename:    filename,
		ContentType: contentType,
		ImageData:   imageData,
		FileSize:    fileSize,
		UploadedAt:  time.Now().UTC(),
	}
}

// Bytes decodes the stored base64 payload.
func (p Photo) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(p.ImageData)
	if err != nil {
		return nil, fmt.Errorf("photo %s: decode image data: %w", p.ID, err)
	}
	return b, nil
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".heic"}

// ArchiveName returns the filename used for the photo inside a zip
// archive. Names without an image extension get one derived from the
// content type.
func (p Photo) ArchiveName() string {
	name := path.Base(strings.ReplaceAll(p.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = p.ID.String()
	}

	ext := strings.ToLower(path.Ext(name))
	for _, known := range imageExtensions {
		if ext == known {
			return name
		}
	}

	ct := strings.ToLower(p.ContentType)
	switch {
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return name + ".jpg"
	case strings.Contains(ct, "png"):
		return name + ".png"
	case strings.Contains(ct, "gif"):
		return name + ".gif"
	default:
		return name + ".jpg"
	}
}

// PhotoUpload is a guest upload as received from the public page.
type PhotoUpload struct {
	SessionID   uuid.UUID
	Filename    string
	ContentType string
	ImageData   string
	FileSize    int64
}

// PhotoArchive is a resolved bulk download selection, in request order.
type PhotoArchive struct {
	Filename string
	Photos   []Photo
}

const (
	EventPhotoUploaded = "photo.uploaded"
	EventPhotoDeleted  = "photo.deleted"
)

// PhotoEvent is pushed to staff watching a session live. It carries photo
// metadata only, never the image data.
type PhotoEvent struct {
	Type        string    `json:"type"`
	SessionID   uuid.UUID `json:"session_id"`
	PhotoID     uuid.UUID `json:"photo_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	At          time.Time `json:"at"`
}

func NewPhotoEvent(eventType string, p Photo) PhotoEvent {
	return PhotoEvent{
		Type:        eventType,
		SessionID:   p.SessionID,
		PhotoID:     p.ID,
		Filename:    p.Filename,
		ContentType: p.ContentType,
		FileSize:    p.FileSize,
		At:          time.Now().UTC(),
	}
}
