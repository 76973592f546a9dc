package dto

import (
	"qr_photo/internal/domain/models"

	"github.com/google/uuid"
)

// UploadPhotoRequest is the guest upload body. image_data carries the
// base64 encoded file, optionally as a data URL.
type UploadPhotoRequest struct {
	SessionID   string `json:"session_id" validate:"required"`
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"omitempty,max=100"`
	ImageData   string `json:"image_data" validate:"required"`
	FileSize    int64  `json:"file_size" validate:"gte=0"`
}

func (r UploadPhotoRequest) ToDomain(sessionID uuid.UUID) models.PhotoUpload {
	return models.PhotoUpload{
		SessionID:   sessionID,
		Filename:    r.Filename,
		ContentType: r.ContentType,
		ImageData:   r.ImageData,
		FileSize:    r.FileSize,
	}
}
