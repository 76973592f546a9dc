package repository

import (
	"context"
	"errors"
	"fmt"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var photoColumns = []string{
	"id",
	"session_id",
	"filename",
	"content_type",
	"image_data",
	"file_size",
	"uploaded_at",
}

type PhotoRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepo {
	return &PhotoRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PhotoRepo) SavePhoto(ctx context.Context, photo models.Photo) error {
	const op = "repository.photo_repository.SavePhoto"

	query, args, err := r.sb.Insert("photos").
		Columns(photoColumns...).
		Values(
			photo.ID,
			photo.SessionID,
			photo.Filename,
			photo.ContentType,
			photo.ImageData,
			photo.FileSize,
			photo.UploadedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PhotoRepo) PhotoByID(ctx context.Context, photoID uuid.UUID) (models.Photo, error) {
	const op = "repository.photo_repository.PhotoByID"

	query, args, err := r.sb.Select(photoColumns...).
		From("photos").
		Where(sq.Eq{"id": photoID}).
		ToSql()
	if err != nil {
		return models.Photo{}, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	photo, err := scanPhoto(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Photo{}, fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
		}
		return models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}

	return photo, nil
}

// PhotosBySession returns the photos of a session newest first.
func (r *PhotoRepo) PhotosBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Photo, error) {
	const op = "repository.photo_repository.PhotosBySession"

	photos, err := r.list(ctx, sq.Eq{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return photos, nil
}

func (r *PhotoRepo) PhotosByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error) {
	const op = "repository.photo_repository.PhotosByIDs"

	if len(ids) == 0 {
		return []models.Photo{}, nil
	}

	photos, err := r.list(ctx, sq.Eq{"id": uuidStrings(ids)})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return photos, nil
}

func (r *PhotoRepo) DeletePhoto(ctx context.Context, photoID uuid.UUID) error {
	const op = "repository.photo_repository.DeletePhoto"

	query, args, err := r.sb.Delete("photos").
		Where(sq.Eq{"id": photoID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
	}

	return nil
}

func (r *PhotoRepo) list(ctx context.Context, where sq.Sqlizer) ([]models.Photo, error) {
	query, args, err := r.sb.Select(photoColumns...).
		From("photos").
		Where(where).
		OrderBy("uploaded_at DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build sql: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := make([]models.Photo, 0)
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}

	return photos, rows.Err()
}

func scanPhoto(row pgx.Row) (models.Photo, error) {
	var photo models.Photo

	err := row.Scan(
		&photo.ID,
		&photo.SessionID,
		&photo.Filename,
		&photo.ContentType,
		&photo.ImageData,
		&photo.FileSize,
		&photo.UploadedAt,
	)

	return photo, err
}
