// Package sqlite implements the user, session and photo repositories on a
// single SQLite file. Ordering and error behavior match the Postgres
// repositories.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/repository"
	"qr_photo/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// fixed width so that text ordering is chronological
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	userColumns    = []string{"id", "username", "password_hash", "is_superadmin", "allowed_sessions", "created_at", "created_by"}
	sessionColumns = []string{"id", "name", "description", "created_at", "created_by", "is_active"}
	photoColumns   = []string{"id", "session_id", "filename", "content_type", "image_data", "file_size", "uploaded_at"}
)

type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func New(db *sql.DB) *Store {
	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		User:    (*userRepo)(s),
		Session: (*sessionRepo)(s),
		Photo:   (*photoRepo)(s),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build sql: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type userRepo Store

func (r *userRepo) SaveUser(ctx context.Context, user models.User) (uuid.UUID, error) {
	const op = "repository.sqlite.SaveUser"

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	allowed, err := encodeIDs(user.AllowedSessions)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = (*Store)(r).exec(ctx, r.sb.Insert("users").
		Columns(userColumns...).
		Values(
			user.ID.String(),
			user.Username,
			user.PasswordHash,
			user.IsSuperadmin,
			allowed,
			formatTime(user.CreatedAt),
			user.CreatedBy,
		))
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return user.ID, nil
}

func (r *userRepo) UserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "repository.sqlite.UserByID"

	user, err := r.selectOne(ctx, sq.Eq{"id": userID.String()})
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (r *userRepo) UserByUsername(ctx context.Context, username string) (models.User, error) {
	const op = "repository.sqlite.UserByUsername"

	user, err := r.selectOne(ctx, sq.Eq{"username": username})
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (r *userRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "repository.sqlite.ListUsers"

	query, args, err := r.sb.Select(userColumns...).
		From("users").
		OrderBy("created_at ASC", "username ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (r *userRepo) UpdateUser(ctx context.Context, user models.User) error {
	const op = "repository.sqlite.UpdateUser"

	allowed, err := encodeIDs(user.AllowedSessions)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := (*Store)(r).exec(ctx, r.sb.Update("users").
		Set("username", user.Username).
		Set("password_hash", user.PasswordHash).
		Set("is_superadmin", user.IsSuperadmin).
		Set("allowed_sessions", allowed).
		Where(sq.Eq{"id": user.ID.String()}))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

func (r *userRepo) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	const op = "repository.sqlite.DeleteUser"

	n, err := (*Store)(r).exec(ctx, r.sb.Delete("users").Where(sq.Eq{"id": userID.String()}))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

func (r *userRepo) HasSuperadmin(ctx context.Context) (bool, error) {
	const op = "repository.sqlite.HasSuperadmin"

	query, args, err := r.sb.Select("1").
		From("users").
		Where(sq.Eq{"is_superadmin": true}).
		Limit(1).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (r *userRepo) selectOne(ctx context.Context, where sq.Sqlizer) (models.User, error) {
	query, args, err := r.sb.Select(userColumns...).
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("can't build sql: %w", err)
	}

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}
		return models.User{}, err
	}

	return user, nil
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		user      models.User
		allowed   string
		createdAt string
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsSuperadmin,
		&allowed,
		&createdAt,
		&user.CreatedBy,
	)
	if err != nil {
		return models.User{}, err
	}

	if user.AllowedSessions, err = decodeIDs(allowed); err != nil {
		return models.User{}, fmt.Errorf("allowed_sessions: %w", err)
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.User{}, fmt.Errorf("created_at: %w", err)
	}

	return user, nil
}

type sessionRepo Store

func (r *sessionRepo) SaveSession(ctx context.Context, session models.Session) error {
	const op = "repository.sqlite.SaveSession"

	_, err := (*Store)(r).exec(ctx, r.sb.Insert("sessions").
		Columns(sessionColumns...).
		Values(
			session.ID.String(),
			session.Name,
			nullableString(session.Description),
			formatTime(session.CreatedAt),
			session.CreatedBy.String(),
			session.IsActive,
		))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *sessionRepo) SessionByID(ctx context.Context, sessionID uuid.UUID) (models.Session, error) {
	const op = "repository.sqlite.SessionByID"

	query, args, err := r.sb.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"id": sessionID.String()}).
		ToSql()
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	session, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, fmt.Errorf("%s: %w", op, storage.ErrSessionNotFound)
		}
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

func (r *sessionRepo) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	const op = "repository.sqlite.ListSessions"

	builder := r.sb.Select(sessionColumns...).
		From("sessions").
		OrderBy("created_at DESC", "id ASC")

	if filter.IDs != nil {
		builder = builder.Where(sq.Eq{"id": idStrings(filter.IDs)})
	}
	if filter.Active != nil {
		builder = builder.Where(sq.Eq{"is_active": *filter.Active})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sessions, nil
}

func (r *sessionRepo) SetSessionActive(ctx context.Context, sessionID uuid.UUID, active bool) error {
	const op = "repository.sqlite.SetSessionActive"

	n, err := (*Store)(r).exec(ctx, r.sb.Update("sessions").
		Set("is_active", active).
		Where(sq.Eq{"id": sessionID.String()}))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrSessionNotFound)
	}

	return nil
}

func (r *sessionRepo) ExistingSessionIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	const op = "repository.sqlite.ExistingSessionIDs"

	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}

	query, args, err := r.sb.Select("id").
		From("sessions").
		Where(sq.Eq{"id": idStrings(ids)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	existing := make([]uuid.UUID, 0, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		existing = append(existing, id)
	}

	return existing, rows.Err()
}

func scanSession(row rowScanner) (models.Session, error) {
	var (
		session   models.Session
		createdAt string
	)

	err := row.Scan(
		&session.ID,
		&session.Name,
		&session.Description,
		&createdAt,
		&session.CreatedBy,
		&session.IsActive,
	)
	if err != nil {
		return models.Session{}, err
	}

	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Session{}, fmt.Errorf("created_at: %w", err)
	}

	return session, nil
}

type photoRepo Store

func (r *photoRepo) SavePhoto(ctx context.Context, photo models.Photo) error {
	const op = "repository.sqlite.SavePhoto"

	_, err := (*Store)(r).exec(ctx, r.sb.Insert("photos").
		Columns(photoColumns...).
		Values(
			photo.ID.String(),
			photo.SessionID.String(),
			photo.Filename,
			photo.ContentType,
			photo.ImageData,
			photo.FileSize,
			formatTime(photo.UploadedAt),
		))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *photoRepo) PhotoByID(ctx context.Context, photoID uuid.UUID) (models.Photo, error) {
	const op = "repository.sqlite.PhotoByID"

	query, args, err := r.sb.Select(photoColumns...).
		From("photos").
		Where(sq.Eq{"id": photoID.String()}).
		ToSql()
	if err != nil {
		return models.Photo{}, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	photo, err := scanPhoto(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Photo{}, fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
		}
		return models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}

	return photo, nil
}

func (r *photoRepo) PhotosBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Photo, error) {
	const op = "repository.sqlite.PhotosBySession"

	photos, err := r.list(ctx, sq.Eq{"session_id": sessionID.String()})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return photos, nil
}

func (r *photoRepo) PhotosByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error) {
	const op = "repository.sqlite.PhotosByIDs"

	if len(ids) == 0 {
		return []models.Photo{}, nil
	}

	photos, err := r.list(ctx, sq.Eq{"id": idStrings(ids)})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return photos, nil
}

func (r *photoRepo) DeletePhoto(ctx context.Context, photoID uuid.UUID) error {
	const op = "repository.sqlite.DeletePhoto"

	n, err := (*Store)(r).exec(ctx, r.sb.Delete("photos").Where(sq.Eq{"id": photoID.String()}))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
	}

	return nil
}

func (r *photoRepo) list(ctx context.Context, where sq.Sqlizer) ([]models.Photo, error) {
	query, args, err := r.sb.Select(photoColumns...).
		From("photos").
		Where(where).
		OrderBy("uploaded_at DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build sql: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func scanPhoto(row rowScanner) (models.Photo, error) {
	var (
		photo      models.Photo
		uploadedAt string
	)

	err := row.Scan(
		&photo.ID,
		&photo.SessionID,
		&photo.Filename,
		&photo.ContentType,
		&photo.ImageData,
		&photo.FileSize,
		&uploadedAt,
	)
	if err != nil {
		return models.Photo{}, err
	}

	if photo.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return models.Photo{}, fmt.Errorf("uploaded_at: %w", err)
	}

	return photo, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, value, time.UTC)
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func encodeIDs(ids []uuid.UUID) (string, error) {
	b, err := json.Marshal(idStrings(ids))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeIDs(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
