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

var sessionColumns = []string{
	"id",
	"name",
	"description",
	"created_at",
	"created_by",
	"is_active",
}

type SessionRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *SessionRepo) SaveSession(ctx context.Context, session models.Session) error {
	const op = "repository.session_repository.SaveSession"

	query, args, err := r.sb.Insert("sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.Name,
			session.Description,
			session.CreatedAt,
			session.CreatedBy,
			session.IsActive,
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

func (r *SessionRepo) SessionByID(ctx context.Context, sessionID uuid.UUID) (models.Session, error) {
	const op = "repository.session_repository.SessionByID"

	query, args, err := r.sb.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	session, err := scanSession(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, fmt.Errorf("%s: %w", op, storage.ErrSessionNotFound)
		}
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

// ListSessions returns sessions newest first. A non-nil filter.IDs limits
// the result to those ids, an empty non-nil slice matches nothing.
func (r *SessionRepo) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	const op = "repository.session_repository.ListSessions"

	builder := r.sb.Select(sessionColumns...).
		From("sessions").
		OrderBy("created_at DESC", "id ASC")

	if filter.IDs != nil {
		builder = builder.Where(sq.Eq{"id": uuidStrings(filter.IDs)})
	}
	if filter.Active != nil {
		builder = builder.Where(sq.Eq{"is_active": *filter.Active})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
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

func (r *SessionRepo) SetSessionActive(ctx context.Context, sessionID uuid.UUID, active bool) error {
	const op = "repository.session_repository.SetSessionActive"

	query, args, err := r.sb.Update("sessions").
		Set("is_active", active).
		Where(sq.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrSessionNotFound)
	}

	return nil
}

func (r *SessionRepo) ExistingSessionIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	const op = "repository.session_repository.ExistingSessionIDs"

	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}

	query, args, err := r.sb.Select("id").
		From("sessions").
		Where(sq.Eq{"id": uuidStrings(ids)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
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

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session

	err := row.Scan(
		&session.ID,
		&session.Name,
		&session.Description,
		&session.CreatedAt,
		&session.CreatedBy,
		&session.IsActive,
	)

	return session, err
}
