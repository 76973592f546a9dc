// Package memory provides an in-process implementation of the user,
// session and photo repositories. It mirrors the Postgres repositories'
// ordering and error behavior and backs local runs and end-to-end tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/repository"
	"qr_photo/internal/storage"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	users    map[uuid.UUID]models.User
	sessions map[uuid.UUID]models.Session
	photos   map[uuid.UUID]models.Photo
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]models.User),
		sessions: make(map[uuid.UUID]models.Session),
		photos:   make(map[uuid.UUID]models.Photo),
	}
}

// Repository exposes the store through the same aggregate the Postgres
// implementation returns.
func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		User:    (*userRepo)(s),
		Session: (*sessionRepo)(s),
		Photo:   (*photoRepo)(s),
	}
}

type userRepo Store

func (r *userRepo) SaveUser(_ context.Context, user models.User) (uuid.UUID, error) {
	const op = "repository.memory.SaveUser"

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return uuid.Nil, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = cloneUser(user)

	return user.ID, nil
}

func (r *userRepo) UserByID(_ context.Context, userID uuid.UUID) (models.User, error) {
	const op = "repository.memory.UserByID"

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return cloneUser(u), nil
}

func (r *userRepo) UserByUsername(_ context.Context, username string) (models.User, error) {
	const op = "repository.memory.UserByUsername"

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}

	return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
}

func (r *userRepo) ListUsers(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, cloneUser(u))
	}

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].Username < users[j].Username
	})

	return users, nil
}

func (r *userRepo) UpdateUser(_ context.Context, user models.User) error {
	const op = "repository.memory.UpdateUser"

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	for id, u := range r.users {
		if id != user.ID && u.Username == user.Username {
			return fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
	}

	user.CreatedAt = existing.CreatedAt
	user.CreatedBy = existing.CreatedBy
	r.users[user.ID] = cloneUser(user)

	return nil
}

func (r *userRepo) DeleteUser(_ context.Context, userID uuid.UUID) error {
	const op = "repository.memory.DeleteUser"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	delete(r.users, userID)

	return nil
}

func (r *userRepo) HasSuperadmin(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.IsSuperadmin {
			return true, nil
		}
	}

	return false, nil
}

type sessionRepo Store

func (r *sessionRepo) SaveSession(_ context.Context, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session

	return nil
}

func (r *sessionRepo) SessionByID(_ context.Context, sessionID uuid.UUID) (models.Session, error) {
	const op = "repository.memory.SessionByID"

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return models.Session{}, fmt.Errorf("%s: %w", op, storage.ErrSessionNotFound)
	}

	return s, nil
}

func (r *sessionRepo) ListSessions(_ context.Context, filter models.SessionFilter) ([]models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]models.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if filter.IDs != nil && !slices.Contains(filter.IDs, s.ID) {
			continue
		}
		if filter.Active != nil && s.IsActive != *filter.Active {
			continue
		}
		sessions = append(sessions, s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID.String() < sessions[j].ID.String()
	})

	return sessions, nil
}

func (r *sessionRepo) SetSessionActive(_ context.Context, sessionID uuid.UUID, active bool) error {
	const op = "repository.memory.SetSessionActive"

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrSessionNotFound)
	}
	s.IsActive = active
	r.sessions[sessionID] = s

	return nil
}

func (r *sessionRepo) ExistingSessionIDs(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	existing := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.sessions[id]; ok && !slices.Contains(existing, id) {
			existing = append(existing, id)
		}
	}

	return existing, nil
}

type photoRepo Store

func (r *photoRepo) SavePhoto(_ context.Context, photo models.Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.photos[photo.ID] = photo

	return nil
}

func (r *photoRepo) PhotoByID(_ context.Context, photoID uuid.UUID) (models.Photo, error) {
	const op = "repository.memory.PhotoByID"

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.photos[photoID]
	if !ok {
		return models.Photo{}, fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
	}

	return p, nil
}

func (r *photoRepo) PhotosBySession(_ context.Context, sessionID uuid.UUID) ([]models.Photo, error) {
	return r.filter(func(p models.Photo) bool { return p.SessionID == sessionID }), nil
}

func (r *photoRepo) PhotosByIDs(_ context.Context, ids []uuid.UUID) ([]models.Photo, error) {
	return r.filter(func(p models.Photo) bool { return slices.Contains(ids, p.ID) }), nil
}

func (r *photoRepo) DeletePhoto(_ context.Context, photoID uuid.UUID) error {
	const op = "repository.memory.DeletePhoto"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.photos[photoID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
	}
	delete(r.photos, photoID)

	return nil
}

func (r *photoRepo) filter(keep func(models.Photo) bool) []models.Photo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	photos := make([]models.Photo, 0)
	for _, p := range r.photos {
		if keep(p) {
			photos = append(photos, p)
		}
	}

	sort.Slice(photos, func(i, j int) bool {
		if !photos[i].UploadedAt.Equal(photos[j].UploadedAt) {
			return photos[i].UploadedAt.After(photos[j].UploadedAt)
		}
		return photos[i].ID.String() < photos[j].ID.String()
	})

	return photos
}

func cloneUser(u models.User) models.User {
	u.AllowedSessions = slices.Clone(u.AllowedSessions)
	if u.AllowedSessions == nil {
		u.AllowedSessions = []uuid.UUID{}
	}
	u.PasswordHash = slices.Clone(u.PasswordHash)
	return u
}
