package memory_test

import (
	"context"
	"testing"
	"time"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/repository/memory"
	"qr_photo/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCtx = context.Background()

func TestUsers(t *testing.T) {
	repo := memory.New().Repository().User

	admin := models.User{Username: "superadmin", IsSuperadmin: true, CreatedAt: time.Now().UTC()}
	id, err := repo.SaveUser(testCtx, admin)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := repo.SaveUser(testCtx, models.User{Username: "superadmin"})
		assert.ErrorIs(t, err, storage.ErrUserExists)
	})

	t.Run("lookup", func(t *testing.T) {
		byName, err := repo.UserByUsername(testCtx, "superadmin")
		require.NoError(t, err)
		assert.Equal(t, id, byName.ID)

		_, err = repo.UserByID(testCtx, uuid.New())
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})

	t.Run("stored allow-list is not aliased", func(t *testing.T) {
		allowed := []uuid.UUID{uuid.New()}
		staffID, err := repo.SaveUser(testCtx, models.User{Username: "staff", AllowedSessions: allowed})
		require.NoError(t, err)

		allowed[0] = uuid.Nil

		staff, err := repo.UserByID(testCtx, staffID)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, staff.AllowedSessions[0])
	})

	t.Run("update rejects taken username", func(t *testing.T) {
		staff, err := repo.UserByUsername(testCtx, "staff")
		require.NoError(t, err)

		staff.Username = "superadmin"
		assert.ErrorIs(t, repo.UpdateUser(testCtx, staff), storage.ErrUserExists)
	})

	t.Run("has superadmin", func(t *testing.T) {
		ok, err := repo.HasSuperadmin(testCtx)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUser(testCtx, id))
		assert.ErrorIs(t, repo.DeleteUser(testCtx, id), storage.ErrUserNotFound)
	})
}

func TestSessions_ListFilter(t *testing.T) {
	repo := memory.New().Repository().Session

	base := time.Now().UTC()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		s := models.NewSession("s", nil, uuid.New())
		s.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.SaveSession(testCtx, s))
		ids = append(ids, s.ID)
	}
	require.NoError(t, repo.SetSessionActive(testCtx, ids[0], false))

	all, err := repo.ListSessions(testCtx, models.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	active := true
	onlyActive, err := repo.ListSessions(testCtx, models.SessionFilter{Active: &active})
	require.NoError(t, err)
	assert.Len(t, onlyActive, 2)

	scoped, err := repo.ListSessions(testCtx, models.SessionFilter{IDs: []uuid.UUID{ids[1], uuid.New()}})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, ids[1], scoped[0].ID)

	none, err := repo.ListSessions(testCtx, models.SessionFilter{IDs: []uuid.UUID{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	existing, err := repo.ExistingSessionIDs(testCtx, []uuid.UUID{ids[0], uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ids[0]}, existing)

	assert.ErrorIs(t, repo.SetSessionActive(testCtx, uuid.New(), true), storage.ErrSessionNotFound)
}

func TestPhotos(t *testing.T) {
	repo := memory.New().Repository().Photo
	sessionID := uuid.New()

	older := models.NewPhoto(sessionID, "a.jpg", "image/jpeg", "AAAA", 3)
	older.UploadedAt = time.Now().UTC().Add(-time.Hour)
	newer := models.NewPhoto(sessionID, "b.jpg", "image/jpeg", "BBBB", 3)
	other := models.NewPhoto(uuid.New(), "c.jpg", "image/jpeg", "CCCC", 3)

	for _, p := range []models.Photo{older, newer, other} {
		require.NoError(t, repo.SavePhoto(testCtx, p))
	}

	photos, err := repo.PhotosBySession(testCtx, sessionID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, newer.ID, photos[0].ID)
	assert.Equal(t, older.ID, photos[1].ID)

	byIDs, err := repo.PhotosByIDs(testCtx, []uuid.UUID{other.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, other.ID, byIDs[0].ID)

	require.NoError(t, repo.DeletePhoto(testCtx, older.ID))
	_, err = repo.PhotoByID(testCtx, older.ID)
	assert.ErrorIs(t, err, storage.ErrPhotoNotFound)
	assert.ErrorIs(t, repo.DeletePhoto(testCtx, older.ID), storage.ErrPhotoNotFound)
}
