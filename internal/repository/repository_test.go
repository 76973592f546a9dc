//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"qr_photo/internal/domain/models"
	"qr_photo/internal/repository"
	"qr_photo/internal/storage"
	"qr_photo/internal/storage/postgresql"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testCtx = context.Background()

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	pgContainer, err := testcontainers.GenericContainer(testCtx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := pgContainer.Host(testCtx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(testCtx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := pgxpool.Connect(testCtx, connStr)
	require.NoError(t, err)

	require.NoError(t, postgresql.Migrate(testCtx, pool))

	t.Cleanup(func() {
		pool.Close()
		_ = pgContainer.Terminate(testCtx)
	})

	return pool
}

func TestPostgresRepositories(t *testing.T) {
	repo := repository.NewRepository(setupTestDB(t))

	t.Run("users", func(t *testing.T) {
		sessionID := uuid.New()
		user := models.User{
			Username:        gofakeit.Username(),
			PasswordHash:    []byte("hash"),
			AllowedSessions: []uuid.UUID{sessionID},
			CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
			CreatedBy:       models.CreatedBySystem,
		}

		id, err := repo.User.SaveUser(testCtx, user)
		require.NoError(t, err)

		_, err = repo.User.SaveUser(testCtx, user)
		assert.ErrorIs(t, err, storage.ErrUserExists)

		got, err := repo.User.UserByUsername(testCtx, user.Username)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, []uuid.UUID{sessionID}, got.AllowedSessions)
		assert.Equal(t, []byte("hash"), got.PasswordHash)

		got.IsSuperadmin = true
		got.AllowedSessions = []uuid.UUID{}
		require.NoError(t, repo.User.UpdateUser(testCtx, got))

		ok, err := repo.User.HasSuperadmin(testCtx)
		require.NoError(t, err)
		assert.True(t, ok)

		users, err := repo.User.ListUsers(testCtx)
		require.NoError(t, err)
		assert.Len(t, users, 1)

		require.NoError(t, repo.User.DeleteUser(testCtx, id))
		_, err = repo.User.UserByID(testCtx, id)
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
		assert.ErrorIs(t, repo.User.DeleteUser(testCtx, id), storage.ErrUserNotFound)
	})

	t.Run("sessions", func(t *testing.T) {
		desc := "reception"
		first := models.NewSession("Wedding", &desc, uuid.New())
		second := models.NewSession("Party", nil, uuid.New())
		second.CreatedAt = first.CreatedAt.Add(time.Minute)

		require.NoError(t, repo.Session.SaveSession(testCtx, first))
		require.NoError(t, repo.Session.SaveSession(testCtx, second))
		require.NoError(t, repo.Session.SetSessionActive(testCtx, first.ID, false))

		got, err := repo.Session.SessionByID(testCtx, first.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		require.NotNil(t, got.Description)
		assert.Equal(t, desc, *got.Description)

		all, err := repo.Session.ListSessions(testCtx, models.SessionFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)

		scoped, err := repo.Session.ListSessions(testCtx, models.SessionFilter{IDs: []uuid.UUID{second.ID}})
		require.NoError(t, err)
		require.Len(t, scoped, 1)

		existing, err := repo.Session.ExistingSessionIDs(testCtx, []uuid.UUID{first.ID, uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{first.ID}, existing)

		_, err = repo.Session.SessionByID(testCtx, uuid.New())
		assert.ErrorIs(t, err, storage.ErrSessionNotFound)
	})

	t.Run("photos", func(t *testing.T) {
		sessionID := uuid.New()
		older := models.NewPhoto(sessionID, "a.jpg", "image/jpeg", "AAAA", 3)
		older.UploadedAt = older.UploadedAt.Add(-time.Hour)
		newer := models.NewPhoto(sessionID, "b.jpg", "image/jpeg", "BBBB", 3)

		require.NoError(t, repo.Photo.SavePhoto(testCtx, older))
		require.NoError(t, repo.Photo.SavePhoto(testCtx, newer))

		photos, err := repo.Photo.PhotosBySession(testCtx, sessionID)
		require.NoError(t, err)
		require.Len(t, photos, 2)
		assert.Equal(t, newer.ID, photos[0].ID)
		assert.Equal(t, "BBBB", photos[0].ImageData)

		byIDs, err := repo.Photo.PhotosByIDs(testCtx, []uuid.UUID{older.ID})
		require.NoError(t, err)
		require.Len(t, byIDs, 1)

		require.NoError(t, repo.Photo.DeletePhoto(testCtx, older.ID))
		_, err = repo.Photo.PhotoByID(testCtx, older.ID)
		assert.ErrorIs(t, err, storage.ErrPhotoNotFound)
	})
}
