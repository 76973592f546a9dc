// Package testsuite starts the whole application on an in-memory store
// behind an httptest server, for end-to-end tests.
package testsuite

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"qr_photo/internal/app"
	"qr_photo/internal/config"
	"qr_photo/internal/lib/logger/handlers/slogdiscard"
)

const (
	SuperadminUsername = "superadmin"
	SuperadminPassword = "changeme123"
	Secret             = "test-secret"
)

type Suite struct {
	*testing.T
	Cfg     *config.Config
	App     *app.App
	Server  *httptest.Server
	BaseURL string
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()
	t.Parallel()

	cfg := Config()

	ctx, cancelCtx := context.WithTimeout(context.Background(), time.Minute)

	application, err := app.New(ctx, slogdiscard.NewDiscardLogger(), cfg)
	if err != nil {
		cancelCtx()
		t.Fatalf("init application: %v", err)
	}

	server := httptest.NewServer(application.Handler())

	t.Cleanup(func() {
		t.Helper()
		server.Close()
		application.Stop()
		cancelCtx()
	})

	return ctx, &Suite{
		T:       t,
		Cfg:     cfg,
		App:     application,
		Server:  server,
		BaseURL: server.URL,
	}
}

// Config is the configuration New runs the application with.
func Config() *config.Config {
	cfg := &config.Config{
		Env:           "local",
		PublicBaseURL: "http://photos.test",
	}
	cfg.Storage.Driver = config.DriverMemory
	cfg.HTTP.Port = "0"
	cfg.HTTP.CORSOrigins = []string{"*"}
	cfg.Auth.Secret = Secret
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.RefreshTTL = 24 * time.Hour
	cfg.Auth.SuperadminUsername = SuperadminUsername
	cfg.Auth.SuperadminPassword = SuperadminPassword
	cfg.Photos.MaxSize = 1 << 20
	cfg.Photos.ThumbnailCacheTTL = time.Minute
	cfg.QR.Size = 290

	return cfg
}
