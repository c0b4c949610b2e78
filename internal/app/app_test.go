package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/vingo-review/internal/config"
	"github.com/utafrali/vingo-review/pkg/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func memoryConfig() *config.Config {
	return &config.Config{
		Environment:         "development",
		ServiceName:         "review-service-test",
		StoreBackend:        config.BackendMemory,
		HTTPPort:            0,
		HTTPReadTimeout:     time.Second,
		HTTPWriteTimeout:    time.Second,
		HTTPRequestTimeout:  time.Second,
		ShutdownGracePeriod: time.Second,
	}
}

func TestNewApp_MemoryBackendRunsAndStops(t *testing.T) {
	a, err := NewApp(memoryConfig(), testLogger())
	require.NoError(t, err)
	assert.Nil(t, a.consumer, "no consumer without brokers")

	names := make([]string, 0, len(a.closers))
	for _, c := range a.closers {
		names = append(names, c.name)
	}
	assert.Equal(t, []string{"tracing", config.BackendMemory}, names)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Empty(t, a.closers)
}

func TestCloseAll_ReverseOrderAndJoinedErrors(t *testing.T) {
	a := &App{logger: testLogger()}
	var order []string
	a.addCloser("first", func(context.Context) error { order = append(order, "first"); return nil })
	a.addCloser("second", func(context.Context) error { order = append(order, "second"); return errors.New("boom") })
	a.addCloser("third", func(context.Context) error { order = append(order, "third"); return nil })

	err := a.closeAll()
	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.ErrorContains(t, err, "close second: boom")
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, middleware.UserIDFromContext(r.Context()))
	})

	serve := func(cfg *config.Config, header, value string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(header, value)
		rec := httptest.NewRecorder()
		authMiddleware(cfg, testLogger())(ok).ServeHTTP(rec, req)
		return rec
	}

	t.Run("gateway", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.AuthTrustGateway = true
		rec := serve(cfg, middleware.HeaderUserID, "user-1")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", rec.Body.String())
	})

	t.Run("jwt ignores gateway header", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.JWTSecret = "secret"
		rec := serve(cfg, middleware.HeaderUserID, "user-1")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
