//go:build integration

package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/meditrack/staffcore/internal/api/http"
	"github.com/meditrack/staffcore/internal/api/http/handlers"
	"github.com/meditrack/staffcore/internal/auth"
	"github.com/meditrack/staffcore/internal/config"
	"github.com/meditrack/staffcore/internal/observability"
	"github.com/meditrack/staffcore/internal/persistence"
	"github.com/meditrack/staffcore/internal/repository"
	"github.com/meditrack/staffcore/internal/service"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "meditrack_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/meditrack_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

type stack struct {
	app *fiber.App
	db  *persistence.Database
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pg := persistence.NewPostgres(config.PostgresConfig{
		DSN:            dsn,
		MaxConns:       5,
		IdleTimeout:    30 * time.Second,
		ConnectTimeout: 5 * time.Second,
		AcquireTimeout: 2 * time.Second,
	}, logger)
	require.NoError(t, pg.Initialize(ctx))
	t.Cleanup(pg.Close)
	require.NoError(t, persistence.RunMigrations(ctx, pg.PoolHandle(), logger))

	db := persistence.NewDatabase(pg, logger)
	_, err := db.Execute(ctx, "TRUNCATE staff RESTART IDENTITY")
	require.NoError(t, err)

	tokens := auth.NewTokenManager("integration-secret", time.Hour)
	svc := service.NewAuthService(service.AuthDependencies{
		StaffRepo: repository.NewStaffRepository(db),
		Tx:        db,
		Hasher:    auth.NewPasswordHasher(bcrypt.MinCost, 2, logger),
		Tokens:    tokens,
		TokenTTL:  time.Hour,
		Logger:    logger,
	})
	validate, err := handlers.NewRequestValidator()
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{ErrorHandler: httptransport.ErrorHandler(logger, metrics)})
	httptransport.RegisterMiddlewares(app, logger, metrics, 10*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler("staffcore", "test", handlers.HealthDependencies{
			Postgres:  pg,
			PoolStats: pg.Stats,
			Metrics:   metrics,
			Logger:    logger,
		}),
		Auth:           handlers.NewAuthHandler(svc, validate),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return &stack{app: app, db: db}
}

func (s *stack) do(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestAuthFlow_RegisterLoginAgainstPostgres(t *testing.T) {
	s := newStack(t)
	credentials := map[string]string{"email": "a@x.com", "password": "Abcdef1!"}

	status, body := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":      "a@x.com",
		"password":   "Abcdef1!",
		"first_name": "Ada",
		"last_name":  "Xu",
		"role":       "Nurse",
	}, "")
	require.Equal(t, http.StatusCreated, status, body)
	created := body["data"].(map[string]any)
	assert.Equal(t, "a@x.com", created["email"])
	assert.Equal(t, "Nurse", created["role"])
	assert.NotContains(t, created, "password_hash")

	row, ok, err := s.db.QueryOne(context.Background(),
		"SELECT password_hash, is_active FROM staff WHERE email = $1", "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)
	hash, err := persistence.Value[string](row, "password_hash")
	require.NoError(t, err)
	assert.NotEqual(t, "Abcdef1!", hash)
	active, err := persistence.Value[bool](row, "is_active")
	require.NoError(t, err)
	assert.True(t, active)

	status, body = s.do(t, http.MethodPost, "/api/auth/login", credentials, "")
	require.Equal(t, http.StatusOK, status, body)
	session := body["data"].(map[string]any)
	token, _ := session["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "Nurse", session["staff"].(map[string]any)["role"])

	status, body = s.do(t, http.MethodGet, "/api/auth/profile", nil, token)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "a@x.com", body["data"].(map[string]any)["email"])

	status, body = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", body["message"])

	status, body = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "nobody@x.com", "password": "Abcdef1!"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", body["message"])

	status, body = s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":      "a@x.com",
		"password":   "Abcdef1!",
		"first_name": "Ada",
		"last_name":  "Xu",
		"role":       "Nurse",
	}, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already registered", body["message"])
}
