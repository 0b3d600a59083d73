//go:build integration

package persistence_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/meditrack/staffcore/internal/config"
	"github.com/meditrack/staffcore/internal/persistence"
	apperrors "github.com/meditrack/staffcore/pkg/util"
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

func newDatabase(t *testing.T, maxConns int32, acquireTimeout time.Duration) (*persistence.Postgres, *persistence.Database) {
	t.Helper()
	ctx := context.Background()
	pg := persistence.NewPostgres(config.PostgresConfig{
		DSN:            dsn,
		MaxConns:       maxConns,
		IdleTimeout:    30 * time.Second,
		ConnectTimeout: 5 * time.Second,
		AcquireTimeout: acquireTimeout,
	}, zap.NewNop())
	require.NoError(t, pg.Initialize(ctx))
	t.Cleanup(pg.Close)
	require.NoError(t, persistence.RunMigrations(ctx, pg.PoolHandle(), zap.NewNop()))
	return pg, persistence.NewDatabase(pg, zap.NewNop())
}

const insertStaff = `INSERT INTO staff (email, password_hash, first_name, last_name, role)
VALUES ($1, 'x', 'A', 'B', 'Nurse') RETURNING id`

func countEmail(t *testing.T, db *persistence.Database, email string) int64 {
	t.Helper()
	row, ok, err := db.QueryOne(context.Background(), "SELECT COUNT(*) AS n FROM staff WHERE email = $1", email)
	require.NoError(t, err)
	require.True(t, ok)
	n, err := persistence.Value[int64](row, "n")
	require.NoError(t, err)
	return n
}

func TestDatabase_UniqueEmailConflict(t *testing.T) {
	_, db := newDatabase(t, 5, 2*time.Second)
	ctx := context.Background()

	set, err := db.Execute(ctx, insertStaff, "dup@x.io")
	require.NoError(t, err)
	assert.NotNil(t, set.InsertID)

	_, err = db.Execute(ctx, insertStaff, "dup@x.io")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Equal(t, "staff_email_key", persistence.ConstraintOf(err))
	assert.Equal(t, int64(1), countEmail(t, db, "dup@x.io"))
}

func TestDatabase_ConcurrentInsertSameEmail(t *testing.T) {
	_, db := newDatabase(t, 5, 2*time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = db.Execute(ctx, insertStaff, "race@x.io")
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.IsKind(err, apperrors.KindConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, int64(1), countEmail(t, db, "race@x.io"))
}

func TestDatabase_TransactionRollbackLeavesNoRows(t *testing.T) {
	pg, db := newDatabase(t, 2, 2*time.Second)
	ctx := context.Background()

	err := db.RunInTransaction(ctx, func(ctx context.Context, tx persistence.Executor) error {
		if _, err := tx.Execute(ctx, insertStaff, "tx@x.io"); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)
	assert.Equal(t, int64(0), countEmail(t, db, "tx@x.io"))
	assert.Equal(t, int32(0), pg.Stats().AcquiredConns)
}

func TestDatabase_PoolExhaustion(t *testing.T) {
	pg, db := newDatabase(t, 1, 200*time.Millisecond)
	ctx := context.Background()

	held, err := pg.Acquire(ctx)
	require.NoError(t, err)

	_, err = db.Execute(ctx, "SELECT 1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindPoolExhausted))

	pg.Release(held)
	_, err = db.Execute(ctx, "SELECT 1")
	assert.NoError(t, err)
}

func TestDatabase_CancelledCallerReleasesConnection(t *testing.T) {
	pg, db := newDatabase(t, 1, 2*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := db.Execute(ctx, "SELECT pg_sleep(1)")
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return pg.Stats().AcquiredConns == 0
	}, 2*time.Second, 20*time.Millisecond)

	_, err = db.Execute(context.Background(), "SELECT 1")
	assert.NoError(t, err)
}
