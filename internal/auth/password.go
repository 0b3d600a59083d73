package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	apperrors "github.com/meditrack/staffcore/pkg/util"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// PasswordHasher hashes and verifies passwords with bcrypt. At most a fixed
// number of hash operations run at once; callers beyond that wait or give up
// with their context.
type PasswordHasher struct {
	cost   int
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// NewPasswordHasher builds a hasher. Non-positive concurrency means GOMAXPROCS.
func NewPasswordHasher(cost, concurrency int, logger *zap.Logger) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &PasswordHasher{
		cost:   cost,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		logger: logger.Named("hasher"),
	}
}

// Hash returns a self-describing bcrypt digest of password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", apperrors.NewValidationError("Password must not exceed 72 bytes", nil)
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for hasher: %w", err)
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}
	return string(hashed), nil
}

// Verify reports whether password matches digest. An empty password or one
// over the bcrypt limit never matches. A malformed digest is logged and
// reported as a mismatch.
func (h *PasswordHasher) Verify(ctx context.Context, password, digest string) (bool, error) {
	if password == "" || digest == "" {
		return false, nil
	}
	// bcrypt ignores bytes past the limit, so longer inputs could match a
	// digest of their prefix.
	if len(password) > maxPasswordBytes {
		return false, nil
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("wait for hasher: %w", err)
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		h.logger.Warn("stored password digest is unusable", zap.Error(err))
		return false, nil
	}
}

// Cost reports the configured work factor.
func (h *PasswordHasher) Cost() int {
	return h.cost
}
