package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/meditrack/staffcore/pkg/util"
)

func newTestHasher() *PasswordHasher {
	return NewPasswordHasher(bcrypt.MinCost, 2, zap.NewNop())
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	digest, err := h.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2a$"))
	assert.NotContains(t, digest, "Passw0rd!")

	ok, err := h.Verify(ctx, "Passw0rd!", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := h.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)
	assert.NotEqual(t, digest, again, "salts must differ")
}

func TestPasswordHasher_Mismatches(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()
	digest, err := h.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)

	longest := "Aa1!" + strings.Repeat("x", 68)
	require.Len(t, longest, 72)
	longDigest, err := h.Hash(ctx, longest)
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		digest   string
	}{
		{"wrong password", "Passw0rd?", digest},
		{"trailing whitespace", "Passw0rd! ", digest},
		{"empty password", "", digest},
		{"empty digest", "Passw0rd!", ""},
		{"malformed digest", "Passw0rd!", "not-a-bcrypt-hash"},
		{"72 byte password plus trailing space", longest + " ", longDigest},
		{"72 byte password plus suffix", longest + "anything-else", longDigest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify(ctx, tt.password, tt.digest)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPasswordHasher_EmptyPasswordHashNeverVerifies(t *testing.T) {
	h := newTestHasher()
	digest, err := h.Hash(context.Background(), "")
	require.NoError(t, err)

	ok, err := h.Verify(context.Background(), "", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_LongestPasswordVerifies(t *testing.T) {
	h := newTestHasher()
	password := "Aa1!" + strings.Repeat("x", 68)
	digest, err := h.Hash(context.Background(), password)
	require.NoError(t, err)

	ok, err := h.Verify(context.Background(), password, digest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasswordHasher_TooLong(t *testing.T) {
	_, err := newTestHasher().Hash(context.Background(), strings.Repeat("A", 73))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestPasswordHasher_HonoursCancellation(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1, zap.NewNop())
	require.True(t, h.sem.TryAcquire(1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "Passw0rd!")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = h.Verify(ctx, "Passw0rd!", "$2a$04$abc")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPasswordHasher_DefaultsCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0, 0, zap.NewNop()).Cost())
	assert.Equal(t, 12, NewPasswordHasher(12, 0, zap.NewNop()).Cost())
}
