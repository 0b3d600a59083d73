package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/meditrack/staffcore/internal/domain"
	apperrors "github.com/meditrack/staffcore/pkg/util"
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) { tm.now = now }
}

// NewTokenManager builds a new manager. ttl is the default lifetime used by Issue.
func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	tm := &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Claims describes JWT payload.
type Claims struct {
	ID        int64            `json:"id"`
	Email     string           `json:"email"`
	Role      domain.StaffRole `json:"role"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	jwt.RegisteredClaims
}

// TTL reports the default token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue signs a token for identity. A non-positive ttl falls back to the default.
func (tm *TokenManager) Issue(identity domain.Identity, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = tm.ttl
	}
	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		ID:        identity.ID,
		Email:     identity.Email,
		Role:      identity.Role,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(fmt.Errorf("sign token: %w", err))
	}
	return tokenString, expiresAt, nil
}

// Verify validates signature, algorithm and expiry and returns the claim snapshot.
func (tm *TokenManager) Verify(tokenStr string) (domain.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, apperrors.NewTokenExpired(err)
		}
		return domain.Identity{}, apperrors.NewTokenInvalid(err)
	}
	if !parsed.Valid {
		return domain.Identity{}, apperrors.NewTokenInvalid(errors.New("invalid token claims"))
	}

	return domain.Identity{
		ID:        claims.ID,
		Email:     claims.Email,
		Role:      claims.Role,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}, nil
}
