package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meditrack/staffcore/internal/auth"
	"github.com/meditrack/staffcore/internal/domain"
	"github.com/meditrack/staffcore/internal/events"
	"github.com/meditrack/staffcore/internal/persistence"
	"github.com/meditrack/staffcore/internal/repository"
	apperrors "github.com/meditrack/staffcore/pkg/util"
)

const (
	msgInvalidEmail    = "Invalid email format"
	msgWeakPassword    = "Password must be at least 8 characters with uppercase, number, and special character"
	msgWeakNewPassword = "New password must be at least 8 characters with uppercase, number, and special character"
	msgWrongCurrent    = "Current password is incorrect"
	msgTooManyAttempts = "Too many failed login attempts, please try again later"
	msgNameRequired    = "First name and last name are required"
	msgInvalidRole     = "Role must be one of Admin, Doctor, Nurse, Receptionist"
	staffResource      = "Staff"

	// decoyPassword is hashed once so lookups of unknown accounts spend the
	// same bcrypt time as a wrong password.
	decoyPassword = "decoy-Passw0rd!"
)

// TxRunner runs a unit of work atomically.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn persistence.TxFunc) error
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, digest string) (bool, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(identity domain.Identity, ttl time.Duration) (string, time.Time, error)
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// AuthService coordinates login, registration and password changes.
type AuthService struct {
	staff    repository.StaffRepository
	tx       TxRunner
	hasher   PasswordHasher
	tokens   TokenIssuer
	limiter  auth.LoginLimiter
	events   events.Dispatcher
	tokenTTL time.Duration
	logger   *zap.Logger

	decoyOnce   sync.Once
	decoyDigest string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	StaffRepo repository.StaffRepository
	Tx        TxRunner
	Hasher    PasswordHasher
	Tokens    TokenIssuer
	// Limiter and Events are optional.
	Limiter  auth.LoginLimiter
	Events   events.Dispatcher
	TokenTTL time.Duration
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = auth.NoopLimiter{}
	}
	dispatcher := deps.Events
	if dispatcher == nil {
		dispatcher = events.NoopDispatcher{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		staff:    deps.StaffRepo,
		tx:       deps.Tx,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		limiter:  limiter,
		events:   dispatcher,
		tokenTTL: deps.TokenTTL,
		logger:   logger.Named("auth_service"),
	}
}

// Login authenticates active staff and issues a session token. Unknown
// accounts and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := domain.ValidateEmail(email); err != nil {
		return nil, validationError(msgInvalidEmail, err)
	}

	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		s.logger.Warn("login limiter unavailable", zap.Error(err))
	} else if !allowed {
		s.logger.Info("login throttled", zap.String("email", email))
		return nil, apperrors.NewTooManyRequests(msgTooManyAttempts)
	}

	staff, err := s.staff.GetActiveByEmail(ctx, email)
	if errors.Is(err, repository.ErrStaffNotFound) {
		s.verifyDecoy(ctx, password)
		s.recordFailure(ctx, email, "unknown_or_inactive")
		return nil, apperrors.NewInvalidCredentials()
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(ctx, password, staff.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.recordFailure(ctx, email, "password_mismatch")
		return nil, apperrors.NewInvalidCredentials()
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.Warn("reset login attempts", zap.Error(err))
	}

	identity := domain.IdentityOf(*staff)
	token, exp, err := s.tokens.Issue(identity, s.tokenTTL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("staff logged in", zap.Int64("staff_id", staff.ID), zap.String("role", string(staff.Role)))
	s.publish(ctx, events.Event{Type: events.EventLoginSucceeded, StaffID: staff.ID, Email: staff.Email})
	return &domain.Session{Token: token, ExpiresAt: exp, Staff: identity}, nil
}

// Register creates an active staff account. The existence check and insert
// share one transaction; the unique index settles concurrent attempts.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.StaffProfile, error) {
	if err := domain.ValidateEmail(in.Email); err != nil {
		return nil, validationError(msgInvalidEmail, err)
	}
	if err := domain.ValidatePassword(in.Password); err != nil {
		return nil, validationError(msgWeakPassword, err)
	}
	firstName, lastName := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if firstName == "" || lastName == "" {
		return nil, apperrors.NewValidationError(msgNameRequired, nil)
	}
	role, err := domain.ParseStaffRole(in.Role)
	if err != nil {
		return nil, apperrors.NewValidationError(msgInvalidRole, map[string]any{"role": in.Role})
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	var created *domain.Staff
	err = s.tx.RunInTransaction(ctx, func(ctx context.Context, tx persistence.Executor) error {
		repo := s.staff.WithExecutor(tx)
		exists, err := repo.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.NewConflict("Email already registered", map[string]any{"email": in.Email})
		}
		created, err = repo.Create(ctx, &domain.NewStaff{
			Email:        in.Email,
			PasswordHash: hash,
			FirstName:    firstName,
			LastName:     lastName,
			Role:         role,
		})
		return err
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindConflict) {
			s.logger.Info("registration rejected; email taken", zap.String("email", in.Email))
		}
		return nil, err
	}

	s.logger.Info("staff registered", zap.Int64("staff_id", created.ID), zap.String("role", string(role)))
	s.publish(ctx, events.Event{
		Type:    events.EventStaffRegistered,
		StaffID: created.ID,
		Email:   created.Email,
		Payload: events.StaffRegisteredPayload{Role: role},
	})
	profile := created.Profile()
	return &profile, nil
}

// GetProfile returns the non-secret view of the authenticated staff member.
func (s *AuthService) GetProfile(ctx context.Context, id int64) (*domain.StaffProfile, error) {
	staff, err := s.staff.GetByID(ctx, id)
	if errors.Is(err, repository.ErrStaffNotFound) {
		return nil, apperrors.NewNotFound(staffResource, map[string]any{"id": id})
	}
	if err != nil {
		return nil, err
	}
	profile := staff.Profile()
	return &profile, nil
}

// UpdatePassword replaces the password after verifying the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, id int64, currentPassword, newPassword string) error {
	staff, err := s.staff.GetByID(ctx, id)
	if errors.Is(err, repository.ErrStaffNotFound) {
		return apperrors.NewNotFound(staffResource, map[string]any{"id": id})
	}
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(ctx, currentPassword, staff.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewUnauthorized(msgWrongCurrent)
	}

	if err := domain.ValidatePassword(newPassword); err != nil {
		return validationError(msgWeakNewPassword, err)
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}
	if err := s.staff.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repository.ErrStaffNotFound) {
			return apperrors.NewNotFound(staffResource, map[string]any{"id": id})
		}
		return err
	}

	s.logger.Info("staff password updated", zap.Int64("staff_id", id))
	s.publish(ctx, events.Event{Type: events.EventPasswordChanged, StaffID: id, Email: staff.Email})
	return nil
}

// Logout acknowledges the request. Tokens stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, identity domain.Identity) error {
	s.logger.Info("staff logged out", zap.Int64("staff_id", identity.ID))
	s.publish(ctx, events.Event{Type: events.EventLoggedOut, StaffID: identity.ID, Email: identity.Email})
	return nil
}

func (s *AuthService) verifyDecoy(ctx context.Context, password string) {
	s.decoyOnce.Do(func() {
		digest, err := s.hasher.Hash(context.WithoutCancel(ctx), decoyPassword)
		if err != nil {
			s.logger.Warn("hash decoy password", zap.Error(err))
			return
		}
		s.decoyDigest = digest
	})
	if s.decoyDigest == "" {
		return
	}
	if _, err := s.hasher.Verify(ctx, password, s.decoyDigest); err != nil {
		s.logger.Debug("verify decoy password", zap.Error(err))
	}
}

func (s *AuthService) recordFailure(ctx context.Context, email, reason string) {
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.logger.Warn("record failed login", zap.Error(err))
	}
	s.publish(ctx, events.Event{
		Type:    events.EventLoginFailed,
		Email:   email,
		Payload: events.LoginFailedPayload{Reason: reason},
	})
}

func (s *AuthService) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("publish auth event", zap.String("event", string(e.Type)), zap.Error(err))
	}
}

func validationError(message string, err error) error {
	var violation *domain.RuleViolation
	if errors.As(err, &violation) {
		return apperrors.NewValidationError(message, map[string]any{
			"field":  violation.Field,
			"reason": string(violation.Reason),
		})
	}
	return apperrors.NewValidationError(message, nil)
}
