package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meditrack/staffcore/internal/domain"
	"github.com/meditrack/staffcore/internal/persistence"
	apperrors "github.com/meditrack/staffcore/pkg/util"
)

// ErrStaffNotFound is returned when no staff row matches.
var ErrStaffNotFound = errors.New("staff not found")

// StaffRepository handles persistence for staff members.
type StaffRepository interface {
	GetActiveByEmail(ctx context.Context, email string) (*domain.Staff, error)
	GetByEmail(ctx context.Context, email string) (*domain.Staff, error)
	GetByID(ctx context.Context, id int64) (*domain.Staff, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, staff *domain.NewStaff) (*domain.Staff, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	// WithExecutor returns a repository bound to exec, typically a transaction.
	WithExecutor(exec persistence.Executor) StaffRepository
}

const staffColumns = `id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at`

type staffRepository struct {
	db persistence.Executor
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(db persistence.Executor) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) WithExecutor(exec persistence.Executor) StaffRepository {
	return &staffRepository{db: exec}
}

func (r *staffRepository) GetActiveByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff WHERE email = $1 AND is_active = true`
	return r.getOne(ctx, query, email)
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *staffRepository) GetByID(ctx context.Context, id int64) (*domain.Staff, error) {
	const query = `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *staffRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT id FROM staff WHERE email = $1`
	_, ok, err := r.db.QueryOne(ctx, query, email)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *staffRepository) Create(ctx context.Context, staff *domain.NewStaff) (*domain.Staff, error) {
	const query = `
        INSERT INTO staff (email, password_hash, first_name, last_name, role, is_active)
        VALUES ($1, $2, $3, $4, $5, true)
        RETURNING id, created_at, updated_at`

	row, ok, err := r.db.QueryOne(ctx, query,
		staff.Email,
		staff.PasswordHash,
		staff.FirstName,
		staff.LastName,
		string(staff.Role),
	)
	if err != nil {
		if persistence.ConstraintOf(err) == "staff_email_key" {
			return nil, apperrors.NewConflict("Email already registered", map[string]any{"email": staff.Email})
		}
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewQueryError(errors.New("insert returned no row"))
	}

	created := &domain.Staff{
		Email:        staff.Email,
		PasswordHash: staff.PasswordHash,
		FirstName:    staff.FirstName,
		LastName:     staff.LastName,
		Role:         staff.Role,
		IsActive:     true,
	}
	if created.ID, err = persistence.Value[int64](row, "id"); err != nil {
		return nil, apperrors.NewQueryError(err)
	}
	if created.CreatedAt, err = persistence.Value[time.Time](row, "created_at"); err != nil {
		return nil, apperrors.NewQueryError(err)
	}
	if created.UpdatedAt, err = persistence.Value[time.Time](row, "updated_at"); err != nil {
		return nil, apperrors.NewQueryError(err)
	}
	return created, nil
}

func (r *staffRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const query = `UPDATE staff SET password_hash = $1, updated_at = NOW() WHERE id = $2`

	set, err := r.db.Execute(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	if set.RowsAffected == 0 {
		return ErrStaffNotFound
	}
	return nil
}

func (r *staffRepository) getOne(ctx context.Context, query string, arg any) (*domain.Staff, error) {
	row, ok, err := r.db.QueryOne(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStaffNotFound
	}
	staff, err := decodeStaff(row)
	if err != nil {
		return nil, apperrors.NewQueryError(err)
	}
	return staff, nil
}

func decodeStaff(row persistence.Row) (*domain.Staff, error) {
	var (
		staff domain.Staff
		role  string
		err   error
	)
	if staff.ID, err = persistence.Value[int64](row, "id"); err != nil {
		return nil, err
	}
	if staff.Email, err = persistence.Value[string](row, "email"); err != nil {
		return nil, err
	}
	if staff.PasswordHash, err = persistence.Value[string](row, "password_hash"); err != nil {
		return nil, err
	}
	if staff.FirstName, err = persistence.Value[string](row, "first_name"); err != nil {
		return nil, err
	}
	if staff.LastName, err = persistence.Value[string](row, "last_name"); err != nil {
		return nil, err
	}
	if role, err = persistence.Value[string](row, "role"); err != nil {
		return nil, err
	}
	if staff.IsActive, err = persistence.Value[bool](row, "is_active"); err != nil {
		return nil, err
	}
	if staff.CreatedAt, err = persistence.Value[time.Time](row, "created_at"); err != nil {
		return nil, err
	}
	if staff.UpdatedAt, err = persistence.Value[time.Time](row, "updated_at"); err != nil {
		return nil, err
	}

	staff.Role = domain.StaffRole(role)
	if !staff.Role.Valid() {
		return nil, fmt.Errorf("staff %d has unknown role %q", staff.ID, role)
	}
	return &staff, nil
}
