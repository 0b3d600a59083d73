package domain

import (
	"fmt"
	"strings"
	"time"
)

// StaffRole enumerates clinic staff roles.
type StaffRole string

const (
	StaffRoleAdmin        StaffRole = "Admin"
	StaffRoleDoctor       StaffRole = "Doctor"
	StaffRoleNurse        StaffRole = "Nurse"
	StaffRoleReceptionist StaffRole = "Receptionist"
)

var staffRoles = []StaffRole{StaffRoleAdmin, StaffRoleDoctor, StaffRoleNurse, StaffRoleReceptionist}

// ParseStaffRole accepts a role name case-insensitively and returns its canonical form.
func ParseStaffRole(s string) (StaffRole, error) {
	for _, r := range staffRoles {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown staff role %q", s)
}

// Valid reports whether r is one of the known roles.
func (r StaffRole) Valid() bool {
	for _, known := range staffRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Staff is a person able to authenticate against the backend.
type Staff struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         StaffRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile returns the non-secret view of s.
func (s Staff) Profile() StaffProfile {
	return StaffProfile{
		ID:        s.ID,
		Email:     s.Email,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Role:      s.Role,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// NewStaff carries the fields needed to insert a staff row.
type NewStaff struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         StaffRole
}

// StaffProfile is the API-facing staff view. It has no password field.
type StaffProfile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      StaffRole `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
