package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reasonOf(t *testing.T, err error) Reason {
	t.Helper()
	var v *RuleViolation
	require.True(t, errors.As(err, &v), "expected RuleViolation, got %v", err)
	return v.Reason
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last+tag@clinic.example.org", "x_y%z@sub-domain.io"}
	for _, email := range valid {
		assert.NoError(t, ValidateEmail(email), email)
	}

	tests := []struct {
		email  string
		reason Reason
	}{
		{"", ReasonEmailEmpty},
		{"   ", ReasonEmailEmpty},
		{"no-at-sign", ReasonEmailFormat},
		{"a@b", ReasonEmailFormat},
		{"a@b.c", ReasonEmailFormat},
		{"a b@c.io", ReasonEmailFormat},
		{"@c.io", ReasonEmailFormat},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.reason, reasonOf(t, ValidateEmail(tt.email)))
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Passw0rd!"))
	assert.NoError(t, ValidatePassword("Ünïcode9#"))

	tests := []struct {
		name     string
		password string
		reason   Reason
	}{
		{"empty", "", ReasonPasswordTooShort},
		{"seven chars", "Pa0!abc", ReasonPasswordTooShort},
		{"no uppercase", "passw0rd!", ReasonPasswordNoUppercase},
		{"no digit", "Password!", ReasonPasswordNoDigit},
		{"no special", "Passw0rdx", ReasonPasswordNoSpecial},
		{"space is not special", "Passw0rd ", ReasonPasswordNoSpecial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, reasonOf(t, ValidatePassword(tt.password)))
		})
	}
}

func TestParseStaffRole(t *testing.T) {
	role, err := ParseStaffRole("nurse")
	require.NoError(t, err)
	assert.Equal(t, StaffRoleNurse, role)
	assert.True(t, role.Valid())

	_, err = ParseStaffRole("Janitor")
	assert.Error(t, err)
	assert.False(t, StaffRole("doctor").Valid())
}

func TestStaff_ProfileOmitsHash(t *testing.T) {
	s := Staff{ID: 3, Email: "a@b.co", PasswordHash: "$2a$10$secret", FirstName: "A", LastName: "B", Role: StaffRoleAdmin, IsActive: true}
	p := s.Profile()
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, StaffRoleAdmin, p.Role)

	id := IdentityOf(s)
	assert.Equal(t, Identity{ID: 3, Email: "a@b.co", Role: StaffRoleAdmin, FirstName: "A", LastName: "B"}, id)
}
