package domain

import "time"

// Identity is the frozen claim snapshot carried by a session token.
type Identity struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      StaffRole `json:"role"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// IdentityOf snapshots the claim fields of s.
func IdentityOf(s Staff) Identity {
	return Identity{
		ID:        s.ID,
		Email:     s.Email,
		Role:      s.Role,
		FirstName: s.FirstName,
		LastName:  s.LastName,
	}
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Staff     Identity
}
