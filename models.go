package auth

import (
	"time"
)

// User is the backend user record. It is owned by the server: the client
// only ever replaces it as a whole after login or creation.
type User struct {
	ID        string     `json:"id"`
	Wallet    string     `json:"wallet"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Clone returns a copy that shares no pointers with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		cp.CreatedAt = &t
	}
	return &cp
}

// NewUserRequest is the payload used to auto-provision a user.
type NewUserRequest struct {
	Wallet string `json:"wallet"`
	Name   string `json:"name"`
	Role   Role   `json:"role,omitempty"`
	// IdempotencyKey is sent as a header, never in the body
	IdempotencyKey string `json:"-"`
}

// HealthStatus is the payload returned by the backend health probe
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
