package domain

import (
	"strings"
	"time"
)

// User represents a registered account of the service.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Address      string
	Phone        string
	CreatedAt    time.Time
}

// Sanitized returns a copy of the user without password material.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Address:   u.Address,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

// UserPatch lists the fields an update may change. Nil fields are left untouched.
type UserPatch struct {
	Name    *string
	Email   *string
	Address *string
	Phone   *string
}

// Empty reports whether the patch sets no field at all.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Address == nil && p.Phone == nil
}

// Normalize trims the email if present.
func (p UserPatch) Normalize() UserPatch {
	if p.Email != nil {
		email := strings.TrimSpace(*p.Email)
		p.Email = &email
	}
	return p
}
