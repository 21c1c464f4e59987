package user

import (
	"errors"
	"time"
)

type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleSalesperson Role = "SALESPERSON"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole maps a stored or claimed role string onto the closed Role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleSalesperson:
		return RoleSalesperson, nil
	default:
		return "", ErrUnknownRole
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`

	PasswordHash      string  `json:"-"` // never expose hash in JSON
	EncryptedPassword *string `json:"-"`

	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials is the stored form of one plaintext password. Both fields are
// always derived together from the same plaintext.
type Credentials struct {
	PasswordHash      string
	EncryptedPassword string
}

// New is the record handed to a store for insertion; the store assigns ID and CreatedAt.
type New struct {
	Username    string
	Email       string
	FirstName   string
	LastName    string
	Role        Role
	Credentials Credentials
}

// Changes is a partial update. Nil fields are left untouched.
type Changes struct {
	FirstName   *string
	LastName    *string
	Username    *string
	Email       *string
	Credentials *Credentials
}

func (c Changes) Empty() bool {
	return c.FirstName == nil && c.LastName == nil && c.Username == nil && c.Email == nil && c.Credentials == nil
}

// Apply returns u with the changes applied.
func (c Changes) Apply(u User) User {
	if c.FirstName != nil {
		u.FirstName = *c.FirstName
	}
	if c.LastName != nil {
		u.LastName = *c.LastName
	}
	if c.Username != nil {
		u.Username = *c.Username
	}
	if c.Email != nil {
		u.Email = *c.Email
	}
	if c.Credentials != nil {
		u.PasswordHash = c.Credentials.PasswordHash
		enc := c.Credentials.EncryptedPassword
		u.EncryptedPassword = &enc
	}
	return u
}

// Public is the identity view returned on login.
type Public struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (u User) Public() Public {
	return Public{ID: u.ID, Username: u.Username, Role: u.Role}
}

// Profile is a user without any password material.
type Profile struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
