// Package salesperson manages SALESPERSON accounts on behalf of administrators,
// including recovery of their plaintext passwords.
package salesperson

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/salesdesk/internal/domain/user"
	"github.com/geocoder89/salesdesk/internal/security"
)

var (
	ErrMissingFields    = errors.New("all fields are required")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrNotSalesperson   = errors.New("not a salesperson")
)

// IsValidation reports whether err is caused by the caller's input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrPasswordMismatch) ||
		errors.Is(err, ErrPasswordTooLong) ||
		errors.Is(err, ErrNotSalesperson)
}

// Store is the credential store the service needs.
type Store interface {
	FindByID(ctx context.Context, id int64) (user.User, error)
	// FindByUsernameOrEmail matches either field, ignoring empty arguments and
	// the record with excludeID (0 excludes nothing).
	FindByUsernameOrEmail(ctx context.Context, username, email string, excludeID int64) (user.User, error)
	ListByRole(ctx context.Context, role user.Role) ([]user.User, error)
	Create(ctx context.Context, u user.New) (user.User, error)
	Update(ctx context.Context, id int64, c user.Changes) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

type Passwords interface {
	Derive(plain string) (user.Credentials, error)
	Reveal(token *string) (*string, error)
}

// View is a salesperson as shown to an administrator.
type View struct {
	user.Profile
	PlainPassword *string `json:"plainPassword"`
}

type CreateInput struct {
	FirstName       string
	LastName        string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// UpdateInput fields that are nil or empty are not changed.
type UpdateInput struct {
	FirstName       *string
	LastName        *string
	Username        *string
	Email           *string
	Password        *string
	ConfirmPassword *string
}

type Service struct {
	store     Store
	passwords Passwords
}

func NewService(store Store, passwords Passwords) *Service {
	return &Service{store: store, passwords: passwords}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (user.Profile, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.FirstName == "" || in.LastName == "" || in.Username == "" || in.Email == "" ||
		in.Password == "" || in.ConfirmPassword == "" {
		return user.Profile{}, ErrMissingFields
	}

	if in.Password != in.ConfirmPassword {
		return user.Profile{}, ErrPasswordMismatch
	}

	if err := s.ensureUnique(ctx, in.Username, in.Email, 0); err != nil {
		return user.Profile{}, err
	}

	creds, err := s.derive(in.Password)
	if err != nil {
		return user.Profile{}, err
	}

	created, err := s.store.Create(ctx, user.New{
		Username:    in.Username,
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Role:        user.RoleSalesperson,
		Credentials: creds,
	})
	if err != nil {
		return user.Profile{}, err
	}

	return created.Profile(), nil
}

func (s *Service) List(ctx context.Context) ([]View, error) {
	users, err := s.store.ListByRole(ctx, user.RoleSalesperson)
	if err != nil {
		return nil, err
	}

	out := make([]View, 0, len(users))
	for _, u := range users {
		v, err := s.view(u)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (View, error) {
	u, err := s.findSalesperson(ctx, id)
	if err != nil {
		return View{}, err
	}

	return s.view(u)
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (user.Profile, error) {
	existing, err := s.findSalesperson(ctx, id)
	if err != nil {
		return user.Profile{}, err
	}

	password, hasPassword := supplied(in.Password)
	confirm, hasConfirm := supplied(in.ConfirmPassword)
	if (hasPassword || hasConfirm) && password != confirm {
		return user.Profile{}, ErrPasswordMismatch
	}

	var changes user.Changes

	if v, ok := suppliedTrimmed(in.FirstName); ok {
		changes.FirstName = &v
	}
	if v, ok := suppliedTrimmed(in.LastName); ok {
		changes.LastName = &v
	}

	var checkUsername, checkEmail string
	if v, ok := suppliedTrimmed(in.Username); ok {
		changes.Username = &v
		if v != existing.Username {
			checkUsername = v
		}
	}
	if v, ok := suppliedTrimmed(in.Email); ok {
		changes.Email = &v
		if v != existing.Email {
			checkEmail = v
		}
	}

	if checkUsername != "" || checkEmail != "" {
		if err := s.ensureUnique(ctx, checkUsername, checkEmail, id); err != nil {
			return user.Profile{}, err
		}
	}

	if hasPassword {
		creds, err := s.derive(password)
		if err != nil {
			return user.Profile{}, err
		}
		changes.Credentials = &creds
	}

	if changes.Empty() {
		return existing.Profile(), nil
	}

	updated, err := s.store.Update(ctx, id, changes)
	if err != nil {
		return user.Profile{}, err
	}

	return updated.Profile(), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.findSalesperson(ctx, id); err != nil {
		return err
	}

	return s.store.Delete(ctx, id)
}

func (s *Service) findSalesperson(ctx context.Context, id int64) (user.User, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	switch u.Role {
	case user.RoleSalesperson:
		return u, nil
	case user.RoleAdmin:
		return user.User{}, ErrNotSalesperson
	default:
		return user.User{}, fmt.Errorf("%w: stored role %q", user.ErrUnknownRole, u.Role)
	}
}

func (s *Service) ensureUnique(ctx context.Context, username, email string, excludeID int64) error {
	_, err := s.store.FindByUsernameOrEmail(ctx, username, email, excludeID)
	if err == nil {
		return user.ErrUsernameOrEmailTaken
	}
	if errors.Is(err, user.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) derive(plain string) (user.Credentials, error) {
	creds, err := s.passwords.Derive(plain)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return user.Credentials{}, ErrPasswordTooLong
		}
		return user.Credentials{}, err
	}
	return creds, nil
}

func (s *Service) view(u user.User) (View, error) {
	plain, err := s.passwords.Reveal(u.EncryptedPassword)
	if err != nil {
		return View{}, fmt.Errorf("reveal password for user %d: %w", u.ID, err)
	}

	return View{Profile: u.Profile(), PlainPassword: plain}, nil
}

func supplied(p *string) (string, bool) {
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}

func suppliedTrimmed(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	v := strings.TrimSpace(*p)
	return v, v != ""
}
