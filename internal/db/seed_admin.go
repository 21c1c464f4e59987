package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/salesdesk/internal/config"
	"github.com/geocoder89/salesdesk/internal/domain/user"
)

type AdminStore interface {
	FindByUsernameOrEmail(ctx context.Context, username, email string, excludeID int64) (user.User, error)
	Create(ctx context.Context, n user.New) (user.User, error)
}

type CredentialDeriver interface {
	Derive(plain string) (user.Credentials, error)
}

// EnsureAdminUser creates the configured administrator unless a user with the
// same username or email already exists. Credentials go through the same
// policy as salespersons.
func EnsureAdminUser(ctx context.Context, store AdminStore, passwords CredentialDeriver, cfg config.Config) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := store.FindByUsernameOrEmail(ctx, cfg.AdminUsername, cfg.AdminEmail, 0)
	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	creds, err := passwords.Derive(cfg.AdminPassword)
	if err != nil {
		return err
	}

	u, err := store.Create(ctx, user.New{
		Username:    cfg.AdminUsername,
		Email:       cfg.AdminEmail,
		FirstName:   cfg.AdminFirstName,
		LastName:    cfg.AdminLastName,
		Role:        user.RoleAdmin,
		Credentials: creds,
	})
	if errors.Is(err, user.ErrUsernameOrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}

	slog.Default().InfoContext(ctx, "admin_seeded", "user_id", u.ID, "username", u.Username)
	return nil
}
