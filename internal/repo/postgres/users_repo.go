package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/salesdesk/internal/domain/user"
	"github.com/geocoder89/salesdesk/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, encrypted_password, role, created_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *UsersRepo) FindByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.observe("users.find_by_id", func() error {
		row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
		var err error
		u, err = scanUser(row)
		return err
	})

	return u, notFound(err)
}

func (r *UsersRepo) FindByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User

	err := r.observe("users.find_by_username", func() error {
		row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
		var err error
		u, err = scanUser(row)
		return err
	})

	return u, notFound(err)
}

// FindByUsernameOrEmail ignores empty arguments. excludeID 0 excludes nothing.
func (r *UsersRepo) FindByUsernameOrEmail(ctx context.Context, username, email string, excludeID int64) (user.User, error) {
	var conds []string
	var args []any
	argsPosition := 1

	if username != "" {
		conds = append(conds, fmt.Sprintf("username = $%d", argsPosition))
		args = append(args, username)
		argsPosition++
	}
	if email != "" {
		conds = append(conds, fmt.Sprintf("email = $%d", argsPosition))
		args = append(args, email)
		argsPosition++
	}

	if len(conds) == 0 {
		return user.User{}, user.ErrNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE (` + strings.Join(conds, " OR ") + `)`
	if excludeID != 0 {
		query += fmt.Sprintf(" AND id <> $%d", argsPosition)
		args = append(args, excludeID)
	}
	query += " ORDER BY id ASC LIMIT 1"

	var u user.User
	err := r.observe("users.find_by_username_or_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	return u, notFound(err)
}

func (r *UsersRepo) ListByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.observe("users.list_by_role", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id ASC`, string(role))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) Create(ctx context.Context, n user.New) (user.User, error) {
	var u user.User

	err := r.observe("users.create", func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO users (username, email, first_name, last_name, password_hash, encrypted_password, role)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+userColumns,
			n.Username, n.Email, n.FirstName, n.LastName,
			n.Credentials.PasswordHash, n.Credentials.EncryptedPassword, string(n.Role),
		)
		var err error
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrUsernameOrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

// Update writes only the fields set in c. Password hash and cipher token are
// always written together.
func (r *UsersRepo) Update(ctx context.Context, id int64, c user.Changes) (user.User, error) {
	var sets []string
	var args []any
	argsPosition := 1

	set := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argsPosition))
		args = append(args, v)
		argsPosition++
	}

	if c.FirstName != nil {
		set("first_name", *c.FirstName)
	}
	if c.LastName != nil {
		set("last_name", *c.LastName)
	}
	if c.Username != nil {
		set("username", *c.Username)
	}
	if c.Email != nil {
		set("email", *c.Email)
	}
	if c.Credentials != nil {
		set("password_hash", c.Credentials.PasswordHash)
		set("encrypted_password", c.Credentials.EncryptedPassword)
	}

	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(` WHERE id = $%d RETURNING `, argsPosition) + userColumns
	args = append(args, id)

	var u user.User
	err := r.observe("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrUsernameOrEmailTaken
		}
		return user.User{}, notFound(err)
	}

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	var tag pgconn.CommandTag

	err := r.observe("users.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.EncryptedPassword,
		&role,
		&u.CreatedAt,
	)
	if err != nil {
		return user.User{}, err
	}

	u.Role = user.Role(role)
	return u, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}
	return err
}
