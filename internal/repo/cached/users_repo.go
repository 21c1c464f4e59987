// Package cached decorates a users store with a read-through, write-through
// cache for lookups by id. The generation guard is per process, so an
// in-process cache.Cache is only safe in front of a store no other process
// writes to.
package cached

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/salesdesk/internal/cache"
	"github.com/geocoder89/salesdesk/internal/domain/user"
)

type Store interface {
	Ping(ctx context.Context) error
	FindByID(ctx context.Context, id int64) (user.User, error)
	FindByUsername(ctx context.Context, username string) (user.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string, excludeID int64) (user.User, error)
	ListByRole(ctx context.Context, role user.Role) ([]user.User, error)
	Create(ctx context.Context, n user.New) (user.User, error)
	Update(ctx context.Context, id int64, c user.Changes) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

// Observer is told whether each FindByID was served from the cache.
type Observer interface {
	ObserveCache(hit bool)
}

// UsersRepo fills the cache on FindByID misses. Every write bumps the id's
// generation under mu, and a fill whose generation moved while it was reading
// the store is dropped, so a slow miss cannot overwrite a newer write.
type UsersRepo struct {
	Store
	cache cache.Store
	obs   Observer

	mu  sync.Mutex
	gen map[int64]uint64
}

func NewUsersRepo(next Store, c cache.Store) *UsersRepo {
	return &UsersRepo{Store: next, cache: c, gen: make(map[int64]uint64)}
}

func (r *UsersRepo) WithObserver(o Observer) *UsersRepo {
	r.obs = o
	return r
}

func (r *UsersRepo) observe(hit bool) {
	if r.obs != nil {
		r.obs.ObserveCache(hit)
	}
}

// record carries the fields User hides from JSON.
type record struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	PasswordHash      string    `json:"passwordHash"`
	EncryptedPassword *string   `json:"encryptedPassword"`
	Role              user.Role `json:"role"`
	CreatedAt         time.Time `json:"createdAt"`
}

func key(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

func (r *UsersRepo) FindByID(ctx context.Context, id int64) (user.User, error) {
	raw, ok, err := r.cache.Get(ctx, key(id))
	if err != nil {
		slog.Default().WarnContext(ctx, "cache_get_failed", "key", key(id), "err", err)
	}

	if ok {
		var rec record
		if err := json.Unmarshal(raw, &rec); err == nil {
			r.observe(true)
			return fromRecord(rec), nil
		}
	}
	r.observe(false)

	r.mu.Lock()
	gen := r.gen[id]
	r.mu.Unlock()

	u, err := r.Store.FindByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	r.mu.Lock()
	if r.gen[id] == gen {
		r.put(ctx, u)
	}
	r.mu.Unlock()

	return u, nil
}

// Update writes the stored result through to the cache.
func (r *UsersRepo) Update(ctx context.Context, id int64, c user.Changes) (user.User, error) {
	u, err := r.Store.Update(ctx, id, c)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen[id]++
	if err != nil {
		r.drop(ctx, id)
		return u, err
	}
	r.put(ctx, u)
	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	err := r.Store.Delete(ctx, id)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen[id]++
	r.drop(ctx, id)
	return err
}

// put and drop run with mu held.
func (r *UsersRepo) put(ctx context.Context, u user.User) {
	raw, err := json.Marshal(toRecord(u))
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key(u.ID), raw); err != nil {
		slog.Default().WarnContext(ctx, "cache_set_failed", "key", key(u.ID), "err", err)
	}
}

func (r *UsersRepo) drop(ctx context.Context, id int64) {
	if err := r.cache.Delete(ctx, key(id)); err != nil {
		slog.Default().WarnContext(ctx, "cache_delete_failed", "key", key(id), "err", err)
	}
}

func toRecord(u user.User) record {
	return record{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		PasswordHash:      u.PasswordHash,
		EncryptedPassword: u.EncryptedPassword,
		Role:              u.Role,
		CreatedAt:         u.CreatedAt,
	}
}

func fromRecord(r record) user.User {
	return user.User{
		ID:                r.ID,
		Username:          r.Username,
		Email:             r.Email,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		PasswordHash:      r.PasswordHash,
		EncryptedPassword: r.EncryptedPassword,
		Role:              r.Role,
		CreatedAt:         r.CreatedAt,
	}
}
