package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/salesdesk/internal/domain/user"
)

// UsersRepo keeps users in a map. Uniqueness of username and email is
// checked under the write lock, so concurrent creates cannot both win.
type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		nextID: 1,
		items:  make(map[int64]user.User),
	}
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return clone(u), nil
}

func (r *UsersRepo) FindByUsername(ctx context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Username == username {
			return clone(u), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) FindByUsernameOrEmail(ctx context.Context, username, email string, excludeID int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.conflictLocked(username, email, excludeID); ok {
		return clone(u), nil
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) ListByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0)
	for _, u := range r.items {
		if u.Role == role {
			out = append(out, clone(u))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UsersRepo) Create(ctx context.Context, n user.New) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.conflictLocked(n.Username, n.Email, 0); taken {
		return user.User{}, user.ErrUsernameOrEmailTaken
	}

	enc := n.Credentials.EncryptedPassword
	u := user.User{
		ID:                r.nextID,
		Username:          n.Username,
		Email:             n.Email,
		FirstName:         n.FirstName,
		LastName:          n.LastName,
		PasswordHash:      n.Credentials.PasswordHash,
		EncryptedPassword: &enc,
		Role:              n.Role,
		CreatedAt:         time.Now().UTC(),
	}
	r.nextID++
	r.items[u.ID] = u

	return clone(u), nil
}

func (r *UsersRepo) Update(ctx context.Context, id int64, c user.Changes) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	updated := c.Apply(existing)
	if _, taken := r.conflictLocked(changedOnly(updated.Username, existing.Username), changedOnly(updated.Email, existing.Email), id); taken {
		return user.User{}, user.ErrUsernameOrEmailTaken
	}

	r.items[id] = updated
	return clone(updated), nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *UsersRepo) conflictLocked(username, email string, excludeID int64) (user.User, bool) {
	for _, u := range r.items {
		if u.ID == excludeID {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return u, true
		}
	}
	return user.User{}, false
}

func changedOnly(next, prev string) string {
	if next == prev {
		return ""
	}
	return next
}

// clone copies the encrypted password pointer so callers cannot mutate stored state.
func clone(u user.User) user.User {
	if u.EncryptedPassword != nil {
		enc := *u.EncryptedPassword
		u.EncryptedPassword = &enc
	}
	return u
}
