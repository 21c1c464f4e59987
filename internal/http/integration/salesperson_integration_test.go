package integration_test

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/salesdesk/internal/cache"
	"github.com/geocoder89/salesdesk/internal/db"
	"github.com/geocoder89/salesdesk/internal/domain/user"
	"github.com/geocoder89/salesdesk/internal/repo/cached"
	"github.com/geocoder89/salesdesk/internal/repo/memory"
	"github.com/geocoder89/salesdesk/internal/repo/postgres"
)

func sp1() map[string]string {
	return map[string]string{
		"firstName":       "A",
		"lastName":        "B",
		"username":        "sp1",
		"email":           "sp1@x.com",
		"password":        "pass123",
		"confirmPassword": "pass123",
	}
}

// stores yields every backend the suite runs against. Postgres joins when
// TEST_DB_DSN points at a disposable database.
func stores(t *testing.T) map[string]func(t *testing.T) cached.Store {
	out := map[string]func(t *testing.T) cached.Store{
		"memory": func(t *testing.T) cached.Store { return memory.NewUsersRepo() },
		"memory+cache": func(t *testing.T) cached.Store {
			return cached.NewUsersRepo(memory.NewUsersRepo(), cache.New(time.Minute))
		},
	}

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		return out
	}

	out["postgres"] = func(t *testing.T) cached.Store {
		ctx := context.Background()
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: dsn, MaxConns: 4})
		if err != nil {
			t.Fatalf("failed to create pgx pool: %v", err)
		}
		t.Cleanup(pool.Close)

		if err := db.Migrate(ctx, pool); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		if _, err := pool.Exec(ctx, `TRUNCATE users RESTART IDENTITY CASCADE`); err != nil {
			t.Fatalf("failed to truncate users: %v", err)
		}
		return postgres.NewUsersRepo(pool, nil)
	}
	return out
}

func forEachStore(t *testing.T, fn func(t *testing.T, a *app)) {
	for name, mk := range stores(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, newApp(t, mk(t)))
		})
	}
}

func TestCreateThenGetRevealsPassword(t *testing.T) {
	forEachStore(t, func(t *testing.T, a *app) {
		token := a.login(t, adminUsername, adminPassword)

		w := a.do(t, http.MethodPost, "/api/salesperson", token, sp1())
		expectStatus(t, w, http.StatusCreated)

		var created struct {
			User          salespersonJSON `json:"user"`
			PlainPassword string          `json:"plainPassword"`
		}
		decode(t, w, &created)
		if created.PlainPassword != "pass123" || created.User.Role != "SALESPERSON" {
			t.Fatalf("unexpected create body: %s", w.Body.String())
		}

		w = a.do(t, http.MethodGet, "/api/salesperson/"+strconv.FormatInt(created.User.ID, 10), token, nil)
		expectStatus(t, w, http.StatusOK)

		var got struct {
			User salespersonJSON `json:"user"`
		}
		decode(t, w, &got)
		if got.User.PlainPassword == nil || *got.User.PlainPassword != "pass123" {
			t.Fatalf("plainPassword not recovered: %s", w.Body.String())
		}

		stored, err := a.store.FindByID(context.Background(), created.User.ID)
		if err != nil {
			t.Fatalf("find stored: %v", err)
		}
		if stored.PasswordHash == "" || stored.EncryptedPassword == nil || *stored.EncryptedPassword == "pass123" {
			t.Fatalf("stored credentials look wrong: %+v", stored)
		}

		// the new salesperson can log in with the same password
		a.login(t, "sp1", "pass123")
	})
}

func TestSalespersonTokenIsForbidden(t *testing.T) {
	forEachStore(t, func(t *testing.T, a *app) {
		admin := a.login(t, adminUsername, adminPassword)
		expectStatus(t, a.do(t, http.MethodPost, "/api/salesperson", admin, sp1()), http.StatusCreated)

		token := a.login(t, "sp1", "pass123")

		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/api/salesperson"},
			{http.MethodGet, "/api/salesperson/1"},
			{http.MethodDelete, "/api/salesperson/2"},
		} {
			w := a.do(t, tc.method, tc.path, token, nil)
			expectStatus(t, w, http.StatusForbidden)

			var e errorJSON
			decode(t, w, &e)
			if e.Error.Message != "Forbidden" {
				t.Fatalf("got message %q", e.Error.Message)
			}
		}

		expectStatus(t, a.do(t, http.MethodGet, "/api/salesperson", "", nil), http.StatusUnauthorized)
		expectStatus(t, a.do(t, http.MethodGet, "/api/salesperson", "garbage", nil), http.StatusUnauthorized)
	})
}

func TestLoginValidation(t *testing.T) {
	forEachStore(t, func(t *testing.T, a *app) {
		w := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": adminUsername})
		expectStatus(t, w, http.StatusBadRequest)

		wrong := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": adminUsername, "password": "nope"})
		unknown := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ghost", "password": "nope"})
		expectStatus(t, wrong, http.StatusUnauthorized)
		expectStatus(t, unknown, http.StatusUnauthorized)

		var e1, e2 errorJSON
		decode(t, wrong, &e1)
		decode(t, unknown, &e2)
		if e1.Error.Message != e2.Error.Message || e1.Error.Code != e2.Error.Code {
			t.Fatalf("login errors differ: %+v vs %+v", e1, e2)
		}

		bad := a.do(t, http.MethodPost, "/api/auth/login", "", `{"username":`)
		expectStatus(t, bad, http.StatusBadRequest)
	})
}

func TestDuplicateUsernameLeavesStoreUnchanged(t *testing.T) {
	forEachStore(t, func(t *testing.T, a *app) {
		token := a.login(t, adminUsername, adminPassword)
		expectStatus(t, a.do(t, http.MethodPost, "/api/salesperson", token, sp1()), http.StatusCreated)

		dup := sp1()
		dup["email"] = "other@x.com"
		w := a.do(t, http.MethodPost, "/api/salesperson", token, dup)
		expectStatus(t, w, http.StatusConflict)

		list, err := a.store.ListByRole(context.Background(), user.RoleSalesperson)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 || list[0].Email != "sp1@x.com" {
			t.Fatalf("store changed: %+v", list)
		}
	})
}

func TestPartialUpdateKeepsOtherFields(t *testing.T) {
	forEachStore(t, func(t *testing.T, a *app) {
		token := a.login(t, adminUsername, adminPassword)

		w := a.do(t, http.MethodPost, "/api/salesperson", token, sp1())
		expectStatus(t, w, http.StatusCreated)
		var created struct {
			User salespersonJSON `json:"user"`
		}
		decode(t, w, &created)
		path := "/api/salesperson/" + strconv.FormatInt(created.User.ID, 10)

		before, _ := a.store.FindByID(context.Background(), created.User.ID)

		expectStatus(t, a.do(t, http.MethodPut, path, token, map[string]string{"firstName": "Z"}), http.StatusOK)

		after, err := a.store.FindByID(context.Background(), created.User.ID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if after.FirstName != "Z" || after.LastName != before.LastName || after.Username != before.Username ||
			after.Email != before.Email || after.PasswordHash != before.PasswordHash ||
			*after.EncryptedPassword != *before.EncryptedPassword {
			t.Fatalf("unexpected changes: before=%+v after=%+v", before, after)
		}

		w = a.do(t, http.MethodPut, path, token, map[string]string{"password": "newpass", "confirmPassword": "newpass"})
		expectStatus(t, w, http.StatusOK)
		if !strings.Contains(w.Body.String(), `"plainPassword":"newpass"`) {
			t.Fatalf("expected plainPassword echo: %s", w.Body.String())
		}

		w = a.do(t, http.MethodGet, path, token, nil)
		if !strings.Contains(w.Body.String(), `"plainPassword":"newpass"`) {
			t.Fatalf("expected recovered new password: %s", w.Body.String())
		}

		a.login(t, "sp1", "newpass")
	})
}

func TestAdminRecordsAreProtected(t *testing.T) {
	forEachStore(t, func(t *testing.T, a *app) {
		token := a.login(t, adminUsername, adminPassword)

		admin, err := a.store.FindByUsername(context.Background(), adminUsername)
		if err != nil {
			t.Fatalf("find admin: %v", err)
		}
		path := "/api/salesperson/" + strconv.FormatInt(admin.ID, 10)

		expectStatus(t, a.do(t, http.MethodGet, path, token, nil), http.StatusBadRequest)
		expectStatus(t, a.do(t, http.MethodDelete, path, token, nil), http.StatusBadRequest)

		if _, err := a.store.FindByID(context.Background(), admin.ID); err != nil {
			t.Fatalf("admin should still exist: %v", err)
		}

		w := a.do(t, http.MethodGet, "/api/salesperson", token, nil)
		expectStatus(t, w, http.StatusOK)
		if strings.Contains(w.Body.String(), `"ADMIN"`) {
			t.Fatalf("list leaked admin: %s", w.Body.String())
		}
	})
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, a *app) {
		token := a.login(t, adminUsername, adminPassword)

		w := a.do(t, http.MethodPost, "/api/salesperson", token, sp1())
		var created struct {
			User salespersonJSON `json:"user"`
		}
		decode(t, w, &created)
		path := "/api/salesperson/" + strconv.FormatInt(created.User.ID, 10)

		expectStatus(t, a.do(t, http.MethodDelete, path, token, nil), http.StatusOK)
		expectStatus(t, a.do(t, http.MethodGet, path, token, nil), http.StatusNotFound)
		expectStatus(t, a.do(t, http.MethodDelete, path, token, nil), http.StatusNotFound)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	a := newApp(t, memory.NewUsersRepo())
	a.login(t, adminUsername, adminPassword)

	w := a.do(t, http.MethodGet, "/metrics", "", nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `salesdesk_auth_login_attempts_total{result="ok"} 1`) {
		t.Fatalf("login counter missing from /metrics")
	}
}
