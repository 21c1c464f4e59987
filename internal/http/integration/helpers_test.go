package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/salesdesk/internal/auth"
	"github.com/geocoder89/salesdesk/internal/config"
	"github.com/geocoder89/salesdesk/internal/db"
	apphttp "github.com/geocoder89/salesdesk/internal/http"
	"github.com/geocoder89/salesdesk/internal/observability"
	"github.com/geocoder89/salesdesk/internal/repo/cached"
	"github.com/geocoder89/salesdesk/internal/salesperson"
	"github.com/geocoder89/salesdesk/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminUsername = "admin"
	adminPassword = "admin123"
)

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		EncryptionKey:  []byte("0123456789abcdef0123456789abcdef"),
		JWTSecret:      "test-secret-key",
		JWTTTL:         time.Hour,
		BcryptCost:     bcrypt.MinCost,
		AdminUsername:  adminUsername,
		AdminEmail:     "admin@example.com",
		AdminPassword:  adminPassword,
		AdminFirstName: "Admin",
		AdminLastName:  "User",
	}
}

type app struct {
	router *gin.Engine
	store  cached.Store
	tokens *auth.Manager
	reg    *prometheus.Registry
}

// newApp wires the same graph as cmd/api on top of store.
func newApp(t *testing.T, store cached.Store) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	cipher, err := security.NewCipher(cfg.EncryptionKey)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	policy := security.NewPasswordPolicy(security.NewHasher(cfg.BcryptCost), cipher).WithObserver(prom)

	if err := db.EnsureAdminUser(context.Background(), store, policy, cfg); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	router := apphttp.NewRouter(apphttp.Deps{
		Env:          cfg.Env,
		Auth:         auth.NewAuthenticator(store, policy, tokens).WithObserver(prom),
		Tokens:       tokens,
		Salespersons: salesperson.NewService(store, policy),
		Prom:         prom,
		Gatherer:     reg,
	})

	return &app{router: router, store: store, tokens: tokens, reg: reg}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *app) login(t *testing.T, username, password string) string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: got status %d, body=%s", username, w.Code, w.Body.String())
	}

	var s auth.Session
	decode(t, w, &s)
	if s.Token == "" {
		t.Fatalf("login %s: empty token", username)
	}
	return s.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body: %v body=%s", err, w.Body.String())
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, want, w.Body.String())
	}
}

type salespersonJSON struct {
	ID            int64   `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Role          string  `json:"role"`
	PlainPassword *string `json:"plainPassword"`
}

type errorJSON struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}
