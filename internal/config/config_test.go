package config

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func validKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "missing encryption key",
			env:     map[string]string{"JWT_SECRET": "s"},
			wantErr: ErrMissingEncryptionKey,
		},
		{
			name:    "encryption key not base64",
			env:     map[string]string{"ENCRYPTION_KEY": "%%%not-base64", "JWT_SECRET": "s"},
			wantErr: ErrBadEncryptionKey,
		},
		{
			name:    "encryption key wrong length",
			env:     map[string]string{"ENCRYPTION_KEY": base64.StdEncoding.EncodeToString([]byte("short")), "JWT_SECRET": "s"},
			wantErr: ErrBadEncryptionKey,
		},
		{
			name:    "missing jwt secret",
			env:     map[string]string{"ENCRYPTION_KEY": validKey()},
			wantErr: ErrMissingJWTSecret,
		},
		{
			name:    "jwt secret equals encryption key",
			env:     map[string]string{"ENCRYPTION_KEY": validKey(), "JWT_SECRET": validKey()},
			wantErr: ErrSharedSecret,
		},
		{
			name:    "zero jwt ttl",
			env:     map[string]string{"ENCRYPTION_KEY": validKey(), "JWT_SECRET": "s", "JWT_TTL_HOURS": "0"},
			wantErr: ErrBadJWTTTL,
		},
		{
			name:    "negative jwt ttl",
			env:     map[string]string{"ENCRYPTION_KEY": validKey(), "JWT_SECRET": "s", "JWT_TTL_HOURS": "-3"},
			wantErr: ErrBadJWTTTL,
		},
		{
			name: "valid",
			env:  map[string]string{"ENCRYPTION_KEY": validKey(), "JWT_SECRET": "another-secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENCRYPTION_KEY", "")
			t.Setenv("JWT_SECRET", "")
			t.Setenv("JWT_TTL_HOURS", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(cfg.EncryptionKey) != 32 {
				t.Fatalf("key length got %d, want 32", len(cfg.EncryptionKey))
			}
			if cfg.JWTTTL != 8*time.Hour {
				t.Fatalf("jwt ttl got %s, want 8h", cfg.JWTTTL)
			}
			if cfg.BcryptCost != 10 {
				t.Fatalf("bcrypt cost got %d, want 10", cfg.BcryptCost)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,c")
	if strings.Join(got, "|") != "a|b|c" {
		t.Fatalf("got %v", got)
	}
}

func TestLoad_CacheTTLDefault(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want time.Duration
	}{
		{"postgres without redis", map[string]string{"STORE": "postgres"}, 0},
		{"postgres with redis", map[string]string{"STORE": "postgres", "REDIS_ADDR": "localhost:6379"}, 30 * time.Second},
		{"memory store", map[string]string{"STORE": "memory"}, 30 * time.Second},
		{"explicit ttl", map[string]string{"STORE": "postgres", "CACHE_TTL_SECONDS": "5"}, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENCRYPTION_KEY", validKey())
			t.Setenv("JWT_SECRET", "another-secret")
			t.Setenv("JWT_TTL_HOURS", "")
			t.Setenv("STORE", "")
			t.Setenv("REDIS_ADDR", "")
			t.Setenv("CACHE_TTL_SECONDS", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.CacheTTL != tt.want {
				t.Fatalf("cache ttl got %s, want %s", cfg.CacheTTL, tt.want)
			}
		})
	}
}
