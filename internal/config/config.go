package config

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/salesdesk/internal/security"
	"github.com/joho/godotenv"
)

const encryptionKeyLen = 32

type Config struct {
	Env        string
	Port       int
	DBURL      string
	DBMaxConns int
	Store      string

	// EncryptionKey is the decoded AES-256 key. Always 32 bytes after Load.
	EncryptionKey []byte
	JWTSecret     string
	JWTTTL        time.Duration
	BcryptCost    int

	AdminUsername  string
	AdminEmail     string
	AdminPassword  string
	AdminFirstName string
	AdminLastName  string

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	LogLevel string

	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceSampleRate float64
}

var (
	ErrMissingEncryptionKey = errors.New("ENCRYPTION_KEY is required")
	ErrBadEncryptionKey     = errors.New("ENCRYPTION_KEY must be base64 encoding of exactly 32 bytes")
	ErrMissingJWTSecret     = errors.New("JWT_SECRET is required")
	ErrSharedSecret         = errors.New("JWT_SECRET must differ from ENCRYPTION_KEY")
	ErrBadJWTTTL            = errors.New("JWT_TTL_HOURS must be positive")
)

// Load reads configuration from the environment, overlaying a .env file when
// one is present. Real environment variables win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	rawKey := os.Getenv("ENCRYPTION_KEY")
	key, err := decodeEncryptionKey(rawKey)
	if err != nil {
		return Config{}, err
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Config{}, ErrMissingJWTSecret
	}
	if secret == rawKey {
		return Config{}, ErrSharedSecret
	}

	jwtTTL := time.Duration(getEnvInt("JWT_TTL_HOURS", 8)) * time.Hour
	if jwtTTL <= 0 {
		return Config{}, ErrBadJWTTTL
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		dbURL = buildDBURL()
	}

	store := getEnv("STORE", "postgres")
	redisAddr := getEnv("REDIS_ADDR", "")

	// In-process caching defaults off in front of a shared database.
	defaultCacheTTL := 0
	if redisAddr != "" || store == "memory" {
		defaultCacheTTL = 30
	}

	return Config{
		Env:        getEnv("APP_ENV", "dev"),
		Port:       getEnvInt("PORT", 4000),
		DBURL:      dbURL,
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 5),
		Store:      store,

		EncryptionKey: key,
		JWTSecret:     secret,
		JWTTTL:        jwtTTL,
		BcryptCost:    getEnvInt("BCRYPT_COST", security.DefaultCost),

		AdminUsername:  getEnv("ADMIN_USERNAME", "admin"),
		AdminEmail:     getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AdminFirstName: getEnv("ADMIN_FIRST_NAME", "Admin"),
		AdminLastName:  getEnv("ADMIN_LAST_NAME", "User"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174,http://localhost:5175")),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		RedisAddr:     redisAddr,
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", defaultCacheTTL)) * time.Second,

		LogLevel: getEnv("LOG_LEVEL", ""),

		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:    getEnv("OTEL_EXPORTER_OTLP_INSECURE", "true") == "true",
		TraceSampleRate: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
	}, nil
}

func decodeEncryptionKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, ErrMissingEncryptionKey
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEncryptionKey, err)
	}

	if len(key) != encryptionKeyLen {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBadEncryptionKey, len(key))
	}

	return key, nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "salesdesk")
	pass := getEnv("DB_PASSWORD", "salesdesk")
	name := getEnv("DB_NAME", "salesdesk")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fallback
		}
		return f
	}
	return fallback
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
