package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
	PublicBaseURL  string

	DatabaseURL string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	JWTSecret                string
	JWTTTL                   time.Duration
	DirectorRegistrationCode string
	SignedURLTTL             time.Duration

	RateLimitMessage  time.Duration
	RateLimitAPIRPS   float64
	RateLimitAPIBurst int

	CronCloseApplications string
	CronCleanupDocuments  string
	CronRetryPromotions   string
	OrphanDocumentGrace   time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		DatabaseURL: databaseURL(),
		RedisURL:    os.Getenv("REDIS_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "scholarhub"),

		JWTSecret:                getEnv("JWT_SECRET", defaultJWTSecret),
		DirectorRegistrationCode: os.Getenv("DIRECTOR_REGISTRATION_CODE"),

		CronCloseApplications: getEnv("CRON_CLOSE_APPLICATIONS", "*/5 * * * *"),
		CronCleanupDocuments:  getEnv("CRON_CLEANUP_DOCUMENTS", "30 3 * * *"),
		CronRetryPromotions:   getEnv("CRON_RETRY_PROMOTIONS", "*/10 * * * *"),
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"JWT_TTL", "72h", &cfg.JWTTTL},
		{"SIGNED_URL_TTL", "1h", &cfg.SignedURLTTL},
		{"RATE_LIMIT_MESSAGE", "500ms", &cfg.RateLimitMessage},
		{"ORPHAN_DOCUMENT_GRACE", "24h", &cfg.OrphanDocumentGrace},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	var err error
	cfg.RateLimitAPIRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_API_RPS", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_API_RPS: %w", err)
	}
	cfg.RateLimitAPIBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_API_BURST", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_API_BURST: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL or DB_* variables are required"))
	}
	if c.JWTTTL <= 0 || c.SignedURLTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL and SIGNED_URL_TTL must be positive"))
	}
	if c.RateLimitAPIRPS <= 0 || c.RateLimitAPIBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_API_RPS and RATE_LIMIT_API_BURST must be positive"))
	}
	if c.IsProduction() {
		if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET must be set in production"))
		}
		if c.DirectorRegistrationCode == "" {
			errs = append(errs, errors.New("DIRECTOR_REGISTRATION_CODE must be set in production"))
		}
	}
	return errors.Join(errs...)
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		host,
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASS"),
		os.Getenv("DB_NAME"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
