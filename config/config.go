package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultUploadMaxBytes caps spreadsheet uploads when UPLOAD_MAX_BYTES is unset
const DefaultUploadMaxBytes = 10 << 20

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	// Logging
	LogLevel string
	LogFile  string
	// Admin access
	AdminUsername     string
	AdminPasswordHash string
	// Uploads
	UploadMaxBytes int64
	AllowedOrigins []string
	// Turso / libSQL
	TursoDatabaseURL string
	TursoAuthToken   string
	// Legacy set archive copies
	ArchiveDir        string
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "db/catalogue.db"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		LogFile:           getEnv("LOG_FILE", ""),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		UploadMaxBytes:    getEnvInt64("UPLOAD_MAX_BYTES", DefaultUploadMaxBytes),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TursoDatabaseURL:  getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:    getEnv("TURSO_AUTH_TOKEN", ""),
		ArchiveDir:        getEnv("ARCHIVE_DIR", ""),
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
	}
}

// Validate reports settings that cannot work together
func (c *Config) Validate() error {
	var errs []error
	if c.Environment == "production" && c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is required in production"))
	}
	if c.AdminPasswordHash != "" && !strings.HasPrefix(c.AdminPasswordHash, "$2") {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH must be a bcrypt hash"))
	}
	if c.TursoDatabaseURL != "" && c.TursoAuthToken == "" && !strings.HasPrefix(c.TursoDatabaseURL, "file:") {
		errs = append(errs, errors.New("TURSO_AUTH_TOKEN is required for remote databases"))
	}
	if c.UploadMaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("[WARNING] Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
