package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rpupo63/portfolio-site-backend/errs"
)

const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Env      string
	LogLevel string

	Server   ServerConfig
	Supabase SupabaseConfig
	Database DatabaseConfig
	Backup   BackupConfig

	// ContentBackend selects where the content cache reads and writes:
	// "rest" goes through the hosted REST API, "postgres" talks to the
	// database directly.
	ContentBackend string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AcceptedOrigins []string
	MaxUploadSize   int64
	RateLimit       int // requests per minute per IP on sign-in and contact
}

type SupabaseConfig struct {
	URL          string
	AnonKey      string
	TokenFile    string
	HTTPTimeout  time.Duration
	VideosBucket string
	ImagesBucket string
}

type DatabaseConfig struct {
	Host          string
	User          string
	Password      string
	Name          string
	Port          string
	SSLMode       string
	RunMigrations bool
}

type BackupConfig struct {
	Dir           string
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3Prefix      string
	S3AccessKeyID string
	S3SecretKey   string
}

// S3Enabled reports whether an S3-compatible backup target is configured.
func (b BackupConfig) S3Enabled() bool {
	return b.S3Bucket != ""
}

// DSN returns the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// Load builds a Config from an environment map as returned by New.
func Load(c map[string]string) (Config, error) {
	cfg := Config{
		Env:      GetString(c, "ENV", "production"),
		LogLevel: GetString(c, "LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:            GetString(c, "PORT", "8080"),
			ReadTimeout:     GetDuration(c, "READ_TIMEOUT_SECONDS", 180*time.Second),
			WriteTimeout:    GetDuration(c, "WRITE_TIMEOUT_SECONDS", 180*time.Second),
			IdleTimeout:     GetDuration(c, "IDLE_TIMEOUT_SECONDS", 180*time.Second),
			ShutdownTimeout: GetDuration(c, "SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
			AcceptedOrigins: GetList(c, "ACCEPTED_ORIGINS"),
			MaxUploadSize:   int64(GetInt(c, "MAX_UPLOAD_MB", 500)) << 20,
			RateLimit:       GetInt(c, "RATE_LIMIT_PER_MINUTE", 10),
		},
		Supabase: SupabaseConfig{
			URL:          strings.TrimSuffix(GetString(c, "SUPABASE_URL", ""), "/"),
			AnonKey:      GetString(c, "SUPABASE_ANON_KEY", ""),
			TokenFile:    GetString(c, "SUPABASE_TOKEN_FILE", ".supabase-session.json"),
			HTTPTimeout:  GetDuration(c, "SUPABASE_HTTP_TIMEOUT", 60*time.Second),
			VideosBucket: GetString(c, "SUPABASE_VIDEOS_BUCKET", "videos"),
			ImagesBucket: GetString(c, "SUPABASE_IMAGES_BUCKET", "images"),
		},
		Database: DatabaseConfig{
			Host:          GetString(c, "SUPABASE_DB_HOST", ""),
			User:          GetString(c, "SUPABASE_DB_USER", ""),
			Password:      GetString(c, "SUPABASE_DB_PASSWORD", ""),
			Name:          GetString(c, "SUPABASE_DB_NAME", "postgres"),
			Port:          GetString(c, "SUPABASE_DB_PORT", "5432"),
			SSLMode:       GetString(c, "SUPABASE_DB_SSLMODE", "require"),
			RunMigrations: GetBool(c, "RUN_MIGRATIONS", false),
		},
		Backup: BackupConfig{
			Dir:           GetString(c, "BACKUP_DIR", ""),
			S3Endpoint:    GetString(c, "BACKUP_S3_ENDPOINT", ""),
			S3Region:      GetString(c, "BACKUP_S3_REGION", "us-east-1"),
			S3Bucket:      GetString(c, "BACKUP_S3_BUCKET", ""),
			S3Prefix:      GetString(c, "BACKUP_S3_PREFIX", "backups/"),
			S3AccessKeyID: GetString(c, "BACKUP_S3_ACCESS_KEY_ID", ""),
			S3SecretKey:   GetString(c, "BACKUP_S3_SECRET_ACCESS_KEY", ""),
		},
		ContentBackend: strings.ToLower(GetString(c, "CONTENT_BACKEND", BackendREST)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.Supabase.URL == "" {
		return errs.NewEnvironmentVariableError("SUPABASE_URL")
	}
	if u, err := url.Parse(c.Supabase.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return errs.NewConfigInvalidError("SUPABASE_URL", "must be an absolute URL")
	}
	if c.Supabase.AnonKey == "" {
		return errs.NewEnvironmentVariableError("SUPABASE_ANON_KEY")
	}

	switch c.ContentBackend {
	case BackendREST:
	case BackendPostgres:
		if c.Database.Host == "" {
			return errs.NewEnvironmentVariableError("SUPABASE_DB_HOST")
		}
	default:
		return errs.NewConfigInvalidError("CONTENT_BACKEND", fmt.Sprintf("unsupported value %q", c.ContentBackend))
	}

	if c.Backup.S3Enabled() && (c.Backup.S3AccessKeyID == "" || c.Backup.S3SecretKey == "") {
		return errs.NewConfigInvalidError("BACKUP_S3_BUCKET", "S3 credentials are required when a backup bucket is set")
	}
	return nil
}
