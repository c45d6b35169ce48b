package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	S3     S3Config
	CORS   CORSConfig
	Recon  ReconConfig
	Ingest IngestConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for archived run exports.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ReconConfig holds matching engine settings.
type ReconConfig struct {
	DateWindowDays    int           `mapstructure:"date_window_days"`
	ValueTolerancePct float64       `mapstructure:"value_tolerance_pct"`
	ExactThreshold    float64       `mapstructure:"exact_threshold"`
	FuzzyThreshold    float64       `mapstructure:"fuzzy_threshold"`
	MaxBucketSize     int           `mapstructure:"max_bucket_size"`
	MaxSplitGroup     int           `mapstructure:"max_split_group"`
	GSTINTopK         int           `mapstructure:"gstin_topk"`
	Workers           int           `mapstructure:"workers"`
	JobDeadline       time.Duration `mapstructure:"job_deadline"`
}

// IngestConfig holds upload limits for ledger files.
type IngestConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// Load reads configuration from environment variables with the GSTRECON_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GSTRECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "gstrecon")
	v.SetDefault("db.password", "gstrecon_secret")
	v.SetDefault("db.name", "gstrecon_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "gstrecon-exports")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Matching defaults
	v.SetDefault("recon.date_window_days", 3)
	v.SetDefault("recon.value_tolerance_pct", 1.0)
	v.SetDefault("recon.exact_threshold", 0.95)
	v.SetDefault("recon.fuzzy_threshold", 0.65)
	v.SetDefault("recon.max_bucket_size", 500)
	v.SetDefault("recon.max_split_group", 5)
	v.SetDefault("recon.gstin_topk", 3)
	v.SetDefault("recon.workers", 4)
	v.SetDefault("recon.job_deadline", "5m")

	// Ingest defaults
	v.SetDefault("ingest.max_file_size_mb", 50)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":               "GSTRECON_SERVER_PORT",
		"server.read_timeout":       "GSTRECON_SERVER_READ_TIMEOUT",
		"server.write_timeout":      "GSTRECON_SERVER_WRITE_TIMEOUT",
		"server.environment":        "GSTRECON_SERVER_ENVIRONMENT",
		"db.host":                   "GSTRECON_DB_HOST",
		"db.port":                   "GSTRECON_DB_PORT",
		"db.user":                   "GSTRECON_DB_USER",
		"db.password":               "GSTRECON_DB_PASSWORD",
		"db.name":                   "GSTRECON_DB_NAME",
		"db.sslmode":                "GSTRECON_DB_SSLMODE",
		"db.max_open":               "GSTRECON_DB_MAX_OPEN",
		"db.max_idle":               "GSTRECON_DB_MAX_IDLE",
		"s3.region":                 "GSTRECON_S3_REGION",
		"s3.bucket":                 "GSTRECON_S3_BUCKET",
		"s3.endpoint":               "GSTRECON_S3_ENDPOINT",
		"s3.access_key":             "GSTRECON_S3_ACCESS_KEY",
		"s3.secret_key":             "GSTRECON_S3_SECRET_KEY",
		"s3.presign_expiry":         "GSTRECON_S3_PRESIGN_EXPIRY",
		"cors.allowed_origins":      "GSTRECON_CORS_ALLOWED_ORIGINS",
		"recon.date_window_days":    "GSTRECON_RECON_DATE_WINDOW_DAYS",
		"recon.value_tolerance_pct": "GSTRECON_RECON_VALUE_TOLERANCE_PCT",
		"recon.exact_threshold":     "GSTRECON_RECON_EXACT_THRESHOLD",
		"recon.fuzzy_threshold":     "GSTRECON_RECON_FUZZY_THRESHOLD",
		"recon.max_bucket_size":     "GSTRECON_RECON_MAX_BUCKET_SIZE",
		"recon.max_split_group":     "GSTRECON_RECON_MAX_SPLIT_GROUP",
		"recon.gstin_topk":          "GSTRECON_RECON_GSTIN_TOPK",
		"recon.workers":             "GSTRECON_RECON_WORKERS",
		"recon.job_deadline":        "GSTRECON_RECON_JOB_DEADLINE",
		"ingest.max_file_size_mb":   "GSTRECON_INGEST_MAX_FILE_SIZE_MB",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if GSTRECON_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("GSTRECON_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}
	cfg.Recon = ReconConfig{
		DateWindowDays:    v.GetInt("recon.date_window_days"),
		ValueTolerancePct: v.GetFloat64("recon.value_tolerance_pct"),
		ExactThreshold:    v.GetFloat64("recon.exact_threshold"),
		FuzzyThreshold:    v.GetFloat64("recon.fuzzy_threshold"),
		MaxBucketSize:     v.GetInt("recon.max_bucket_size"),
		MaxSplitGroup:     v.GetInt("recon.max_split_group"),
		GSTINTopK:         v.GetInt("recon.gstin_topk"),
		Workers:           v.GetInt("recon.workers"),
		JobDeadline:       v.GetDuration("recon.job_deadline"),
	}
	cfg.Ingest = IngestConfig{
		MaxFileSizeMB: v.GetInt64("ingest.max_file_size_mb"),
	}

	return cfg, nil
}
