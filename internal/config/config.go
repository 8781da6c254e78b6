package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Mail      MailConfig
	OIDC      OIDCConfig
	Bootstrap BootstrapConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	LogLevel     string
	AllowOrigins string
}

type DatabaseConfig struct {
	Driver string // sqlite or postgres
	DSN    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     int // minutes
	RefreshTTL    int // hours
}

type CookieConfig struct {
	Secure   bool
	Domain   string
	SameSite string
}

type RateLimitConfig struct {
	LoginPerMin   int
	ForgotPerHour int
}

// StorageConfig points at any S3 compatible bucket (AWS, R2, MinIO).
type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppURL   string
}

type OIDCConfig struct {
	Issuer   string
	ClientID string
}

type BootstrapConfig struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// IsProduction reports whether the server runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("DATABASE_DSN")
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_ACCESS_SECRET")
	readSecret("JWT_REFRESH_SECRET")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")
	readSecret("SMTP_PASSWORD")
	readSecret("BOOTSTRAP_ADMIN_PASSWORD")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables
	v.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.allow_origins", "CORS_ALLOW_ORIGINS")
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("database.dsn", "DATABASE_DSN")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("jwt.access_secret", "JWT_ACCESS_SECRET")
	_ = v.BindEnv("jwt.refresh_secret", "JWT_REFRESH_SECRET")
	_ = v.BindEnv("jwt.access_ttl", "JWT_ACCESS_TTL")
	_ = v.BindEnv("jwt.refresh_ttl", "JWT_REFRESH_TTL")
	_ = v.BindEnv("cookie.secure", "COOKIE_SECURE")
	_ = v.BindEnv("cookie.domain", "COOKIE_DOMAIN")
	_ = v.BindEnv("cookie.same_site", "COOKIE_SAME_SITE")
	_ = v.BindEnv("ratelimit.login_per_min", "RATELIMIT_LOGIN_PER_MIN")
	_ = v.BindEnv("ratelimit.forgot_per_hour", "RATELIMIT_FORGOT_PER_HOUR")
	_ = v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = v.BindEnv("storage.region", "STORAGE_REGION")
	_ = v.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = v.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = v.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = v.BindEnv("mail.host", "SMTP_HOST")
	_ = v.BindEnv("mail.port", "SMTP_PORT")
	_ = v.BindEnv("mail.username", "SMTP_USERNAME")
	_ = v.BindEnv("mail.password", "SMTP_PASSWORD")
	_ = v.BindEnv("mail.from", "MAIL_FROM")
	_ = v.BindEnv("mail.app_url", "APP_URL")
	_ = v.BindEnv("oidc.issuer", "OIDC_ISSUER")
	_ = v.BindEnv("oidc.client_id", "OIDC_CLIENT_ID")
	_ = v.BindEnv("bootstrap.admin_name", "BOOTSTRAP_ADMIN_NAME")
	_ = v.BindEnv("bootstrap.admin_email", "BOOTSTRAP_ADMIN_EMAIL")
	_ = v.BindEnv("bootstrap.admin_password", "BOOTSTRAP_ADMIN_PASSWORD")

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allow_origins", "http://localhost:3000")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/ats.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.access_secret", "change-me-in-production")
	v.SetDefault("jwt.refresh_secret", "change-me-too-in-production")
	v.SetDefault("jwt.access_ttl", 15)
	v.SetDefault("jwt.refresh_ttl", 168)
	v.SetDefault("cookie.secure", false)
	v.SetDefault("cookie.same_site", "Lax")
	v.SetDefault("ratelimit.login_per_min", 10)
	v.SetDefault("ratelimit.forgot_per_hour", 5)
	v.SetDefault("storage.region", "auto")
	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 1025)
	v.SetDefault("mail.from", "no-reply@fusecpt.com")
	v.SetDefault("mail.app_url", "http://localhost:3000")
	v.SetDefault("bootstrap.admin_name", "Super Admin")

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			Env:          v.GetString("server.env"),
			LogLevel:     v.GetString("server.log_level"),
			AllowOrigins: v.GetString("server.allow_origins"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			AccessSecret:  v.GetString("jwt.access_secret"),
			RefreshSecret: v.GetString("jwt.refresh_secret"),
			AccessTTL:     v.GetInt("jwt.access_ttl"),
			RefreshTTL:    v.GetInt("jwt.refresh_ttl"),
		},
		Cookie: CookieConfig{
			Secure:   v.GetBool("cookie.secure"),
			Domain:   v.GetString("cookie.domain"),
			SameSite: v.GetString("cookie.same_site"),
		},
		RateLimit: RateLimitConfig{
			LoginPerMin:   v.GetInt("ratelimit.login_per_min"),
			ForgotPerHour: v.GetInt("ratelimit.forgot_per_hour"),
		},
		Storage: StorageConfig{
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			BucketName:      v.GetString("storage.bucket_name"),
			PublicURL:       v.GetString("storage.public_url"),
		},
		Mail: MailConfig{
			Host:     v.GetString("mail.host"),
			Port:     v.GetInt("mail.port"),
			Username: v.GetString("mail.username"),
			Password: v.GetString("mail.password"),
			From:     v.GetString("mail.from"),
			AppURL:   v.GetString("mail.app_url"),
		},
		OIDC: OIDCConfig{
			Issuer:   v.GetString("oidc.issuer"),
			ClientID: v.GetString("oidc.client_id"),
		},
		Bootstrap: BootstrapConfig{
			AdminName:     v.GetString("bootstrap.admin_name"),
			AdminEmail:    v.GetString("bootstrap.admin_email"),
			AdminPassword: v.GetString("bootstrap.admin_password"),
		},
	}

	return cfg, nil
}
