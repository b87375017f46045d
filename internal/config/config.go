// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server       ServerConfig
	Log          LogConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	SMTP         SMTPConfig
	OTP          OTPConfig
	Approval     ApprovalConfig
	Storage      StorageConfig
	Housekeeping HousekeepingConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	FrontendURL string // CORS origin and target of password reset links
	MaxBodySize int    // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	AdminSecret       string
	VolunteerSecret   string
	UserSecret        string
	JWTExpire         time.Duration
	CookieExpireDays  int
	CookieSecure      bool
	AdminRegistration string // open, closed
	AdminEmail        string
	AdminPassword     string
	AdminPhone        string
	ResetTokenTTL     time.Duration
}

// IsAdminRegistrationOpen reports whether new admins may sign up through the API.
func (c *AuthConfig) IsAdminRegistrationOpen() bool {
	return strings.EqualFold(c.AdminRegistration, "open")
}

// CookieMaxAge returns the token cookie lifetime in seconds.
func (c *AuthConfig) CookieMaxAge() int {
	return c.CookieExpireDays * 24 * 60 * 60
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type OTPConfig struct {
	TTL                 time.Duration
	VerifiedTTL         time.Duration
	VerificationCodeTTL time.Duration
	RedisURL            string
}

type ApprovalConfig struct {
	ApproverEmail string
	Secret        string // hex, HMAC key for approval links
	TTL           time.Duration
}

type StorageConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Backend     string // local, s3
	UploadDir   string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string
}

type HousekeepingConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			FrontendURL: cmd.String("frontend-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Auth: AuthConfig{
			AdminSecret:       cmd.String("admin-secret"),
			VolunteerSecret:   cmd.String("volunteer-secret"),
			UserSecret:        cmd.String("user-secret"),
			JWTExpire:         cmd.Duration("jwt-expire"),
			CookieExpireDays:  int(cmd.Int("cookie-expire")),
			CookieSecure:      cmd.Bool("cookie-secure"),
			AdminRegistration: cmd.String("admin-registration"),
			AdminEmail:        cmd.String("admin-email"),
			AdminPassword:     cmd.String("admin-password"),
			AdminPhone:        cmd.String("admin-phone"),
			ResetTokenTTL:     cmd.Duration("reset-token-ttl"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		OTP: OTPConfig{
			TTL:                 cmd.Duration("otp-ttl"),
			VerifiedTTL:         cmd.Duration("otp-verified-ttl"),
			VerificationCodeTTL: cmd.Duration("verification-code-ttl"),
			RedisURL:            cmd.String("redis-url"),
		},
		Approval: ApprovalConfig{
			ApproverEmail: cmd.String("approver-email"),
			Secret:        cmd.String("approval-secret"),
			TTL:           cmd.Duration("approval-ttl"),
		},
		Storage: StorageConfig{
			Backend:     cmd.String("storage-backend"),
			UploadDir:   cmd.String("upload-dir"),
			S3Bucket:    cmd.String("s3-bucket"),
			S3Region:    cmd.String("s3-region"),
			S3Endpoint:  cmd.String("s3-endpoint"),
			S3AccessKey: cmd.String("s3-access-key"),
			S3SecretKey: cmd.String("s3-secret-key"),
			S3Prefix:    cmd.String("s3-prefix"),
		},
		Housekeeping: HousekeepingConfig{
			Interval: cmd.Duration("prune-interval"),
			MaxAge:   cmd.Duration("prune-age"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	cfg.Server.BaseURL = strings.TrimSuffix(cfg.Server.BaseURL, "/")
	cfg.Server.FrontendURL = strings.TrimSuffix(cfg.Server.FrontendURL, "/")

	return cfg
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	if port == 80 {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL of this API, used in approval links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "frontend-url",
			Usage:   "Frontend origin for CORS and password reset links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FRONTEND_URL"), toml.TOML("server.frontend_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   20,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/regdesk.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
	}

	flags = append(flags, authFlags()...)
	flags = append(flags, smtpFlags()...)
	flags = append(flags, otpFlags()...)
	flags = append(flags, approvalFlags()...)
	flags = append(flags, storageFlags()...)
	flags = append(flags, housekeepingFlags()...)
	return flags
}

func authFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "admin-secret",
			Usage:   "Signing secret for admin tokens (auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_SECRET_KEY"), toml.TOML("auth.admin_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "volunteer-secret",
			Usage:   "Signing secret for volunteer tokens (auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VOLUNTEER_SECRET_KEY"), toml.TOML("auth.volunteer_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "user-secret",
			Usage:   "Signing secret for user tokens (auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET_KEY"), toml.TOML("auth.user_secret", configFile)),
		},
		&cli.DurationFlag{
			Name:    "jwt-expire",
			Value:   7 * 24 * time.Hour,
			Usage:   "Token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_EXPIRE"), toml.TOML("auth.jwt_expire", configFile)),
		},
		&cli.IntFlag{
			Name:    "cookie-expire",
			Value:   7,
			Usage:   "Token cookie lifetime in days",
			Sources: cli.NewValueSourceChain(cli.EnvVar("COOKIE_EXPIRE"), toml.TOML("auth.cookie_expire", configFile)),
		},
		&cli.BoolFlag{
			Name:    "cookie-secure",
			Usage:   "Set the Secure attribute on the token cookie",
			Sources: cli.NewValueSourceChain(cli.EnvVar("COOKIE_SECURE"), toml.TOML("auth.cookie_secure", configFile)),
		},
		&cli.StringFlag{
			Name:    "admin-registration",
			Value:   "closed",
			Usage:   "Admin self-registration (open, closed)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_REGISTRATION"), toml.TOML("auth.admin_registration", configFile)),
		},
		&cli.StringFlag{
			Name:    "admin-email",
			Usage:   "Email of the bootstrap admin created when none exists",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_EMAIL"), toml.TOML("auth.admin_email", configFile)),
		},
		&cli.StringFlag{
			Name:    "admin-password",
			Usage:   "Password of the bootstrap admin",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_PASSWORD"), toml.TOML("auth.admin_password", configFile)),
		},
		&cli.StringFlag{
			Name:    "admin-phone",
			Usage:   "Phone of the bootstrap admin",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_PHONE"), toml.TOML("auth.admin_phone", configFile)),
		},
		&cli.DurationFlag{
			Name:    "reset-token-ttl",
			Value:   15 * time.Minute,
			Usage:   "Password reset token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESET_TOKEN_TTL"), toml.TOML("auth.reset_token_ttl", configFile)),
		},
	}
}

func smtpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (mails are logged when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@localhost",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
	}
}

func otpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "otp-ttl",
			Value:   5 * time.Minute,
			Usage:   "Lifetime of an emailed OTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_TTL"), toml.TOML("otp.ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "otp-verified-ttl",
			Value:   30 * time.Minute,
			Usage:   "How long a verified email stays usable for registration",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_VERIFIED_TTL"), toml.TOML("otp.verified_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "verification-code-ttl",
			Value:   10 * time.Minute,
			Usage:   "Lifetime of an account verification code",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VERIFICATION_CODE_TTL"), toml.TOML("otp.verification_code_ttl", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for the shared OTP cache (in-process cache when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_URL"), toml.TOML("otp.redis_url", configFile)),
		},
	}
}

func approvalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "approver-email",
			Usage:   "Address receiving registration approval requests",
			Sources: cli.NewValueSourceChain(cli.EnvVar("APPROVER_EMAIL"), toml.TOML("approval.approver_email", configFile)),
		},
		&cli.StringFlag{
			Name:    "approval-secret",
			Usage:   "Approval link signing key (32-byte hex, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("APPROVAL_SECRET"), toml.TOML("approval.secret", configFile)),
		},
		&cli.DurationFlag{
			Name:    "approval-ttl",
			Value:   7 * 24 * time.Hour,
			Usage:   "Lifetime of approval links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("APPROVAL_TTL"), toml.TOML("approval.ttl", configFile)),
		},
	}
}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "storage-backend",
			Value:   "local",
			Usage:   "Document storage backend (local, s3)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("STORAGE_BACKEND"), toml.TOML("storage.backend", configFile)),
		},
		&cli.StringFlag{
			Name:    "upload-dir",
			Value:   "./uploads",
			Usage:   "Directory for uploaded documents",
			Sources: cli.NewValueSourceChain(cli.EnvVar("UPLOAD_DIR"), toml.TOML("storage.upload_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "s3-bucket",
			Usage:   "S3 bucket",
			Sources: cli.NewValueSourceChain(cli.EnvVar("S3_BUCKET"), toml.TOML("storage.s3_bucket", configFile)),
		},
		&cli.StringFlag{
			Name:    "s3-region",
			Value:   "us-east-1",
			Usage:   "S3 region",
			Sources: cli.NewValueSourceChain(cli.EnvVar("S3_REGION"), toml.TOML("storage.s3_region", configFile)),
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			Usage:   "S3 endpoint override (MinIO and friends)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("S3_ENDPOINT"), toml.TOML("storage.s3_endpoint", configFile)),
		},
		&cli.StringFlag{
			Name:    "s3-access-key",
			Usage:   "S3 access key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("S3_ACCESS_KEY"), toml.TOML("storage.s3_access_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "s3-secret-key",
			Usage:   "S3 secret key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("S3_SECRET_KEY"), toml.TOML("storage.s3_secret_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "s3-prefix",
			Usage:   "Key prefix inside the bucket",
			Sources: cli.NewValueSourceChain(cli.EnvVar("S3_PREFIX"), toml.TOML("storage.s3_prefix", configFile)),
		},
	}
}

func housekeepingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "prune-interval",
			Value:   30 * time.Minute,
			Usage:   "Interval between housekeeping runs",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PRUNE_INTERVAL"), toml.TOML("housekeeping.interval", configFile)),
		},
		&cli.DurationFlag{
			Name:    "prune-age",
			Value:   30 * time.Minute,
			Usage:   "Age after which unverified registrations are removed",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PRUNE_AGE"), toml.TOML("housekeeping.age", configFile)),
		},
	}
}
