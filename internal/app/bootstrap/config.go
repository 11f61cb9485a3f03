package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the auth service.
// It merges file defaults and environment overrides to support both local
// and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	// Each token purpose signs with its own secret so one purpose can never
	// satisfy another's verification.
	AccessTokenSecret       string
	RefreshTokenSecret      string
	VerificationTokenSecret string
	ResetTokenSecret        string

	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration

	AllowEphemeralSecrets bool

	BcryptCost    int
	DefaultRole   string
	OAuthStateTTL time.Duration

	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURI    string
	FacebookClientID     string
	FacebookClientSecret string
	FacebookRedirectURI  string
	OAuthHTTPTimeout     time.Duration

	LoginRatePerMinute    int
	RecoveryRatePerMinute int

	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxClaimTTL         time.Duration
	OutboxMaxRetries       int
	SessionCleanupInterval time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Auth struct {
		DefaultRole string `yaml:"default_role"`
		BcryptCost  int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	OAuth struct {
		Google struct {
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			RedirectURI  string `yaml:"redirect_uri"`
		} `yaml:"google"`
		Facebook struct {
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			RedirectURI  string `yaml:"redirect_uri"`
		} `yaml:"facebook"`
	} `yaml:"oauth"`
	RateLimits struct {
		LoginPerMinute    int `yaml:"login_per_minute"`
		RecoveryPerMinute int `yaml:"recovery_per_minute"`
	} `yaml:"rate_limits"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:              "backoffice-auth",
		HTTPPort:               8080,
		GRPCPort:               9090,
		MaxDBConns:             20,
		AccessTokenTTL:         365 * 24 * time.Hour,
		RefreshTokenTTL:        365 * 24 * time.Hour,
		VerificationTokenTTL:   24 * time.Hour,
		ResetTokenTTL:          time.Hour,
		AllowEphemeralSecrets:  true,
		BcryptCost:             12,
		DefaultRole:            "customer",
		OAuthStateTTL:          10 * time.Minute,
		OAuthHTTPTimeout:       8 * time.Second,
		LoginRatePerMinute:     10,
		RecoveryRatePerMinute:  5,
		OutboxPollInterval:     2 * time.Second,
		OutboxBatchSize:        100,
		OutboxClaimTTL:         30 * time.Second,
		OutboxMaxRetries:       5,
		SessionCleanupInterval: time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Auth.DefaultRole != "" {
			cfg.DefaultRole = f.Auth.DefaultRole
		}
		if f.Auth.BcryptCost > 0 {
			cfg.BcryptCost = f.Auth.BcryptCost
		}
		if f.OAuth.Google.ClientID != "" {
			cfg.GoogleClientID = f.OAuth.Google.ClientID
		}
		if f.OAuth.Google.ClientSecret != "" {
			cfg.GoogleClientSecret = f.OAuth.Google.ClientSecret
		}
		if f.OAuth.Google.RedirectURI != "" {
			cfg.GoogleRedirectURI = f.OAuth.Google.RedirectURI
		}
		if f.OAuth.Facebook.ClientID != "" {
			cfg.FacebookClientID = f.OAuth.Facebook.ClientID
		}
		if f.OAuth.Facebook.ClientSecret != "" {
			cfg.FacebookClientSecret = f.OAuth.Facebook.ClientSecret
		}
		if f.OAuth.Facebook.RedirectURI != "" {
			cfg.FacebookRedirectURI = f.OAuth.Facebook.RedirectURI
		}
		if f.RateLimits.LoginPerMinute > 0 {
			cfg.LoginRatePerMinute = f.RateLimits.LoginPerMinute
		}
		if f.RateLimits.RecoveryPerMinute > 0 {
			cfg.RecoveryRatePerMinute = f.RateLimits.RecoveryPerMinute
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.AccessTokenSecret = envOrDefault("JWT_ACCESS_SECRET", cfg.AccessTokenSecret)
	cfg.RefreshTokenSecret = envOrDefault("JWT_REFRESH_SECRET", cfg.RefreshTokenSecret)
	cfg.VerificationTokenSecret = envOrDefault("JWT_VERIFICATION_SECRET", cfg.VerificationTokenSecret)
	cfg.ResetTokenSecret = envOrDefault("JWT_RESET_SECRET", cfg.ResetTokenSecret)
	cfg.AllowEphemeralSecrets = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralSecrets)

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_HOURS", int(cfg.AccessTokenTTL.Hours()))) * time.Hour
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_HOURS", int(cfg.RefreshTokenTTL.Hours()))) * time.Hour
	cfg.VerificationTokenTTL = time.Duration(envInt("VERIFICATION_TOKEN_TTL_HOURS", int(cfg.VerificationTokenTTL.Hours()))) * time.Hour
	cfg.ResetTokenTTL = time.Duration(envInt("RESET_TOKEN_TTL_MINUTES", int(cfg.ResetTokenTTL.Minutes()))) * time.Minute

	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.DefaultRole = envOrDefault("DEFAULT_ROLE", cfg.DefaultRole)
	cfg.OAuthStateTTL = time.Duration(envInt("OAUTH_STATE_TTL_MINUTES", int(cfg.OAuthStateTTL.Minutes()))) * time.Minute
	cfg.OAuthHTTPTimeout = time.Duration(envInt("OAUTH_HTTP_TIMEOUT_SECONDS", int(cfg.OAuthHTTPTimeout.Seconds()))) * time.Second

	cfg.GoogleClientID = envOrDefault("OAUTH_GOOGLE_CLIENT_ID", cfg.GoogleClientID)
	cfg.GoogleClientSecret = envOrDefault("OAUTH_GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret)
	cfg.GoogleRedirectURI = envOrDefault("OAUTH_GOOGLE_REDIRECT_URI", cfg.GoogleRedirectURI)
	cfg.FacebookClientID = envOrDefault("OAUTH_FACEBOOK_CLIENT_ID", cfg.FacebookClientID)
	cfg.FacebookClientSecret = envOrDefault("OAUTH_FACEBOOK_CLIENT_SECRET", cfg.FacebookClientSecret)
	cfg.FacebookRedirectURI = envOrDefault("OAUTH_FACEBOOK_REDIRECT_URI", cfg.FacebookRedirectURI)

	cfg.LoginRatePerMinute = envInt("LOGIN_RATE_PER_MINUTE", cfg.LoginRatePerMinute)
	cfg.RecoveryRatePerMinute = envInt("RECOVERY_RATE_PER_MINUTE", cfg.RecoveryRatePerMinute)

	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
	cfg.SessionCleanupInterval = time.Duration(envInt("SESSION_CLEANUP_INTERVAL_MINUTES", int(cfg.SessionCleanupInterval.Minutes()))) * time.Minute

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if !cfg.AllowEphemeralSecrets && missingAnySecret(cfg) {
		return Config{}, fmt.Errorf("missing one of JWT_ACCESS_SECRET, JWT_REFRESH_SECRET, JWT_VERIFICATION_SECRET, JWT_RESET_SECRET")
	}

	return cfg, nil
}

func missingAnySecret(cfg Config) bool {
	return cfg.AccessTokenSecret == "" ||
		cfg.RefreshTokenSecret == "" ||
		cfg.VerificationTokenSecret == "" ||
		cfg.ResetTokenSecret == ""
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
