package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the share access
// service. It merges file defaults and environment overrides to support
// both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	KafkaBrokers       []string
	KafkaSecurityTopic string
	KafkaDispatchTopic string

	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTKeyID          string
	StaffPublicKeyPEM string

	// PasscodeKeyBase64 is the 32-byte XChaCha20-Poly1305 key, base64
	// encoded, that seals share passcodes at rest.
	PasscodeKeyBase64 string

	// AllowEphemeralSecrets permits boot with generated JWT keys and
	// passcode key. Tokens and ciphertexts then die with the process;
	// acceptable only for local runs.
	AllowEphemeralSecrets bool

	IdentifierSalt string
	InternalAPIKey string
	CookieSecure   bool

	MaxAttempts   int
	AttemptWindow time.Duration

	OTPLength      int
	OTPTTL         time.Duration
	OTPMaxAttempts int

	SessionIdleTTL     time.Duration
	SessionAbsoluteTTL time.Duration

	ShareTokenTTL   time.Duration
	ContentTokenTTL time.Duration

	SendLatencyMin time.Duration
	SendLatencyMax time.Duration

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Security struct {
		JWTKeyID       string `yaml:"jwt_key_id"`
		IdentifierSalt string `yaml:"identifier_salt"`
		InternalAPIKey string `yaml:"internal_api_key"`
		CookieSecure   *bool  `yaml:"cookie_secure"`
	} `yaml:"security"`
	Topics struct {
		SecurityEvents string `yaml:"security_events"`
		OTPDispatch    string `yaml:"otp_dispatch"`
	} `yaml:"topics"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:             "Share-Access-Service",
		HTTPPort:              8080,
		GRPCPort:              9090,
		KafkaSecurityTopic:    "share-access.security-events",
		KafkaDispatchTopic:    "share-access.otp-dispatch",
		JWTKeyID:              "share-access-key-1",
		AllowEphemeralSecrets: true,
		CookieSecure:          true,
		MaxAttempts:           5,
		AttemptWindow:         15 * time.Minute,
		OTPLength:             6,
		OTPTTL:                10 * time.Minute,
		OTPMaxAttempts:        3,
		SessionIdleTTL:        time.Hour,
		SessionAbsoluteTTL:    24 * time.Hour,
		ShareTokenTTL:         72 * time.Hour,
		ContentTokenTTL:       15 * time.Minute,
		SendLatencyMin:        250 * time.Millisecond,
		SendLatencyMax:        900 * time.Millisecond,
		MaxDBConns:            20,
		OutboxPollInterval:    2 * time.Second,
		OutboxBatchSize:       100,
		OutboxClaimTTL:        30 * time.Second,
		OutboxMaxRetries:      5,
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
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Security.JWTKeyID != "" {
			cfg.JWTKeyID = f.Security.JWTKeyID
		}
		if f.Security.IdentifierSalt != "" {
			cfg.IdentifierSalt = f.Security.IdentifierSalt
		}
		if f.Security.InternalAPIKey != "" {
			cfg.InternalAPIKey = f.Security.InternalAPIKey
		}
		if f.Security.CookieSecure != nil {
			cfg.CookieSecure = *f.Security.CookieSecure
		}
		if f.Topics.SecurityEvents != "" {
			cfg.KafkaSecurityTopic = f.Topics.SecurityEvents
		}
		if f.Topics.OTPDispatch != "" {
			cfg.KafkaDispatchTopic = f.Topics.OTPDispatch
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaSecurityTopic = envOrDefault("KAFKA_SECURITY_TOPIC", cfg.KafkaSecurityTopic)
	cfg.KafkaDispatchTopic = envOrDefault("KAFKA_DISPATCH_TOPIC", cfg.KafkaDispatchTopic)
	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.StaffPublicKeyPEM = envOrDefault("STAFF_PUBLIC_KEY_PEM", cfg.StaffPublicKeyPEM)
	cfg.PasscodeKeyBase64 = envOrDefault("PASSCODE_KEY_BASE64", cfg.PasscodeKeyBase64)
	cfg.AllowEphemeralSecrets = envBool("ALLOW_EPHEMERAL_SECRETS", cfg.AllowEphemeralSecrets)
	cfg.IdentifierSalt = envOrDefault("IDENTIFIER_SALT", cfg.IdentifierSalt)
	cfg.InternalAPIKey = envOrDefault("INTERNAL_API_KEY", cfg.InternalAPIKey)
	cfg.CookieSecure = envBool("COOKIE_SECURE", cfg.CookieSecure)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxAttempts = envInt("MAX_FAILED_ATTEMPTS", cfg.MaxAttempts)
	cfg.OTPLength = envInt("OTP_LENGTH", cfg.OTPLength)
	cfg.OTPMaxAttempts = envInt("OTP_MAX_ATTEMPTS", cfg.OTPMaxAttempts)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	cfg.AttemptWindow = time.Duration(envInt("ATTEMPT_WINDOW_MINUTES", int(cfg.AttemptWindow.Minutes()))) * time.Minute
	cfg.OTPTTL = time.Duration(envInt("OTP_TTL_MINUTES", int(cfg.OTPTTL.Minutes()))) * time.Minute
	cfg.SessionIdleTTL = time.Duration(envInt("SESSION_IDLE_MINUTES", int(cfg.SessionIdleTTL.Minutes()))) * time.Minute
	cfg.SessionAbsoluteTTL = time.Duration(envInt("SESSION_ABSOLUTE_HOURS", int(cfg.SessionAbsoluteTTL.Hours()))) * time.Hour
	cfg.ShareTokenTTL = time.Duration(envInt("SHARE_TOKEN_TTL_HOURS", int(cfg.ShareTokenTTL.Hours()))) * time.Hour
	cfg.ContentTokenTTL = time.Duration(envInt("CONTENT_TOKEN_TTL_MINUTES", int(cfg.ContentTokenTTL.Minutes()))) * time.Minute
	cfg.SendLatencyMin = time.Duration(envInt("SEND_LATENCY_MIN_MS", int(cfg.SendLatencyMin.Milliseconds()))) * time.Millisecond
	cfg.SendLatencyMax = time.Duration(envInt("SEND_LATENCY_MAX_MS", int(cfg.SendLatencyMax.Milliseconds()))) * time.Millisecond
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if (cfg.JWTPrivateKeyPEM == "" || cfg.JWTPublicKeyPEM == "") && !cfg.AllowEphemeralSecrets {
		return Config{}, fmt.Errorf("missing JWT_PRIVATE_KEY_PEM or JWT_PUBLIC_KEY_PEM")
	}
	if cfg.PasscodeKeyBase64 == "" && !cfg.AllowEphemeralSecrets {
		return Config{}, fmt.Errorf("missing PASSCODE_KEY_BASE64")
	}
	if cfg.SendLatencyMax < cfg.SendLatencyMin {
		return Config{}, fmt.Errorf("SEND_LATENCY_MAX_MS must be >= SEND_LATENCY_MIN_MS")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
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

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
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

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
