package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Miraines/MoonyAndStarry/social-auth/internal/domain/auth/model"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreRedis    = "redis"

	HasherSHA256   = "sha256"
	HasherArgon2ID = "argon2id"
)

type TokenSettings struct {
	Secret string
	TTL    time.Duration
}

type TokenConfig struct {
	Access         TokenSettings
	Refresh        TokenSettings
	EmailVerify    TokenSettings
	ForgotPassword TokenSettings
	Issuer         string
	Audience       string
	Leeway         time.Duration
}

// For returns the signing settings of purpose.
func (t TokenConfig) For(p model.TokenPurpose) (TokenSettings, bool) {
	switch p {
	case model.PurposeAccess:
		return t.Access, true
	case model.PurposeRefresh:
		return t.Refresh, true
	case model.PurposeEmailVerify:
		return t.EmailVerify, true
	case model.PurposeForgotPassword:
		return t.ForgotPassword, true
	}
	return TokenSettings{}, false
}

type HasherConfig struct {
	Algorithm string
	Secret    string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// BaseURL is the client app that serves the link pages, not this API.
	BaseURL string
}

// Config is built once by Load and shared by pointer; nothing mutates it afterwards.
type Config struct {
	HTTPAddress   string
	GRPCAddress   string
	HTTPSCertFile string
	HTTPSKeyFile  string

	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	UserStore    string
	SessionStore string

	Tokens TokenConfig
	Hasher HasherConfig
	SMTP   SMTPConfig

	// SessionExpire makes stored refresh tokens expire together with the token.
	SessionExpire         bool
	SessionSweepInterval  time.Duration
	RevokeSessionsOnReset bool

	AllowedOrigins   []string
	AllowCredentials bool
	RateLimit        int
	RateBurst        int

	LogLevel string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("USER_STORE", StorePostgres)
	v.SetDefault("SESSION_STORE", StorePostgres)
	v.SetDefault("MONGO_DATABASE", "social")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_IN", "15m")
	v.SetDefault("REFRESH_TOKEN_EXPIRE_IN", "2400h")
	v.SetDefault("EMAIL_VERIFY_TOKEN_EXPIRE_IN", "168h")
	v.SetDefault("FORGOT_PASSWORD_TOKEN_EXPIRE_IN", "168h")
	v.SetDefault("PASSWORD_HASHER", HasherSHA256)
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1h")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("RATE_LIMIT", 50)
	v.SetDefault("RATE_BURST", 100)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	origins, err := parseList(v.GetString("ALLOWED_ORIGINS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_ORIGINS: %w", err)
	}

	cfg := &Config{
		HTTPAddress:   v.GetString("HTTP_ADDRESS"),
		GRPCAddress:   v.GetString("GRPC_ADDRESS"),
		HTTPSCertFile: v.GetString("HTTPS_CERT_FILE"),
		HTTPSKeyFile:  v.GetString("HTTPS_KEY_FILE"),

		DatabaseURL:   v.GetString("DATABASE_URL"),
		MongoURI:      v.GetString("MONGO_URI"),
		MongoDatabase: v.GetString("MONGO_DATABASE"),
		RedisAddress:  v.GetString("REDIS_ADDRESS"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		UserStore:    strings.ToLower(v.GetString("USER_STORE")),
		SessionStore: strings.ToLower(v.GetString("SESSION_STORE")),

		Tokens: TokenConfig{
			Access: TokenSettings{
				Secret: v.GetString("JWT_SECRET_ACCESS_TOKEN"),
				TTL:    v.GetDuration("ACCESS_TOKEN_EXPIRE_IN"),
			},
			Refresh: TokenSettings{
				Secret: v.GetString("JWT_SECRET_REFRESH_TOKEN"),
				TTL:    v.GetDuration("REFRESH_TOKEN_EXPIRE_IN"),
			},
			EmailVerify: TokenSettings{
				Secret: v.GetString("JWT_SECRET_EMAIL_VERIFY_TOKEN"),
				TTL:    v.GetDuration("EMAIL_VERIFY_TOKEN_EXPIRE_IN"),
			},
			ForgotPassword: TokenSettings{
				Secret: v.GetString("JWT_SECRET_FORGOT_PASSWORD_TOKEN"),
				TTL:    v.GetDuration("FORGOT_PASSWORD_TOKEN_EXPIRE_IN"),
			},
			Issuer:   v.GetString("JWT_ISSUER"),
			Audience: v.GetString("JWT_AUDIENCE"),
			Leeway:   v.GetDuration("JWT_LEEWAY"),
		},
		Hasher: HasherConfig{
			Algorithm: strings.ToLower(v.GetString("PASSWORD_HASHER")),
			Secret:    v.GetString("PASSWORD_SECRET"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			BaseURL:  v.GetString("PUBLIC_BASE_URL"),
		},

		SessionExpire:         v.GetBool("SESSION_EXPIRE"),
		SessionSweepInterval:  v.GetDuration("SESSION_SWEEP_INTERVAL"),
		RevokeSessionsOnReset: v.GetBool("REVOKE_SESSIONS_ON_PASSWORD_RESET"),

		AllowedOrigins:   origins,
		AllowCredentials: v.GetBool("ALLOW_CREDENTIALS"),
		RateLimit:        v.GetInt("RATE_LIMIT"),
		RateBurst:        v.GetInt("RATE_BURST"),

		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"PASSWORD_SECRET":                  c.Hasher.Secret,
		"JWT_SECRET_ACCESS_TOKEN":          c.Tokens.Access.Secret,
		"JWT_SECRET_REFRESH_TOKEN":         c.Tokens.Refresh.Secret,
		"JWT_SECRET_EMAIL_VERIFY_TOKEN":    c.Tokens.EmailVerify.Secret,
		"JWT_SECRET_FORGOT_PASSWORD_TOKEN": c.Tokens.ForgotPassword.Secret,
	}
	if c.UserStore == StorePostgres || c.SessionStore == StorePostgres {
		required["DATABASE_URL"] = c.DatabaseURL
	}
	if c.UserStore == StoreMongo || c.SessionStore == StoreMongo {
		required["MONGO_URI"] = c.MongoURI
	}
	if c.SessionStore == StoreRedis {
		required["REDIS_ADDRESS"] = c.RedisAddress
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("%s is not set", key)
		}
	}

	switch c.UserStore {
	case StorePostgres, StoreMongo:
	default:
		return fmt.Errorf("USER_STORE %q is not supported", c.UserStore)
	}
	switch c.SessionStore {
	case StorePostgres, StoreMongo, StoreRedis:
	default:
		return fmt.Errorf("SESSION_STORE %q is not supported", c.SessionStore)
	}
	switch c.Hasher.Algorithm {
	case HasherSHA256, HasherArgon2ID:
	default:
		return fmt.Errorf("PASSWORD_HASHER %q is not supported", c.Hasher.Algorithm)
	}

	for _, p := range []model.TokenPurpose{
		model.PurposeAccess, model.PurposeRefresh, model.PurposeEmailVerify, model.PurposeForgotPassword,
	} {
		s, _ := c.Tokens.For(p)
		if s.TTL <= 0 {
			return fmt.Errorf("expiry of %s must be positive", p)
		}
	}

	if c.SessionExpire && c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive when SESSION_EXPIRE is set")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive")
	}
	if c.RateBurst <= 0 {
		return fmt.Errorf("RATE_BURST must be positive")
	}
	return nil
}

// parseList accepts either a JSON array or a comma separated list.
func parseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
