// Package config loads the settings of a JSON-RPC client from a .env file,
// an optional YAML file and the environment, in that order of increasing
// precedence.
//
// A YAML file looks like:
//
//	environment: production
//	endpoint: https://rpc.example.com/api
//	timeout: 10s
//	credentials: same-origin
//	origin: https://app.example.com
//	auth:
//	  user: alice
//	  pass: secret
//	log:
//	  level: debug
//	  format: console
//	cookies:
//	  file: /var/lib/rpc/cookies
//	  key_id: k1
//	  key: <base64url, 32 bytes>
package config

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"

	"github.com/mnehpets/rpcrequest/auth"
	"github.com/mnehpets/rpcrequest/client"
	"github.com/mnehpets/rpcrequest/credentials"
	"github.com/mnehpets/rpcrequest/transport"
)

// ErrInvalid is returned when the loaded settings fail validation.
var ErrInvalid = errors.New("config: invalid")

// DotEnvFile is loaded from the working directory before anything else.
const DotEnvFile = ".env"

type Config struct {
	Environment string        `yaml:"environment" env:"RPC_ENV" env-default:"development" validate:"oneof=production development test"`
	Endpoint    string        `yaml:"endpoint" env:"RPC_ENDPOINT" validate:"omitempty,url"`
	Timeout     time.Duration `yaml:"timeout" env:"RPC_TIMEOUT" env-default:"30s" validate:"gt=0"`
	Credentials string        `yaml:"credentials" env:"RPC_CREDENTIALS" env-default:"omit" validate:"oneof=omit same-origin include"`
	Origin      string        `yaml:"origin" env:"RPC_ORIGIN" validate:"omitempty,url"`

	Auth    AuthConfig   `yaml:"auth"`
	Log     LogConfig    `yaml:"log"`
	JWT     JWTConfig    `yaml:"jwt"`
	OIDC    OIDCConfig   `yaml:"oidc"`
	Cookies CookieConfig `yaml:"cookies"`
}

type AuthConfig struct {
	User string `yaml:"user" env:"RPC_USER"`
	Pass string `yaml:"pass" env:"RPC_PASS" validate:"required_with=User"`
	// Token is sent as a bearer token when no basic credentials are set.
	Token string `yaml:"token" env:"RPC_JWT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"RPC_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"RPC_LOG_FORMAT" env-default:"json" validate:"oneof=json console"`
}

// JWTConfig enables minted HS256 bearer tokens.
type JWTConfig struct {
	Secret   string        `yaml:"secret" env:"RPC_JWT_SECRET"`
	Issuer   string        `yaml:"issuer" env:"RPC_JWT_ISSUER"`
	Subject  string        `yaml:"subject" env:"RPC_JWT_SUBJECT"`
	Audience []string      `yaml:"audience" env:"RPC_JWT_AUDIENCE"`
	Lifetime time.Duration `yaml:"lifetime" env:"RPC_JWT_LIFETIME"`
}

// OIDCConfig enables bearer tokens from a client credentials grant against
// a discovered OpenID provider.
type OIDCConfig struct {
	Issuer       string   `yaml:"issuer" env:"RPC_OIDC_ISSUER" validate:"omitempty,url"`
	ClientID     string   `yaml:"client_id" env:"RPC_OIDC_CLIENT_ID" validate:"required_with=Issuer"`
	ClientSecret string   `yaml:"client_secret" env:"RPC_OIDC_CLIENT_SECRET"`
	Scopes       []string `yaml:"scopes" env:"RPC_OIDC_SCOPES"`
	Audience     string   `yaml:"audience" env:"RPC_OIDC_AUDIENCE"`
}

type CookieConfig struct {
	File  string `yaml:"file" env:"RPC_COOKIE_FILE"`
	KeyID string `yaml:"key_id" env:"RPC_COOKIE_KEY_ID" env-default:"default"`
	Key   string `yaml:"key" env:"RPC_COOKIE_KEY" validate:"required_with=File"`
}

// Load reads DotEnvFile if present, then the YAML file at path (skipped when
// path is empty), then applies environment overrides and validates the
// result.
func Load(path string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("config: %s: %w", DotEnvFile, err)
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Cookies.Key != "" {
		if _, err := c.cookieKey(); err != nil {
			return fmt.Errorf("%w: cookie key: %v", ErrInvalid, err)
		}
	}
	return nil
}

// Mode is the configured credentials mode.
func (c Config) Mode() credentials.Mode {
	m, err := credentials.ParseMode(c.Credentials)
	if err != nil {
		return credentials.Omit
	}
	return m
}

// Basic returns the configured basic credentials, or nil.
func (c Config) Basic() *auth.Basic {
	if c.Auth.User == "" {
		return nil
	}
	return &auth.Basic{User: c.Auth.User, Pass: c.Auth.Pass}
}

// Logger builds a production zap logger at the configured level.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	if c.Log.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return zc.Build()
}

// CookieStore returns the sealed store for the cookie jar, or nil when no
// cookie file is configured.
func (c Config) CookieStore() (*credentials.Store, error) {
	if c.Cookies.File == "" {
		return nil, nil
	}
	key, err := c.cookieKey()
	if err != nil {
		return nil, fmt.Errorf("config: cookie key: %w", err)
	}
	return credentials.NewStore(c.Cookies.File, c.Cookies.KeyID, map[string][]byte{c.Cookies.KeyID: key})
}

func (c Config) cookieKey() ([]byte, error) {
	key, err := base64.RawURLEncoding.DecodeString(c.Cookies.Key)
	if err != nil {
		return nil, err
	}
	if len(key) != credentials.DefaultKeySize {
		return nil, fmt.Errorf("want %d bytes, got %d", credentials.DefaultKeySize, len(key))
	}
	return key, nil
}

// TokenSource returns the bearer token source the settings describe, in
// order of preference: a fixed token, an OIDC client credentials grant,
// minted JWTs, or nil. ctx must outlive the source.
func (c Config) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if c.Auth.Token != "" {
		return auth.StaticToken(c.Auth.Token), nil
	}
	if c.OIDC.Issuer != "" {
		cfg := auth.OIDCConfig{
			Issuer:       c.OIDC.Issuer,
			ClientID:     c.OIDC.ClientID,
			ClientSecret: c.OIDC.ClientSecret,
			Scopes:       c.OIDC.Scopes,
		}
		if c.OIDC.Audience != "" {
			cfg.Params = map[string][]string{"audience": {c.OIDC.Audience}}
		}
		return auth.NewOIDCSource(ctx, cfg)
	}
	if c.JWT.Secret == "" {
		return nil, nil
	}
	return auth.NewJWTSource(auth.JWTConfig{
		Key:      jose.SigningKey{Algorithm: jose.HS256, Key: []byte(c.JWT.Secret)},
		Issuer:   c.JWT.Issuer,
		Subject:  c.JWT.Subject,
		Audience: c.JWT.Audience,
		Lifetime: c.JWT.Lifetime,
	})
}

// ClientOptions builds client options from the settings. When the
// credentials mode is not omit the network transport gets a cookie jar,
// which is returned so the caller can persist it; if a cookie file is
// configured the jar starts with its contents. ctx bounds provider
// discovery and is kept by the token source.
func (c Config) ClientOptions(ctx context.Context, logger *zap.Logger) (client.Options, *credentials.Jar, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var jar *credentials.Jar
	netOpts := transport.NetworkOptions{Origin: c.Origin, Timeout: c.Timeout}
	if c.Mode() != credentials.Omit {
		jar = credentials.NewJar()
		store, err := c.CookieStore()
		if err != nil {
			return client.Options{}, nil, err
		}
		if store != nil {
			if err := store.Load(jar); err != nil {
				return client.Options{}, nil, fmt.Errorf("config: cookies: %w", err)
			}
			logger.Debug("loaded cookies", zap.String("file", store.Path))
		}
		netOpts.Jar = jar
	}

	network, err := transport.NewNetwork(netOpts)
	if err != nil {
		return client.Options{}, nil, fmt.Errorf("config: %w", err)
	}
	tokens, err := c.TokenSource(ctx)
	if err != nil {
		return client.Options{}, nil, fmt.Errorf("config: %w", err)
	}

	return client.Options{
		Environment: client.Environment(c.Environment),
		Transport:   network,
		Timeout:     c.Timeout,
		TokenSource: tokens,
		Logger:      logger,
	}, jar, nil
}
