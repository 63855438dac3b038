package config

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mnehpets/rpcrequest/client"
	"github.com/mnehpets/rpcrequest/credentials"
	"github.com/mnehpets/rpcrequest/transport"
)

var envNames = []string{
	"RPC_ENV", "RPC_ENDPOINT", "RPC_TIMEOUT", "RPC_CREDENTIALS", "RPC_ORIGIN",
	"RPC_USER", "RPC_PASS", "RPC_JWT", "RPC_LOG_LEVEL", "RPC_LOG_FORMAT",
	"RPC_JWT_SECRET", "RPC_JWT_ISSUER", "RPC_JWT_SUBJECT", "RPC_JWT_AUDIENCE", "RPC_JWT_LIFETIME",
	"RPC_OIDC_ISSUER", "RPC_OIDC_CLIENT_ID", "RPC_OIDC_CLIENT_SECRET", "RPC_OIDC_SCOPES", "RPC_OIDC_AUDIENCE",
	"RPC_COOKIE_FILE", "RPC_COOKIE_KEY_ID", "RPC_COOKIE_KEY",
}

// clearEnv unsets every variable Load reads, restoring them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testKey() string {
	return base64.RawURLEncoding.EncodeToString([]byte(strings.Repeat("k", credentials.DefaultKeySize)))
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.Equal(t, "omit", cfg.Credentials)
	require.Equal(t, credentials.Omit, cfg.Mode())
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Nil(t, cfg.Basic())
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "rpc.yaml", `
environment: production
endpoint: https://rpc.example.com/api
timeout: 5s
credentials: same-origin
origin: https://app.example.com
auth:
  user: alice
  pass: secret
log:
  level: debug
  format: console
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, "https://rpc.example.com/api", cfg.Endpoint)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, credentials.SameOrigin, cfg.Mode())
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "alice", cfg.Basic().User)
	require.Equal(t, "secret", cfg.Basic().Pass)
}

func TestEnvironmentOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "rpc.yaml", "endpoint: https://rpc.example.com/api\ntimeout: 5s\n")
	t.Setenv("RPC_ENDPOINT", "https://other.example.com/rpc")
	t.Setenv("RPC_TIMEOUT", "2s")
	t.Setenv("RPC_CREDENTIALS", "include")
	t.Setenv("RPC_USER", "bob")
	t.Setenv("RPC_PASS", "hunter2")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://other.example.com/rpc", cfg.Endpoint)
	require.Equal(t, 2*time.Second, cfg.Timeout)
	require.Equal(t, credentials.Include, cfg.Mode())
	require.Equal(t, "bob", cfg.Auth.User)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{"environment", map[string]string{"RPC_ENV": "staging"}, ""},
		{"credentials", map[string]string{"RPC_CREDENTIALS": "always"}, ""},
		{"endpoint", map[string]string{"RPC_ENDPOINT": "not a url"}, ""},
		{"log level", map[string]string{"RPC_LOG_LEVEL": "loud"}, ""},
		{"user without pass", map[string]string{"RPC_USER": "alice"}, ""},
		{"cookie file without key", map[string]string{"RPC_COOKIE_FILE": "/tmp/cookies"}, ""},
		{"short cookie key", map[string]string{"RPC_COOKIE_KEY": "c2hvcnQ"}, ""},
		{"timeout", nil, "timeout: -1s\n"},
		{"issuer without client", map[string]string{"RPC_OIDC_ISSUER": "https://id.example.com"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "rpc.yaml", tt.yaml)
			}
			_, err := Load(path)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadBadFiles(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "rpc.yaml", "timeout: [\n"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalid)
}

func TestDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvFile), []byte("RPC_ENDPOINT=https://dotenv.example.com/rpc\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "https://dotenv.example.com/rpc", cfg.Endpoint)
	os.Unsetenv("RPC_ENDPOINT")
}

func TestLogger(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Log.Level = "warn"
	logger, err := cfg.Logger()
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(-1))
	require.True(t, logger.Core().Enabled(1))

	cfg.Log.Level = "nope"
	_, err = cfg.Logger()
	require.Error(t, err)
}

func TestTokenSource(t *testing.T) {
	cfg := Config{Auth: AuthConfig{Token: "fixed"}}
	ts, err := cfg.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	require.Equal(t, "fixed", tok.AccessToken)

	cfg = Config{JWT: JWTConfig{Secret: strings.Repeat("s", 32), Issuer: "rpccall"}}
	ts, err = cfg.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err = ts.Token()
	require.NoError(t, err)
	require.Len(t, strings.Split(tok.AccessToken, "."), 3)

	ts, err = Config{}.TokenSource(context.Background())
	require.NoError(t, err)
	require.Nil(t, ts)
}

func TestClientOptions(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_ENV", "production")
	t.Setenv("RPC_ORIGIN", "https://app.example.com/some/page")
	t.Setenv("RPC_TIMEOUT", "3s")
	cfg, err := Load("")
	require.NoError(t, err)

	opts, jar, err := cfg.ClientOptions(context.Background(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Nil(t, jar)
	require.Equal(t, client.Production, opts.Environment)
	require.Equal(t, 3*time.Second, opts.Timeout)
	require.Nil(t, opts.TokenSource)

	network, ok := opts.Transport.(*transport.Network)
	require.True(t, ok)
	require.Nil(t, network.Jar)
	require.Equal(t, "https://app.example.com", network.Origin.String())
	require.Equal(t, 3*time.Second, network.Timeout)
}

func TestClientOptionsCookies(t *testing.T) {
	clearEnv(t)
	file := filepath.Join(t.TempDir(), "cookies")
	t.Setenv("RPC_CREDENTIALS", "include")
	t.Setenv("RPC_COOKIE_FILE", file)
	t.Setenv("RPC_COOKIE_KEY", testKey())
	cfg, err := Load("")
	require.NoError(t, err)

	// Seed the store with one cookie.
	store, err := cfg.CookieStore()
	require.NoError(t, err)
	seed := credentials.NewJar()
	u, _ := url.Parse("https://rpc.example.com/api")
	seed.SetCookies(u, []*http.Cookie{{Name: "sid", Value: "abc"}})
	require.NoError(t, store.Save(seed))

	opts, jar, err := cfg.ClientOptions(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, jar)
	network := opts.Transport.(*transport.Network)
	require.NotNil(t, network.Jar)

	cookies := jar.Cookies(u)
	require.Len(t, cookies, 1)
	require.Equal(t, "abc", cookies[0].Value)
}

func TestClientOptionsBadOrigin(t *testing.T) {
	cfg := Config{Environment: "test", Timeout: time.Second, Origin: "/relative"}
	_, _, err := cfg.ClientOptions(context.Background(), nil)
	require.Error(t, err)
}

func TestTokenSourceOIDC(t *testing.T) {
	clearEnv(t)
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"issuer":                 srv.URL,
				"authorization_endpoint": srv.URL + "/auth",
				"token_endpoint":         srv.URL + "/token",
				"jwks_uri":               srv.URL + "/keys",
			})
		case "/token":
			id, secret, _ := r.BasicAuth()
			assert.Equal(t, "rpccall", id)
			assert.Equal(t, "s3cret", secret)
			assert.Equal(t, "https://rpc.example.com", r.FormValue("audience"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "oidc-token",
				"token_type":   "Bearer",
				"expires_in":   300,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	t.Setenv("RPC_OIDC_ISSUER", srv.URL)
	t.Setenv("RPC_OIDC_CLIENT_ID", "rpccall")
	t.Setenv("RPC_OIDC_CLIENT_SECRET", "s3cret")
	t.Setenv("RPC_OIDC_AUDIENCE", "https://rpc.example.com")
	cfg, err := Load("")
	require.NoError(t, err)

	opts, _, err := cfg.ClientOptions(context.Background(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, opts.TokenSource)
	tok, err := opts.TokenSource.Token()
	require.NoError(t, err)
	require.Equal(t, "oidc-token", tok.AccessToken)

	// A fixed token wins over the provider.
	cfg.Auth.Token = "fixed"
	ts, err := cfg.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err = ts.Token()
	require.NoError(t, err)
	require.Equal(t, "fixed", tok.AccessToken)
}
