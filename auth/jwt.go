package auth

import (
	"errors"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// DefaultJWTLifetime is used when JWTConfig.Lifetime is zero.
const DefaultJWTLifetime = 5 * time.Minute

// JWTConfig describes the tokens minted by NewJWTSource.
type JWTConfig struct {
	// Key signs every token, e.g.
	// jose.SigningKey{Algorithm: jose.HS256, Key: secret}.
	Key jose.SigningKey
	// KeyID, when set, is written to the "kid" header.
	KeyID string

	Issuer   string
	Subject  string
	Audience []string
	// Lifetime is the validity of each token.
	Lifetime time.Duration
	// Claims are merged into every token after the registered claims.
	Claims map[string]interface{}

	// Now defaults to time.Now.
	Now func() time.Time
}

type jwtSource struct {
	cfg    JWTConfig
	signer jose.Signer
}

// NewJWTSource returns a TokenSource minting signed JWTs. Tokens are reused
// until shortly before they expire.
func NewJWTSource(cfg JWTConfig) (oauth2.TokenSource, error) {
	if cfg.Key.Key == nil {
		return nil, errors.New("auth: JWT signing key is required")
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultJWTLifetime
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	opts := (&jose.SignerOptions{}).WithType("JWT")
	if cfg.KeyID != "" {
		opts = opts.WithHeader(jose.HeaderKey("kid"), cfg.KeyID)
	}
	signer, err := jose.NewSigner(cfg.Key, opts)
	if err != nil {
		return nil, err
	}
	return oauth2.ReuseTokenSource(nil, &jwtSource{cfg: cfg, signer: signer}), nil
}

func (s *jwtSource) Token() (*oauth2.Token, error) {
	now := s.cfg.Now()
	expiry := now.Add(s.cfg.Lifetime)
	claims := jwt.Claims{
		ID:        uuid.NewString(),
		Issuer:    s.cfg.Issuer,
		Subject:   s.cfg.Subject,
		Audience:  jwt.Audience(s.cfg.Audience),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(expiry),
	}
	builder := jwt.Signed(s.signer).Claims(claims)
	if len(s.cfg.Claims) > 0 {
		builder = builder.Claims(s.cfg.Claims)
	}
	raw, err := builder.Serialize()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}

// StaticToken wraps a fixed bearer token.
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}
