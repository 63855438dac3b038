package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OIDCConfig describes a client credentials grant against an OpenID
// provider whose token endpoint is found by discovery.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// Params are extra token request parameters, e.g. "audience".
	Params map[string][]string

	// HTTPClient, when set, is used for discovery and token requests.
	HTTPClient *http.Client
}

// NewOIDCSource discovers the issuer's token endpoint and returns a
// TokenSource running the client credentials grant against it. Tokens are
// reused until shortly before they expire. ctx is kept for token requests
// and must outlive the source.
func NewOIDCSource(ctx context.Context, cfg OIDCConfig) (oauth2.TokenSource, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, errors.New("auth: OIDC issuer and client ID are required")
	}
	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to query provider %q: %w", cfg.Issuer, err)
	}
	tokenURL := provider.Endpoint().TokenURL
	if tokenURL == "" {
		return nil, fmt.Errorf("auth: provider %q has no token endpoint", cfg.Issuer)
	}

	cc := &clientcredentials.Config{
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		TokenURL:       tokenURL,
		Scopes:         cfg.Scopes,
		EndpointParams: cfg.Params,
	}
	return cc.TokenSource(ctx), nil
}
