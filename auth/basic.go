// Package auth derives the Authorization header of a JSON-RPC call.
//
// Basic credentials and bearer tokens are both supported. Bearer tokens can
// be supplied per call, or obtained on demand from an oauth2.TokenSource:
// NewJWTSource mints signed JWTs locally, and NewOIDCSource runs a client
// credentials grant against a discovered OpenID provider.
package auth

import "encoding/base64"

// Basic is a user/password pair for HTTP basic authentication.
type Basic struct {
	User string `json:"user" yaml:"user"`
	Pass string `json:"pass" yaml:"pass"`
}

// Header returns the Authorization value for b. It reports false unless
// both User and Pass are set.
func (b *Basic) Header() (string, bool) {
	if b == nil || b.User == "" || b.Pass == "" {
		return "", false
	}
	return BasicHeader(b.User, b.Pass), true
}

func BasicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func BearerHeader(token string) string {
	return "Bearer " + token
}
