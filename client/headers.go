package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mnehpets/rpcrequest/auth"
)

const contentTypeJSON = "application/json"

// buildHeader assembles the request headers. Later steps overwrite earlier
// ones: caller headers, then defaults where unset, then Signature, then a
// bearer token, then basic credentials.
func (c *Client) buildHeader(req *CallRequest, body []byte) (http.Header, error) {
	h := make(http.Header, len(req.Headers)+3)
	for name, value := range req.Headers {
		h.Set(name, value)
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", contentTypeJSON)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", contentTypeJSON)
	}

	sig := req.Signature
	if sig == nil && req.Signer != nil {
		var err error
		if sig, err = req.Signer.Sign(body); err != nil {
			return nil, fmt.Errorf("signature: %w", err)
		}
	}
	if sig != nil {
		text, err := json.Marshal(sig)
		if err != nil {
			return nil, fmt.Errorf("signature: %w", err)
		}
		h.Set("Signature", string(text))
	}

	basic, hasBasic := req.Auth.Header()

	token := req.JWT
	if token == "" && !hasBasic && c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("token: %w", err)
		}
		token = tok.AccessToken
	}
	if token != "" {
		h.Set("Authorization", auth.BearerHeader(token))
	}
	if hasBasic {
		h.Set("Authorization", basic)
	}
	return h, nil
}
