package client

import (
	"github.com/google/uuid"

	"github.com/mnehpets/rpcrequest/auth"
	"github.com/mnehpets/rpcrequest/credentials"
)

// CallRequest describes one JSON-RPC call.
type CallRequest struct {
	// URL is the endpoint. The network transport resolves relative URLs
	// against its origin; the in-process transport serves them as paths.
	URL    string
	Method string
	// ID correlates the response. A nil, empty, zero or false ID makes the
	// call a notification.
	ID interface{}
	// Params must be an object or array when set.
	Params interface{}

	// Headers are sent as given, except that Signature and Authorization
	// are replaced when the call carries a signature or credentials.
	Headers map[string]string

	Auth *auth.Basic
	// JWT is sent as a bearer token. Basic credentials take precedence.
	JWT string

	// Signature is sent as JSON text in the Signature header.
	Signature interface{}
	// Signer produces the signature from the request body when Signature
	// is nil.
	Signer Signer

	Credentials credentials.Mode
	// Dev routes the call to the application handler instead of the
	// network, unless the client runs in production.
	Dev bool
}

// Signer computes a signature value over the serialized request body.
type Signer interface {
	Sign(body []byte) (interface{}, error)
}

// SignerFunc adapts a function to a Signer.
type SignerFunc func(body []byte) (interface{}, error)

func (f SignerFunc) Sign(body []byte) (interface{}, error) {
	return f(body)
}

// NewID returns a random call ID.
func NewID() string {
	return uuid.NewString()
}
