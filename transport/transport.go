// Package transport delivers a serialized JSON-RPC request and returns the
// raw HTTP outcome.
//
// Two implementations are provided:
//   - Network: a single HTTP POST over the network, with a fixed timeout and
//     a credentials-inclusion mode controlling cookies.
//   - InProcess: the request is served directly by an http.Handler, with no
//     socket involved. This is intended for development and tests.
//
// A Transport only moves bytes. Interpreting status codes and bodies is left
// to the caller.
package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mnehpets/rpcrequest/credentials"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

var ErrNoHandler = errors.New("transport: nil handler")

// Message is a request ready to be sent.
type Message struct {
	URL         string
	Body        []byte
	Header      http.Header
	Credentials credentials.Mode
}

// RawResponse is what came back, before any JSON-RPC interpretation.
type RawResponse struct {
	StatusCode int
	// StatusText is the reason phrase, e.g. "Not Found".
	StatusText string
	Header     http.Header
	Body       []byte
}

// Transport sends one Message and returns the raw response. Implementations
// must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, msg *Message) (*RawResponse, error)
}

// TransportFunc adapts a function to a Transport.
type TransportFunc func(ctx context.Context, msg *Message) (*RawResponse, error)

func (f TransportFunc) Send(ctx context.Context, msg *Message) (*RawResponse, error) {
	return f(ctx, msg)
}

// statusText extracts the reason phrase from a status line such as
// "404 Not Found", falling back to the standard text for the code.
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return text
}
