// Package client sends JSON-RPC 2.0 calls and normalizes every outcome into
// a JSON-RPC response envelope.
//
// A call never fails with a Go error. Whatever happens (invalid params, a
// refused connection, an HTTP error status, a body that is not JSON) the
// caller receives a *jsonrpc.Response, either the server's own response
// passed through unchanged or an error response synthesized by the client:
//
//	c := client.New(client.Options{Environment: client.Production})
//	resp := c.Call(ctx, client.CallRequest{
//	    URL:    "https://rpc.example.com/api",
//	    ID:     "1",
//	    Method: "ping",
//	    Params: map[string]string{"foo": "bar"},
//	})
//	if err := resp.Err(); err != nil {
//	    // err is a *jsonrpc.JSONRPCError
//	}
//
// # Error Mapping
//
//   - params that are not an object or array: -32602 "Invalid params", and
//     nothing is sent;
//   - a failure whose message is "Not Found" (an HTTP 404): -32603;
//   - any other failure: -32099, with the failure text as the message;
//   - a body naming itself {"name": "InternalServerError", ...}: its own
//     code and message, or -32099 with the code as data when the code is
//     not an integer.
//
// # Development Transport
//
// With CallRequest.Dev set, and a client environment other than Production,
// calls are served in-process by the http.Handler passed to Do. Failures on
// this path are reported with -32603, including an HTTP error status or a
// body that is not JSON. A JSON body is returned as sent.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/mnehpets/rpcrequest/jsonrpc"
	"github.com/mnehpets/rpcrequest/transport"
)

// Environment selects which transports a client may use.
type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
	Test        Environment = "test"
)

// DefaultTimeout bounds every call.
const DefaultTimeout = transport.DefaultTimeout

// MissingAppMessage is reported when a development call has no handler.
const MissingAppMessage = `"app" not found in second argument`

// Options configures a Client. All fields are optional.
type Options struct {
	// Environment defaults to Development. Only Production disables the
	// development transport.
	Environment Environment
	// Transport sends non-development calls. Defaults to a transport.Network
	// with no cookie jar and the client's timeout.
	Transport transport.Transport
	// Timeout bounds every call and defaults to DefaultTimeout. A supplied
	// transport.Network also applies its own Timeout, so the shorter of the
	// two wins.
	Timeout time.Duration
	// TokenSource supplies a bearer token for calls without JWT or basic
	// credentials.
	TokenSource oauth2.TokenSource
	Logger      *zap.Logger
	Metrics     *Metrics
}

// Client issues JSON-RPC calls. It is safe for concurrent use.
type Client struct {
	env       Environment
	transport transport.Transport
	timeout   time.Duration
	tokens    oauth2.TokenSource
	log       *zap.Logger
	metrics   *Metrics
}

func New(opts Options) *Client {
	c := &Client{
		env:       opts.Environment,
		transport: opts.Transport,
		timeout:   opts.Timeout,
		tokens:    opts.TokenSource,
		log:       opts.Logger,
		metrics:   opts.Metrics,
	}
	if c.env == "" {
		c.env = Development
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.transport == nil {
		c.transport = &transport.Network{Timeout: c.timeout}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Environment reports the environment the client was built for.
func (c *Client) Environment() Environment {
	return c.env
}

// Call is Do without an application handler.
func (c *Client) Call(ctx context.Context, req CallRequest) *jsonrpc.Response {
	return c.Do(ctx, req, nil)
}

// Go runs Do in its own goroutine. The channel receives exactly one
// response.
func (c *Client) Go(ctx context.Context, req CallRequest, app http.Handler) <-chan *jsonrpc.Response {
	ch := make(chan *jsonrpc.Response, 1)
	go func() {
		ch <- c.Do(ctx, req, app)
	}()
	return ch
}

// Do performs one call. app serves development calls and is ignored
// otherwise.
func (c *Client) Do(ctx context.Context, req CallRequest, app http.Handler) *jsonrpc.Response {
	start := time.Now()
	resp := c.do(ctx, &req, app)
	if err := resp.Error; err != nil {
		c.log.Debug("JSON-RPC call failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Int("code", err.Code),
			zap.String("message", err.Message))
	}
	c.metrics.observe(req.Method, resp, time.Since(start))
	return resp
}

func (c *Client) do(ctx context.Context, req *CallRequest, app http.Handler) *jsonrpc.Response {
	if req.Params != nil && !jsonrpc.IsStructured(req.Params) {
		return jsonrpc.ErrorResponse(jsonrpc.NewError(jsonrpc.CodeInvalidParams, "Invalid params"))
	}

	tr, dev, rpcErr := c.selectTransport(req, app)
	if rpcErr != nil {
		return jsonrpc.ErrorResponse(rpcErr)
	}

	body, err := json.Marshal(jsonrpc.NewRequest(req.Method, req.ID, req.Params))
	if err != nil {
		return failure(err)
	}
	header, err := c.buildHeader(req, body)
	if err != nil {
		return failure(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Debug("sending JSON-RPC request",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Bool("dev", dev))

	raw, err := tr.Send(ctx, &transport.Message{
		URL:         req.URL,
		Body:        body,
		Header:      header,
		Credentials: req.Credentials.OrDefault(),
	})
	if err != nil {
		return failure(err)
	}
	if dev {
		return interpretDev(raw)
	}
	return interpret(raw)
}

// selectTransport picks the in-process transport for development calls
// and the configured transport otherwise. dev reports which one.
func (c *Client) selectTransport(req *CallRequest, app http.Handler) (tr transport.Transport, dev bool, rpcErr *jsonrpc.JSONRPCError) {
	if !req.Dev || c.env == Production {
		return c.transport, false, nil
	}
	if app == nil {
		return nil, false, jsonrpc.NewError(jsonrpc.CodeInternalError, MissingAppMessage)
	}
	return devTransport{transport.NewInProcess(app)}, true, nil
}

// devTransport reports every failure of the wrapped transport as an
// internal error.
type devTransport struct {
	transport.Transport
}

func (d devTransport) Send(ctx context.Context, msg *transport.Message) (*transport.RawResponse, error) {
	raw, err := d.Transport.Send(ctx, msg)
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error())
	}
	return raw, nil
}
