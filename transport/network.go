package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mnehpets/rpcrequest/credentials"
)

// maxBodyLen bounds how much of a response body is read.
const maxBodyLen = 32 << 20

// Network sends requests over HTTP. The zero value is usable: it sends
// through http.DefaultTransport with DefaultTimeout and never attaches
// cookies.
type Network struct {
	// Client supplies the RoundTripper and redirect policy. Its Jar and
	// Timeout are ignored; see Jar and Timeout.
	Client *http.Client
	// Jar holds cookies for calls made with a credentials mode other than
	// Omit.
	Jar http.CookieJar
	// Origin is the origin of the caller. It decides which URLs are
	// same-origin, and relative request URLs are resolved against it.
	Origin  *url.URL
	Timeout time.Duration
}

// NetworkOptions configures NewNetwork.
type NetworkOptions struct {
	Client  *http.Client
	Jar     http.CookieJar
	Origin  string
	Timeout time.Duration
}

// NewNetwork builds a Network transport. Origin, when set, must be an
// absolute URL.
func NewNetwork(opts NetworkOptions) (*Network, error) {
	n := &Network{
		Client:  opts.Client,
		Jar:     opts.Jar,
		Timeout: opts.Timeout,
	}
	if opts.Origin != "" {
		origin, err := url.Parse(opts.Origin)
		if err != nil {
			return nil, err
		}
		if !origin.IsAbs() || origin.Host == "" {
			return nil, errors.New("transport: origin must be an absolute URL")
		}
		n.Origin = &url.URL{Scheme: origin.Scheme, Host: origin.Host}
	}
	return n, nil
}

// Send issues one POST. It does not retry, and it does not treat any status
// code as an error.
func (n *Network) Send(ctx context.Context, msg *Message) (*RawResponse, error) {
	target, err := n.resolve(msg.URL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(msg.Body))
	if err != nil {
		return nil, err
	}
	for name, values := range msg.Header {
		req.Header[name] = append([]string(nil), values...)
	}

	resp, err := n.client(msg.Credentials).Do(req)
	if err != nil {
		// Report the underlying cause rather than `Post "url": cause`.
		var ue *url.Error
		if errors.As(err, &ue) && ue.Err != nil {
			return nil, ue.Err
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyLen))
	if err != nil {
		return nil, err
	}
	return &RawResponse{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp.StatusCode, resp.Status),
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (n *Network) resolve(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() && n.Origin != nil {
		u = n.Origin.ResolveReference(u)
	}
	return u, nil
}

// client returns a per-call http.Client sharing the configured
// RoundTripper, with the cookie jar the credentials mode allows.
func (n *Network) client(mode credentials.Mode) *http.Client {
	base := n.Client
	if base == nil {
		base = http.DefaultClient
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport:     base.Transport,
		CheckRedirect: base.CheckRedirect,
		Jar:           credentials.Filter(n.Jar, mode, n.Origin),
		Timeout:       timeout,
	}
}
