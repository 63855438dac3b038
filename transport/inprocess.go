package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
)

// InProcess serves each request with Handler directly, as if it had arrived
// over the network. Cookies are neither sent nor kept, whatever the
// credentials mode.
type InProcess struct {
	Handler http.Handler
}

func NewInProcess(h http.Handler) *InProcess {
	return &InProcess{Handler: h}
}

// Send runs Handler against the message. A panic in the handler, or a URL
// the request cannot be built from, is returned as an error.
func (p *InProcess) Send(ctx context.Context, msg *Message) (raw *RawResponse, err error) {
	if p == nil || p.Handler == nil {
		return nil, ErrNoHandler
	}
	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = fmt.Errorf("%v", r)
		}
	}()

	req := httptest.NewRequestWithContext(ctx, http.MethodPost, msg.URL, bytes.NewReader(msg.Body))
	for name, values := range msg.Header {
		req.Header[name] = append([]string(nil), values...)
	}

	rec := httptest.NewRecorder()
	p.Handler.ServeHTTP(rec, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := rec.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &RawResponse{
		StatusCode: res.StatusCode,
		StatusText: statusText(res.StatusCode, res.Status),
		Header:     res.Header,
		Body:       body,
	}, nil
}
