package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Response is a JSON-RPC response.
//
// A Response is either parsed from a server body, in which case the body is
// kept verbatim and re-emitted unchanged by MarshalJSON, or synthesized
// locally by ErrorResponse. Servers are trusted to produce a correct
// envelope, so a parsed body is never rejected for its shape: a bare
// "PONG" is a valid Response whose fields are all empty and whose Raw is
// the string.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`

	raw json.RawMessage
}

// plainResponse has Response's fields without its methods.
type plainResponse Response

// ErrorResponse synthesizes an error envelope with a null id.
func ErrorResponse(err *JSONRPCError) *Response {
	return &Response{
		JSONRPC: Version,
		Error:   err,
	}
}

// ParseResponse wraps a well-formed JSON body. If the body is an object its
// members are decoded into the envelope fields; any other JSON value is
// only available through Raw and Decode.
func ParseResponse(body []byte) (*Response, error) {
	if !json.Valid(body) {
		var v interface{}
		err := json.Unmarshal(body, &v)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, err
	}
	r := &Response{raw: append(json.RawMessage(nil), body...)}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		// Members of the wrong type are left zero; Raw still has them.
		_ = json.Unmarshal(trimmed, (*plainResponse)(r))
	}
	return r, nil
}

// Raw returns the server body a Response was parsed from, or nil for a
// synthesized Response.
func (r *Response) Raw() json.RawMessage {
	return r.raw
}

// Err returns the error member, or nil for a successful call.
func (r *Response) Err() error {
	if r == nil || r.Error == nil {
		return nil
	}
	return r.Error
}

// Decode unmarshals the whole response, as the server sent it, into v.
func (r *Response) Decode(v interface{}) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// DecodeResult unmarshals the result member into v.
func (r *Response) DecodeResult(v interface{}) error {
	if r.Error != nil {
		return r.Error
	}
	if r.Result == nil {
		return errors.New("jsonrpc: no result in response")
	}
	return json.Unmarshal(r.Result, v)
}

// MarshalJSON re-emits a parsed body unchanged; synthesized responses are
// encoded from their fields.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}
	return json.Marshal((*plainResponse)(r))
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Response) UnmarshalJSON(data []byte) error {
	parsed, err := ParseResponse(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}
