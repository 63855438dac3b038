package jsonrpc

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Version is the only protocol version this package speaks.
const Version = "2.0"

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// CodeServerError is the catch-all for transport and parse failures.
	CodeServerError = -32099
)

type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return e.Message
}

func NewError(code int, message string) *JSONRPCError {
	return &JSONRPCError{Code: code, Message: message}
}

// Request is the JSON-RPC request envelope sent on the wire.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	ID      interface{} `json:"id,omitempty"`
	Params  interface{} `json:"params,omitempty"`
}

// NewRequest builds an envelope for method. The id is only included when it
// is truthy, otherwise the request is sent as a notification. Params are
// included whenever they are non-nil.
func NewRequest(method string, id interface{}, params interface{}) *Request {
	req := &Request{
		JSONRPC: Version,
		Method:  method,
	}
	if truthy(id) {
		req.ID = id
	}
	if params != nil {
		req.Params = params
	}
	return req
}

// truthy reports whether an id carries a usable value: nil, false, empty
// strings and zero numbers do not.
func truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	switch id := v.(type) {
	case json.Number:
		f, err := id.Float64()
		return err != nil || f != 0
	case json.RawMessage:
		s := string(bytes.TrimSpace(id))
		return s != "" && s != "null" && s != "false" && s != `""` && s != "0"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return truthy(rv.Elem().Interface())
	}
	return true
}

// IsStructured reports whether params is an object or array value, which is
// all JSON-RPC accepts. Scalars (strings, numbers, booleans) are not.
// A []byte is treated as a scalar since encoding/json writes it as a string.
func IsStructured(params interface{}) bool {
	switch p := params.(type) {
	case nil:
		return false
	case json.RawMessage:
		return rawStructured(p)
	case *json.RawMessage:
		return p != nil && rawStructured(*p)
	case []byte:
		return false
	}
	rv := reflect.ValueOf(params)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func rawStructured(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && (raw[0] == '{' || raw[0] == '[')
}
