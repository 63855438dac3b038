package client

import (
	"encoding/json"
	"errors"

	"github.com/mnehpets/rpcrequest/jsonrpc"
	"github.com/mnehpets/rpcrequest/transport"
)

// internalServerErrorName marks the body some servers send instead of an
// envelope when a handler throws.
const internalServerErrorName = "InternalServerError"

// interpret turns a raw network response into the call's result.
func interpret(raw *transport.RawResponse) *jsonrpc.Response {
	if raw.StatusCode >= 400 {
		return failure(errors.New(raw.StatusText))
	}

	resp, err := jsonrpc.ParseResponse(raw.Body)
	if err != nil {
		return failure(err)
	}
	if rpcErr, ok := internalServerError(raw.Body); ok {
		return jsonrpc.ErrorResponse(rpcErr)
	}
	return resp
}

// interpretDev turns a raw in-process response into the call's result. A
// JSON body is returned as sent; anything else is an internal error.
func interpretDev(raw *transport.RawResponse) *jsonrpc.Response {
	if raw.StatusCode >= 400 {
		return jsonrpc.ErrorResponse(jsonrpc.NewError(jsonrpc.CodeInternalError, raw.StatusText))
	}
	resp, err := jsonrpc.ParseResponse(raw.Body)
	if err != nil {
		return jsonrpc.ErrorResponse(jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error()))
	}
	return resp
}

// internalServerError reports whether body is an object named
// InternalServerError and converts it to an error. A code that is not an
// integer is kept as Data under CodeServerError.
func internalServerError(body []byte) (*jsonrpc.JSONRPCError, bool) {
	var fields map[string]json.RawMessage
	if json.Unmarshal(body, &fields) != nil {
		return nil, false
	}
	var name string
	if json.Unmarshal(fields["name"], &name) != nil || name != internalServerErrorName {
		return nil, false
	}

	rpcErr := jsonrpc.NewError(jsonrpc.CodeServerError, internalServerErrorName)
	if raw, ok := fields["code"]; ok && string(raw) != "null" {
		var code int
		if err := json.Unmarshal(raw, &code); err == nil {
			rpcErr.Code = code
		} else {
			var data interface{}
			if json.Unmarshal(raw, &data) == nil {
				rpcErr.Data = data
			}
		}
	}
	if raw, ok := fields["message"]; ok {
		var msg string
		if json.Unmarshal(raw, &msg) == nil {
			rpcErr.Message = msg
		} else {
			rpcErr.Message = string(raw)
		}
	}
	return rpcErr, true
}

// failure maps an error to an error response. Errors that already carry a
// JSON-RPC code keep it; otherwise "Not Found" is an internal error and
// anything else a generic server error.
func failure(err error) *jsonrpc.Response {
	var rpcErr *jsonrpc.JSONRPCError
	if errors.As(err, &rpcErr) {
		return jsonrpc.ErrorResponse(jsonrpc.NewError(rpcErr.Code, rpcErr.Message))
	}
	msg := err.Error()
	code := jsonrpc.CodeServerError
	if msg == "Not Found" {
		code = jsonrpc.CodeInternalError
	}
	return jsonrpc.ErrorResponse(jsonrpc.NewError(code, msg))
}
