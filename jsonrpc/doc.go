// Package jsonrpc defines the JSON-RPC 2.0 wire types used by the client.
//
// This package implements the envelope side of the JSON-RPC 2.0 specification
// (https://www.jsonrpc.org/specification). It does not dispatch methods; it
// only builds requests and represents responses.
//
// # Requests
//
// NewRequest builds the envelope sent on the wire:
//
//	req := jsonrpc.NewRequest("math.Add", "req-1", map[string]int{"a": 1, "b": 2})
//	// {"jsonrpc":"2.0","method":"math.Add","id":"req-1","params":{"a":1,"b":2}}
//
// The id is omitted when it is not truthy (nil, "", 0 or false), which makes
// the request a notification. Params are omitted when nil. Params must be an
// object or array; IsStructured performs that check.
//
// # Responses
//
// A Response parsed from a server body keeps that body verbatim:
//
//	resp, err := jsonrpc.ParseResponse(body)
//	var result string
//	err = resp.DecodeResult(&result)
//
// Locally detected failures are represented with ErrorResponse, which always
// carries a null id:
//
//	resp := jsonrpc.ErrorResponse(jsonrpc.NewError(jsonrpc.CodeInvalidParams, "Invalid params"))
//	// {"jsonrpc":"2.0","error":{"code":-32602,"message":"Invalid params"},"id":null}
//
// # Error Codes
//
// Standard error codes are defined as constants:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeInternalError (-32603)
//   - CodeServerError (-32099), used for transport and parsing failures
package jsonrpc
