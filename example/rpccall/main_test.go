package main

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/rpcrequest/auth"
	"github.com/mnehpets/rpcrequest/client"
	"github.com/mnehpets/rpcrequest/config"
	"github.com/mnehpets/rpcrequest/credentials"
)

func TestBuildRequest(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	req, err := buildRequest(callFlags{
		Endpoint:    "https://rpc.example.com/api",
		Method:      "ping",
		Params:      `{"foo":"bar"}`,
		User:        "alice",
		Pass:        "secret",
		Credentials: "include",
		SignKey:     base58.Encode(seed),
		Controller:  "did:example:alice",
	}, config.Config{})
	require.NoError(t, err)
	require.Equal(t, "https://rpc.example.com/api", req.URL)
	require.Len(t, req.ID, 36)
	require.Equal(t, json.RawMessage(`{"foo":"bar"}`), req.Params)
	require.Equal(t, &auth.Basic{User: "alice", Pass: "secret"}, req.Auth)
	require.Equal(t, credentials.Include, req.Credentials)
	require.NotNil(t, req.Signer)
}

func TestBuildRequestDefaultsFromConfig(t *testing.T) {
	cfg := config.Config{
		Endpoint:    "https://rpc.example.com/api",
		Credentials: "same-origin",
		Auth:        config.AuthConfig{User: "bob", Pass: "pw"},
	}
	req, err := buildRequest(callFlags{Method: "ping", Notify: true}, cfg)
	require.NoError(t, err)
	require.Equal(t, cfg.Endpoint, req.URL)
	require.Nil(t, req.ID)
	require.Equal(t, credentials.SameOrigin, req.Credentials)
	require.Equal(t, "bob", req.Auth.User)
}

func TestBuildRequestErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags callFlags
	}{
		{"no method", callFlags{Endpoint: "https://rpc.example.com"}},
		{"no endpoint", callFlags{Method: "ping"}},
		{"bad params", callFlags{Endpoint: "https://rpc.example.com", Method: "ping", Params: "{"}},
		{"user without pass", callFlags{Endpoint: "https://rpc.example.com", Method: "ping", User: "alice"}},
		{"pass without user", callFlags{Endpoint: "https://rpc.example.com", Method: "ping", Pass: "secret"}},
		{"bad credentials", callFlags{Endpoint: "https://rpc.example.com", Method: "ping", Credentials: "always"}},
		{"short sign key", callFlags{Endpoint: "https://rpc.example.com", Method: "ping", SignKey: base58.Encode([]byte("short"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildRequest(tt.flags, config.Config{})
			require.Error(t, err)
		})
	}
}

func TestEchoHandlerDevCall(t *testing.T) {
	req, err := buildRequest(callFlags{Endpoint: "/rpc", Method: "echo", ID: "7", Params: `[1,2]`, Dev: true}, config.Config{})
	require.NoError(t, err)

	resp := client.New(client.Options{}).Do(context.Background(), req, echoHandler())
	require.NoError(t, resp.Err())
	var got []int
	require.NoError(t, resp.DecodeResult(&got))
	require.Equal(t, []int{1, 2}, got)
}
