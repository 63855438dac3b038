// Command rpccall sends one JSON-RPC call and prints the normalized
// response envelope.
//
//	rpccall call --endpoint https://rpc.example.com/api --method ping --params '{"foo":"bar"}'
//
// Settings not given as flags come from --config, a .env file and RPC_*
// environment variables (see package config).
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/mr-tron/base58"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/mnehpets/rpcrequest/auth"
	"github.com/mnehpets/rpcrequest/client"
	"github.com/mnehpets/rpcrequest/config"
	"github.com/mnehpets/rpcrequest/credentials"
	"github.com/mnehpets/rpcrequest/jsonrpc"
	"github.com/mnehpets/rpcrequest/signature"
)

func main() {
	ctl := cli.NewApp()
	ctl.Name = "rpccall"
	ctl.Usage = "JSON-RPC 2.0 command line client"
	ctl.Commands = []cli.Command{{
		Name:   "call",
		Usage:  "send a single call",
		Action: call,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "config, c", Usage: "YAML configuration file"},
			cli.StringFlag{Name: "endpoint, e", Usage: "endpoint URL (overrides the configured one)"},
			cli.StringFlag{Name: "method, m", Usage: "method name"},
			cli.StringFlag{Name: "params, p", Usage: "params as a JSON object or array"},
			cli.StringFlag{Name: "id", Usage: "call ID (a random UUID when omitted)"},
			cli.BoolFlag{Name: "notify, n", Usage: "send a notification (no ID)"},
			cli.StringFlag{Name: "user, u", Usage: "basic auth user"},
			cli.StringFlag{Name: "pass", Usage: "basic auth password"},
			cli.StringFlag{Name: "jwt", Usage: "bearer token"},
			cli.StringFlag{Name: "credentials", Usage: "cookie mode: omit, same-origin or include"},
			cli.StringFlag{Name: "sign-key", Usage: "base58 Ed25519 seed used to sign the request"},
			cli.StringFlag{Name: "controller", Value: "did:example:rpccall", Usage: "controller of the signing key"},
			cli.BoolFlag{Name: "dev", Usage: "serve the call in-process with a built-in echo handler"},
		},
	}}

	if err := ctl.Run(os.Args); err != nil {
		fmt.Fprintln(ctl.ErrWriter, err)
		os.Exit(1)
	}
}

func call(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	logger, err := cfg.Logger()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = logger.Sync() }()

	opts, jar, err := cfg.ClientOptions(context.Background(), logger)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	c := client.New(opts)

	req, err := buildRequest(flagsFrom(ctx), cfg)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	resp := c.Do(context.Background(), req, echoHandler())

	if jar != nil {
		store, err := cfg.CookieStore()
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		if store != nil {
			if err := store.Save(jar); err != nil {
				logger.Warn("failed to save cookies", zap.Error(err))
			}
		}
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(out))
	if resp.Error != nil {
		return cli.NewExitError("", 2)
	}
	return nil
}

// callFlags are the per-call command line settings.
type callFlags struct {
	Endpoint    string
	Method      string
	Params      string
	ID          string
	Notify      bool
	User        string
	Pass        string
	JWT         string
	Credentials string
	SignKey     string
	Controller  string
	Dev         bool
}

func flagsFrom(ctx *cli.Context) callFlags {
	return callFlags{
		Endpoint:    ctx.String("endpoint"),
		Method:      ctx.String("method"),
		Params:      ctx.String("params"),
		ID:          ctx.String("id"),
		Notify:      ctx.Bool("notify"),
		User:        ctx.String("user"),
		Pass:        ctx.String("pass"),
		JWT:         ctx.String("jwt"),
		Credentials: ctx.String("credentials"),
		SignKey:     ctx.String("sign-key"),
		Controller:  ctx.String("controller"),
		Dev:         ctx.Bool("dev"),
	}
}

func buildRequest(f callFlags, cfg config.Config) (client.CallRequest, error) {
	req := client.CallRequest{
		URL:         cfg.Endpoint,
		Method:      f.Method,
		Auth:        cfg.Basic(),
		Credentials: cfg.Mode(),
		Dev:         f.Dev,
	}
	if req.Method == "" {
		return req, errors.New("--method is required")
	}
	if f.Endpoint != "" {
		req.URL = f.Endpoint
	}
	if req.URL == "" {
		return req, errors.New("no endpoint: use --endpoint or RPC_ENDPOINT")
	}

	if !f.Notify {
		req.ID = f.ID
		if f.ID == "" {
			req.ID = client.NewID()
		}
	}
	if f.Params != "" {
		if !json.Valid([]byte(f.Params)) {
			return req, errors.New("--params is not valid JSON")
		}
		req.Params = json.RawMessage(f.Params)
	}

	if f.User != "" || f.Pass != "" {
		if f.User == "" || f.Pass == "" {
			return req, errors.New("--user and --pass must be given together")
		}
		req.Auth = &auth.Basic{User: f.User, Pass: f.Pass}
	}
	req.JWT = f.JWT
	if f.Credentials != "" {
		mode, err := credentials.ParseMode(f.Credentials)
		if err != nil {
			return req, err
		}
		req.Credentials = mode
	}

	if f.SignKey != "" {
		seed, err := base58.Decode(f.SignKey)
		if err != nil {
			return req, fmt.Errorf("--sign-key: %w", err)
		}
		if len(seed) != ed25519.SeedSize {
			return req, fmt.Errorf("--sign-key: want a %d-byte seed", ed25519.SeedSize)
		}
		signer, err := signature.NewSigner(ed25519.NewKeyFromSeed(seed), f.Controller)
		if err != nil {
			return req, err
		}
		req.Signer = signer
	}
	return req, nil
}

// echoHandler answers every call with its own params.
func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpc.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": jsonrpc.Version,
			"id":      req.ID,
			"result":  req.Params,
		})
	})
}
