package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/mnehpets/rpcrequest/client"
)

// ping answers "PONG" to a ping call whose params carry foo=bar.
func ping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params map[string]string `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Method != "ping" || req.Params["foo"] != "bar" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`"PONG"`))
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api", ping)

	c := client.New(client.Options{Environment: client.Development, Logger: logger})
	resp := c.Do(context.Background(), client.CallRequest{
		URL:    "/api",
		ID:     client.NewID(),
		Method: "ping",
		Params: map[string]string{"foo": "bar"},
		Dev:    true,
	}, mux)

	if err := resp.Err(); err != nil {
		logger.Fatal("call failed", zap.Error(err))
	}
	var result string
	if err := resp.Decode(&result); err != nil {
		logger.Fatal("unexpected response", zap.Error(err))
	}
	logger.Info("call succeeded", zap.String("result", result))
}
