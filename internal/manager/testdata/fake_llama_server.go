package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// A stand-in for llama-server: one token per byte, completion appends "!".
func main() {
	var model, host, port string
	var ngl, ctxSize, threads int
	// Accept the subset of llama-server flags the backend passes
	flag.StringVar(&model, "m", "", "model path")
	flag.StringVar(&host, "host", "127.0.0.1", "host")
	flag.StringVar(&port, "port", "0", "port")
	flag.IntVar(&ngl, "ngl", 0, "gpu layers")
	flag.IntVar(&ctxSize, "c", 0, "context size")
	flag.IntVar(&threads, "t", 0, "threads")
	flag.Parse()
	if os.Getenv("FAKE_LLAMA_FAIL") != "" {
		fmt.Fprintln(os.Stderr, "failed to load model")
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Content string `json:"content"` }
		_ = json.NewDecoder(r.Body).Decode(&req)
		toks := []int{}
		for _, b := range []byte(req.Content) {
			toks = append(toks, int(b))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"tokens": toks})
	})
	mux.HandleFunc("/completion", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"content": "!", "tokens": []int{'!'}, "tokens_predicted": 1, "stopped_eos": true})
	})
	mux.HandleFunc("/detokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Tokens []int `json:"tokens"` }
		_ = json.NewDecoder(r.Body).Decode(&req)
		b := []byte{}
		for _, t := range req.Tokens {
			b = append(b, byte(t))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content": string(b)})
	})

	srv := &http.Server{Addr: host + ":" + port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for SIGTERM then shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
