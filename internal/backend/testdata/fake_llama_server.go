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
	"strings"
	"syscall"
	"time"
)

const dim = 8

func main() {
	var model, hfRepo, hfFile, host, port, pooling string
	var ctxSize, batch, ubatch, threads, ngl int
	var embeddings bool
	// Accept the subset of llama-server flags the backend passes.
	flag.StringVar(&model, "m", "", "model path")
	flag.StringVar(&hfRepo, "hf-repo", "", "hub repo")
	flag.StringVar(&hfFile, "hf-file", "", "hub file")
	flag.StringVar(&host, "host", "127.0.0.1", "host")
	flag.StringVar(&port, "port", "0", "port")
	flag.StringVar(&pooling, "pooling", "", "pooling")
	flag.BoolVar(&embeddings, "embeddings", false, "embedding mode")
	flag.IntVar(&ctxSize, "c", 0, "context")
	flag.IntVar(&batch, "b", 0, "batch")
	flag.IntVar(&ubatch, "ub", 0, "ubatch")
	flag.IntVar(&threads, "t", 0, "threads")
	flag.IntVar(&ngl, "ngl", 0, "gpu layers")
	flag.Parse()

	if os.Getenv("FAKE_LLAMA_EXIT_EARLY") == "1" {
		fmt.Fprintln(os.Stderr, "error: failed to load model")
		os.Exit(1)
	}
	if !embeddings || pooling != "none" {
		log.Fatalf("expected --embeddings --pooling none, got embeddings=%v pooling=%q", embeddings, pooling)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		toks := []int32{101}
		for _, word := range strings.Fields(req.Content) {
			toks = append(toks, int32(1000+len(word)))
		}
		toks = append(toks, 102)
		_ = json.NewEncoder(w).Encode(map[string]any{"tokens": toks})
	})
	mux.HandleFunc("/embedding", func(w http.ResponseWriter, r *http.Request) {
		if os.Getenv("FAKE_LLAMA_OOM") == "1" {
			http.Error(w, `{"error":{"message":"CUDA error: out of memory"}}`, http.StatusInternalServerError)
			return
		}
		var req struct {
			Content []int32 `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows := make([][]float32, len(req.Content))
		for i, tok := range req.Content {
			row := make([]float32, dim)
			for j := range row {
				row[j] = float32((int(tok)+j)%7) + 0.5
			}
			rows[i] = row
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"index": 0, "embedding": rows}})
	})

	srv := &http.Server{Addr: fmt.Sprintf("%s:%s", host, port), Handler: mux}
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
