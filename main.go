package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetingSummarize/config"
	"meetingSummarize/core"
	"meetingSummarize/jobs"
	"meetingSummarize/processors"
	"meetingSummarize/server"
	"meetingSummarize/storage"
)

func main() {
	if err := os.MkdirAll(core.DataRoot(), 0o755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Warning: %v", err)
		config.PrintConfigInstructions()
	}

	// Canceled on shutdown; in-flight pipeline runs observe it between
	// stages.
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transcripts := storage.NewTranscriptStore(runCtx, cfg)
	log.Printf("Transcript store initialized")

	transcriber := processors.NewTranscriber(cfg)
	summarizer := processors.NewSummarizer(cfg)
	log.Printf("Pipeline initialized: whisper=%s summary=%s", cfg.WhisperProvider, cfg.SummaryProvider)

	jobStore := jobs.NewStore()
	runner := jobs.NewRunner(jobStore, transcripts, transcriber, summarizer)

	srv := server.NewServer(runCtx, cfg, transcripts, jobStore, runner)
	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Routes(),
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-runCtx.Done()
	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
