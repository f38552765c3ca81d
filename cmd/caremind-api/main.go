package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"caremind/internal/api"
	"caremind/internal/config"
	"caremind/internal/gemini"
	"caremind/internal/logger"
	"caremind/internal/pipeline"
	"caremind/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ai, err := gemini.New(ctx, cfg, db)
	must(err)

	handlers := api.NewHandlers(db, pipeline.NewViewService(db, ai, cfg))
	must(api.Serve(ctx, cfg.HTTPAddr, api.NewRouter(handlers), logger.NewLogger("http")))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
