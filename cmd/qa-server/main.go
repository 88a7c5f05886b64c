// Command qa-server answers questions about embedded documents over HTTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lllllllleong/docinsight/internal/api"
	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/llm"
	"github.com/Lllllllleong/docinsight/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.LogLevel()}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("QA server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := config.LoadQuery()
	if err != nil {
		return err
	}

	embedder, err := llm.NewEmbeddingEndpoint(cfg.EmbeddingEndpoint, cfg.EmbeddingModel, cfg.EmbeddingAPIKey)
	if err != nil {
		return err
	}
	generator, err := llm.NewGenerator(ctx, cfg.Generation)
	if err != nil {
		return err
	}
	defer generator.Close()

	app := api.NewRouter()
	api.SetUpQueryRoutes(app.Group("/"), services.NewQueryService(cfg.MountPoint, embedder, generator))

	return api.Serve(ctx, ":"+cfg.Port, app)
}
