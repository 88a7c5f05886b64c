// Command document-api serves document and job status for polling clients.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lllllllleong/docinsight/internal/api"
	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/records"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.LogLevel()}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("Document API stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := config.LoadDocumentAPI()
	if err != nil {
		return err
	}

	store, err := records.Open(ctx, cfg.Records)
	if err != nil {
		return err
	}
	defer store.Close()

	app := api.NewRouter()
	api.SetUpDocumentRoutes(app.Group("/documents"), store)

	return api.Serve(ctx, ":"+cfg.Port, app)
}
