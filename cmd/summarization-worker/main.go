// Command summarization-worker runs one summarization job and exits. The
// launcher passes the job through the environment.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/gcp"
	"github.com/Lllllllleong/docinsight/internal/llm"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/records"
	"github.com/Lllllllleong/docinsight/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.LogLevel()}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("Summarization worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := config.LoadSummarizationWorker()
	if err != nil {
		if ferr := services.FailLaunchedJob(ctx, models.JobKindSummarization, err); ferr != nil {
			slog.Error("Could not mark job Failed", "error", ferr)
		}
		return err
	}

	store, err := records.Open(ctx, cfg.Records)
	if err != nil {
		return err
	}
	defer store.Close()

	objects, err := gcp.NewObjectStore(ctx)
	if err != nil {
		return err
	}
	defer objects.Close()

	generator, err := llm.NewGenerator(ctx, cfg.Model)
	if err != nil {
		return err
	}
	defer generator.Close()

	return services.NewSummarizationWorker(store, objects, generator, *cfg).Run(ctx)
}
