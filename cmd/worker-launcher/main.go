package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	launcherInstance *services.LauncherFunction
	once             sync.Once
	initErr          error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.LogLevel()}))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The broker delivers one job message per event.
	functions.CloudEvent("LaunchWorker", launchWorker)
}

// main is required by the Go Functions Framework.
func main() {}

// launchWorker is the Cloud Function entry point.
func launchWorker(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		launcherInstance, initErr = services.NewLauncherFromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	return launcherInstance.HandleEvent(ctx, e)
}
