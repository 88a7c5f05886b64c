package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/services"
)

var (
	dispatcherInstance *services.DispatcherFunction
	once               sync.Once
	initErr            error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.LogLevel()}))
	slog.SetDefault(logger)

	functions.HTTP("HandleStartEmbedding", handleStartEmbedding)
}

// main is required by the Go Functions Framework.
func main() {}

// handleStartEmbedding records the embedding job and enqueues it for the launcher.
func handleStartEmbedding(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		dispatcherInstance, initErr = services.NewQueueDispatcherFromEnv(context.Background(), "embedding-dispatcher")
	})
	if initErr != nil {
		slog.Error("Critical: Embedding dispatcher initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	dispatcherInstance.HandleStartEmbedding(w, r)
}
