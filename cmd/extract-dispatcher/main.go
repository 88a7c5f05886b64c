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
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.LogLevel()}))
	slog.SetDefault(logger)

	functions.HTTP("HandleStartExtraction", handleStartExtraction)
}

// main is required by the Go Functions Framework.
func main() {}

func handleStartExtraction(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		dispatcherInstance, initErr = services.NewExtractionDispatcherFromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Extraction dispatcher initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	dispatcherInstance.HandleStartExtraction(w, r)
}
