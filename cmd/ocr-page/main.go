package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/services"
)

var (
	pageInstance *services.OCRPageFunction
	once         sync.Once
	initErr      error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.LogLevel()}))
	slog.SetDefault(logger)

	// The workflow fans out one call per page.
	functions.HTTP("HandleExtractPage", handleExtractPage)
}

func main() {}

func handleExtractPage(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		pageInstance, initErr = services.NewOCRPageFromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Page OCR initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ExtractPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := pageInstance.Process(r.Context(), &req)
	if err != nil {
		// A failed page is retried by the workflow.
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "documentId", req.DocumentID, "pageNumber", req.PageNumber)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
