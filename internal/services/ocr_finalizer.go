package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/gcp"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/records"
	"github.com/Lllllllleong/docinsight/internal/textsplit"
)

// FinalizerObjects is the storage the OCR finalizer needs.
type FinalizerObjects interface {
	ObjectReader
	ObjectWriter
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

// OCRFinalizerFunction assembles page texts into the document text artifact.
type OCRFinalizerFunction struct {
	store   records.Store
	objects FinalizerObjects
	config  config.OCRConfig
}

func NewOCRFinalizer(store records.Store, objects FinalizerObjects, cfg config.OCRConfig) *OCRFinalizerFunction {
	return &OCRFinalizerFunction{store: store, objects: objects, config: cfg}
}

// TextObjectName is the text-bucket object holding the full extracted text of documentID.
func TextObjectName(documentID string) string {
	return documentID + "/text.txt"
}

// Process closes an OCR run, either recording the workflow's failure or writing text.txt.
func (f *OCRFinalizerFunction) Process(ctx context.Context, req *models.FinalizeExtractionRequest) (*models.FinalizeExtractionResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "executionId", req.ExecutionID)

	if req.Error != "" {
		logCtx.Warn("OCR workflow reported a failure.", "workflowError", req.Error)
		if err := f.store.FailDocument(ctx, req.DocumentID, req.Error); err != nil {
			logCtx.Error("Failed to mark document Failed", "error", err)
			return nil, err
		}
		return &models.FinalizeExtractionResponse{Status: string(models.StatusFailed)}, nil
	}

	text, pages, err := f.assemble(ctx, logCtx, req.DocumentID)
	if err != nil {
		return nil, failDocument(ctx, f.store, logCtx, req.DocumentID, "failed to assemble page texts", err)
	}

	objectName := TextObjectName(req.DocumentID)
	if err := f.objects.WriteObject(ctx, f.config.TextBucket, objectName, []byte(text), "text/plain; charset=utf-8"); err != nil {
		return nil, failDocument(ctx, f.store, logCtx, req.DocumentID, "failed to write text artifact", err)
	}
	textURI := gcp.GCSURI(f.config.TextBucket, objectName)

	if err := f.store.SetDocumentExtraction(ctx, req.DocumentID, models.ExtractionFields{TextURI: textURI}); err != nil {
		return nil, failDocument(ctx, f.store, logCtx, req.DocumentID, "failed to record text uri", err)
	}
	if err := f.store.UpdateDocumentStatus(ctx, req.DocumentID, models.StatusComplete); err != nil {
		logCtx.Error("Failed to mark document Complete", "error", err)
		return nil, err
	}

	logCtx.Info("Extraction complete.", "pageCount", pages, "textUri", textURI)
	return &models.FinalizeExtractionResponse{
		Status:  string(models.StatusComplete),
		TextURI: textURI,
	}, nil
}

// assemble concatenates pages in page order, each followed by a page marker.
func (f *OCRFinalizerFunction) assemble(ctx context.Context, logCtx *slog.Logger, documentID string) (string, int, error) {
	names, err := f.objects.ListObjects(ctx, f.config.TextBucket, documentID+"/pages/")
	if err != nil {
		return "", 0, err
	}

	var pageNames []string
	for _, name := range names {
		if strings.HasSuffix(name, ".txt") {
			pageNames = append(pageNames, name)
		}
	}
	if len(pageNames) == 0 {
		return "", 0, errors.New("no page texts found")
	}
	sort.Strings(pageNames)
	logCtx.Info("Found and sorted page texts.", "pageCount", len(pageNames))

	var b strings.Builder
	for _, name := range pageNames {
		data, err := f.objects.ReadObject(ctx, f.config.TextBucket, name)
		if err != nil {
			return "", 0, fmt.Errorf("failed to read %s: %w", name, err)
		}
		b.Write(data)
		b.WriteString(textsplit.PageMarker)
	}
	return b.String(), len(pageNames), nil
}
