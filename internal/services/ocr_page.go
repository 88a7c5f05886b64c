package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/gcp"
	"github.com/Lllllllleong/docinsight/internal/models"
)

// PageReader transcribes one single-page PDF.
type PageReader interface {
	ReadPDFPage(ctx context.Context, gcsURI string) (string, error)
}

// IdempotentWriter writes an object only when it does not exist yet.
type IdempotentWriter interface {
	SaveIfAbsent(ctx context.Context, bucket, name, content string) error
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// OCRPageFunction extracts the text of one page.
type OCRPageFunction struct {
	reader  PageReader
	objects IdempotentWriter
	config  config.OCRConfig
}

func NewOCRPage(reader PageReader, objects IdempotentWriter, cfg config.OCRConfig) *OCRPageFunction {
	return &OCRPageFunction{reader: reader, objects: objects, config: cfg}
}

// PageTextObjectName is the text-bucket object holding page pageNumber of documentID.
func PageTextObjectName(documentID string, pageNumber int) string {
	return fmt.Sprintf("%s/pages/%05d.txt", documentID, pageNumber)
}

// Process reads the page and stores its text. A model refusal fails the step.
func (f *OCRPageFunction) Process(ctx context.Context, req *models.ExtractPageRequest) (*models.ExtractPageResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "pageNumber", req.PageNumber, "executionId", req.ExecutionID)
	logCtx.Info("Starting page OCR.")

	if req.PageNumber < 1 {
		return nil, fmt.Errorf("page number must be positive, got %d", req.PageNumber)
	}
	if _, _, err := gcp.ParseGCSURI(req.GCSUri); err != nil {
		return nil, err
	}

	text, err := f.reader.ReadPDFPage(ctx, req.GCSUri)
	if err != nil {
		logCtx.Error("Error calling Vertex AI", "error", err)
		return nil, err
	}

	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			err := fmt.Errorf("gemini response indicates refusal for page %d", req.PageNumber)
			logCtx.Error("Model refused the page.", "error", err, "response", text)
			return nil, err
		}
	}
	if text == "" {
		logCtx.Warn("No text extracted from response. Treating as empty page.")
	}

	objectName := PageTextObjectName(req.DocumentID, req.PageNumber)
	if err := f.objects.SaveIfAbsent(ctx, f.config.TextBucket, objectName, text); err != nil {
		logCtx.Error("Failed to save page text", "error", err)
		return nil, err
	}

	outputGCSUri := gcp.GCSURI(f.config.TextBucket, objectName)
	logCtx.Info("Page OCR complete.", "output", outputGCSUri)
	return &models.ExtractPageResponse{
		Status:       "success",
		OutputGCSUri: outputGCSUri,
	}, nil
}
