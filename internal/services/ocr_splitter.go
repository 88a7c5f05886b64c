package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/gcp"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/records"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

// SplitterObjects is the storage the OCR splitter needs.
type SplitterObjects interface {
	FileDownloader
	UploadFile(ctx context.Context, bucket, localPath, name string) error
}

// OCRSplitterFunction splits a source PDF into single-page PDFs for page OCR.
type OCRSplitterFunction struct {
	store   records.Store
	objects SplitterObjects
	config  config.OCRConfig
}

func NewOCRSplitter(store records.Store, objects SplitterObjects, cfg config.OCRConfig) *OCRSplitterFunction {
	return &OCRSplitterFunction{store: store, objects: objects, config: cfg}
}

// Process downloads, optimizes and splits the document, then uploads every page.
func (f *OCRSplitterFunction) Process(ctx context.Context, req *models.SplitDocumentRequest) (*models.SplitDocumentResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "executionId", req.ExecutionID, "gcsBucket", req.Bucket, "gcsObject", req.Object)
	logCtx.Info("Splitting document for OCR.")

	tempDir, err := os.MkdirTemp("", "ocr-splitter-*")
	if err != nil {
		return nil, f.handleError(ctx, logCtx, req.DocumentID, "failed to create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePdfPath := filepath.Join(tempDir, "source.pdf")
	if err := f.objects.DownloadToFile(ctx, req.Bucket, req.Object, sourcePdfPath); err != nil {
		return nil, f.handleError(ctx, logCtx, req.DocumentID, "failed to download source PDF", err)
	}

	optimizedPdfPath := filepath.Join(tempDir, "optimized.pdf")
	pageCount, err := f.optimizeAndSplit(ctx, logCtx, req.DocumentID, sourcePdfPath, optimizedPdfPath)
	if err != nil {
		return nil, err
	}

	pageURIs, err := f.uploadSplitPages(ctx, logCtx, req.DocumentID, optimizedPdfPath, pageCount)
	if err != nil {
		return nil, err
	}

	if err := f.store.UpdateDocumentStatus(ctx, req.DocumentID, models.StatusInProgress); err != nil {
		return nil, f.handleError(ctx, logCtx, req.DocumentID, "failed to update status to InProgress", err)
	}
	fields := models.ExtractionFields{ExecutionID: req.ExecutionID, PageCount: pageCount}
	if err := f.store.SetDocumentExtraction(ctx, req.DocumentID, fields); err != nil {
		return nil, f.handleError(ctx, logCtx, req.DocumentID, "failed to record page count", err)
	}

	logCtx.Info("Document split and uploaded.", "pageCount", pageCount)
	return &models.SplitDocumentResponse{
		Status:    "success",
		PageCount: pageCount,
		PageURIs:  pageURIs,
	}, nil
}

func (f *OCRSplitterFunction) optimizeAndSplit(ctx context.Context, logCtx *slog.Logger, documentID, source, optimized string) (int, error) {
	if err := optimizePDF(source, optimized); err != nil {
		return 0, f.handleError(ctx, logCtx, documentID, "failed to validate/optimize PDF", err)
	}
	pageCount, err := api.PageCountFile(optimized)
	if err != nil {
		return 0, f.handleError(ctx, logCtx, documentID, "failed to get page count", err)
	}
	if pageCount == 0 {
		return 0, f.handleError(ctx, logCtx, documentID, "document has no pages", fmt.Errorf("page count is 0"))
	}
	if err := api.SplitFile(optimized, filepath.Dir(optimized), 1, nil); err != nil {
		return 0, f.handleError(ctx, logCtx, documentID, "failed to split PDF", err)
	}
	logCtx.Info("PDF optimized and split locally.", "pageCount", pageCount)
	return pageCount, nil
}

func (f *OCRSplitterFunction) uploadSplitPages(ctx context.Context, logCtx *slog.Logger, documentID, optimizedPdfPath string, pageCount int) ([]string, error) {
	logCtx.Info("Starting concurrent upload of pages.", "pageCount", pageCount, "limit", f.config.UploadLimit)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(f.config.UploadLimit, 1))

	splitFileBase := strings.TrimSuffix(optimizedPdfPath, filepath.Ext(optimizedPdfPath))
	pageURIs := make([]string, pageCount)

	for i := 1; i <= pageCount; i++ {
		pageNumber := i
		localSplitFilePath := fmt.Sprintf("%s_%d.pdf", splitFileBase, pageNumber)
		gcsDestObject := PageObjectName(documentID, pageNumber)
		pageURIs[pageNumber-1] = gcp.GCSURI(f.config.SplitPagesBucket, gcsDestObject)

		eg.Go(func() error {
			if err := f.objects.UploadFile(gctx, f.config.SplitPagesBucket, localSplitFilePath, gcsDestObject); err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, f.handleError(ctx, logCtx, documentID, "one or more pages failed to upload", err)
	}
	logCtx.Info("All pages uploaded successfully.")
	return pageURIs, nil
}

func (f *OCRSplitterFunction) handleError(ctx context.Context, logCtx *slog.Logger, documentID, message string, originalErr error) error {
	return failDocument(ctx, f.store, logCtx, documentID, message, originalErr)
}

// PageObjectName is the split-pages object holding page pageNumber of documentID.
func PageObjectName(documentID string, pageNumber int) string {
	return fmt.Sprintf("%s/%05d.pdf", documentID, pageNumber)
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

// failDocument logs, marks the document Failed and returns the combined error.
func failDocument(ctx context.Context, store records.Store, logCtx *slog.Logger, documentID, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := store.FailDocument(ctx, documentID, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update document status to Failed after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}
