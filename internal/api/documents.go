package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/records"
	"github.com/gin-gonic/gin"
)

// SetUpDocumentRoutes registers read and delete access to the record store.
func SetUpDocumentRoutes(rg *gin.RouterGroup, store records.Store) {
	rg.GET("", func(ctx *gin.Context) {
		listDocuments(ctx, store)
	})
	rg.GET("/:id", func(ctx *gin.Context) {
		getDocument(ctx, store)
	})
	rg.DELETE("/:id", func(ctx *gin.Context) {
		deleteDocument(ctx, store)
	})
	rg.GET("/:id/jobs/:kind/:jobId", func(ctx *gin.Context) {
		getJob(ctx, store)
	})
}

func storeError(ctx *gin.Context, err error) {
	if errors.Is(err, records.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	slog.Error("Record store request failed", "path", ctx.FullPath(), "error", err)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func listDocuments(ctx *gin.Context, store records.Store) {
	page, err := store.ListDocuments(ctx.Request.Context(), ctx.Query("nextToken"))
	if err != nil {
		storeError(ctx, err)
		return
	}
	if page.Documents == nil {
		page.Documents = []*models.Document{}
	}
	ctx.JSON(http.StatusOK, page)
}

func getDocument(ctx *gin.Context, store records.Store) {
	doc, err := store.GetDocument(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		storeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, doc)
}

func deleteDocument(ctx *gin.Context, store records.Store) {
	id := ctx.Param("id")
	if err := store.DeleteDocument(ctx.Request.Context(), id); err != nil {
		storeError(ctx, err)
		return
	}
	slog.Info("Document record deleted.", "documentId", id)
	ctx.Status(http.StatusNoContent)
}

func getJob(ctx *gin.Context, store records.Store) {
	kind, err := models.ParseJobKind(ctx.Param("kind"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	job, err := store.GetJob(ctx.Request.Context(), kind, ctx.Param("id"), ctx.Param("jobId"))
	if err != nil {
		storeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, job)
}
