package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/services"
	"github.com/Lllllllleong/docinsight/internal/vectorindex"
	"github.com/gin-gonic/gin"
)

// Answerer answers one question about one document.
type Answerer interface {
	Answer(ctx context.Context, documentID, question string) (string, error)
}

// SetUpQueryRoutes registers the health check and the question endpoint.
func SetUpQueryRoutes(rg *gin.RouterGroup, answerer Answerer) {
	rg.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"health": "healthy"})
	})

	rg.POST("/", func(ctx *gin.Context) {
		answerQuestion(ctx, answerer)
	})
}

func respond(ctx *gin.Context, resp models.Response) {
	ctx.JSON(resp.Code, resp)
}

func answerQuestion(ctx *gin.Context, answerer Answerer) {
	if ctx.ContentType() != gin.MIMEJSON {
		respond(ctx, models.Response{Error: "Content type not supported", Code: http.StatusBadRequest})
		return
	}

	var req models.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respond(ctx, models.Response{Error: fmt.Sprintf("could not parse JSON: %v", err), Code: http.StatusBadRequest})
		return
	}
	if req.DocumentID == "" || req.Question == "" {
		respond(ctx, models.Response{Error: "docId and question are required", Code: http.StatusBadRequest})
		return
	}

	answer, err := answerer.Answer(ctx.Request.Context(), req.DocumentID, req.Question)
	switch {
	case errors.Is(err, services.ErrNoIndex), errors.Is(err, vectorindex.ErrIndexNotFound):
		respond(ctx, models.Response{Error: "Could not find vector index for " + req.DocumentID, Code: http.StatusBadRequest})
	case err != nil:
		slog.Error("Failed to answer question", "documentId", req.DocumentID, "error", err)
		respond(ctx, models.Response{Error: err.Error(), Code: http.StatusBadRequest})
	default:
		respond(ctx, models.Response{Answer: answer, Code: http.StatusOK})
	}
}
