package records

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/gcp"
)

// Open builds the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.RecordsConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID, cfg.DatabaseID)
		if err != nil {
			return nil, err
		}
		return NewFirestoreStore(client, FirestoreConfig{
			DocumentsCollection:     cfg.DocumentsCollection,
			SummarizationCollection: cfg.SummarizationCollection,
			EmbeddingCollection:     cfg.EmbeddingCollection,
		}), nil
	case config.BackendBadger:
		return OpenBadgerStore(cfg.BadgerPath, cfg.BadgerPath == "")
	}
	return nil, fmt.Errorf("unknown records backend %q", cfg.Backend)
}
