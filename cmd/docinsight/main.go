// Command docinsight is the administrative CLI: it inspects and deletes
// document records and asks questions against a local vector index mount.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/Lllllllleong/docinsight/internal/config"
	"github.com/Lllllllleong/docinsight/internal/llm"
	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/Lllllllleong/docinsight/internal/records"
	"github.com/Lllllllleong/docinsight/internal/services"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docinsight",
		Usage: "Inspect documents and ask questions about them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Record store backend (firestore, badger); defaults to RECORDS_BACKEND",
			},
			&cli.StringFlag{
				Name:  "badger-path",
				Usage: "Badger record store directory; defaults to RECORDS_BADGER_PATH",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:  "documents",
				Usage: "Manage document records",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List one page of documents",
						Action: listCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "token",
								Usage: "Page token returned by a previous list",
							},
						},
					},
					{
						Name:      "get",
						Usage:     "Show one document record",
						ArgsUsage: "<id>",
						Action:    getCommand,
					},
					{
						Name:      "delete",
						Usage:     "Delete one document record",
						ArgsUsage: "<id>",
						Action:    deleteCommand,
					},
				},
			},
			{
				Name:   "ask",
				Usage:  "Answer a question from a document's vector index",
				Action: askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "doc",
						Aliases:  []string{"d"},
						Usage:    "Document id",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "question",
						Aliases:  []string{"q"},
						Usage:    "Question to ask",
						Required: true,
					},
				},
			},
		},
	}
}

func setup(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return config.LoadEnvFile()
}

func openStore(c *cli.Context) (records.Store, error) {
	cfg := config.LoadRecords()
	if backend := c.String("backend"); backend != "" {
		cfg.Backend = config.Backend(backend)
	}
	if path := c.String("badger-path"); path != "" {
		cfg.BadgerPath = path
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return records.Open(c.Context, cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func listCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	page, err := store.ListDocuments(c.Context, c.String("token"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, page)
}

func documentArg(c *cli.Context) (string, error) {
	id := c.Args().First()
	if err := models.ValidateID("document id", id); err != nil {
		return "", err
	}
	return id, nil
}

func getCommand(c *cli.Context) error {
	id, err := documentArg(c)
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := store.GetDocument(c.Context, id)
	if errors.Is(err, records.ErrNotFound) {
		return fmt.Errorf("document %s not found", id)
	}
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, doc)
}

func deleteCommand(c *cli.Context) error {
	id, err := documentArg(c)
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteDocument(c.Context, id); err != nil {
		return err
	}
	slog.Info("Document record deleted.", "documentId", id)
	fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
	return nil
}

func askCommand(c *cli.Context) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadQuery()
	if err != nil {
		return err
	}
	embedder, err := llm.NewEmbeddingEndpoint(cfg.EmbeddingEndpoint, cfg.EmbeddingModel, cfg.EmbeddingAPIKey)
	if err != nil {
		return err
	}
	generator, err := llm.NewGenerator(ctx, cfg.Generation)
	if err != nil {
		return err
	}
	defer generator.Close()

	answer, err := services.NewQueryService(cfg.MountPoint, embedder, generator).Answer(ctx, c.String("doc"), c.String("question"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, answer)
	return nil
}
