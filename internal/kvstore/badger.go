// Package kvstore opens the embedded Badger databases used for local records and vector indexes.
package kvstore

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

// Badger is chatty at info level, so its info lines are demoted.
func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens a Badger database at dir, creating the directory if needed.
// With inMemory set, dir is ignored.
func Open(dir string, inMemory bool) (*badger.DB, error) {
	if inMemory {
		return open(badger.DefaultOptions("").WithInMemory(true), dir)
	}
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return open(badger.DefaultOptions(dir), dir)
}

// OpenReadOnly opens an existing database at dir under a shared directory
// lock, so any number of readers across processes can hold it at once.
func OpenReadOnly(dir string) (*badger.DB, error) {
	return open(badger.DefaultOptions(dir).WithReadOnly(true), dir)
}

func open(opts badger.Options, dir string) (*badger.DB, error) {
	opts.Logger = &badgerLoggerAdapter{logger: slog.Default().With("component", "badger")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", dir, err)
	}
	return db, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
