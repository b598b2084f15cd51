// Package world manages World folders: creating a new World with its seeded
// store, and holding the single open store of the World currently in use.
package world

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/worldscribe/internal/logger"
	"github.com/roach88/worldscribe/internal/migrate"
	"github.com/roach88/worldscribe/internal/store"
)

const (
	// DatabaseFile is the store file inside a World folder.
	DatabaseFile = "database.sqlite"

	// UploadsDir holds a World's uploaded images.
	UploadsDir = "uploads"
)

// reservedChars cannot appear in a World name because it becomes a folder.
const reservedChars = `/\.<>:"|?*`

// ErrInvalidName is returned for World names that cannot be folder names.
var ErrInvalidName = errors.New("invalid World name")

// Options configures World creation and connection.
type Options struct {
	// Registry is the migration list. Nil means migrate.Default.
	Registry *migrate.Registry

	// BusyTimeout is passed to every store opened. Zero means the store default.
	BusyTimeout time.Duration

	// Logger receives lifecycle events. Nil discards them.
	Logger *logger.Logger

	// Clock overrides the store time source, for tests.
	Clock func() time.Time
}

func (o Options) registry() *migrate.Registry {
	if o.Registry == nil {
		return migrate.Default
	}
	return o.Registry
}

func (o Options) logger() *logger.Logger {
	if o.Logger == nil {
		return logger.Nop()
	}
	return o.Logger
}

func (o Options) storeOptions() []store.Option {
	opts := []store.Option{store.WithBusyTimeout(o.BusyTimeout)}
	if o.Clock != nil {
		opts = append(opts, store.WithClock(o.Clock))
	}
	return opts
}

// ValidateName checks that name can be used as a World folder name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if strings.HasSuffix(name, " ") {
		return fmt.Errorf("%w: name cannot end with a space", ErrInvalidName)
	}
	if strings.ContainsAny(name, reservedChars) {
		return fmt.Errorf("%w: name cannot contain any of %s", ErrInvalidName, reservedChars)
	}
	return nil
}

// DatabasePath returns the store path of the World in folder.
func DatabasePath(folder string) string {
	return filepath.Join(folder, DatabaseFile)
}

// Create makes a new World folder under worldsDir with an uploads folder
// and a store at the latest schema holding the default Categories.
// It returns the World folder path.
//
// The new store is stamped with the latest migration version directly:
// it never runs migrations.
func Create(ctx context.Context, worldsDir, name string, opts Options) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	folder := filepath.Join(worldsDir, name)
	if _, err := os.Stat(folder); err == nil {
		return "", store.Conflict("World", worldsDir, name)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat world folder: %w", err)
	}

	log := opts.logger().With("world", name)
	if err := os.MkdirAll(filepath.Join(folder, UploadsDir), 0o755); err != nil {
		return "", fmt.Errorf("create world folder: %w", err)
	}

	if err := initStore(ctx, DatabasePath(folder), opts); err != nil {
		if rmErr := os.RemoveAll(folder); rmErr != nil {
			log.Warn("failed to remove partial world", "folder", folder, "error", rmErr)
		}
		return "", err
	}

	log.Info("world created", "folder", folder, "version", opts.registry().Latest())
	return folder, nil
}

func initStore(ctx context.Context, path string, opts Options) error {
	st, err := store.Open(path, opts.storeOptions()...)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer st.Close()

	if err := st.InsertDefaultCategories(ctx); err != nil {
		return fmt.Errorf("insert default categories: %w", err)
	}
	if err := st.SetVersion(ctx, opts.registry().Latest()); err != nil {
		return fmt.Errorf("set version to latest: %w", err)
	}
	return nil
}
