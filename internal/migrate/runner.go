package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/worldscribe/internal/logger"
	"github.com/roach88/worldscribe/internal/store"
)

// State is a step of one migration run.
type State string

const (
	StateUnmigrated State = "unmigrated"
	StateCopying    State = "copying"
	StateMigrating  State = "migrating"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
	StateRolledBack State = "rolled_back"
)

// Result describes one Apply call.
type Result struct {
	RunID   string `json:"runId"`
	Path    string `json:"path"`
	From    int    `json:"from"`
	To      int    `json:"to"`
	Applied []int  `json:"applied"`
	State   State  `json:"state"`
}

// Runner applies a Registry to store files.
type Runner struct {
	registry    *Registry
	log         *logger.Logger
	busyTimeout time.Duration
	newRunID    func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger that receives state transitions.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithBusyTimeout sets the busy timeout of the connections the runner opens.
func WithBusyTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.busyTimeout = d
		}
	}
}

// WithRunID overrides the run id generator. Tests use it for stable ids.
func WithRunID(gen func() string) Option {
	return func(r *Runner) {
		if gen != nil {
			r.newRunID = gen
		}
	}
}

// NewRunner creates a Runner for registry.
func NewRunner(registry *Registry, opts ...Option) *Runner {
	r := &Runner{
		registry:    registry,
		log:         logger.Nop(),
		busyTimeout: store.DefaultBusyTimeout,
		newRunID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Latest returns the version a store has after a successful Apply.
func (r *Runner) Latest() int {
	return r.registry.Latest()
}

// StagingPath returns the path of the copy migrations run against:
// "<dir>/<base>-migrated<ext>".
func StagingPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-migrated" + ext
}

// Apply brings the store at path up to the latest registered version.
//
// Pending migrations run on a staging copy; each migration and its version
// bump commit together. If any migration fails the staging copy is removed,
// the original is left untouched and the error is a store.MigrationFailed.
// On success the original is deleted and the staging copy renamed over it.
//
// A crash between that delete and the rename leaves only the staging file;
// the next Apply reports it as store.InterruptedSwap instead of guessing.
func (r *Runner) Apply(ctx context.Context, path string) (Result, error) {
	res := Result{RunID: r.newRunID(), Path: path, State: StateUnmigrated, Applied: []int{}}
	log := r.log.With("run_id", res.RunID, "path", path)
	staging := StagingPath(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && fileExists(staging) {
			log.Error("interrupted swap detected", "staging", staging)
			return res, store.InterruptedSwap(path, staging)
		}
		return res, fmt.Errorf("stat store: %w", err)
	}

	from, err := r.readVersion(ctx, path)
	if err != nil {
		return res, err
	}
	res.From, res.To = from, from

	pending := r.registry.Pending(from)
	if len(pending) == 0 {
		res.State = StateCommitted
		log.Debug("no migrations to apply", "version", from)
		return res, nil
	}
	log.Info("migration started", "from", from, "to", r.registry.Latest())

	if fileExists(staging) {
		// Left behind by a run that died before cleanup; the original is
		// still authoritative.
		log.Warn("removing stale staging copy", "staging", staging)
		if err := os.Remove(staging); err != nil {
			return res, fmt.Errorf("remove stale staging copy: %w", err)
		}
	}

	res.State = StateCopying
	log.Debug("copying store", "staging", staging)
	if err := copyFile(path, staging); err != nil {
		res.State = StateFailed
		_ = os.Remove(staging)
		log.Error("copy failed", "error", err)
		return res, store.MigrationFailed(pending[0].Version, fmt.Errorf("copy store: %w", err))
	}

	res.State = StateMigrating
	applied, failed, err := r.migrate(ctx, staging, pending, log)
	res.Applied = applied
	if err != nil {
		res.State = StateFailed
		log.Error("migration failed", "version", failed, "error", err)
		if rmErr := os.Remove(staging); rmErr != nil {
			log.Warn("failed to remove staging copy", "staging", staging, "error", rmErr)
		}
		res.State = StateRolledBack
		log.Info("migration rolled back", "version", from)
		return res, store.MigrationFailed(failed, err)
	}

	if err := os.Remove(path); err != nil {
		_ = os.Remove(staging)
		res.State = StateRolledBack
		return res, store.MigrationFailed(pending[len(pending)-1].Version, fmt.Errorf("remove original: %w", err))
	}
	if err := os.Rename(staging, path); err != nil {
		res.State = StateFailed
		log.Error("swap failed", "staging", staging, "error", err)
		swapErr := store.InterruptedSwap(path, staging)
		swapErr.Err = err
		return res, swapErr
	}

	res.To = applied[len(applied)-1]
	res.State = StateCommitted
	log.Info("migration committed", "from", res.From, "to", res.To)
	return res, nil
}

func (r *Runner) readVersion(ctx context.Context, path string) (int, error) {
	db, err := store.OpenDB(path, r.busyTimeout)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	v, err := store.ReadVersion(ctx, db)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// migrate runs pending against the staging file. It returns the versions
// applied and, on error, the version that failed.
func (r *Runner) migrate(ctx context.Context, staging string, pending []Migration, log *logger.Logger) ([]int, int, error) {
	db, err := store.OpenDB(staging, r.busyTimeout)
	if err != nil {
		return []int{}, pending[0].Version, err
	}
	defer db.Close()

	applied := []int{}
	for _, m := range pending {
		if err := ctx.Err(); err != nil {
			return applied, m.Version, err
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return applied, m.Version, fmt.Errorf("begin tx: %w", err)
		}
		if err := m.Transform(ctx, tx); err != nil {
			tx.Rollback()
			return applied, m.Version, fmt.Errorf("%s: %w", m.Name, err)
		}
		if err := store.WriteVersion(ctx, tx, m.Version); err != nil {
			tx.Rollback()
			return applied, m.Version, err
		}
		if err := tx.Commit(); err != nil {
			return applied, m.Version, fmt.Errorf("commit: %w", err)
		}

		applied = append(applied, m.Version)
		log.Info("migration applied", "version", m.Version, "name", m.Name)
	}
	return applied, 0, nil
}

// copyFile copies src to dst and flushes dst to disk.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
