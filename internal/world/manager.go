package world

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/worldscribe/internal/logger"
	"github.com/roach88/worldscribe/internal/migrate"
	"github.com/roach88/worldscribe/internal/store"
)

// ErrNotConnected is returned when no World is open.
var ErrNotConnected = errors.New("not connected to a World")

// Manager holds the store of the World currently in use. At most one store
// is open at a time.
//
// Thread-safety: Manager is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	opts   Options
	runner *migrate.Runner
	log    *logger.Logger

	current *store.Store
	folder  string
}

// NewManager creates a Manager with no World connected.
func NewManager(opts Options) *Manager {
	log := opts.logger()
	return &Manager{
		opts: opts,
		runner: migrate.NewRunner(opts.registry(),
			migrate.WithLogger(log),
			migrate.WithBusyTimeout(opts.BusyTimeout),
		),
		log: log,
	}
}

// Connect closes the current World, if any, migrates the store in folder to
// the latest version and opens it. On any failure no World is connected.
func (m *Manager) Connect(ctx context.Context, folder string) (migrate.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.closeLocked(); err != nil {
		return migrate.Result{}, err
	}

	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return migrate.Result{}, &store.Error{
			Code:    store.ErrCodeNotFound,
			Entity:  "World",
			Message: fmt.Sprintf("World at %q not found", folder),
			Err:     err,
		}
	}

	path := DatabasePath(folder)
	res, err := m.runner.Apply(ctx, path)
	if err != nil {
		m.log.Error("aborting world connection", "folder", folder, "error", err)
		return res, err
	}

	st, err := store.Open(path, m.opts.storeOptions()...)
	if err != nil {
		return res, fmt.Errorf("open store: %w", err)
	}

	m.current = st
	m.folder = folder
	m.log.Info("world connected", "folder", folder, "version", res.To)
	return res, nil
}

// Disconnect closes the current World. It is a no-op when none is open.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.log.Info("world disconnected", "folder", m.folder)
	m.current = nil
	m.folder = ""
	if err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// Current returns the open store or ErrNotConnected.
func (m *Manager) Current() (*store.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNotConnected
	}
	return m.current, nil
}

// CurrentName returns the folder name of the open World.
func (m *Manager) CurrentName() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", ErrNotConnected
	}
	return filepath.Base(m.folder), nil
}

// UploadsDir returns the uploads folder of the open World.
func (m *Manager) UploadsDir() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", ErrNotConnected
	}
	return filepath.Join(m.folder, UploadsDir), nil
}
