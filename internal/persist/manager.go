// internal/persist/manager.go
//
// The persistence manager owns the single JSON file that holds every rating.
// Each save is a full checkpoint: the file is rewritten as a whole, never
// merged, and the previous version survives any failed write.

package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/kingrea/rating-desk/internal/rating"
)

// ErrMalformed is returned when the artifact on disk cannot be parsed.
var ErrMalformed = errors.New("persist: malformed storage artifact")

// artifactMode is applied to every written artifact.
const artifactMode fs.FileMode = 0o644

// Manager loads and saves a rating store at a fixed path.
type Manager struct {
	path string

	mu     sync.Mutex
	rename func(oldpath, newpath string) error
}

// New builds a manager for the artifact at path.
func New(path string) *Manager {
	return &Manager{
		path:   filepath.Clean(path),
		rename: os.Rename,
	}
}

// Path returns the artifact location.
func (m *Manager) Path() string { return m.path }

// Load restores the store. A missing artifact is not an error: an empty
// store is created, written immediately, and returned.
func (m *Manager) Load() (*rating.Store, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			store := rating.NewStore()
			if err := m.Save(store); err != nil {
				return nil, err
			}
			return store, nil
		}
		return nil, fmt.Errorf("persist: read %s: %w", m.path, err)
	}
	store, err := rating.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m.path, err)
	}
	return store, nil
}

// Save serializes the store and replaces the artifact.
func (m *Manager) Save(store *rating.Store) error {
	_, err := m.save(store)
	return err
}

// Export saves the store and returns exactly the bytes that were written.
func (m *Manager) Export(store *rating.Store) ([]byte, error) {
	return m.save(store)
}

// Read returns the durable artifact after checking that it parses.
func (m *Manager) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", m.path, err)
	}
	if _, err := rating.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m.path, err)
	}
	return data, nil
}

func (m *Manager) save(store *rating.Store) ([]byte, error) {
	if store == nil {
		return nil, fmt.Errorf("persist: nil store")
	}
	data, err := store.Bytes()
	if err != nil {
		return nil, fmt.Errorf("persist: encode: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeAtomic(data); err != nil {
		return nil, err
	}
	return data, nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// over the artifact. Callers hold m.mu.
func (m *Manager) writeAtomic(data []byte) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist: ensure dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(m.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("persist: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, artifactMode); err != nil {
		return fmt.Errorf("persist: chmod temp: %w", err)
	}
	if err := m.rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("persist: replace %s: %w", m.path, err)
	}
	committed = true
	return nil
}
