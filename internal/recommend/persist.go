package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const modelFileName = "ncf_model.json"

// Store persists model snapshots to a directory as versioned JSON blobs.
// The format is opaque to every other component beyond Model.Version.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the snapshot to a temp file and renames it into place, so a
// crash mid-write never leaves a torn artifact behind.
func (s *Store) Save(m *Model) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, modelFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close model file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, modelFileName)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to publish model file: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot. Returns (nil, nil) when no artifact
// exists yet; the caller then serves the cold path.
func (s *Store) Load() (*Model, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, modelFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	return &m, nil
}
