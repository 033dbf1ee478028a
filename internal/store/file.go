package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"lifo-parking/internal/parking"
)

const DefaultStatePath = "parking_state.dat"

// FileStore keeps the snapshot in a single file. Saves go to a temporary file
// in the same directory which is then renamed over the target.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultStatePath
	}
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, state parking.State) (err error) {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, state); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync state file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

func (s *FileStore) Load(_ context.Context) (parking.State, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return parking.State{}, ErrNoState
		}
		return parking.State{}, fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

func (s *FileStore) Close() error {
	return nil
}
