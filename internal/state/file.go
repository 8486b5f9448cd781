package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the whole state in a single JSON document.
// The document is replaced atomically after every write.
type FileStore struct {
	path string
	data *Snapshot
}

// OpenFile loads the document at path. A missing or empty file starts a fresh state.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, data: NewSnapshot()}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading state file %q: %w", s.path, err)
	}

	if len(raw) == 0 {
		return nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return fmt.Errorf("parsing state file %q: %w", s.path, err)
	}

	if snapshot.SeenJobs != nil {
		s.data.SeenJobs = snapshot.SeenJobs
	}
	if snapshot.Applications != nil {
		s.data.Applications = snapshot.Applications
	}

	return nil
}

func (s *FileStore) HasSeen(_ context.Context, id string) (bool, error) {
	_, ok := s.data.SeenJobs[id]
	return ok, nil
}

func (s *FileStore) RecordSeen(_ context.Context, id string, seen SeenJob) error {
	s.data.SeenJobs[id] = seen
	return s.persist()
}

func (s *FileStore) RecordApplication(_ context.Context, id string, status Status, message string) error {
	s.data.Applications[id] = Application{Status: status, Message: message}
	return s.persist()
}

func (s *FileStore) Snapshot(context.Context) (*Snapshot, error) {
	out := NewSnapshot()
	for id, seen := range s.data.SeenJobs {
		out.SeenJobs[id] = seen
	}
	for id, app := range s.data.Applications {
		out.Applications[id] = app
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Path() string { return s.path }

// persist writes to a temp file next to the target and renames it over the target.
func (s *FileStore) persist() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}

	return nil
}
