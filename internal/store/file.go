package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/giantroach/Mistvoyage-sub000/internal/game"
)

// FileStore keeps one indented JSON file per slot.
type FileStore struct {
	dir string
}

// NewFileStore stores slots under dir ("data/saves" when empty).
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "data/saves"
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.dir, SanitizeSlot(slot)+".json")
}

func (s *FileStore) Save(_ context.Context, slot string, snap game.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(slot), data, 0o644)
}

func (s *FileStore) Load(_ context.Context, slot string) (game.Snapshot, error) {
	data, err := os.ReadFile(s.path(slot))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return game.Snapshot{}, ErrNotFound
		}
		return game.Snapshot{}, err
	}
	return decode(data)
}

func (s *FileStore) Delete(_ context.Context, slot string) error {
	err := os.Remove(s.path(slot))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) Close() error { return nil }
