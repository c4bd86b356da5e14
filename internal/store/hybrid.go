package store

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/giantroach/Mistvoyage-sub000/internal/game"
)

// HybridStore prefers SQLite and falls back to JSON files whenever the
// database is unavailable or fails. Slots found only on disk are migrated
// into the database on load.
type HybridStore struct {
	path  string
	files *FileStore

	mu     sync.Mutex // Guards the lazy open and Close
	opened bool
	closed bool
	db     *SQLiteStore
	dbErr  error
}

var errHybridClosed = errors.New("hybrid store is closed")

// OpenHybrid returns a hybrid store; the database is opened lazily.
func OpenHybrid(sqlitePath, saveDir string) *HybridStore {
	return &HybridStore{path: sqlitePath, files: NewFileStore(saveDir)}
}

func (s *HybridStore) database() (*SQLiteStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errHybridClosed
	}
	if !s.opened {
		s.opened = true
		s.db, s.dbErr = OpenSQLite(s.path)
	}
	return s.db, s.dbErr
}

func (s *HybridStore) Save(ctx context.Context, slot string, snap game.Snapshot) error {
	db, err := s.database()
	if err == nil {
		if err := db.Save(ctx, slot, snap); err == nil {
			return nil
		} else {
			log.Printf("STORE: db write failed for %q, falling back to JSON: %v", slot, err)
		}
	} else {
		log.Printf("STORE: db unavailable, falling back to JSON: %v", err)
	}
	return s.files.Save(ctx, slot, snap)
}

func (s *HybridStore) Load(ctx context.Context, slot string) (game.Snapshot, error) {
	db, err := s.database()
	if err != nil {
		log.Printf("STORE: db unavailable, falling back to JSON: %v", err)
		return s.files.Load(ctx, slot)
	}

	snap, err := db.Load(ctx, slot)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("STORE: db read failed for %q, trying JSON: %v", slot, err)
	}

	legacy, legacyErr := s.files.Load(ctx, slot)
	if legacyErr != nil {
		if errors.Is(legacyErr, ErrNotFound) {
			return game.Snapshot{}, err
		}
		return game.Snapshot{}, legacyErr
	}
	if err := db.Save(ctx, slot, legacy); err != nil {
		log.Printf("STORE: migration to db failed for %q: %v", slot, err)
	}
	return legacy, nil
}

func (s *HybridStore) Delete(ctx context.Context, slot string) error {
	if db, err := s.database(); err == nil {
		if err := db.Delete(ctx, slot); err != nil {
			return err
		}
	}
	return s.files.Delete(ctx, slot)
}

func (s *HybridStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.db != nil {
		db := s.db
		s.db = nil
		return db.Close()
	}
	return nil
}
