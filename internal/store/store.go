/*
Package store
File: store.go
Description:
    Persists session snapshots into named save slots.
    Several backends implement the same Store interface; the active one is
    chosen from configuration at startup (see Open).

    A snapshot is stored as one JSON payload per slot. There is no schema
    version: a payload that no longer decodes is reported as ErrCorrupt.
*/

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/giantroach/Mistvoyage-sub000/internal/game"
)

var (
	ErrNotFound = errors.New("save slot not found")
	ErrCorrupt  = errors.New("save data is corrupt")
)

// Store saves and loads snapshots by slot name.
type Store interface {
	Save(ctx context.Context, slot string, snap game.Snapshot) error
	Load(ctx context.Context, slot string) (game.Snapshot, error)
	Delete(ctx context.Context, slot string) error
	Close() error
}

// Backend modes.
const (
	ModeSQLite   = "sqlite"
	ModeHybrid   = "hybrid"
	ModeJSON     = "json"
	ModeRedis    = "redis"
	ModePostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Mode        string
	SQLitePath  string
	SaveDir     string
	RedisAddr   string
	PostgresDSN string
}

// ParseMode normalizes a mode string. Unknown values fall back to sqlite.
func ParseMode(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "", "db", "sqlite":
		return ModeSQLite
	case "hybrid":
		return ModeHybrid
	case "json", "legacy", "file":
		return ModeJSON
	case "redis":
		return ModeRedis
	case "postgres", "postgresql", "pg":
		return ModePostgres
	default:
		log.Printf("STORE: unknown mode %q, defaulting to %s", raw, ModeSQLite)
		return ModeSQLite
	}
}

// Open creates the backend named by cfg.Mode.
func Open(ctx context.Context, cfg Config) (Store, error) {
	mode := ParseMode(cfg.Mode)
	log.Printf("STORE: persistence mode %s", mode)

	var (
		s   Store
		err error
	)
	switch mode {
	case ModeJSON:
		s = NewFileStore(cfg.SaveDir)
	case ModeSQLite:
		s, err = openSQLite(cfg.SQLitePath)
	case ModeHybrid:
		s = OpenHybrid(cfg.SQLitePath, cfg.SaveDir)
	case ModeRedis:
		s, err = openRedis(ctx, cfg.RedisAddr)
	case ModePostgres:
		s, err = openPostgres(ctx, cfg.PostgresDSN)
	default:
		err = fmt.Errorf("unknown persistence mode %q", mode)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// The open helpers keep a failed open from yielding a typed-nil Store.

func openSQLite(path string) (Store, error) {
	s, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openRedis(ctx context.Context, addr string) (Store, error) {
	s, err := OpenRedis(ctx, addr)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openPostgres(ctx context.Context, dsn string) (Store, error) {
	s, err := OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SanitizeSlot maps a user-supplied slot name onto a safe key.
func SanitizeSlot(slot string) string {
	slot = strings.ToLower(strings.TrimSpace(slot))
	var b strings.Builder
	for _, ch := range slot {
		switch {
		case ch >= 'a' && ch <= 'z':
			b.WriteRune(ch)
		case ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == '_' || ch == '-':
			b.WriteRune(ch)
		case ch == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

func encode(snap game.Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

func decode(data []byte) (game.Snapshot, error) {
	var snap game.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return game.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if snap.Map == nil {
		return game.Snapshot{}, fmt.Errorf("%w: missing map", ErrCorrupt)
	}
	return snap, nil
}
