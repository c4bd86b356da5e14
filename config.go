/*
Package main
File: config.go
Description: Process-level settings. Server options come from environment
variables; the game catalog comes from the YAML file they point at.
*/

package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/giantroach/Mistvoyage-sub000/internal/api"
	"github.com/giantroach/Mistvoyage-sub000/internal/game"
	"github.com/giantroach/Mistvoyage-sub000/internal/store"
)

// ServerConfig holds everything main needs to boot.
type ServerConfig struct {
	Addr        string
	CatalogPath string
	Tick        time.Duration
	Store       store.Config
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// LoadServerConfig reads the environment. PORT wins over MISTVOYAGE_PORT so
// hosting platforms that inject PORT work unchanged.
func LoadServerConfig() ServerConfig {
	port := os.Getenv("PORT")
	if port == "" {
		port = getenv("MISTVOYAGE_PORT", "8081")
	}

	tick := api.DefaultTick
	if raw := os.Getenv("MISTVOYAGE_TICK_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			log.Printf("CONFIG: ignoring MISTVOYAGE_TICK_MS=%q", raw)
		} else {
			tick = time.Duration(ms) * time.Millisecond
		}
	}

	return ServerConfig{
		Addr:        ":" + port,
		CatalogPath: getenv("MISTVOYAGE_CONFIG", "voyage.yaml"),
		Tick:        tick,
		Store: store.Config{
			Mode:        getenv("MISTVOYAGE_STORE", store.ModeSQLite),
			SQLitePath:  getenv("MISTVOYAGE_SQLITE_PATH", "data/saves.db"),
			SaveDir:     getenv("MISTVOYAGE_SAVE_DIR", "data/saves"),
			RedisAddr:   os.Getenv("MISTVOYAGE_REDIS_ADDR"),
			PostgresDSN: os.Getenv("MISTVOYAGE_POSTGRES_DSN"),
		},
	}
}

// loadCatalog reads and validates the catalog, logging a short summary.
func loadCatalog(path string) (*game.Catalog, error) {
	c, err := game.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	log.Printf("CONFIG: %s loaded (%d weapons, %d monsters, %d chapters)",
		path, len(c.Weapons), len(c.Monsters), len(c.Chapters))
	return c, nil
}
