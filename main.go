/*
Package main
File: main.go
Description: Server entry point. Loads the voyage catalog, opens the save
store, starts the real-time WebSocket hub and serves the REST API.
*/

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giantroach/Mistvoyage-sub000/internal/api"
	"github.com/giantroach/Mistvoyage-sub000/internal/store"
)

func main() {
	cfg := LoadServerConfig()

	// 1. Load the static voyage catalog from YAML
	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Config Fail: %v", err)
	}

	// 2. Open the save store
	ctx := context.Background()
	saves, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Store Fail: %v", err)
	}
	defer saves.Close()

	// 3. Initialize and start the Real-Time WebSocket Hub
	hub := api.NewHub()
	go hub.Run()

	// 4. Session registry and battle runners
	server := api.NewServer(catalog, saves, hub, cfg.Tick)
	defer server.Close()

	// 5. Hot-reload logic: SIGHUP refreshes the catalog for new sessions
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGHUP)
		for range sigChan {
			log.Println("SIGNAL: Reloading voyage catalog...")
			c, err := loadCatalog(cfg.CatalogPath)
			if err != nil {
				// Keep serving the previous catalog
				log.Printf("Reload Fail: %v", err)
				continue
			}
			server.SetCatalog(c)
		}
	}()

	// 6. Start the Server
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("MISTVOYAGE Server live on %s", cfg.Addr)
		log.Printf("Real-time Hub: Online")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// 7. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("SIGNAL: Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown Fail: %v", err)
	}
}
