/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the debt-ledger server: loads configuration,
  picks a snapshot backend, loads the snapshot, wires the engine,
  dispatcher and router, and runs the HTTP server with graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Open the snapshot store (JSON file or SQLite)
  3. Load the snapshot into the engine — a corrupt snapshot aborts startup
  4. Build the dispatcher with the authorized-owner allow-list
  5. Start the HTTP server

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -store   Snapshot backend: "json" or "sqlite" (default: json)
  -data    JSON snapshot path (default: deudas.json)
  -db      SQLite database path (default: deudas.db)

ENVIRONMENT (.env supported):
  AUTHORIZED_IDS   Comma-separated owner IDs allowed to use the ledger.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for active
  requests, close the store, exit.

SEE ALSO:
  - api/server.go: Router configuration
  - ledger/engine.go: Snapshot load semantics
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/debt-ledger/api"
	"github.com/warp/debt-ledger/bot"
	"github.com/warp/debt-ledger/ledger"
	"github.com/warp/debt-ledger/store/jsonfile"
	"github.com/warp/debt-ledger/store/sqlite"
)

func main() {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	backend := flag.String("store", "json", `snapshot backend: "json" or "sqlite"`)
	dataPath := flag.String("data", "deudas.json", "JSON snapshot path")
	dbPath := flag.String("db", "deudas.db", "SQLite database path")
	flag.Parse()

	// Snapshot store
	var snap ledger.Snapshotter
	switch *backend {
	case "json":
		snap = jsonfile.New(*dataPath)
	case "sqlite":
		store, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()
		snap = store
	default:
		log.Fatalf("Unknown store backend %q (want json or sqlite)", *backend)
	}

	// Engine. A load failure means a corrupt snapshot; refusing to start is
	// better than silently continuing with an empty ledger.
	engine, err := ledger.NewEngine(context.Background(), snap)
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}

	// Dispatcher with the authorized-owner allow-list
	authorized := parseAuthorizedIDs(os.Getenv("AUTHORIZED_IDS"))
	if len(authorized) == 0 {
		log.Println("Warning: AUTHORIZED_IDS is empty; every request will be rejected")
	}
	dispatcher := bot.NewDispatcher(engine, authorized)

	// Router and server
	router := api.NewRouter(api.NewHandler(engine, dispatcher))
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func parseAuthorizedIDs(raw string) []ledger.OwnerID {
	var ids []ledger.OwnerID
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, ledger.OwnerID(part))
		}
	}
	return ids
}
