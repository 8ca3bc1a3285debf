/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the AsilSys retail server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Initialize SQLite store
  3. Start the backup scheduler
  4. Create API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port        HTTP server port (default: 8080)
  -db          SQLite database path (default: asilsys.db)
               Use ":memory:" for an in-memory database
  -backup-dir  Backup directory; empty disables backups (default: ./backups)

ENVIRONMENT:
  Loaded from .env when present; flags win over environment.
  PORT            Same as -port
  DB_PATH         Same as -db
  BACKUP_DIR      Same as -backup-dir
  COMPANY_NAME    Printed on invoice PDFs (default: AsilSys)
  CURRENCY        Currency code on invoice PDFs (default: SAR)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the backup scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/asilsys.db"

  # Run without backups
  ./server -backup-dir=""

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Backup scheduler
  - store/sqlite/sqlite.go: Database implementation
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
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/M7sN2/asilsys-server/api"
	"github.com/M7sN2/asilsys-server/printing"
	"github.com/M7sN2/asilsys-server/store/sqlite"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	// Flags
	port := flag.String("port", envOr("PORT", "8080"), "HTTP server port")
	dbPath := flag.String("db", envOr("DB_PATH", "asilsys.db"), "SQLite database path")
	backupDir := flag.String("backup-dir", envOr("BACKUP_DIR", "./backups"), "Backup directory (empty disables backups)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Backup scheduler (skipped for in-memory databases)
	if *backupDir != "" && *dbPath != ":memory:" {
		scheduler := api.NewBackupScheduler(store, *backupDir)
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Initialize handler
	handler := api.NewHandler(store, printing.Options{
		CompanyName: envOr("COMPANY_NAME", "AsilSys"),
		Currency:    envOr("CURRENCY", "SAR"),
	})

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%s", *port)
		log.Printf("API available at http://localhost:%s/api", *port)
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
