/*
scheduler.go - Automated database backup scheduler

PURPOSE:
  Periodically writes a consistent copy of the SQLite database to a backup
  directory and prunes old copies. Retail stations lose disks; a day-old
  invoice ledger is recoverable, a gone one is not.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Each run produces a timestamped file (asilsys-20060102-150405.db)
  - Keeps the newest Keep copies, deletes the rest
  - First backup fires immediately on Start

CONFIGURATION:
  - Interval: How often to back up (default: 24 hours)
  - Keep:     How many copies to retain (default: 14)

USAGE:
  scheduler := NewBackupScheduler(store, "./backups")
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - store/sqlite/sqlite.go: Store.Backup (VACUUM INTO)
  - cmd/server/main.go: Wiring and shutdown order
*/
package api

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Backuper is the slice of the store the scheduler needs.
type Backuper interface {
	Backup(ctx context.Context, destPath string) error
}

// BackupScheduler handles automated database backups.
type BackupScheduler struct {
	Store    Backuper
	Dir      string
	Interval time.Duration
	Keep     int

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBackupScheduler creates a new scheduler writing into dir.
func NewBackupScheduler(store Backuper, dir string) *BackupScheduler {
	return &BackupScheduler{
		Store:    store,
		Dir:      dir,
		Interval: 24 * time.Hour,
		Keep:     14,
		stop:     make(chan bool),
	}
}

// Start begins the scheduler.
func (bs *BackupScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	bs.ticker = time.NewTicker(bs.Interval)
	bs.wg.Add(1)

	go bs.run()

	log.Printf("[Backup] Started with interval: %v, dir: %s", bs.Interval, bs.Dir)
}

// Stop stops the scheduler.
func (bs *BackupScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		log.Println("[Backup] Stopped")
	}
}

func (bs *BackupScheduler) run() {
	defer bs.wg.Done()

	// Run immediately on start
	bs.backupOnce()

	for {
		select {
		case <-bs.ticker.C:
			bs.backupOnce()
		case <-bs.stop:
			return
		}
	}
}

func (bs *BackupScheduler) backupOnce() {
	if err := os.MkdirAll(bs.Dir, 0o755); err != nil {
		log.Printf("[Backup] Failed to create backup dir: %v", err)
		return
	}

	name := fmt.Sprintf("asilsys-%s.db", time.Now().Format("20060102-150405"))
	dest := filepath.Join(bs.Dir, name)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := bs.Store.Backup(ctx, dest); err != nil {
		log.Printf("[Backup] Failed: %v", err)
		return
	}
	log.Printf("[Backup] Wrote %s", dest)

	bs.prune()
}

// prune deletes all but the newest Keep backups.
func (bs *BackupScheduler) prune() {
	if bs.Keep <= 0 {
		return
	}

	matches, err := filepath.Glob(filepath.Join(bs.Dir, "asilsys-*.db"))
	if err != nil || len(matches) <= bs.Keep {
		return
	}

	// Timestamped names sort chronologically.
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-bs.Keep] {
		if err := os.Remove(old); err != nil {
			log.Printf("[Backup] Failed to prune %s: %v", old, err)
		}
	}
}
