// Watches a file-backed ledger directory and re-runs the repair sweep when a
// collection file changes from outside the process (manual edits, restored
// backups, a second tool writing the same data dir). Events are debounced so
// a burst of writes triggers one sweep.
package main

import (
	"flag"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"kopkar/pkg/keanggotaan"
	"kopkar/pkg/ledger"
)

func main() {
	var (
		dir      = flag.String("dir", "data", "ledger data directory to watch")
		debounce = flag.Duration("debounce", 2*time.Second, "quiet period before a sweep runs")
		actor    = flag.String("actor", "cli:watch", "actor id recorded in the audit trail")
	)
	flag.Parse()

	store, err := ledger.NewFileStore(*dir)
	if err != nil {
		log.Fatalf("open file ledger at %s: %v", *dir, err)
	}
	svc := keanggotaan.NewService(store, keanggotaan.NewLedgerAuditSink(store))

	runSweep(svc, *actor)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatalf("fsnotify init: %v", err)
	}
	defer w.Close()
	if err := w.Add(*dir); err != nil {
		log.Fatalf("watch %s: %v", *dir, err)
	}
	log.Printf("watching %s (debounce %s)", *dir, *debounce)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			// The sweep itself appends to the audit log; ignoring that file
			// keeps a sweep from retriggering forever.
			if !strings.HasSuffix(name, ".json") || name == ledger.CollectionAuditLog+".json" {
				continue
			}
			timer.Reset(*debounce)
		case <-timer.C:
			runSweep(svc, *actor)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("watch error: %v", err)
		}
	}
}

func runSweep(svc *keanggotaan.Service, actor string) {
	report, err := svc.RepairExitedMemberSavings(actor)
	if err != nil {
		log.Printf("repair sweep failed: %v", err)
		return
	}
	log.Printf("repair sweep: %d exited scanned, %d records fixed, %d errors",
		report.ScannedExited, report.FixedTotal, len(report.Errors))
}
