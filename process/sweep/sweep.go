package sweep

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"kopkar/models"
	"kopkar/pkg/keanggotaan"
	"kopkar/pkg/ledger"
)

// Run executes the repair-sweep CLI behavior. Exported so a small cmd/main
// can call it.
func Run() {
	var (
		dryRun  = flag.Bool("dry-run", true, "Don't write any fixes; show what would be repaired")
		backend = flag.String("backend", "file", "ledger backend: file or db (db reads DB_DSN)")
		dir     = flag.String("dir", "data", "ledger data directory for the file backend")
		asJSON  = flag.Bool("json", false, "print the repair report as JSON")
		actor   = flag.String("actor", "cli:sweep", "actor id recorded in the audit trail")
	)
	flag.Parse()

	store := mustOpenStore(*backend, *dir)
	svc := keanggotaan.NewService(store, keanggotaan.NewLedgerAuditSink(store))

	var (
		report keanggotaan.RepairReport
		err    error
	)
	if *dryRun {
		report, err = svc.PreviewRepair(*actor)
	} else {
		report, err = svc.RepairExitedMemberSavings(*actor)
	}
	if err != nil {
		log.Fatalf("repair sweep failed: %v", err)
	}

	if *asJSON {
		b, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(b))
		return
	}
	verb := "fixed"
	if report.DryRun {
		verb = "would fix"
	}
	fmt.Printf("exited members scanned: %d\n", report.ScannedExited)
	fmt.Printf("records %s: %d (pokok %d, wajib %d, sukarela %d)\n",
		verb, report.FixedTotal, report.FixedPokok, report.FixedWajib, report.FixedSukarela)
	for _, id := range report.MemberIDs {
		fmt.Printf(" - %s\n", id)
	}
	for _, e := range report.Errors {
		fmt.Printf(" ! %s\n", e)
	}
	if report.DryRun {
		fmt.Println("dry-run enabled; no changes were made. Use --dry-run=false to execute.")
	}
}

func mustOpenStore(backend, dir string) ledger.Store {
	switch backend {
	case "file":
		store, err := ledger.NewFileStore(dir)
		if err != nil {
			log.Fatalf("open file ledger at %s: %v", dir, err)
		}
		return store
	case "db":
		return ledger.NewGormStore(mustInitDBFromEnv())
	default:
		log.Fatalf("unknown backend %q (want file or db)", backend)
		return nil
	}
}

// mustInitDBFromEnv is a light DB initializer used by this CLI.
func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := gdb.AutoMigrate(&models.LedgerRecord{}); err != nil {
		log.Printf("migration warning (ledger_records): %v", err)
	}
	return gdb
}
