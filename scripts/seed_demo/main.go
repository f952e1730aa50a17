// Seeds a file-backed ledger with demo members and savings, including one
// exited member whose balances were never zeroed, so the repair sweep has
// something to converge.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/google/uuid"

	"kopkar/pkg/keanggotaan"
	"kopkar/pkg/ledger"
)

func main() {
	dir := flag.String("dir", "data", "ledger data directory")
	flag.Parse()

	store, err := ledger.NewFileStore(*dir)
	if err != nil {
		log.Fatalf("open file ledger at %s: %v", *dir, err)
	}

	exitDate := time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC)
	budi := keanggotaan.Anggota{ID: uuid.NewString(), NIK: "3171234567890001", Nama: "Budi Santoso", Status: keanggotaan.StatusAktif}
	sari := keanggotaan.Anggota{ID: uuid.NewString(), NIK: "3171234567890002", Nama: "Sari Wulandari", Status: keanggotaan.StatusAktif}
	// Drifted record: marked keluar but balances were never returned.
	agus := keanggotaan.Anggota{
		ID: uuid.NewString(), NIK: "3171234567890003", Nama: "Agus Priyanto",
		Status: keanggotaan.StatusKeluar, ExitDate: &exitDate, ExitReason: "resigned",
		ReturnStatus: keanggotaan.ProsesPending,
	}

	writeAll(store, ledger.CollectionMembers, budi, sari, agus)
	writeAll(store, ledger.CollectionPrincipal,
		simpanan(budi.ID, 500000), simpanan(sari.ID, 500000), simpanan(agus.ID, 500000))
	writeAll(store, ledger.CollectionMandatory,
		simpanan(budi.ID, 240000), simpanan(sari.ID, 180000), simpanan(agus.ID, 120000))
	writeAll(store, ledger.CollectionVoluntary,
		simpanan(budi.ID, 1250000), simpanan(sari.ID, 0))
	writeAll(store, ledger.CollectionLoans, map[string]any{
		"id": uuid.NewString(), "memberId": agus.ID, "remainingBalance": 350000,
	})

	log.Printf("seeded demo ledger in %s (3 members, agus=%s has unreturned balances)", *dir, agus.ID)
}

func simpanan(memberID string, saldo int64) keanggotaan.Simpanan {
	return keanggotaan.Simpanan{
		ID:           uuid.NewString(),
		AnggotaID:    memberID,
		Saldo:        saldo,
		ReturnStatus: keanggotaan.SimpananAktif,
	}
}

func writeAll(store ledger.Store, collection string, entities ...any) {
	records := make([]ledger.Record, 0, len(entities))
	for _, e := range entities {
		rec, err := ledger.ToRecord(e)
		if err != nil {
			log.Fatalf("encode %s record: %v", collection, err)
		}
		records = append(records, rec)
	}
	if err := store.WriteCollection(collection, records); err != nil {
		log.Fatalf("write %s: %v", collection, err)
	}
}
