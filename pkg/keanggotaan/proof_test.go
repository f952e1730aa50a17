package keanggotaan

import (
	"errors"
	"strings"
	"testing"

	"kopkar/pkg/ledger"
)

func TestGenerateReturnProofStableNumber(t *testing.T) {
	svc, store := newTestService(t)
	seedExitedMember(t, store, "M1", "Budi")
	seedSaldo(t, store, ledger.CollectionPrincipal, "M1", 500000)

	if _, err := svc.ProcessReturn("M1", "transfer", "petugas:tati"); err != nil {
		t.Fatalf("process: %v", err)
	}

	first, err := svc.GenerateReturnProof("M1")
	if err != nil {
		t.Fatalf("first proof: %v", err)
	}
	if !strings.HasPrefix(first.Number, "BPS-") {
		t.Fatalf("proof number %q missing BPS prefix", first.Number)
	}
	if first.Amount.Total != 500000 || first.Method != "transfer" || first.Nama != "Budi" {
		t.Fatalf("proof content wrong: %+v", first)
	}

	second, err := svc.GenerateReturnProof("M1")
	if err != nil {
		t.Fatalf("second proof: %v", err)
	}
	if second.Number != first.Number {
		t.Fatalf("regeneration minted a new number: %q != %q", second.Number, first.Number)
	}

	// Number persisted into the stored pengembalian.
	records, _ := store.ReadCollection(ledger.CollectionReturns)
	if len(records) != 1 {
		t.Fatalf("returns collection has %d records, want 1", len(records))
	}
	p := normalizePengembalian(records[0])
	if p.ProofNumber != first.Number {
		t.Fatalf("stored proofNumber = %q, want %q", p.ProofNumber, first.Number)
	}
}

func TestGenerateReturnProofRequiresProcessing(t *testing.T) {
	svc, store := newTestService(t)
	seedExitedMember(t, store, "M1", "Budi")

	if _, err := svc.GenerateReturnProof("M1"); !errors.Is(err, ErrReturnNotProcessed) {
		t.Fatalf("err = %v, want ErrReturnNotProcessed", err)
	}
	if _, err := svc.GenerateReturnProof("missing"); !errors.Is(err, ErrAnggotaNotFound) {
		t.Fatalf("err = %v, want ErrAnggotaNotFound", err)
	}
}
