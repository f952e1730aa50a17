package keanggotaan

import (
	"fmt"
	"strings"

	"kopkar/pkg/ledger"
)

// GenerateReturnProof builds the bukti pengembalian for a processed return.
// The reference number is minted on first call and persisted back into the
// pengembalian record, so every later call returns the same number.
func (s *Service) GenerateReturnProof(memberID string) (ProofDocument, error) {
	a, err := s.GetAnggota(memberID)
	if err != nil {
		return ProofDocument{}, err
	}
	if a.ReturnStatus != ProsesCompleted {
		return ProofDocument{}, ErrReturnNotProcessed
	}
	p, ok, err := s.findPengembalian(memberID)
	if err != nil {
		return ProofDocument{}, err
	}
	if !ok {
		return ProofDocument{}, ErrPengembalianNotFound
	}
	if p.ProofNumber == "" {
		p.ProofNumber = proofNumber(p)
		if err := s.updatePengembalian(p); err != nil {
			return ProofDocument{}, err
		}
	}
	return ProofDocument{
		Number:    p.ProofNumber,
		AnggotaID: a.ID,
		Nama:      a.Nama,
		NIK:       a.NIK,
		Method:    p.Method,
		Date:      p.CreatedAt,
		Amount:    ReturnAmount{Pokok: p.Pokok, Wajib: p.Wajib, Sukarela: p.Sukarela, Total: p.Total},
	}, nil
}

// proofNumber derives a stable reference from the pengembalian itself, so
// regenerating a proof can never mint a different number.
func proofNumber(p Pengembalian) string {
	short := strings.ToUpper(strings.ReplaceAll(p.ID, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("BPS-%s-%s", p.CreatedAt.Format("200601"), short)
}

// updatePengembalian replaces the stored record matching p.ID with a single
// collection write.
func (s *Service) updatePengembalian(p Pengembalian) error {
	records, err := s.store.ReadCollection(ledger.CollectionReturns)
	if err != nil {
		return err
	}
	for i, rec := range records {
		if strField(rec, "id") != p.ID {
			continue
		}
		updated, err := ledger.ToRecord(p)
		if err != nil {
			return err
		}
		records[i] = updated
		return s.store.WriteCollection(ledger.CollectionReturns, records)
	}
	return ErrPengembalianNotFound
}
