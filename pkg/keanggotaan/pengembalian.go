package keanggotaan

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"kopkar/pkg/ledger"
)

// CalculateReturnAmount sums the outstanding balance per savings kind for one
// member. Pure read; malformed or negative balances count as zero and are
// logged as data-quality warnings.
func (s *Service) CalculateReturnAmount(memberID string) (ReturnAmount, error) {
	var out ReturnAmount
	for _, kind := range Kinds {
		coll := kindCollections[kind]
		records, err := s.store.ReadCollection(coll)
		if err != nil {
			return ReturnAmount{}, err
		}
		for _, rec := range records {
			sp, warnings := normalizeSimpanan(rec)
			if sp.AnggotaID != memberID {
				continue
			}
			s.logWarnings(coll, warnings)
			if sp.Saldo <= 0 {
				continue
			}
			switch kind {
			case SimpananPokok:
				out.Pokok += sp.Saldo
			case SimpananWajib:
				out.Wajib += sp.Saldo
			case SimpananSukarela:
				out.Sukarela += sp.Saldo
			}
		}
	}
	out.Total = out.Pokok + out.Wajib + out.Sukarela
	return out, nil
}

// ValidateReturn checks whether a return can be processed. Only a missing
// member or a member that has not exited is an error; everything else (no
// outstanding savings, an unresolved loan, a missing disbursement method)
// surfaces as a warning so an operator can proceed with an informed override.
func (s *Service) ValidateReturn(memberID, method string) (ValidationResult, error) {
	a, err := s.GetAnggota(memberID)
	if err != nil {
		return ValidationResult{}, err
	}
	if a.Status != StatusKeluar {
		return ValidationResult{}, ErrAnggotaNotExited
	}
	result := ValidationResult{Valid: true, Warnings: []string{}}
	amount, err := s.CalculateReturnAmount(memberID)
	if err != nil {
		return ValidationResult{}, err
	}
	if amount.Total == 0 {
		result.Warnings = append(result.Warnings, "tidak ada saldo simpanan yang perlu dikembalikan")
	}
	if a.ReturnStatus == ProsesCompleted {
		result.Warnings = append(result.Warnings, "pengembalian untuk anggota ini sudah pernah diproses")
	}
	if method == "" {
		result.Warnings = append(result.Warnings, "metode pencairan belum dipilih")
	}
	if sisa := s.outstandingLoan(memberID); sisa > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("anggota masih memiliki sisa pinjaman Rp%d", sisa))
	}
	return result, nil
}

// outstandingLoan sums remaining loan balances for the member. The loans
// collection is optional; an unreadable collection only suppresses the
// advisory, it never blocks validation.
func (s *Service) outstandingLoan(memberID string) int64 {
	records, err := s.store.ReadCollection(ledger.CollectionLoans)
	if err != nil {
		log.Printf("loans collection unavailable, skipping advisory: %v", err)
		return 0
	}
	var total int64
	for _, rec := range records {
		if strField(rec, "memberId") != memberID {
			continue
		}
		if v, ok := intField(rec, "remainingBalance"); ok && v > 0 {
			total += v
		}
	}
	return total
}

// ProcessReturn zeroes the member's three savings ledgers and records one
// pengembalian summing the amounts. Idempotent: once the member's return
// processing is Completed, the stored pengembalian is returned and nothing is
// zeroed again, so a retry or duplicate submit cannot pay out twice.
func (s *Service) ProcessReturn(memberID, method, actor string) (Pengembalian, error) {
	if err := s.begin(memberID); err != nil {
		return Pengembalian{}, err
	}
	defer s.end(memberID)

	a, err := s.GetAnggota(memberID)
	if err != nil {
		return Pengembalian{}, err
	}
	if a.Status != StatusKeluar {
		return Pengembalian{}, ErrAnggotaNotExited
	}
	if a.ReturnStatus == ProsesCompleted {
		p, ok, err := s.findPengembalian(memberID)
		if err != nil {
			return Pengembalian{}, err
		}
		if !ok {
			return Pengembalian{}, ErrPengembalianNotFound
		}
		return p, nil
	}

	// A crash after the pengembalian was written but before the member's
	// status flip leaves the member Pending with zeroed ledgers. Finish that
	// run instead of minting a zero-total duplicate.
	if p, ok, err := s.findPengembalian(memberID); err != nil {
		return Pengembalian{}, err
	} else if ok {
		amount, err := s.CalculateReturnAmount(memberID)
		if err != nil {
			return Pengembalian{}, err
		}
		if amount.Total == 0 {
			if err := s.setMemberReturnStatus(memberID, ProsesCompleted); err != nil {
				return Pengembalian{}, err
			}
			s.logAudit("pengembalian.selesai", "pengembalian", p.ID, actor, map[string]any{
				"memberId": memberID,
				"method":   p.Method,
				"total":    p.Total,
			})
			return p, nil
		}
	}

	now := time.Now()
	refID := uuid.NewString()
	amounts := make(map[JenisSimpanan]int64, len(Kinds))
	for _, kind := range Kinds {
		zeroed, _, err := s.zeroSavings(kind, memberID, refID, now, false, actor, false)
		if err != nil {
			return Pengembalian{}, err
		}
		amounts[kind] = zeroed
	}
	p := Pengembalian{
		ID:          refID,
		AnggotaID:   memberID,
		Method:      method,
		Pokok:       amounts[SimpananPokok],
		Wajib:       amounts[SimpananWajib],
		Sukarela:    amounts[SimpananSukarela],
		CreatedAt:   now,
		CompletedAt: &now,
	}
	p.Total = p.Pokok + p.Wajib + p.Sukarela

	returns, err := s.store.ReadCollection(ledger.CollectionReturns)
	if err != nil {
		return Pengembalian{}, err
	}
	rec, err := ledger.ToRecord(p)
	if err != nil {
		return Pengembalian{}, err
	}
	if err := s.store.WriteCollection(ledger.CollectionReturns, append(returns, rec)); err != nil {
		return Pengembalian{}, err
	}
	if err := s.setMemberReturnStatus(memberID, ProsesCompleted); err != nil {
		return Pengembalian{}, err
	}
	s.logAudit("pengembalian.selesai", "pengembalian", p.ID, actor, map[string]any{
		"memberId": memberID,
		"method":   method,
		"total":    p.Total,
	})
	return p, nil
}

// zeroSavings zeroes every positive-balance record of one savings kind for
// the member, snapshotting the previous balance and stamping the return
// reference. All mutations for the kind go out in a single collection write.
// Returns the amount zeroed and the number of records touched. With dryRun
// set, balances are counted but nothing is written.
func (s *Service) zeroSavings(kind JenisSimpanan, memberID, refID string, at time.Time, autoFixed bool, actor string, dryRun bool) (int64, int, error) {
	coll := kindCollections[kind]
	records, err := s.store.ReadCollection(coll)
	if err != nil {
		return 0, 0, err
	}
	var total int64
	touched := 0
	for i, rec := range records {
		sp, warnings := normalizeSimpanan(rec)
		if sp.AnggotaID != memberID {
			continue
		}
		s.logWarnings(coll, warnings)
		if sp.Saldo <= 0 {
			continue
		}
		before := sp.Saldo
		sp.SaldoBefore = &before
		sp.Saldo = 0
		sp.ReturnStatus = SimpananDikembalikan
		sp.ReturnRef = refID
		sp.ReturnDate = &at
		if autoFixed {
			sp.AutoFixed = true
			sp.AutoFixedAt = &at
		}
		updated, err := ledger.ToRecord(sp)
		if err != nil {
			return 0, 0, err
		}
		records[i] = updated
		total += before
		touched++
	}
	if touched == 0 || dryRun {
		return total, touched, nil
	}
	if err := s.store.WriteCollection(coll, records); err != nil {
		return 0, 0, err
	}
	s.logAudit("simpanan.dikembalikan", "simpanan", memberID, actor, map[string]any{
		"jenis":     string(kind),
		"jumlah":    total,
		"records":   touched,
		"ref":       refID,
		"autoFixed": autoFixed,
	})
	return total, touched, nil
}

// findPengembalian returns the member's most recent pengembalian record.
func (s *Service) findPengembalian(memberID string) (Pengembalian, bool, error) {
	records, err := s.store.ReadCollection(ledger.CollectionReturns)
	if err != nil {
		return Pengembalian{}, false, err
	}
	var latest Pengembalian
	found := false
	for _, rec := range records {
		p := normalizePengembalian(rec)
		if p.AnggotaID != memberID {
			continue
		}
		if !found || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
			found = true
		}
	}
	return latest, found, nil
}
