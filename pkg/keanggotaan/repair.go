package keanggotaan

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"kopkar/pkg/ledger"
)

// RepairExitedMemberSavings scans every exited member and zeroes any savings
// record still carrying a positive balance, stamping it autoFixed to keep the
// correction distinguishable from an operator-initiated return. The sweep is
// the compensating mechanism for a crash between collection writes: running
// it converges the ledgers back to a consistent state, and running it again
// with no new drift fixes nothing.
//
// A failure on one member is collected into the report and the sweep moves
// on; it never aborts the whole run.
func (s *Service) RepairExitedMemberSavings(actor string) (RepairReport, error) {
	return s.repairSweep(actor, false)
}

// PreviewRepair runs the same scan as RepairExitedMemberSavings but writes
// nothing: the report counts what a real sweep would fix.
func (s *Service) PreviewRepair(actor string) (RepairReport, error) {
	return s.repairSweep(actor, true)
}

func (s *Service) repairSweep(actor string, dryRun bool) (RepairReport, error) {
	report := RepairReport{DryRun: dryRun, MemberIDs: []string{}}
	sweepID := uuid.NewString()
	startedAt := time.Now()

	records, err := s.store.ReadCollection(ledger.CollectionMembers)
	if err != nil {
		return report, err
	}
	for _, rec := range records {
		a := normalizeAnggota(rec)
		if a.Status != StatusKeluar {
			continue
		}
		report.ScannedExited++
		if err := s.begin(a.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", a.ID, err))
			continue
		}
		fixed := 0
		for _, kind := range Kinds {
			_, touched, err := s.zeroSavings(kind, a.ID, sweepID, startedAt, true, actor, dryRun)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s (%s): %v", a.ID, kind, err))
				continue
			}
			switch kind {
			case SimpananPokok:
				report.FixedPokok += touched
			case SimpananWajib:
				report.FixedWajib += touched
			case SimpananSukarela:
				report.FixedSukarela += touched
			}
			fixed += touched
		}
		s.end(a.ID)
		if fixed > 0 {
			report.MemberIDs = append(report.MemberIDs, a.ID)
		}
	}
	report.FixedTotal = report.FixedPokok + report.FixedWajib + report.FixedSukarela
	if dryRun {
		return report, nil
	}

	// One summary entry per sweep; the per-record trail comes from the shared
	// zero-and-stamp routine.
	s.logAudit("repair.sweep", "sweep", sweepID, actor, map[string]any{
		"scannedExited": report.ScannedExited,
		"fixedTotal":    report.FixedTotal,
		"memberIds":     report.MemberIDs,
		"errors":        len(report.Errors),
		"durationMs":    time.Since(startedAt).Milliseconds(),
	})
	return report, nil
}
