package keanggotaan

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"kopkar/pkg/ledger"
)

// logWarnings reports data-quality findings from normalization. Warnings are
// logged and the degraded values used; they never abort an operation.
func (s *Service) logWarnings(collection string, warnings []string) {
	for _, w := range warnings {
		log.Printf("data quality (%s): %s", collection, w)
	}
}

// Read-time normalization for loosely-shaped ledger records. Missing or
// malformed fields degrade to defaults instead of failing the read; anything
// that silently changes a value is reported back as a data-quality warning.

func strField(rec ledger.Record, key string) string {
	if v, ok := rec[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func boolField(rec ledger.Record, key string) bool {
	v, _ := rec[key].(bool)
	return v
}

// intField reads an integer that may arrive as a JSON number, a numeric
// string, or garbage. ok is false only when a present value is unusable.
func intField(rec ledger.Record, key string) (int64, bool) {
	switch v := rec[key].(type) {
	case nil:
		return 0, true
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, true
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

func timeField(rec ledger.Record, key string) *time.Time {
	s := strField(rec, key)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func normalizeAnggota(rec ledger.Record) Anggota {
	a := Anggota{
		ID:         strField(rec, "id"),
		NIK:        strField(rec, "nik"),
		Nama:       strField(rec, "nama"),
		Status:     StatusAktif,
		ExitDate:   timeField(rec, "exitDate"),
		ExitReason: strField(rec, "exitReason"),
	}
	if a.Nama == "" {
		a.Nama = strField(rec, "name")
	}
	switch strField(rec, "membershipStatus") {
	case string(StatusKeluar), "Exited":
		a.Status = StatusKeluar
	}
	switch strField(rec, "returnProcessingStatus") {
	case string(ProsesPending):
		a.ReturnStatus = ProsesPending
	case string(ProsesCompleted), "Selesai":
		a.ReturnStatus = ProsesCompleted
	}
	return a
}

func normalizeSimpanan(rec ledger.Record) (Simpanan, []string) {
	var warnings []string
	sp := Simpanan{
		ID:           strField(rec, "id"),
		AnggotaID:    strField(rec, "memberId"),
		ReturnStatus: SimpananAktif,
		ReturnRef:    strField(rec, "returnReferenceId"),
		ReturnDate:   timeField(rec, "returnDate"),
		AutoFixed:    boolField(rec, "autoFixed"),
		AutoFixedAt:  timeField(rec, "autoFixedAt"),
	}
	saldo, ok := intField(rec, "balance")
	if !ok {
		warnings = append(warnings, fmt.Sprintf("record %s: balance %v is not numeric, treated as 0", sp.ID, rec["balance"]))
		saldo = 0
	}
	if f, isFloat := rec["balance"].(float64); isFloat && f != math.Trunc(f) {
		warnings = append(warnings, fmt.Sprintf("record %s: fractional balance %v truncated to %d", sp.ID, f, saldo))
	}
	if saldo < 0 {
		warnings = append(warnings, fmt.Sprintf("record %s: negative balance %d, treated as 0", sp.ID, saldo))
		saldo = 0
	}
	sp.Saldo = saldo
	if before, ok := intField(rec, "balanceBeforeReturn"); ok {
		if _, present := rec["balanceBeforeReturn"]; present {
			sp.SaldoBefore = &before
		}
	}
	switch strField(rec, "returnStatus") {
	case string(SimpananDikembalikan), "Returned":
		sp.ReturnStatus = SimpananDikembalikan
	}
	return sp, warnings
}

func normalizePengembalian(rec ledger.Record) Pengembalian {
	p := Pengembalian{
		ID:          strField(rec, "id"),
		AnggotaID:   strField(rec, "memberId"),
		Method:      strField(rec, "method"),
		ProofNumber: strField(rec, "proofNumber"),
		CompletedAt: timeField(rec, "completedAt"),
	}
	p.Pokok, _ = intField(rec, "principalAmount")
	p.Wajib, _ = intField(rec, "mandatoryAmount")
	p.Sukarela, _ = intField(rec, "voluntaryAmount")
	p.Total, _ = intField(rec, "totalAmount")
	if t := timeField(rec, "createdAt"); t != nil {
		p.CreatedAt = *t
	}
	return p
}
