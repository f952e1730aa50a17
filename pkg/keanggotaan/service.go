package keanggotaan

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"kopkar/pkg/ledger"
)

// Service carries the membership and savings-return operations. All state
// lives in the injected ledger store; the service itself only tracks which
// member ids currently have an operation in flight, to reject re-entrant
// calls (for example a double-submitted form) with ErrConcurrentReturn.
type Service struct {
	store ledger.Store
	audit AuditSink

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewService(store ledger.Store, audit AuditSink) *Service {
	return &Service{
		store:    store,
		audit:    audit,
		inflight: make(map[string]struct{}),
	}
}

func (s *Service) begin(memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[memberID]; busy {
		return ErrConcurrentReturn
	}
	s.inflight[memberID] = struct{}{}
	return nil
}

func (s *Service) end(memberID string) {
	s.mu.Lock()
	delete(s.inflight, memberID)
	s.mu.Unlock()
}

func findMemberIndex(records []ledger.Record, memberID string) int {
	for i, rec := range records {
		if strField(rec, "id") == memberID {
			return i
		}
	}
	return -1
}

// GetAnggota returns the normalized member record.
func (s *Service) GetAnggota(memberID string) (Anggota, error) {
	records, err := s.store.ReadCollection(ledger.CollectionMembers)
	if err != nil {
		return Anggota{}, err
	}
	idx := findMemberIndex(records, memberID)
	if idx < 0 {
		return Anggota{}, ErrAnggotaNotFound
	}
	return normalizeAnggota(records[idx]), nil
}

// ListAnggota returns every member, normalized, in stored order. Callers that
// serve operational views must pass the result through FilterVisible.
func (s *Service) ListAnggota() ([]Anggota, error) {
	records, err := s.store.ReadCollection(ledger.CollectionMembers)
	if err != nil {
		return nil, err
	}
	out := make([]Anggota, 0, len(records))
	for _, rec := range records {
		out = append(out, normalizeAnggota(rec))
	}
	return out, nil
}

// EnrollAnggota registers a new active member.
func (s *Service) EnrollAnggota(nik, nama, actor string) (Anggota, error) {
	records, err := s.store.ReadCollection(ledger.CollectionMembers)
	if err != nil {
		return Anggota{}, err
	}
	a := Anggota{ID: uuid.NewString(), NIK: nik, Nama: nama, Status: StatusAktif}
	rec, err := ledger.ToRecord(a)
	if err != nil {
		return Anggota{}, err
	}
	if err := s.store.WriteCollection(ledger.CollectionMembers, append(records, rec)); err != nil {
		return Anggota{}, err
	}
	s.logAudit("anggota.daftar", "anggota", a.ID, actor, map[string]any{"nama": nama})
	return a, nil
}

// RecordDeposit adds amount to the member's savings record of the given kind,
// creating the record on first deposit. Deposits into exited members are
// rejected.
func (s *Service) RecordDeposit(memberID string, kind JenisSimpanan, amount int64, actor string) (Simpanan, error) {
	coll, ok := kindCollections[kind]
	if !ok {
		return Simpanan{}, fmt.Errorf("%w: %q", ErrUnknownJenis, kind)
	}
	if amount <= 0 {
		return Simpanan{}, fmt.Errorf("%w, got %d", ErrInvalidDeposit, amount)
	}
	a, err := s.GetAnggota(memberID)
	if err != nil {
		return Simpanan{}, err
	}
	if a.Status == StatusKeluar {
		return Simpanan{}, ErrAlreadyExited
	}
	records, err := s.store.ReadCollection(coll)
	if err != nil {
		return Simpanan{}, err
	}
	for i, rec := range records {
		sp, warnings := normalizeSimpanan(rec)
		if sp.AnggotaID != memberID || sp.ReturnStatus != SimpananAktif {
			continue
		}
		s.logWarnings(coll, warnings)
		sp.Saldo += amount
		updated, err := ledger.ToRecord(sp)
		if err != nil {
			return Simpanan{}, err
		}
		records[i] = updated
		if err := s.store.WriteCollection(coll, records); err != nil {
			return Simpanan{}, err
		}
		s.logAudit("simpanan.setor", "simpanan", sp.ID, actor, map[string]any{"jenis": string(kind), "jumlah": amount})
		return sp, nil
	}
	sp := Simpanan{ID: uuid.NewString(), AnggotaID: memberID, Saldo: amount, ReturnStatus: SimpananAktif}
	rec, err := ledger.ToRecord(sp)
	if err != nil {
		return Simpanan{}, err
	}
	if err := s.store.WriteCollection(coll, append(records, rec)); err != nil {
		return Simpanan{}, err
	}
	s.logAudit("simpanan.setor", "simpanan", sp.ID, actor, map[string]any{"jenis": string(kind), "jumlah": amount})
	return sp, nil
}

// MarkMemberExited performs the one-way Aktif -> Keluar transition. It never
// touches savings balances; fund return is a separate step so the two can be
// retried independently.
func (s *Service) MarkMemberExited(memberID string, exitDate time.Time, reason, actor string) (Anggota, error) {
	if err := s.begin(memberID); err != nil {
		return Anggota{}, err
	}
	defer s.end(memberID)

	records, err := s.store.ReadCollection(ledger.CollectionMembers)
	if err != nil {
		return Anggota{}, err
	}
	idx := findMemberIndex(records, memberID)
	if idx < 0 {
		return Anggota{}, ErrAnggotaNotFound
	}
	a := normalizeAnggota(records[idx])
	if a.Status == StatusKeluar {
		return a, ErrAlreadyExited
	}
	a.Status = StatusKeluar
	a.ExitDate = &exitDate
	a.ExitReason = reason
	a.ReturnStatus = ProsesPending
	rec, err := ledger.ToRecord(a)
	if err != nil {
		return Anggota{}, err
	}
	records[idx] = rec
	if err := s.store.WriteCollection(ledger.CollectionMembers, records); err != nil {
		return Anggota{}, err
	}
	s.logAudit("anggota.keluar", "anggota", memberID, actor, map[string]any{
		"exitDate": exitDate.Format("2006-01-02"),
		"reason":   reason,
	})
	return a, nil
}

// setMemberReturnStatus re-reads the members collection and updates one
// member's return-processing status with a single write.
func (s *Service) setMemberReturnStatus(memberID string, status StatusProses) error {
	records, err := s.store.ReadCollection(ledger.CollectionMembers)
	if err != nil {
		return err
	}
	idx := findMemberIndex(records, memberID)
	if idx < 0 {
		return ErrAnggotaNotFound
	}
	a := normalizeAnggota(records[idx])
	a.ReturnStatus = status
	rec, err := ledger.ToRecord(a)
	if err != nil {
		return err
	}
	records[idx] = rec
	return s.store.WriteCollection(ledger.CollectionMembers, records)
}

// ReportSimpanan sums savings per kind across operationally visible members.
func (s *Service) ReportSimpanan() (LaporanSimpanan, error) {
	members, err := s.ListAnggota()
	if err != nil {
		return LaporanSimpanan{}, err
	}
	visible := FilterVisible(members)
	ids := make(map[string]struct{}, len(visible))
	for _, a := range visible {
		ids[a.ID] = struct{}{}
	}
	report := LaporanSimpanan{JumlahAnggota: len(visible)}
	for _, kind := range Kinds {
		coll := kindCollections[kind]
		records, err := s.store.ReadCollection(coll)
		if err != nil {
			return LaporanSimpanan{}, err
		}
		for _, rec := range records {
			sp, warnings := normalizeSimpanan(rec)
			if _, ok := ids[sp.AnggotaID]; !ok {
				continue
			}
			s.logWarnings(coll, warnings)
			switch kind {
			case SimpananPokok:
				report.Pokok += sp.Saldo
			case SimpananWajib:
				report.Wajib += sp.Saldo
			case SimpananSukarela:
				report.Sukarela += sp.Saldo
			}
		}
	}
	report.Total = report.Pokok + report.Wajib + report.Sukarela
	return report, nil
}
