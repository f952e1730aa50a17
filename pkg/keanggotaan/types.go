package keanggotaan

import (
	"time"

	"kopkar/pkg/ledger"
)

// StatusAnggota is the membership status. It is the only field that gates
// operational visibility.
type StatusAnggota string

const (
	StatusAktif  StatusAnggota = "Aktif"
	StatusKeluar StatusAnggota = "Keluar"
)

// StatusProses tracks whether the savings-return workflow has finished for an
// exited anggota. Empty while the anggota is still active.
type StatusProses string

const (
	ProsesPending   StatusProses = "Pending"
	ProsesCompleted StatusProses = "Completed"
)

// Anggota is one cooperative member. Records are never deleted; an exit is a
// status transition.
type Anggota struct {
	ID           string        `json:"id"`
	NIK          string        `json:"nik,omitempty"`
	Nama         string        `json:"nama"`
	Status       StatusAnggota `json:"membershipStatus"`
	ExitDate     *time.Time    `json:"exitDate,omitempty"`
	ExitReason   string        `json:"exitReason,omitempty"`
	ReturnStatus StatusProses  `json:"returnProcessingStatus,omitempty"`
}

// JenisSimpanan is one of the three savings ledgers.
type JenisSimpanan string

const (
	SimpananPokok    JenisSimpanan = "pokok"
	SimpananWajib    JenisSimpanan = "wajib"
	SimpananSukarela JenisSimpanan = "sukarela"
)

// Kinds lists the savings kinds in reporting order.
var Kinds = []JenisSimpanan{SimpananPokok, SimpananWajib, SimpananSukarela}

var kindCollections = map[JenisSimpanan]string{
	SimpananPokok:    ledger.CollectionPrincipal,
	SimpananWajib:    ledger.CollectionMandatory,
	SimpananSukarela: ledger.CollectionVoluntary,
}

type StatusSimpanan string

const (
	SimpananAktif        StatusSimpanan = "Aktif"
	SimpananDikembalikan StatusSimpanan = "Dikembalikan"
)

// Simpanan is one savings record. Saldo is whole rupiah. SaldoBefore holds the
// balance snapshot taken at the moment the record was zeroed; it stays nil
// while the record is untouched.
type Simpanan struct {
	ID           string         `json:"id"`
	AnggotaID    string         `json:"memberId"`
	Saldo        int64          `json:"balance"`
	SaldoBefore  *int64         `json:"balanceBeforeReturn,omitempty"`
	ReturnStatus StatusSimpanan `json:"returnStatus"`
	ReturnRef    string         `json:"returnReferenceId,omitempty"`
	ReturnDate   *time.Time     `json:"returnDate,omitempty"`
	AutoFixed    bool           `json:"autoFixed,omitempty"`
	AutoFixedAt  *time.Time     `json:"autoFixedAt,omitempty"`
}

// Pengembalian records one exit-reconciliation event. Created once, then only
// the proof number and completion stamp may be added.
type Pengembalian struct {
	ID          string     `json:"id"`
	AnggotaID   string     `json:"memberId"`
	Method      string     `json:"method"`
	Pokok       int64      `json:"principalAmount"`
	Wajib       int64      `json:"mandatoryAmount"`
	Sukarela    int64      `json:"voluntaryAmount"`
	Total       int64      `json:"totalAmount"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ProofNumber string     `json:"proofNumber,omitempty"`
}

// ReturnAmount is the outstanding balance per savings kind.
type ReturnAmount struct {
	Pokok    int64 `json:"pokok"`
	Wajib    int64 `json:"wajib"`
	Sukarela int64 `json:"sukarela"`
	Total    int64 `json:"total"`
}

// ValidationResult carries advisory warnings. Valid is true whenever the
// anggota exists and is in Keluar status; warnings never block processing.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}

// ProofDocument is the printable bukti pengembalian. Pure derivation of the
// pengembalian record plus member identity.
type ProofDocument struct {
	Number    string       `json:"number"`
	AnggotaID string       `json:"memberId"`
	Nama      string       `json:"nama"`
	NIK       string       `json:"nik,omitempty"`
	Method    string       `json:"method"`
	Date      time.Time    `json:"date"`
	Amount    ReturnAmount `json:"amount"`
}

// RepairReport summarizes one auto-repair sweep. DryRun marks a preview run
// that counted drifted records without writing any fix.
type RepairReport struct {
	DryRun        bool     `json:"dryRun,omitempty"`
	ScannedExited int      `json:"scannedExited"`
	FixedPokok    int      `json:"fixedPokok"`
	FixedWajib    int      `json:"fixedWajib"`
	FixedSukarela int      `json:"fixedSukarela"`
	FixedTotal    int      `json:"fixedTotal"`
	MemberIDs     []string `json:"memberIds"`
	Errors        []string `json:"errors,omitempty"`
}

// LaporanSimpanan aggregates savings totals across operationally visible
// members only.
type LaporanSimpanan struct {
	JumlahAnggota int   `json:"jumlahAnggota"`
	Pokok         int64 `json:"pokok"`
	Wajib         int64 `json:"wajib"`
	Sukarela      int64 `json:"sukarela"`
	Total         int64 `json:"total"`
}
