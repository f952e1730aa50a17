package keanggotaan

import "errors"

var (
	ErrAnggotaNotFound      = errors.New("anggota not found")
	ErrAlreadyExited        = errors.New("anggota already marked keluar")
	ErrAnggotaNotExited     = errors.New("anggota is not in keluar status")
	ErrPengembalianNotFound = errors.New("pengembalian record not found")
	ErrReturnNotProcessed   = errors.New("pengembalian has not been processed")
	ErrConcurrentReturn     = errors.New("another operation for this anggota is in flight")
	ErrUnknownJenis         = errors.New("unknown jenis simpanan")
	ErrInvalidDeposit       = errors.New("deposit amount must be positive")
)
