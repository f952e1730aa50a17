package keanggotaan

// IsOperationallyVisible reports whether the anggota may appear in
// operational views: lists, search, filters, report totals. Exited members
// are excluded everywhere except dedicated anggota-keluar views. Every
// listing in the system must go through this one predicate; nothing else may
// re-check the status on its own.
func IsOperationallyVisible(a Anggota) bool {
	return a.Status != StatusKeluar
}

// FilterVisible returns the operationally visible members, preserving input
// order without mutating the input.
func FilterVisible(members []Anggota) []Anggota {
	out := make([]Anggota, 0, len(members))
	for _, a := range members {
		if IsOperationallyVisible(a) {
			out = append(out, a)
		}
	}
	return out
}
