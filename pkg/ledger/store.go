package ledger

import (
	"encoding/json"
	"fmt"
)

// Record is one schemaless document inside a collection. The data originates
// from a browser localStorage dump, so shapes vary per record and callers are
// expected to normalize on read.
type Record = map[string]any

// Collection names used across all backends.
const (
	CollectionMembers   = "members"
	CollectionPrincipal = "savingsPrincipal"
	CollectionMandatory = "savingsMandatory"
	CollectionVoluntary = "savingsVoluntary"
	CollectionReturns   = "returns"
	CollectionAuditLog  = "auditLog"
	CollectionLoans     = "loans"
)

// Store is whole-collection persistence: read the entire list, mutate it in
// memory, write the entire list back with a single call. There is no row-level
// update primitive, so one logical operation must issue at most one write per
// collection.
type Store interface {
	ReadCollection(name string) ([]Record, error)
	WriteCollection(name string, records []Record) error
}

// StoreError wraps a backend failure with the operation and collection it hit.
type StoreError struct {
	Op         string // "read" or "write"
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ToRecord converts a typed entity into a Record via its JSON form, so the
// stored document carries the same keys the normalizers read back.
func ToRecord(v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
