package keanggotaan

import (
	"log"
	"time"

	"github.com/google/uuid"

	"kopkar/pkg/ledger"
)

// AuditEntry is one append-only record of a state-changing operation.
type AuditEntry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actorId"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Details    map[string]any `json:"details,omitempty"`
}

// AuditSink receives audit entries. Append failures must not block the
// primary operation; the service reports them on stderr instead.
type AuditSink interface {
	Append(entry AuditEntry) error
}

// LedgerAuditSink appends entries to the auditLog collection of a ledger
// store.
type LedgerAuditSink struct {
	store ledger.Store
}

func NewLedgerAuditSink(store ledger.Store) *LedgerAuditSink {
	return &LedgerAuditSink{store: store}
}

func (s *LedgerAuditSink) Append(entry AuditEntry) error {
	records, err := s.store.ReadCollection(ledger.CollectionAuditLog)
	if err != nil {
		return err
	}
	rec, err := ledger.ToRecord(entry)
	if err != nil {
		return err
	}
	return s.store.WriteCollection(ledger.CollectionAuditLog, append(records, rec))
}

// logAudit is fire-and-forget: an audit failure is reported but never aborts
// the operation that produced it.
func (s *Service) logAudit(action, entityType, entityID, actor string, details map[string]any) {
	entry := AuditEntry{
		ID:         uuid.NewString(),
		ActorID:    actor,
		Timestamp:  time.Now(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
	if err := s.audit.Append(entry); err != nil {
		log.Printf("audit append failed (action=%s entity=%s): %v", action, entityID, err)
	}
}
