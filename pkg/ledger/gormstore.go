package ledger

import (
	"encoding/json"
	"log"

	"gorm.io/gorm"

	"kopkar/models"
)

// GormStore persists collections as schemaless jsonb rows in Postgres.
// WriteCollection replaces the whole collection inside one transaction, which
// preserves the Store contract of a single all-or-nothing write per call.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ReadCollection(name string) ([]Record, error) {
	var rows []models.LedgerRecord
	if err := s.db.Where("collection = ?", name).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, &StoreError{Op: "read", Collection: name, Err: err}
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		var rec Record
		if err := json.Unmarshal([]byte(row.Doc), &rec); err != nil {
			log.Printf("ledger: skipping undecodable row %d in %s: %v", row.ID, name, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *GormStore) WriteCollection(name string, records []Record) error {
	rows := make([]models.LedgerRecord, 0, len(records))
	for i, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return &StoreError{Op: "write", Collection: name, Err: err}
		}
		rows = append(rows, models.LedgerRecord{Collection: name, Seq: i, Doc: string(b)})
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ?", name).Delete(&models.LedgerRecord{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return &StoreError{Op: "write", Collection: name, Err: err}
	}
	return nil
}
