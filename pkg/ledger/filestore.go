package ledger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// FileStore keeps each collection as one JSON array in <dir>/<name>.json.
// Writes go
// through a temp file plus rename so a crash mid-write leaves the previous
// state intact rather than a half-written file.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the data directory the store was opened on.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// ReadCollection returns the collection's records. A missing file is an empty
// collection, and non-object elements are skipped with a warning instead of
// failing the whole read.
func (s *FileStore) ReadCollection(name string) ([]Record, error) {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, &StoreError{Op: "read", Collection: name, Err: err}
	}
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &StoreError{Op: "read", Collection: name, Err: err}
	}
	records := make([]Record, 0, len(raw))
	for i, el := range raw {
		rec, ok := el.(map[string]any)
		if !ok {
			log.Printf("ledger: skipping non-object element %d in %s", i, name)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *FileStore) WriteCollection(name string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &StoreError{Op: "write", Collection: name, Err: err}
	}
	tmp, err := os.CreateTemp(s.dir, name+"-*.tmp")
	if err != nil {
		return &StoreError{Op: "write", Collection: name, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StoreError{Op: "write", Collection: name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StoreError{Op: "write", Collection: name, Err: err}
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		os.Remove(tmpName)
		return &StoreError{Op: "write", Collection: name, Err: err}
	}
	return nil
}
