package model

import (
	"errors"
	"fmt"
	"time"
)

// BackupVersion is the current backup file format version.
const BackupVersion = 1

// BackupFile is the portable JSON export of the local database.
// Table rows are kept as raw column maps so the format survives additive
// schema changes without a new version.
type BackupFile struct {
	Version    int                         `json:"version"`
	ExportedAt time.Time                   `json:"exported_at"`
	Tables     map[string][]map[string]any `json:"tables"`
}

// Validate checks a backup file before restore.
func (b *BackupFile) Validate(requiredTables []string) error {
	if b == nil {
		return errors.New("backup file is required")
	}
	if b.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %d (want %d)", b.Version, BackupVersion)
	}
	if len(b.Tables) == 0 {
		return errors.New("backup contains no tables")
	}
	for _, name := range requiredTables {
		if _, ok := b.Tables[name]; !ok {
			return fmt.Errorf("backup is missing table %q", name)
		}
	}
	return nil
}

// RowCount returns the total number of rows across all tables.
func (b *BackupFile) RowCount() int {
	n := 0
	for _, rows := range b.Tables {
		n += len(rows)
	}
	return n
}
