package model

import "time"

// SyncedTables is the fixed order in which tables are pushed to the cloud
// document store. Parents come before children so a partially completed run
// never leaves a child document pointing at a parent the cloud has not seen.
func SyncedTables() []string {
	return []string{
		"customers",
		"suppliers",
		"cars",
		"reservations",
		"payments",
		"leads",
	}
}

// SyncDocument is one dirty row ready to be pushed: its primary key and the
// full row as a column map.
type SyncDocument struct {
	ID   string
	Data map[string]any
}

// SyncProgress is the running progress record of a sync run.
// The HTTP layer observes it via snapshot and long-poll endpoints.
type SyncProgress struct {
	Running    bool      `json:"running"`
	TableIndex int       `json:"table_index"`
	TableCount int       `json:"table_count"`
	Table      string    `json:"table"`
	ItemIndex  int       `json:"item_index"`
	ItemCount  int       `json:"item_count"`
	Processed  int       `json:"processed"`
	Total      int       `json:"total"`
	Message    string    `json:"message"`
	Errored    bool      `json:"errored"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}
