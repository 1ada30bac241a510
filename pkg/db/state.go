// Durable workbench state models
package db

import "time"

// StateEntry is a single durable key/value pair. Values are JSON
// documents replaced wholesale on every write.
type StateEntry struct {
	Key       string    `json:"key" gorm:"primaryKey;size:64"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StateEntry) TableName() string {
	return "state_entries"
}

// State keys
const (
	StateKeyDeletedPaths = "deleted-paths"
)
