package session

import "maps"

// Record is the persisted form of a Session: storage key to string value.
type Record map[string]string

// Store persists session snapshots across process restarts.
// Save replaces the whole stored record in one step, so keys missing from rec
// are removed. Implementations must never leave a partially written record.
type Store interface {
	// Load returns the stored record, or an empty record if nothing is stored
	Load() (Record, error)

	// Save atomically replaces the stored record
	Save(rec Record) error

	// Clear removes every stored key. Clearing an empty store is not an error
	Clear() error
}

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}
