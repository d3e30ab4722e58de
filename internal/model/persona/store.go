package persona

// Store exposes persona snapshot retrieval. Profile management lives in
// an external system; the conversation core only reads.
type Store interface {
	List() []Snapshot
	FindByID(id string) (Snapshot, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Snapshot
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied snapshots.
func NewMemoryStore(items []Snapshot) *MemoryStore {
	return &MemoryStore{items: append([]Snapshot(nil), items...)}
}

// List returns all known persona snapshots.
func (s *MemoryStore) List() []Snapshot {
	return append([]Snapshot(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Snapshot, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Snapshot{}, false
}
