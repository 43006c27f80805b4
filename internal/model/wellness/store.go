package wellness

// Store exposes the activity catalogue for HTTP handlers.
type Store interface {
	List() []Activity
	FindByID(id string) (Activity, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Activity
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied activities.
func NewMemoryStore(items []Activity) *MemoryStore {
	return &MemoryStore{items: append([]Activity(nil), items...)}
}

// List returns a copy of the catalogue.
func (s *MemoryStore) List() []Activity {
	return append([]Activity(nil), s.items...)
}

// FindByID looks up an activity by identifier.
func (s *MemoryStore) FindByID(id string) (Activity, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Activity{}, false
}
