package vulkan

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// TrackedObject describes one GPU object currently alive.
type TrackedObject struct {
	ID    uuid.UUID
	Kind  string
	Label string
}

// Registry keeps an entry for every GPU object between creation and
// destruction. Whatever is left at shutdown was leaked, and gets reported
// with enough identity to find the owner.
type Registry struct {
	mu      sync.Mutex
	objects map[uuid.UUID]TrackedObject
}

func NewRegistry() *Registry {
	return &Registry{objects: make(map[uuid.UUID]TrackedObject)}
}

// Track registers a live object and returns the handle to release it with.
func (r *Registry) Track(kind, label string) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.objects[id] = TrackedObject{ID: id, Kind: kind, Label: label}
	r.mu.Unlock()
	return id
}

// Release removes a tracked object. Releasing uuid.Nil or an already
// released id is a no-op, so destruction paths can run more than once.
func (r *Registry) Release(id uuid.UUID) {
	if id == uuid.Nil {
		return
	}
	r.mu.Lock()
	delete(r.objects, id)
	r.mu.Unlock()
}

// Count returns the number of live objects.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

// Leaked lists the objects still alive, ordered by kind then label so the
// report is stable.
func (r *Registry) Leaked() []TrackedObject {
	r.mu.Lock()
	leaked := make([]TrackedObject, 0, len(r.objects))
	for _, obj := range r.objects {
		leaked = append(leaked, obj)
	}
	r.mu.Unlock()

	sort.Slice(leaked, func(i, j int) bool {
		if leaked[i].Kind != leaked[j].Kind {
			return leaked[i].Kind < leaked[j].Kind
		}
		if leaked[i].Label != leaked[j].Label {
			return leaked[i].Label < leaked[j].Label
		}
		return leaked[i].ID.String() < leaked[j].ID.String()
	})
	return leaked
}
