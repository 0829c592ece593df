package live

import "sync"

// Edit is an edit form the user has open, with the values it was opened
// with.
type Edit struct {
	Ref         Ref
	Title       string
	Description string
}

// EditTracker records which cards and columns have an open edit form.
type EditTracker struct {
	mu   sync.RWMutex
	open map[Ref]Edit
}

func NewEditTracker() *EditTracker {
	return &EditTracker{open: map[Ref]Edit{}}
}

func (t *EditTracker) Begin(e Edit) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open[e.Ref] = e
}

func (t *EditTracker) End(ref Ref) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, ref)
}

func (t *EditTracker) IsOpen(ref Ref) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.open[ref]
	return ok
}

func (t *EditTracker) Get(ref Ref) (Edit, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.open[ref]
	return e, ok
}

func (t *EditTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.open)
}
