package tabs

import (
	"sync"
)

// StateListener observes every tab state change made through a Registry,
// including the implicit backgrounding of the previously active tab. The
// scheduler's OnTabStateChanged hook satisfies this signature.
type StateListener func(TabID, TabState)

// Registry is a minimal in-memory tab manager. It owns the ordered tab list
// and the notion of "the active tab"; it knows nothing about budgets or
// scheduling.
//
// The registry is safe for concurrent use. The listener is invoked with the
// registry lock held, so listeners must not call back into the Registry.
type Registry struct {
	mu        sync.RWMutex
	tabs      []Entry
	active    TabID
	hasActive bool
	nextID    TabID
	listener  StateListener
}

// NewRegistry creates an empty tab registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// SetListener installs the state change listener. Pass nil to remove it.
func (r *Registry) SetListener(fn StateListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = fn
}

func (r *Registry) notify(id TabID, state TabState) {
	if r.listener != nil {
		r.listener(id, state)
	}
}

// Create allocates a new tab, makes it the active tab, and backgrounds the
// previously active one.
func (r *Registry) Create(title, url string) TabID {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.tabs {
		if r.tabs[i].State == Active {
			r.tabs[i].State = Background
			r.notify(r.tabs[i].ID, Background)
		}
	}

	r.nextID++
	id := r.nextID
	r.tabs = append(r.tabs, Entry{ID: id, Title: title, URL: url, State: Active})
	r.active = id
	r.hasActive = true
	r.notify(id, Active)
	return id
}

// SetActive promotes the given tab to Active and backgrounds every other tab
// that is not Suspended. Returns false for unknown tabs.
func (r *Registry) SetActive(id TabID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(id) < 0 {
		return false
	}

	for i := range r.tabs {
		switch {
		case r.tabs[i].ID == id:
			if r.tabs[i].State != Active {
				r.tabs[i].State = Active
				r.notify(id, Active)
			}
		case r.tabs[i].State == Active:
			r.tabs[i].State = Background
			r.notify(r.tabs[i].ID, Background)
		}
	}

	r.active = id
	r.hasActive = true
	return true
}

// SetState assigns a lifecycle state directly. Activating through SetState
// updates the active-tab marker; demoting the active tab clears it. Returns
// false for unknown tabs.
func (r *Registry) SetState(id TabID, state TabState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false
	}

	if r.tabs[i].State != state {
		r.tabs[i].State = state
		r.notify(id, state)
	}

	if state == Active {
		r.active = id
		r.hasActive = true
	} else if r.hasActive && r.active == id {
		r.hasActive = false
	}
	return true
}

// Next returns the tab after the active one in creation order, wrapping
// around. It does not change any state; pair with SetActive to cycle tabs.
func (r *Registry) Next() (TabID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.hasActive || len(r.tabs) == 0 {
		return 0, false
	}
	i := r.indexOf(r.active)
	if i < 0 {
		return 0, false
	}
	return r.tabs[(i+1)%len(r.tabs)].ID, true
}

// Close removes a tab from the registry. Closing the active tab clears the
// active-tab marker; callers decide what to activate next. No state change
// notification is emitted for the removed tab.
func (r *Registry) Close(id TabID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.tabs = append(r.tabs[:i], r.tabs[i+1:]...)
	if r.hasActive && r.active == id {
		r.hasActive = false
	}
	return true
}

// Active returns the currently active tab, if any.
func (r *Registry) Active() (TabID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.hasActive
}

// Get returns a copy of the entry for id.
func (r *Registry) Get(id TabID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return Entry{}, false
	}
	return r.tabs[i], true
}

// List returns a copy of all entries in creation order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.tabs))
	copy(out, r.tabs)
	return out
}

// Len returns the number of open tabs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tabs)
}

// Each calls fn with every tab's id and state, in creation order. Used to
// resynchronize a consumer with the full registry contents.
func (r *Registry) Each(fn func(TabID, TabState)) {
	for _, e := range r.List() {
		fn(e.ID, e.State)
	}
}

// indexOf must be called with the lock held.
func (r *Registry) indexOf(id TabID) int {
	for i := range r.tabs {
		if r.tabs[i].ID == id {
			return i
		}
	}
	return -1
}
