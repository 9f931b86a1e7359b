// Package health tracks the last reported state of each known process and
// actively probes service endpoints.
package health

import (
	"sync"
	"time"

	"github.com/and161185/authd/internal/errs"
)

// Status is the last known state of one process. Port and PID are carried
// as the process reported them; probed processes leave them zero.
type Status struct {
	State     string    `json:"state"`
	Detail    string    `json:"detail,omitempty"`
	Port      int       `json:"port,omitempty"`
	PID       int       `json:"pid,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	StateOK    = "ok"
	StateError = "error"
)

// Registry is an in-memory process-state map. Reports overwrite the previous
// entry for the process; nothing expires on its own.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Status
	now    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]Status{}, now: time.Now}
}

// Report records the state of a process, registering it on first report.
// The registry stamps UpdatedAt; everything else is taken from st as given.
func (r *Registry) Report(process string, st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st.UpdatedAt = r.now().UTC()
	r.byName[process] = st
}

// Query returns the last reported status for a process, or ErrUnknownProcess
// if nothing has ever reported under that name.
func (r *Registry) Query(process string) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.byName[process]
	if !ok {
		return Status{}, errs.ErrUnknownProcess
	}
	return st, nil
}

// Snapshot returns a copy of the whole state map.
func (r *Registry) Snapshot() map[string]Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Status, len(r.byName))
	for k, v := range r.byName {
		out[k] = v
	}
	return out
}
