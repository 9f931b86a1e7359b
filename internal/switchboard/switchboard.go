// Package switchboard owns the set of known database backends and which one
// is currently active.
//
// The active backend selection is guarded by a readers-writer gate: every
// credential/token operation runs under the read side for its full duration,
// and a switch takes the write side, so an operation either completes
// entirely against the pre-switch backend or entirely against the post-switch
// one. The descriptor map has its own small lock, independent of the gate.
package switchboard

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/migrate"
	"github.com/and161185/authd/internal/model"
	"github.com/and161185/authd/internal/repository"
	"github.com/and161185/authd/internal/repository/postgres"
	"github.com/and161185/authd/internal/repository/sqldb"
)

// SwitchPolicy selects how a second concurrent Switch call behaves.
type SwitchPolicy int

const (
	// PolicyBlock queues concurrent switches behind the one in flight.
	PolicyBlock SwitchPolicy = iota
	// PolicyReject fails concurrent switches with errs.ErrConflict.
	PolicyReject
)

// Opener opens a backend for a descriptor, running migrations as needed.
// Injectable for tests; the default wires the pgx and database/sql backends.
type Opener func(ctx context.Context, desc model.ConnectionDescriptor) (repository.Backend, error)

// Options configures a Switchboard.
type Options struct {
	Policy SwitchPolicy
	// ProbeTimeout bounds the reachability probe during Switch (default 5s).
	ProbeTimeout time.Duration
	Logger       *zap.Logger
	// Open overrides the backend opener (tests).
	Open Opener
}

// Switchboard is the connection registry plus the active-backend gate.
type Switchboard struct {
	log          *zap.Logger
	policy       SwitchPolicy
	probeTimeout time.Duration
	open         Opener

	switchMu sync.Mutex // at most one switch in flight

	gate   sync.RWMutex // active backend selection
	active repository.Backend

	mu       sync.Mutex // descriptors, insertion order, id allocation
	descs    map[int64]model.ConnectionDescriptor
	order    []int64
	nextID   int64
	activeID int64
}

// New constructs an empty Switchboard; Bootstrap seeds the default connection.
func New(opts Options) *Switchboard {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	s := &Switchboard{
		log:          opts.Logger,
		policy:       opts.Policy,
		probeTimeout: opts.ProbeTimeout,
		open:         opts.Open,
		descs:        map[int64]model.ConnectionDescriptor{},
		activeID:     -1,
	}
	if s.open == nil {
		s.open = s.openBackend
	}
	return s
}

// Bootstrap registers the non-removable default connection and activates it.
// Failure here is the only fatal condition in the core: the process must not
// run with no backend.
func (s *Switchboard) Bootstrap(ctx context.Context, desc model.ConnectionDescriptor) error {
	if err := validate(desc); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	b, err := s.open(ctx, desc)
	if err != nil {
		return fmt.Errorf("%w: default connection %q (%s)", errs.ErrBackendUnreachable, desc.Name, desc.Kind)
	}

	s.mu.Lock()
	desc.ID = s.nextID
	desc.IsDefault = true
	desc.IsRemovable = false
	s.nextID++
	s.descs[desc.ID] = desc
	s.order = append(s.order, desc.ID)
	s.activeID = desc.ID
	s.mu.Unlock()

	s.gate.Lock()
	s.active = b
	s.gate.Unlock()

	s.log.Info("default backend active",
		zap.Int64("id", desc.ID),
		zap.String("name", desc.Name),
		zap.String("kind", string(desc.Kind)),
	)
	return nil
}

// List returns all descriptors in insertion order and the active id.
func (s *Switchboard) List() ([]model.ConnectionDescriptor, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ConnectionDescriptor, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.descs[id])
	}
	return out, s.activeID
}

// Get returns one descriptor by id.
func (s *Switchboard) Get(id int64) (model.ConnectionDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.descs[id]
	if !ok {
		return model.ConnectionDescriptor{}, errs.ErrNotFound
	}
	return d, nil
}

// Add validates the descriptor for its kind, assigns a fresh id and inserts
// it. Added connections are never default and always removable.
func (s *Switchboard) Add(desc model.ConnectionDescriptor) (model.ConnectionDescriptor, error) {
	if err := validate(desc); err != nil {
		return model.ConnectionDescriptor{}, err
	}
	desc.IsDefault = false
	desc.IsRemovable = true

	s.mu.Lock()
	defer s.mu.Unlock()
	desc.ID = s.nextID
	s.nextID++
	s.descs[desc.ID] = desc
	s.order = append(s.order, desc.ID)

	s.log.Info("connection added",
		zap.Int64("id", desc.ID),
		zap.String("name", desc.Name),
		zap.String("kind", string(desc.Kind)),
	)
	s.log.Debug("descriptor stored", zap.Any("connection", desc.Redacted()))
	return desc, nil
}

// Remove deletes a descriptor. The default connection and the currently
// active connection are protected. Data stored in the backend is untouched.
func (s *Switchboard) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.descs[id]
	if !ok {
		return errs.ErrNotFound
	}
	if !d.IsRemovable {
		return errs.ErrNotRemovable
	}
	if id == s.activeID {
		return errs.ErrActiveConnection
	}
	delete(s.descs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Info("connection removed", zap.Int64("id", id), zap.String("name", d.Name))
	return nil
}

// Switch atomically moves the active pointer to the connection with the
// given id. New store/index operations are suspended and in-flight ones
// drained before the target is probed; if the target cannot be opened the
// previous backend stays active and ErrBackendUnreachable is returned.
func (s *Switchboard) Switch(ctx context.Context, id int64) error {
	switch s.policy {
	case PolicyReject:
		if !s.switchMu.TryLock() {
			return errs.ErrConflict
		}
	default:
		s.switchMu.Lock()
	}
	defer s.switchMu.Unlock()

	s.mu.Lock()
	desc, ok := s.descs[id]
	already := id == s.activeID
	s.mu.Unlock()
	if !ok {
		return errs.ErrNotFound
	}
	if already {
		return nil
	}

	// Write side: blocks until every in-flight operation drains, and holds
	// off new ones while the target is probed. The probe is bounded, so the
	// stall is too.
	s.gate.Lock()
	defer s.gate.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	b, err := s.open(probeCtx, desc)
	if err != nil {
		s.log.Warn("switch aborted, target unreachable",
			zap.Int64("id", id),
			zap.String("name", desc.Name),
			zap.Error(err),
		)
		return fmt.Errorf("%w: connection %q (%s)", errs.ErrBackendUnreachable, desc.Name, desc.Kind)
	}

	// The descriptor may have been removed while the target was being
	// opened; committing anyway would leave the active id dangling.
	s.mu.Lock()
	if _, still := s.descs[id]; !still {
		s.mu.Unlock()
		if err := b.Close(); err != nil {
			s.log.Warn("closing orphaned backend", zap.Error(err))
		}
		return errs.ErrNotFound
	}
	old := s.active
	s.active = b
	s.activeID = id
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.log.Warn("closing previous backend", zap.Error(err))
		}
	}
	s.log.Info("active backend switched", zap.Int64("id", id), zap.String("name", desc.Name))
	return nil
}

// WithBackend runs fn under the read side of the backend gate. Callers block
// while a switch is mid-flight and observe a fully settled selection.
func (s *Switchboard) WithBackend(ctx context.Context, fn func(repository.Backend) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.active == nil {
		return fmt.Errorf("%w: no active backend", errs.ErrBackendUnreachable)
	}
	return fn(s.active)
}

// Close releases the active backend.
func (s *Switchboard) Close() error {
	s.gate.Lock()
	defer s.gate.Unlock()
	if s.active == nil {
		return nil
	}
	err := s.active.Close()
	s.active = nil
	return err
}

// validate enforces the per-kind required field set at add time, not use time.
func validate(d model.ConnectionDescriptor) error {
	if !d.Kind.Valid() {
		return fmt.Errorf("%w: unrecognized backend kind %q", errs.ErrValidation, d.Kind)
	}
	switch d.Kind {
	case model.KindSQLite:
		if d.Path == "" {
			return fmt.Errorf("%w: sqlite connection requires a path", errs.ErrValidation)
		}
	default:
		switch {
		case d.Host == "":
			return fmt.Errorf("%w: %s connection requires a host", errs.ErrValidation, d.Kind)
		case d.Port <= 0 || d.Port > 65535:
			return fmt.Errorf("%w: %s connection requires a valid port", errs.ErrValidation, d.Kind)
		case d.Database == "":
			return fmt.Errorf("%w: %s connection requires a database name", errs.ErrValidation, d.Kind)
		case d.Username == "":
			return fmt.Errorf("%w: %s connection requires a username", errs.ErrValidation, d.Kind)
		}
		// password optional
	}
	return nil
}

// openBackend opens and migrates a backend for the descriptor's kind.
func (s *Switchboard) openBackend(ctx context.Context, desc model.ConnectionDescriptor) (repository.Backend, error) {
	switch desc.Kind {
	case model.KindPostgreSQL:
		// goose runs over database/sql; repositories use the pgx pool.
		db, err := sql.Open("pgx", desc.DSN())
		if err != nil {
			return nil, err
		}
		if err := migrate.Up(ctx, db, desc.Kind); err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := db.Close(); err != nil {
			return nil, err
		}
		return postgres.Open(ctx, desc.DSN())
	default:
		if desc.Kind == model.KindSQLite {
			if dir := filepath.Dir(desc.Path); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, err
				}
			}
		}
		b, err := sqldb.Open(ctx, desc)
		if err != nil {
			return nil, err
		}
		if err := migrate.Up(ctx, b.DB(), desc.Kind); err != nil {
			_ = b.Close()
			return nil, err
		}
		return b, nil
	}
}
