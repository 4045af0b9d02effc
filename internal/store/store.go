// Package store holds the hospital's aggregate in-memory state. Writers run
// one at a time against a cloned working copy that replaces the live state
// only when the transaction function succeeds; readers see a consistent
// state under a read lock. Committed changes are fanned out to subscribers
// and, when configured, the full snapshot is handed to a Persister.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Action is the kind of mutation recorded in a Change.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change captures one mutation inside a transaction.
type Change struct {
	Entity Entity `json:"entity"`
	Action Action `json:"action"`
	ID     string `json:"id"`
	Before any    `json:"before,omitempty"`
	After  any    `json:"after,omitempty"`
}

// Persister stores and restores full snapshots.
type Persister interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// Observer receives one call per finished transaction.
type Observer interface {
	ObserveTransaction(d time.Duration, changes int, err error)
	ObservePersist(d time.Duration, err error)
	ObserveDroppedEvent()
}

type Store struct {
	mu        sync.RWMutex
	state     *state
	nowFn     func() time.Time
	persister Persister
	observer  Observer
	logger    zerolog.Logger

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithPersister saves a snapshot after every committed transaction.
func WithPersister(p Persister) Option { return func(s *Store) { s.persister = p } }

// WithClock overrides the time source used for transaction timestamps.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.nowFn = now } }

// WithLogger sets the logger used for persistence failures.
func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithObserver attaches transaction metrics.
func WithObserver(o Observer) Option { return func(s *Store) { s.observer = o } }

// New constructs an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		state:  newState(),
		nowFn:  func() time.Time { return time.Now().UTC() },
		logger: zerolog.Nop(),
		subs:   make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time { return s.nowFn() }

// Tx is the mutable unit of work handed to RunInTransaction callbacks.
type Tx struct {
	state   *state
	changes []Change
	now     time.Time
}

// Now is the timestamp shared by every change in the transaction.
func (tx *Tx) Now() time.Time { return tx.now }

// View returns a read-only handle over the transaction's working state.
func (tx *Tx) View() *View { return &View{state: tx.state} }

// Changes returns the mutations recorded so far.
func (tx *Tx) Changes() []Change { return append([]Change(nil), tx.changes...) }

func (tx *Tx) record(c Change) { tx.changes = append(tx.changes, c) }

var tracer = otel.Tracer("github.com/hms/hms/internal/store")

// RunInTransaction applies fn to a copy of the state. If fn returns an error
// the copy is discarded and the store is unchanged.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	ctx, span := tracer.Start(ctx, "store.transaction")
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.observeTx(start, 0, err)
		return err
	}
	s.state = tx.state
	span.SetAttributes(attribute.Int("store.changes", len(tx.changes)))
	s.observeTx(start, len(tx.changes), nil)

	if len(tx.changes) == 0 {
		return nil
	}
	s.publish(tx.changes, tx.now)
	if s.persister != nil {
		s.persist(ctx)
	}
	return nil
}

// View runs fn against the committed state under a read lock. fn must not
// retain the View after it returns.
func (s *Store) View(_ context.Context, fn func(v *View) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&View{state: s.state})
}

// persist saves the committed state. A failed save is logged and counted but
// does not undo the commit; the next successful save writes the full state.
// Callers hold s.mu.
func (s *Store) persist(ctx context.Context) {
	start := time.Now()
	err := s.persister.Save(ctx, snapshotFromState(s.state))
	if s.observer != nil {
		s.observer.ObservePersist(time.Since(start), err)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("persist snapshot")
	}
}

func (s *Store) observeTx(start time.Time, changes int, err error) {
	if s.observer != nil {
		s.observer.ObserveTransaction(time.Since(start), changes, err)
	}
}

// Load replaces the state with the persister's snapshot, if it has one.
// It reports whether a snapshot was found.
func (s *Store) Load(ctx context.Context) (bool, error) {
	if s.persister == nil {
		return false, nil
	}
	snap, ok, err := s.persister.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := s.ImportState(snap); err != nil {
		return false, err
	}
	return true, nil
}

// Flush saves the committed state now and reports the persister's error.
// Commits save on their own; Flush is for state replaced by ImportState.
func (s *Store) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	s.mu.RLock()
	snap := snapshotFromState(s.state)
	s.mu.RUnlock()
	return s.persister.Save(ctx, snap)
}

// Close releases the persister.
func (s *Store) Close() error {
	s.subMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()
	if s.persister != nil {
		return s.persister.Close()
	}
	return nil
}
