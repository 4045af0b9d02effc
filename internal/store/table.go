package store

import (
	"fmt"
	"strconv"
	"strings"
)

// collection keeps records by id together with their insertion order, so
// lists come back in the order they were appended.
type collection[T any] struct {
	items map[string]T
	order []string
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]T)}
}

func (c *collection[T]) clone(cl func(T) T) *collection[T] {
	out := &collection[T]{
		items: make(map[string]T, len(c.items)),
		order: append([]string(nil), c.order...),
	}
	for k, v := range c.items {
		out.items[k] = cl(v)
	}
	return out
}

func (c *collection[T]) remove(id string) {
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// kind describes how the store handles one entity type.
type kind[T any] struct {
	entity Entity
	prefix string
	id     func(*T) *string
	clone  func(T) T
	pick   func(*state) *collection[T]
}

// Reader gives read access to one collection.
type Reader[T any] struct {
	c *collection[T]
	k *kind[T]
}

func newReader[T any](st *state, k *kind[T]) Reader[T] {
	return Reader[T]{c: k.pick(st), k: k}
}

// Get returns a copy of the record with the given id.
func (r Reader[T]) Get(id string) (T, bool) {
	v, ok := r.c.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return r.k.clone(v), true
}

// Require is Get that returns ErrNotFound for a missing id.
func (r Reader[T]) Require(id string) (T, error) {
	v, ok := r.Get(id)
	if !ok {
		return v, fmt.Errorf("%w: %s %q", ErrNotFound, r.k.entity, id)
	}
	return v, nil
}

// List returns copies of all records in insertion order.
func (r Reader[T]) List() []T {
	out := make([]T, 0, len(r.c.order))
	for _, id := range r.c.order {
		out = append(out, r.k.clone(r.c.items[id]))
	}
	return out
}

// Find returns the records matching pred in insertion order.
func (r Reader[T]) Find(pred func(T) bool) []T {
	var out []T
	for _, id := range r.c.order {
		if v := r.c.items[id]; pred(v) {
			out = append(out, r.k.clone(v))
		}
	}
	return out
}

// Len returns the number of records.
func (r Reader[T]) Len() int { return len(r.c.order) }

// Table adds mutation to a Reader inside a transaction.
type Table[T any] struct {
	Reader[T]
	tx *Tx
}

func newTable[T any](tx *Tx, k *kind[T]) Table[T] {
	return Table[T]{Reader: newReader(tx.state, k), tx: tx}
}

// Insert appends rec, assigning the next prefixed id when rec has none.
func (t Table[T]) Insert(rec T) (T, error) {
	idp := t.k.id(&rec)
	if *idp == "" {
		*idp = t.tx.state.nextID(t.k.prefix)
	} else {
		if _, exists := t.c.items[*idp]; exists {
			var zero T
			return zero, fmt.Errorf("%w: %s %q", ErrAlreadyExists, t.k.entity, *idp)
		}
		t.tx.state.observeID(t.k.prefix, *idp)
	}
	t.c.items[*idp] = t.k.clone(rec)
	t.c.order = append(t.c.order, *idp)
	t.tx.record(Change{Entity: t.k.entity, Action: ActionCreate, ID: *idp, After: t.k.clone(rec)})
	return t.k.clone(rec), nil
}

// Update replaces the record in place after mutate has edited a copy.
// The id survives whatever mutate does to it.
func (t Table[T]) Update(id string, mutate func(*T) error) (T, error) {
	current, ok := t.c.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrNotFound, t.k.entity, id)
	}
	before := t.k.clone(current)
	next := t.k.clone(current)
	if err := mutate(&next); err != nil {
		var zero T
		return zero, err
	}
	*t.k.id(&next) = id
	t.c.items[id] = next
	t.tx.record(Change{Entity: t.k.entity, Action: ActionUpdate, ID: id, Before: before, After: t.k.clone(next)})
	return t.k.clone(next), nil
}

// Delete removes the record from the collection.
func (t Table[T]) Delete(id string) error {
	current, ok := t.c.items[id]
	if !ok {
		return fmt.Errorf("%w: %s %q", ErrNotFound, t.k.entity, id)
	}
	t.c.remove(id)
	t.tx.record(Change{Entity: t.k.entity, Action: ActionDelete, ID: id, Before: t.k.clone(current)})
	return nil
}

// sequenceBase is the value before the first id of each prefix, so ids
// start at <prefix>-1001.
const sequenceBase = 1000

func (s *state) nextID(prefix string) string {
	n := s.sequences[prefix]
	if n < sequenceBase {
		n = sequenceBase
	}
	n++
	s.sequences[prefix] = n
	return prefix + "-" + strconv.Itoa(n)
}

// observeID advances the prefix sequence past an externally supplied id.
func (s *state) observeID(prefix, id string) {
	suffix, ok := strings.CutPrefix(id, prefix+"-")
	if !ok {
		return
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return
	}
	if n > s.sequences[prefix] {
		s.sequences[prefix] = n
	}
}
