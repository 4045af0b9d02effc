package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/query"
	"github.com/hms/hms/internal/store"
)

type validator interface {
	Validate() error
}

type patcher[T any] interface {
	Apply(*T)
}

// itemFields exposes the parts of a catalog record the registry manages.
// stock is nil for kinds that are not stocked.
type itemFields struct {
	id      *string
	name    string
	active  *bool
	stock   *int
	reorder int
	created *time.Time
	updated *time.Time
	search  []string
}

// Registry is the CRUD surface shared by every catalog kind.
type Registry[T validator, P patcher[T]] struct {
	kind   string
	store  *store.Store
	logger zerolog.Logger
	table  func(*store.Tx) store.Table[T]
	reader func(*store.View) store.Reader[T]
	fields func(*T) itemFields
}

// Create adds an active item. Stock may be set only at creation; later
// movements go through AdjustStock.
func (r *Registry[T, P]) Create(ctx context.Context, item T) (T, error) {
	f := r.fields(&item)
	*f.id = ""
	*f.active = true
	if err := item.Validate(); err != nil {
		var zero T
		return zero, err
	}
	var out T
	err := r.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		dup := r.table(tx).Find(func(existing T) bool {
			return strings.EqualFold(r.fields(&existing).name, f.name)
		})
		if len(dup) > 0 {
			return fmt.Errorf("%w: %s %q", store.ErrAlreadyExists, r.kind, f.name)
		}
		*f.created = tx.Now()
		*f.updated = tx.Now()
		var err error
		out, err = r.table(tx).Insert(item)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	r.logger.Info().Str("kind", r.kind).Str("id", *r.fields(&out).id).Msg("catalog item created")
	return out, nil
}

func (r *Registry[T, P]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.store.View(ctx, func(v *store.View) error {
		var err error
		out, err = r.reader(v).Require(id)
		return err
	})
	return out, err
}

// List returns items whose name or other text fields contain q, sorted by
// name. Inactive items are left out unless asked for.
func (r *Registry[T, P]) List(ctx context.Context, q string, includeInactive bool) ([]T, error) {
	var out []T
	err := r.store.View(ctx, func(v *store.View) error {
		out = r.reader(v).Find(func(item T) bool {
			f := r.fields(&item)
			if !includeInactive && !*f.active {
				return false
			}
			return query.Match(q, append([]string{*f.id, f.name}, f.search...)...)
		})
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(r.fields(&out[i]).name) < strings.ToLower(r.fields(&out[j]).name)
	})
	return out, err
}

// Update applies a partial patch. A rename must not collide with another
// item of the same kind.
func (r *Registry[T, P]) Update(ctx context.Context, id string, patch P) (T, error) {
	var out T
	err := r.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		current, err := r.table(tx).Require(id)
		if err != nil {
			return err
		}
		patch.Apply(&current)
		name := r.fields(&current).name
		dup := r.table(tx).Find(func(existing T) bool {
			f := r.fields(&existing)
			return *f.id != id && strings.EqualFold(f.name, name)
		})
		if len(dup) > 0 {
			return fmt.Errorf("%w: %s %q", store.ErrAlreadyExists, r.kind, name)
		}
		out, err = r.table(tx).Update(id, func(item *T) error {
			patch.Apply(item)
			if err := (*item).Validate(); err != nil {
				return err
			}
			*r.fields(item).updated = tx.Now()
			return nil
		})
		return err
	})
	return out, err
}

// Deactivate hides an item from new bills and bookings but keeps it for
// history.
func (r *Registry[T, P]) Deactivate(ctx context.Context, id string) (T, error) {
	var out T
	err := r.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		var err error
		out, err = r.table(tx).Update(id, func(item *T) error {
			f := r.fields(item)
			*f.active = false
			*f.updated = tx.Now()
			return nil
		})
		return err
	})
	if err == nil {
		r.logger.Info().Str("kind", r.kind).Str("id", id).Msg("catalog item deactivated")
	}
	return out, err
}

func (r *Registry[T, P]) Delete(ctx context.Context, id string) error {
	err := r.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		return r.table(tx).Delete(id)
	})
	if err == nil {
		r.logger.Info().Str("kind", r.kind).Str("id", id).Msg("catalog item deleted")
	}
	return err
}

// Stocked reports whether the kind tracks stock.
func (r *Registry[T, P]) Stocked() bool {
	var zero T
	return r.fields(&zero).stock != nil
}

// AdjustStock adds delta (negative to draw down) to the stock level. The
// level never goes below zero.
func (r *Registry[T, P]) AdjustStock(ctx context.Context, id string, delta int) (T, error) {
	var out T
	if !r.Stocked() {
		return out, model.Invalid("%s items do not track stock", r.kind)
	}
	if delta == 0 {
		return out, model.Invalid("delta must not be zero")
	}
	err := r.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		var err error
		out, err = r.table(tx).Update(id, func(item *T) error {
			f := r.fields(item)
			next, err := model.StockAfter(f.name, *f.stock, delta)
			if err != nil {
				return err
			}
			*f.stock = next
			*f.updated = tx.Now()
			return nil
		})
		return err
	})
	if err == nil {
		f := r.fields(&out)
		r.logger.Info().Str("kind", r.kind).Str("id", id).Int("delta", delta).Int("stock", *f.stock).Msg("stock adjusted")
	}
	return out, err
}

func lowStock[T any](kind string, items []T, fields func(*T) itemFields) []LowStockItem {
	var out []LowStockItem
	for i := range items {
		f := fields(&items[i])
		if f.stock != nil && *f.active && *f.stock <= f.reorder {
			out = append(out, LowStockItem{Kind: kind, ID: *f.id, Name: f.name, Stock: *f.stock, ReorderLevel: f.reorder})
		}
	}
	return out
}
