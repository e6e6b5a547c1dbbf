package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/reorder"
)

// ReorderRepo implements reorder.Repository.
type ReorderRepo struct {
	db *DB
}

// NewReorderRepo creates a reorder level repository.
func NewReorderRepo(db *DB) *ReorderRepo {
	return &ReorderRepo{db: db}
}

func (r *ReorderRepo) Upsert(ctx context.Context, level *reorder.Level) error {
	return r.db.with(ctx, func(t *tables) error {
		cur, exists := t.levels[level.ItemID]
		switch {
		case !exists:
			level.Version = 1
		case cur.Version != level.Version:
			return apperror.NewConcurrencyConflict("reorder_level", level.ItemID.String())
		default:
			level.Version++
		}
		t.levels[level.ItemID] = *level
		return nil
	})
}

func (r *ReorderRepo) Get(ctx context.Context, itemID id.ID) (*reorder.Level, error) {
	var out *reorder.Level
	err := r.db.with(ctx, func(t *tables) error {
		l, ok := t.levels[itemID]
		if !ok {
			return apperror.NewNotFound("reorder_level", itemID.String())
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *ReorderRepo) Delete(ctx context.Context, itemID id.ID) error {
	return r.db.with(ctx, func(t *tables) error {
		if _, ok := t.levels[itemID]; !ok {
			return apperror.NewNotFound("reorder_level", itemID.String())
		}
		delete(t.levels, itemID)
		return nil
	})
}

func (r *ReorderRepo) List(ctx context.Context, f reorder.ListFilter) (domain.ListResult[*reorder.Level], error) {
	var items []*reorder.Level
	err := r.db.with(ctx, func(t *tables) error {
		for _, l := range t.levels {
			if f.AutoReorder != nil && l.AutoReorder != *f.AutoReorder {
				continue
			}
			if f.SupplierID != nil && (l.PreferredSupplierID == nil || *l.PreferredSupplierID != *f.SupplierID) {
				continue
			}
			if !matchesIDs(l.ItemID, f.IDs) {
				continue
			}
			c := l
			items = append(items, &c)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*reorder.Level]{}, err
	}
	sortLevels(items)
	return page(items, f.ListFilter), nil
}

func (r *ReorderRepo) All(ctx context.Context) ([]*reorder.Level, error) {
	var out []*reorder.Level
	err := r.db.with(ctx, func(t *tables) error {
		for _, l := range t.levels {
			c := l
			out = append(out, &c)
		}
		return nil
	})
	sortLevels(out)
	return out, err
}

func sortLevels(levels []*reorder.Level) {
	sort.Slice(levels, func(i, j int) bool { return levels[i].ItemID.String() < levels[j].ItemID.String() })
}

// LockGeneration is a no-op: every transaction already holds the DB lock.
func (r *ReorderRepo) LockGeneration(context.Context) error { return nil }

var _ reorder.Repository = (*ReorderRepo)(nil)

// Outbox implements reorder.EventPublisher by appending to the DB, so events
// of a rolled back transaction are dropped with it.
type Outbox struct {
	db *DB
}

// NewOutbox creates an outbox publisher.
func NewOutbox(db *DB) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) Publish(ctx context.Context, event reorder.Event) error {
	return o.db.with(ctx, func(t *tables) error {
		t.outbox = append(t.outbox[:len(t.outbox):len(t.outbox)], event)
		return nil
	})
}

// Events returns the published events, oldest first.
func (o *Outbox) Events(ctx context.Context) []reorder.Event {
	var out []reorder.Event
	_ = o.db.with(ctx, func(t *tables) error {
		out = slices.Clone(t.outbox)
		return nil
	})
	return out
}

var _ reorder.EventPublisher = (*Outbox)(nil)

// AlertState implements reorder.AlertState with expiring entries.
type AlertState struct {
	mu      sync.Mutex
	flagged map[id.ID]time.Time
	now     func() time.Time
}

// NewAlertState creates an empty alert state.
func NewAlertState() *AlertState {
	return &AlertState{
		flagged: make(map[id.ID]time.Time),
		now:     time.Now,
	}
}

func (a *AlertState) MarkFlagged(_ context.Context, itemID id.ID, ttl time.Duration) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	if until, ok := a.flagged[itemID]; ok && now.Before(until) {
		return false, nil
	}
	a.flagged[itemID] = now.Add(ttl)
	return true, nil
}

func (a *AlertState) Clear(_ context.Context, itemID id.ID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.flagged, itemID)
	return nil
}

var _ reorder.AlertState = (*AlertState)(nil)
