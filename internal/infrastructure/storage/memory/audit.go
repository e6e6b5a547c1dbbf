package memory

import (
	"context"
	"time"

	appctx "pharmaledger/internal/core/context"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain/audit"
)

// AuditRecord is one audit log entry.
type AuditRecord struct {
	EntityType string
	EntityID   id.ID
	Action     audit.Action
	ActorID    string
	Changes    map[string]any
	At         time.Time
}

// AuditRecorder implements audit.Logger and keeps entries in the DB, so a
// rolled back transaction drops its entries too.
type AuditRecorder struct {
	db *DB
}

// NewAuditRecorder creates an audit recorder.
func NewAuditRecorder(db *DB) *AuditRecorder {
	return &AuditRecorder{db: db}
}

func (r *AuditRecorder) LogCreate(ctx context.Context, entityType string, entityID id.ID, after any) error {
	snap, err := audit.Snapshot(after)
	if err != nil {
		return err
	}
	return r.append(ctx, entityType, entityID, audit.ActionCreate, snap)
}

func (r *AuditRecorder) LogUpdate(ctx context.Context, entityType string, entityID id.ID, before, after any) error {
	oldState, err := audit.Snapshot(before)
	if err != nil {
		return err
	}
	newState, err := audit.Snapshot(after)
	if err != nil {
		return err
	}
	return r.append(ctx, entityType, entityID, audit.ActionUpdate, audit.Diff(oldState, newState))
}

func (r *AuditRecorder) LogDelete(ctx context.Context, entityType string, entityID id.ID, before any) error {
	snap, err := audit.Snapshot(before)
	if err != nil {
		return err
	}
	return r.append(ctx, entityType, entityID, audit.ActionDelete, snap)
}

func (r *AuditRecorder) append(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	rec := AuditRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    appctx.GetUserID(ctx),
		Changes:    changes,
		At:         time.Now().UTC(),
	}
	return r.db.with(ctx, func(t *tables) error {
		t.audit = append(t.audit[:len(t.audit):len(t.audit)], rec)
		return nil
	})
}

// Records returns the entries for an entity, oldest first. An empty
// entityType returns every entry.
func (r *AuditRecorder) Records(ctx context.Context, entityType string, entityID *id.ID) []AuditRecord {
	var out []AuditRecord
	_ = r.db.with(ctx, func(t *tables) error {
		for _, rec := range t.audit {
			if entityType != "" && rec.EntityType != entityType {
				continue
			}
			if entityID != nil && rec.EntityID != *entityID {
				continue
			}
			out = append(out, rec)
		}
		return nil
	})
	return out
}

var _ audit.Logger = (*AuditRecorder)(nil)
