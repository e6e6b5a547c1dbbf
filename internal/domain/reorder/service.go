package reorder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pharmaledger/internal/core/apperror"
	appctx "pharmaledger/internal/core/context"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/tx"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/internal/domain/documents/purchase_order"
	"pharmaledger/pkg/logger"
)

// StockReader reads live on-hand quantities.
type StockReader interface {
	OnHandMany(ctx context.Context, itemIDs []id.ID) (map[id.ID]types.Quantity, error)
}

// OrderPlanner is the part of purchasing the advisor drives.
type OrderPlanner interface {
	OpenOrderItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]id.ID, error)
	Create(ctx context.Context, req purchase_order.CreateRequest) (*purchase_order.PurchaseOrder, error)
}

// EventPublisher writes events inside the caller's transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// AlertState remembers which items were already reported low.
type AlertState interface {
	// MarkFlagged records itemID as reported for ttl and reports whether it
	// was not reported before.
	MarkFlagged(ctx context.Context, itemID id.ID, ttl time.Duration) (bool, error)
	// Clear forgets itemID so the next low reading is reported again.
	Clear(ctx context.Context, itemID id.ID) error
}

// NoopAlertState reports every low reading as new.
type NoopAlertState struct{}

func (NoopAlertState) MarkFlagged(context.Context, id.ID, time.Duration) (bool, error) {
	return true, nil
}

func (NoopAlertState) Clear(context.Context, id.ID) error { return nil }

// Config tunes the advisor.
type Config struct {
	// AlertTTL bounds how long a reported low-stock item stays silent.
	AlertTTL time.Duration
}

// Service is the reorder advisor.
type Service struct {
	repo      Repository
	stock     StockReader
	orders    OrderPlanner
	events    EventPublisher
	alerts    AlertState
	txManager tx.Manager
	audit     audit.Logger
	cfg       Config
}

// NewService creates a new reorder advisor.
func NewService(
	repo Repository,
	stock StockReader,
	orders OrderPlanner,
	events EventPublisher,
	alerts AlertState,
	txManager tx.Manager,
	auditLog audit.Logger,
	cfg Config,
) *Service {
	if alerts == nil {
		alerts = NoopAlertState{}
	}
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	if cfg.AlertTTL <= 0 {
		cfg.AlertTTL = 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		stock:     stock,
		orders:    orders,
		events:    events,
		alerts:    alerts,
		txManager: txManager,
		audit:     auditLog,
		cfg:       cfg,
	}
}

// LevelInput configures an item's reorder level.
type LevelInput struct {
	ItemID              id.ID
	MinimumStock        types.Quantity
	ReorderQuantity     types.Quantity
	AutoReorder         bool
	PreferredSupplierID *id.ID
	UnitCost            types.Money
}

// SetLevel creates or replaces an item's reorder level.
func (s *Service) SetLevel(ctx context.Context, in LevelInput) (*Level, error) {
	level := &Level{
		ItemID:              in.ItemID,
		MinimumStock:        in.MinimumStock,
		ReorderQuantity:     in.ReorderQuantity,
		AutoReorder:         in.AutoReorder,
		PreferredSupplierID: in.PreferredSupplierID,
		UnitCost:            types.RoundMoney(in.UnitCost),
		UpdatedAt:           time.Now().UTC(),
	}
	if err := level.Validate(); err != nil {
		return nil, err
	}
	audit.EnrichUpdatedByDirect(ctx, &level.UpdatedBy)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.Get(ctx, in.ItemID)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if existing != nil {
			level.Version = existing.Version
		}
		if err := s.repo.Upsert(ctx, level); err != nil {
			return err
		}
		if existing == nil {
			return s.audit.LogCreate(ctx, audit.EntityReorderLevel, level.ItemID, level)
		}
		return s.audit.LogUpdate(ctx, audit.EntityReorderLevel, level.ItemID, existing, level)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "reorder level set",
		"item_id", level.ItemID,
		"minimum_stock", level.MinimumStock,
		"auto_reorder", level.AutoReorder,
	)
	return level, nil
}

// GetLevel returns an item's reorder level.
func (s *Service) GetLevel(ctx context.Context, itemID id.ID) (*Level, error) {
	return s.repo.Get(ctx, itemID)
}

// ListLevels lists reorder levels.
func (s *Service) ListLevels(ctx context.Context, filter ListFilter) (domain.ListResult[*Level], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// DeleteLevel removes an item's reorder level.
func (s *Service) DeleteLevel(ctx context.Context, itemID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.Get(ctx, itemID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, itemID); err != nil {
			return err
		}
		return s.audit.LogDelete(ctx, audit.EntityReorderLevel, itemID, existing)
	})
}

// Alerts computes the current low-stock list without side effects.
// Items are ordered by how far they are below minimum, then by id.
func (s *Service) Alerts(ctx context.Context) ([]LowStockAlert, error) {
	alerts, _, err := s.evaluate(ctx)
	return alerts, err
}

func (s *Service) evaluate(ctx context.Context) ([]LowStockAlert, []id.ID, error) {
	levels, err := s.repo.All(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load reorder levels: %w", err)
	}
	if len(levels) == 0 {
		return nil, nil, nil
	}

	itemIDs := make([]id.ID, 0, len(levels))
	for _, l := range levels {
		itemIDs = append(itemIDs, l.ItemID)
	}
	onHand, err := s.stock.OnHandMany(ctx, itemIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("read on-hand: %w", err)
	}

	now := time.Now().UTC()
	var alerts []LowStockAlert
	var healthy []id.ID
	flagged := make([]id.ID, 0)
	for _, l := range levels {
		qty := onHand[l.ItemID]
		if !l.IsLow(qty) {
			healthy = append(healthy, l.ItemID)
			continue
		}
		flagged = append(flagged, l.ItemID)
		alerts = append(alerts, LowStockAlert{
			ItemID:              l.ItemID,
			OnHand:              qty,
			MinimumStock:        l.MinimumStock,
			ReorderQuantity:     l.ReorderQuantity,
			AutoReorder:         l.AutoReorder,
			PreferredSupplierID: l.PreferredSupplierID,
			DetectedAt:          now,
		})
	}

	if len(flagged) > 0 {
		open, err := s.orders.OpenOrderItems(ctx, flagged)
		if err != nil {
			return nil, nil, fmt.Errorf("find open orders: %w", err)
		}
		for i := range alerts {
			if orderID, ok := open[alerts[i].ItemID]; ok {
				alerts[i].OpenOrderID = &orderID
			}
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		gi := alerts[i].MinimumStock - alerts[i].OnHand
		gj := alerts[j].MinimumStock - alerts[j].OnHand
		if gi != gj {
			return gi > gj
		}
		return alerts[i].ItemID.String() < alerts[j].ItemID.String()
	})
	return alerts, healthy, nil
}

// Scan computes low-stock alerts and publishes a LowStockDetected event for
// each item that was not already reported. Items back above minimum are
// forgotten so a later drop is reported again.
func (s *Service) Scan(ctx context.Context) ([]LowStockAlert, error) {
	alerts, healthy, err := s.evaluate(ctx)
	if err != nil {
		return nil, err
	}

	for _, itemID := range healthy {
		if err := s.alerts.Clear(ctx, itemID); err != nil {
			logger.Warn(ctx, "clear low-stock state failed", "item_id", itemID, "error", err)
		}
	}

	var fresh []LowStockAlert
	for _, a := range alerts {
		isNew, err := s.alerts.MarkFlagged(ctx, a.ItemID, s.cfg.AlertTTL)
		if err != nil {
			return nil, fmt.Errorf("mark low-stock state: %w", err)
		}
		if isNew {
			fresh = append(fresh, a)
		}
	}
	if len(fresh) == 0 {
		return alerts, nil
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, a := range fresh {
			if err := s.events.Publish(ctx, Event{
				AggregateType: AggregateType,
				AggregateID:   a.ItemID,
				EventType:     EventLowStockDetected,
				Payload:       a,
			}); err != nil {
				return fmt.Errorf("publish low-stock event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		for _, a := range fresh {
			_ = s.alerts.Clear(ctx, a.ItemID)
		}
		return nil, err
	}

	logger.Info(ctx, "low stock detected", "flagged", len(alerts), "new", len(fresh))
	return alerts, nil
}

// GeneratePurchaseOrders drafts one purchase order per preferred supplier for
// flagged auto-reorder items. Items already on an open order or without a
// preferred supplier are skipped. Concurrent calls are serialized, so an item
// is never put on two drafts by parallel runs.
func (s *Service) GeneratePurchaseOrders(ctx context.Context) (*GenerateResult, error) {
	if appctx.GetUserID(ctx) == "" {
		return nil, apperror.NewUnauthorized("authenticated actor required")
	}

	var result *GenerateResult
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// The manager may retry this closure; only the committed attempt is reported.
		attempt := &GenerateResult{OrderIDs: []id.ID{}, Skipped: []SkippedItem{}}
		if err := s.repo.LockGeneration(ctx); err != nil {
			return fmt.Errorf("lock generation: %w", err)
		}
		alerts, _, err := s.evaluate(ctx)
		if err != nil {
			return err
		}

		bySupplier := make(map[id.ID][]LowStockAlert)
		for _, a := range alerts {
			switch {
			case !a.AutoReorder:
				attempt.Skipped = append(attempt.Skipped, SkippedItem{ItemID: a.ItemID, Reason: SkipNotAutoReorder})
			case a.OpenOrderID != nil:
				attempt.Skipped = append(attempt.Skipped, SkippedItem{ItemID: a.ItemID, Reason: SkipOpenOrder})
			case a.PreferredSupplierID == nil:
				attempt.Skipped = append(attempt.Skipped, SkippedItem{ItemID: a.ItemID, Reason: SkipNoSupplier})
			default:
				bySupplier[*a.PreferredSupplierID] = append(bySupplier[*a.PreferredSupplierID], a)
			}
		}

		suppliers := make([]id.ID, 0, len(bySupplier))
		for sup := range bySupplier {
			suppliers = append(suppliers, sup)
		}
		sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].String() < suppliers[j].String() })

		for _, sup := range suppliers {
			items := bySupplier[sup]
			req := purchase_order.CreateRequest{
				SupplierID: sup,
				Source:     purchase_order.SourceReorder,
				Comment:    "Drafted by reorder advisor",
			}
			for _, a := range items {
				level, err := s.repo.Get(ctx, a.ItemID)
				if err != nil {
					return err
				}
				req.Lines = append(req.Lines, purchase_order.LineRequest{
					ItemID:   a.ItemID,
					Quantity: a.ReorderQuantity,
					UnitCost: level.UnitCost,
				})
			}
			po, err := s.orders.Create(ctx, req)
			if err != nil {
				return fmt.Errorf("draft order for supplier %s: %w", sup, err)
			}
			attempt.OrderIDs = append(attempt.OrderIDs, po.ID)
		}
		result = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "reorder generation finished", "orders", len(result.OrderIDs), "skipped", len(result.Skipped))
	return result, nil
}
