package stock

import (
	"context"
	"fmt"
	"time"

	"pharmaledger/internal/core/apperror"
	appctx "pharmaledger/internal/core/context"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/tx"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/pkg/logger"
)

// Service is the sole owner of quantity truth.
//
// Every mutation locks the affected batch rows, applies the change and writes
// its movement rows in one transaction. Called inside an outer transaction
// (a sale, a refund) it joins that transaction.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Logger
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, txManager tx.Manager, auditLog audit.Logger) *Service {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		audit:     auditLog,
	}
}

// AllocateRequest asks for units of an item in FEFO order.
type AllocateRequest struct {
	ItemID       id.ID
	Quantity     types.Quantity
	AsOf         time.Time
	AllowExpired bool
	Ref          Reference
}

// Allocate draws the requested quantity from the item's batches, earliest
// expiry first, and records one sale movement per batch touched.
//
// If eligible batches hold less than requested nothing is applied and an
// INSUFFICIENT_STOCK error is returned.
func (s *Service) Allocate(ctx context.Context, req AllocateRequest) ([]Allocation, error) {
	if id.IsNil(req.ItemID) {
		return nil, apperror.NewValidation("item is required").WithDetail("field", "itemId")
	}
	if !req.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("item_id", req.ItemID.String())
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	var allocations []Allocation
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var taken []Allocation
		var expiresAfter *time.Time
		if !req.AllowExpired {
			day := startOfDay(asOf)
			expiresAfter = &day
		}

		batches, err := s.repo.LockForAllocation(ctx, req.ItemID, expiresAfter)
		if err != nil {
			return fmt.Errorf("lock batches: %w", err)
		}

		var available types.Quantity
		for _, b := range batches {
			available += b.RemainingQuantity
		}
		if available < req.Quantity {
			return apperror.NewInsufficientStock(req.ItemID.String(), req.Quantity.Int64(), available.Int64())
		}

		need := req.Quantity
		movements := make([]Movement, 0, len(batches))
		for _, b := range batches {
			if need == 0 {
				break
			}
			take := min(b.RemainingQuantity, need)
			if take <= 0 {
				continue
			}

			b.RemainingQuantity -= take
			if err := s.repo.UpdateRemaining(ctx, b); err != nil {
				return err
			}
			need -= take

			taken = append(taken, Allocation{
				BatchID:    b.ID,
				Quantity:   take,
				UnitCost:   b.UnitCost,
				ExpiryDate: b.ExpiryDate,
			})
			movements = append(movements, newMovement(ctx, b, KindSale, take, -take, req.Ref))
		}

		if err := s.repo.CreateMovements(ctx, movements); err != nil {
			return fmt.Errorf("create movements: %w", err)
		}
		allocations = taken
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "allocated stock",
		"item_id", req.ItemID,
		"quantity", req.Quantity,
		"batches", len(allocations),
		"reference_id", req.Ref.ID,
	)
	return allocations, nil
}

// BatchChange is a quantity change against one specific batch.
type BatchChange struct {
	BatchID  id.ID
	Quantity types.Quantity
	Kind     MovementKind
	Ref      Reference
}

// Restore adds quantity back to a batch (refund or void).
// Expired batches are restored too; eligibility rules are not changed.
func (s *Service) Restore(ctx context.Context, ch BatchChange) (*Batch, error) {
	if ch.Kind != KindRefund && ch.Kind != KindVoidRestore {
		return nil, apperror.NewValidation(fmt.Sprintf("movement kind %q cannot restore stock", ch.Kind))
	}
	if !ch.Quantity.IsPositive() {
		return nil, apperror.NewValidation("restore quantity must be positive").WithDetail("field", "quantity")
	}
	return s.applyToBatch(ctx, ch.BatchID, func(b *Batch) (Movement, error) {
		b.RemainingQuantity += ch.Quantity
		return newMovement(ctx, b, ch.Kind, ch.Quantity, ch.Quantity, ch.Ref), nil
	})
}

// Drain removes quantity from one specific batch (refund reversal).
func (s *Service) Drain(ctx context.Context, ch BatchChange) (*Batch, error) {
	if ch.Kind != KindRefundReversal {
		return nil, apperror.NewValidation(fmt.Sprintf("movement kind %q cannot drain stock", ch.Kind))
	}
	if !ch.Quantity.IsPositive() {
		return nil, apperror.NewValidation("drain quantity must be positive").WithDetail("field", "quantity")
	}
	return s.applyToBatch(ctx, ch.BatchID, func(b *Batch) (Movement, error) {
		if b.RemainingQuantity < ch.Quantity {
			return Movement{}, apperror.NewInsufficientStock(b.ItemID.String(), ch.Quantity.Int64(), b.RemainingQuantity.Int64()).
				WithDetail("batch_id", b.ID.String())
		}
		b.RemainingQuantity -= ch.Quantity
		return newMovement(ctx, b, ch.Kind, ch.Quantity, -ch.Quantity, ch.Ref), nil
	})
}

// RecordNoRestock logs refunded units that do not return to stock.
// Remaining quantity is untouched; the movement carries a zero delta.
func (s *Service) RecordNoRestock(ctx context.Context, batchID id.ID, quantity types.Quantity, ref Reference) error {
	if !quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		return s.repo.CreateMovements(ctx, []Movement{newMovement(ctx, b, KindRefundNoRestock, quantity, 0, ref)})
	})
}

// AdjustRequest corrects a batch's remaining quantity.
type AdjustRequest struct {
	BatchID id.ID
	Delta   types.Quantity
	Ref     Reference
}

// Adjust applies a direct correction. It is reached only through an approved
// stock adjustment and never lets remaining quantity go negative.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (*Batch, error) {
	if req.Delta.IsZero() {
		return nil, apperror.NewValidation("adjustment delta must not be zero").WithDetail("field", "delta")
	}
	return s.applyToBatch(ctx, req.BatchID, func(b *Batch) (Movement, error) {
		if b.RemainingQuantity+req.Delta < 0 {
			return Movement{}, apperror.NewInsufficientStock(b.ItemID.String(), req.Delta.Abs().Int64(), b.RemainingQuantity.Int64()).
				WithDetail("batch_id", b.ID.String())
		}
		b.RemainingQuantity += req.Delta
		return newMovement(ctx, b, KindAdjustment, req.Delta.Abs(), req.Delta, req.Ref), nil
	})
}

func (s *Service) applyToBatch(ctx context.Context, batchID id.ID, apply func(b *Batch) (Movement, error)) (*Batch, error) {
	var result *Batch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		mv, err := apply(b)
		if err != nil {
			return err
		}
		if b.RemainingQuantity < 0 {
			return apperror.NewInvariantViolation("batch remaining quantity cannot be negative").
				WithDetail("batch_id", b.ID.String())
		}
		if err := s.repo.UpdateRemaining(ctx, b); err != nil {
			return err
		}
		if err := s.repo.CreateMovements(ctx, []Movement{mv}); err != nil {
			return fmt.Errorf("create movements: %w", err)
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReceiveInput describes a delivered batch.
type ReceiveInput struct {
	ItemID              id.ID
	BatchCode           string
	ExpiryDate          time.Time
	ManufactureDate     *time.Time
	Quantity            types.Quantity
	UnitCost            types.Money
	UnitPrice           types.Money
	Location            string
	PurchaseOrderLineID *id.ID
	Ref                 Reference
}

// Validate checks the delivery fields without touching storage.
func (in ReceiveInput) Validate() error {
	switch {
	case id.IsNil(in.ItemID):
		return apperror.NewValidation("item is required").WithDetail("field", "itemId")
	case in.BatchCode == "":
		return apperror.NewValidation("batch code is required").WithDetail("field", "batchCode")
	case in.ExpiryDate.IsZero():
		return apperror.NewValidation("expiry date is required").WithDetail("field", "expiryDate")
	case !in.Quantity.IsPositive():
		return apperror.NewValidation("received quantity must be positive").WithDetail("field", "quantity")
	case in.UnitCost.IsNegative():
		return apperror.NewValidation("unit cost cannot be negative").WithDetail("field", "unitCost")
	case in.UnitPrice.IsNegative():
		return apperror.NewValidation("unit price cannot be negative").WithDetail("field", "unitPrice")
	case in.ManufactureDate != nil && in.ManufactureDate.After(in.ExpiryDate):
		return apperror.NewValidation("manufacture date is after expiry date").WithDetail("field", "manufactureDate")
	}
	return nil
}

// Receive creates a new batch holding its full quantity and the matching
// receipt movement.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (*Batch, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &Batch{
		ID:                  id.New(),
		ItemID:              in.ItemID,
		BatchCode:           in.BatchCode,
		ExpiryDate:          in.ExpiryDate,
		ManufactureDate:     in.ManufactureDate,
		InitialQuantity:     in.Quantity,
		RemainingQuantity:   in.Quantity,
		UnitCost:            types.RoundMoney(in.UnitCost),
		UnitPrice:           types.RoundMoney(in.UnitPrice),
		Location:            in.Location,
		PurchaseOrderLineID: in.PurchaseOrderLineID,
		ReceivedAt:          now,
		Version:             1,
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateBatch(ctx, b); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		if err := s.repo.CreateMovements(ctx, []Movement{newMovement(ctx, b, KindReceipt, b.InitialQuantity, b.InitialQuantity, in.Ref)}); err != nil {
			return fmt.Errorf("create movements: %w", err)
		}
		return s.audit.LogCreate(ctx, audit.EntityBatch, b.ID, b)
	})
	if err != nil {
		return nil, err
	}

	if b.IsExpired(now) {
		logger.Warn(ctx, "received batch is already expired", "batch_id", b.ID, "expiry_date", b.ExpiryDate)
	}
	logger.Info(ctx, "received stock batch",
		"batch_id", b.ID,
		"item_id", b.ItemID,
		"quantity", b.InitialQuantity,
	)
	return b, nil
}

// GetBatch returns a batch by id.
func (s *Service) GetBatch(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.repo.GetBatch(ctx, batchID)
}

// ListBatches lists batches.
func (s *Service) ListBatches(ctx context.Context, filter BatchFilter) (domain.ListResult[*Batch], error) {
	filter.Normalize()
	return s.repo.ListBatches(ctx, filter)
}

// ListMovements lists the movement log.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) (domain.ListResult[Movement], error) {
	filter.Normalize()
	return s.repo.ListMovements(ctx, filter)
}

// OnHand returns the live on-hand quantity of one item (expired batches included).
func (s *Service) OnHand(ctx context.Context, itemID id.ID) (types.Quantity, error) {
	m, err := s.repo.OnHand(ctx, []id.ID{itemID})
	if err != nil {
		return 0, err
	}
	return m[itemID], nil
}

// OnHandMany returns on-hand quantities for several items; missing items are zero.
func (s *Service) OnHandMany(ctx context.Context, itemIDs []id.ID) (map[id.ID]types.Quantity, error) {
	m, err := s.repo.OnHand(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[id.ID]types.Quantity, len(itemIDs))
	for _, itemID := range itemIDs {
		out[itemID] = m[itemID]
	}
	return out, nil
}

// Reconcile checks a batch against its movement log.
func (s *Service) Reconcile(ctx context.Context, batchID id.ID) (Reconciliation, error) {
	b, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return Reconciliation{}, err
	}
	total, err := s.repo.SumMovementDeltas(ctx, batchID)
	if err != nil {
		return Reconciliation{}, err
	}
	return Reconciliation{
		BatchID:           b.ID,
		RemainingQuantity: b.RemainingQuantity,
		MovementTotal:     total,
		Consistent:        total == b.RemainingQuantity,
	}, nil
}

func newMovement(ctx context.Context, b *Batch, kind MovementKind, quantity, delta types.Quantity, ref Reference) Movement {
	return Movement{
		ID:              id.New(),
		ItemID:          b.ItemID,
		BatchID:         b.ID,
		Kind:            kind,
		Quantity:        quantity,
		Delta:           delta,
		ReferenceType:   ref.Type,
		ReferenceID:     ref.ID,
		ReferenceLineID: ref.LineID,
		ActorID:         appctx.GetUserID(ctx),
		Reason:          ref.Reason,
		CreatedAt:       time.Now().UTC(),
	}
}
