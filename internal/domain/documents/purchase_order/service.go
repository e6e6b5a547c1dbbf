package purchase_order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/entity"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/numerator"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/core/tx"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/pkg/logger"
)

// Ledger creates stock batches for received goods.
type Ledger interface {
	Receive(ctx context.Context, in stock.ReceiveInput) (*stock.Batch, error)
}

// Service provides business operations for purchase orders.
type Service struct {
	repo       Repository
	ledger     Ledger
	authorizer security.Authorizer
	numerator  numerator.Generator
	txManager  tx.Manager
	audit      audit.Logger
	hooks      *domain.HookRegistry[*PurchaseOrder]
}

// NewService creates a new purchase order service.
func NewService(
	repo Repository,
	ledger Ledger,
	authorizer security.Authorizer,
	numGen numerator.Generator,
	txManager tx.Manager,
	auditLog audit.Logger,
) *Service {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	if authorizer == nil {
		authorizer = security.ActorAuthorizer{}
	}
	s := &Service{
		repo:       repo,
		ledger:     ledger,
		authorizer: authorizer,
		numerator:  numGen,
		txManager:  txManager,
		audit:      auditLog,
		hooks:      domain.NewHookRegistry[*PurchaseOrder](),
	}
	s.hooks.OnBeforeCreate(func(ctx context.Context, doc *PurchaseOrder) error {
		audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)
		return nil
	})
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*PurchaseOrder] {
	return s.hooks
}

// LineRequest is one item to order.
type LineRequest struct {
	ItemID   id.ID
	Quantity types.Quantity
	UnitCost types.Money
}

// CreateRequest describes a new purchase order.
type CreateRequest struct {
	SupplierID   id.ID
	ExpectedDate *time.Time
	Lines        []LineRequest
	Comment      string
	Source       Source
}

// Create stores a new draft purchase order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*PurchaseOrder, error) {
	if _, err := security.CurrentActor(ctx); err != nil {
		return nil, err
	}
	source := req.Source
	if source == "" {
		source = SourceManual
	}
	doc := NewPurchaseOrder(req.SupplierID, source)
	doc.ExpectedDate = req.ExpectedDate
	doc.Comment = req.Comment
	for _, l := range req.Lines {
		doc.AddLine(l.ItemID, l.Quantity, l.UnitCost)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		cfg := numerator.DefaultConfig(numerator.PrefixPurchaseOrder)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, doc.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create purchase order: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return s.audit.LogCreate(ctx, audit.EntityPurchaseOrder, doc.ID, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order created",
		"id", doc.ID,
		"number", doc.Number,
		"supplier_id", doc.SupplierID,
		"source", doc.Source,
		"lines", len(doc.Lines),
	)
	return doc, nil
}

// Approve moves a draft order to approved.
func (s *Service) Approve(ctx context.Context, orderID id.ID, approver security.Approver) (*PurchaseOrder, error) {
	approvedBy, err := s.authorizer.Authorize(ctx, security.PrivilegeApprovePurchaseOrder, approver)
	if err != nil {
		return nil, err
	}

	doc, err := s.transition(ctx, orderID, func(doc *PurchaseOrder) error {
		if doc.Status != StatusDraft {
			return apperror.NewInvariantViolation(fmt.Sprintf("cannot approve a %s purchase order", doc.Status)).
				WithDetail("purchase_order_id", doc.ID.String())
		}
		now := time.Now().UTC()
		doc.Status = StatusApproved
		doc.ApprovedBy = approvedBy
		doc.ApprovedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order approved", "id", doc.ID, "number", doc.Number, "approved_by", approvedBy)
	return doc, nil
}

// Cancel moves a draft or approved order to cancelled.
func (s *Service) Cancel(ctx context.Context, orderID id.ID, reason string) (*PurchaseOrder, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.transition(ctx, orderID, func(doc *PurchaseOrder) error {
		if err := doc.CanCancel(); err != nil {
			return err
		}
		now := time.Now().UTC()
		doc.Status = StatusCancelled
		doc.CancelledBy = actor.UserID
		doc.CancelledAt = &now
		doc.CancelReason = strings.TrimSpace(reason)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order cancelled", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

// transition locks the order, applies fn and persists the header with an audit record.
func (s *Service) transition(ctx context.Context, orderID id.ID, fn func(doc *PurchaseOrder) error) (*PurchaseOrder, error) {
	var doc *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		before := *doc

		if err := fn(doc); err != nil {
			return err
		}
		audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		if err := s.audit.LogUpdate(ctx, audit.EntityPurchaseOrder, doc.ID, before, *doc); err != nil {
			return err
		}
		doc.Lines, err = s.repo.GetLines(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ReceiveLine is one delivered batch of an ordered item.
type ReceiveLine struct {
	PurchaseOrderLineID id.ID
	Quantity            types.Quantity
	BatchCode           string
	ExpiryDate          time.Time
	ManufactureDate     *time.Time
	// UnitCost defaults to the order line's unit cost.
	UnitCost  *types.Money
	UnitPrice types.Money
	Location  string
}

// ReceiveRequest is a delivery against an order.
type ReceiveRequest struct {
	Lines []ReceiveLine
	// AllowOverReceipt permits receiving more than the outstanding quantity.
	AllowOverReceipt bool
	Comment          string
}

// ReceiveResult is the updated order plus the receipt booked for the delivery.
type ReceiveResult struct {
	Order   *PurchaseOrder `json:"order"`
	Receipt *Receipt       `json:"receipt"`
	Batches []*stock.Batch `json:"batches"`
}

// Receive books a delivery: one batch per received line, each linked to its
// order line. The order becomes received once every line is fully received,
// otherwise partially received.
func (s *Service) Receive(ctx context.Context, orderID id.ID, req ReceiveRequest) (*ReceiveResult, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, apperror.NewValidation("receipt must have at least one line").WithDetail("field", "lines")
	}

	var result *ReceiveResult
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := doc.CanReceive(); err != nil {
			return err
		}
		if doc.Lines, err = s.repo.GetLines(ctx, orderID); err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		before := *doc
		before.Lines = nil

		receipt := &Receipt{
			Document:        entity.NewDocument(),
			PurchaseOrderID: doc.ID,
			ReceivedBy:      actor.UserID,
		}
		receipt.Comment = req.Comment
		audit.EnrichCreatedByDirect(ctx, &receipt.CreatedBy, &receipt.UpdatedBy)

		cfg := numerator.DefaultConfig(numerator.PrefixReceipt)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, receipt.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		receipt.Number = number

		touched := make(map[id.ID]bool)
		batches := make([]*stock.Batch, 0, len(req.Lines))
		for i, rl := range req.Lines {
			line, ok := doc.FindLine(rl.PurchaseOrderLineID)
			if !ok {
				return apperror.NewValidation(fmt.Sprintf("line %d does not belong to purchase order %s", i+1, doc.Number)).
					WithDetail("purchase_order_line_id", rl.PurchaseOrderLineID.String())
			}
			if !rl.Quantity.IsPositive() {
				return apperror.NewValidation(fmt.Sprintf("line %d: received quantity must be positive", i+1)).WithDetail("line", i+1)
			}
			if !req.AllowOverReceipt && rl.Quantity > line.Outstanding() {
				return apperror.NewInvariantViolation("received quantity exceeds outstanding quantity").
					WithDetail("purchase_order_line_id", line.ID.String()).
					WithDetail("ordered", line.OrderedQuantity.Int64()).
					WithDetail("received", line.ReceivedQuantity.Int64()).
					WithDetail("delivered", rl.Quantity.Int64())
			}

			unitCost := line.UnitCost
			if rl.UnitCost != nil {
				unitCost = *rl.UnitCost
			}
			lineID := line.ID
			batch, err := s.ledger.Receive(ctx, stock.ReceiveInput{
				ItemID:              line.ItemID,
				BatchCode:           rl.BatchCode,
				ExpiryDate:          rl.ExpiryDate,
				ManufactureDate:     rl.ManufactureDate,
				Quantity:            rl.Quantity,
				UnitCost:            unitCost,
				UnitPrice:           rl.UnitPrice,
				Location:            rl.Location,
				PurchaseOrderLineID: &lineID,
				Ref:                 stock.Reference{Type: stock.RefPurchaseReceipt, ID: receipt.ID, LineID: &lineID},
			})
			if err != nil {
				if appErr, ok := apperror.AsAppError(err); ok {
					appErr.WithDetail("line", i+1)
				}
				return err
			}

			line.ReceivedQuantity += rl.Quantity
			touched[line.ID] = true
			batches = append(batches, batch)
			receipt.Lines = append(receipt.Lines, ReceiptLine{
				ID:                  id.New(),
				ReceiptID:           receipt.ID,
				LineNo:              i + 1,
				PurchaseOrderLineID: line.ID,
				ItemID:              line.ItemID,
				BatchID:             batch.ID,
				BatchCode:           batch.BatchCode,
				ExpiryDate:          batch.ExpiryDate,
				Quantity:            rl.Quantity,
				UnitCost:            batch.UnitCost,
			})
		}

		changed := make([]Line, 0, len(touched))
		for _, l := range doc.Lines {
			if touched[l.ID] {
				changed = append(changed, l)
			}
		}
		if err := s.repo.UpdateReceived(ctx, changed); err != nil {
			return fmt.Errorf("update received quantities: %w", err)
		}

		if doc.IsFullyReceived() {
			doc.Status = StatusReceived
		} else {
			doc.Status = StatusPartiallyReceived
		}
		audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.CreateReceipt(ctx, receipt); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}

		after := *doc
		after.Lines = nil
		if err := s.audit.LogUpdate(ctx, audit.EntityPurchaseOrder, doc.ID, before, after); err != nil {
			return err
		}
		if err := s.audit.LogCreate(ctx, audit.EntityReceipt, receipt.ID, receipt); err != nil {
			return err
		}

		result = &ReceiveResult{Order: doc, Receipt: receipt, Batches: batches}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order received",
		"id", result.Order.ID,
		"number", result.Order.Number,
		"receipt", result.Receipt.Number,
		"status", result.Order.Status,
		"batches", len(result.Batches),
	)
	return result, nil
}

// GetByID retrieves an order with lines.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*PurchaseOrder, error) {
	doc, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if doc.Lines, err = s.repo.GetLines(ctx, orderID); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return doc, nil
}

// List retrieves orders (headers only).
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseOrder], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// ListReceipts returns the deliveries booked against an order, oldest first.
func (s *Service) ListReceipts(ctx context.Context, orderID id.ID) ([]*Receipt, error) {
	if _, err := s.repo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListReceipts(ctx, orderID)
}

// OpenOrderItems reports which items already have goods expected on an open order.
func (s *Service) OpenOrderItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]id.ID, error) {
	if len(itemIDs) == 0 {
		return map[id.ID]id.ID{}, nil
	}
	return s.repo.OpenOrderItems(ctx, itemIDs)
}
