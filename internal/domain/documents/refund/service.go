package refund

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
	"pharmaledger/internal/domain/documents/sale"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/pkg/logger"
)

// Ledger is the part of the stock ledger used by refunds.
type Ledger interface {
	Restore(ctx context.Context, ch stock.BatchChange) (*stock.Batch, error)
	Drain(ctx context.Context, ch stock.BatchChange) (*stock.Batch, error)
	RecordNoRestock(ctx context.Context, batchID id.ID, quantity types.Quantity, ref stock.Reference) error
}

// SaleLocker loads a sale with its lines under a row lock.
type SaleLocker interface {
	LockForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error)
}

// Service provides business operations for refunds.
type Service struct {
	repo       Repository
	sales      SaleLocker
	ledger     Ledger
	authorizer security.Authorizer
	numerator  numerator.Generator
	txManager  tx.Manager
	audit      audit.Logger
}

// NewService creates a new refund service.
func NewService(
	repo Repository,
	sales SaleLocker,
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
	return &Service{
		repo:       repo,
		sales:      sales,
		ledger:     ledger,
		authorizer: authorizer,
		numerator:  numGen,
		txManager:  txManager,
		audit:      auditLog,
	}
}

// LineRequest asks to refund units of one sale line.
type LineRequest struct {
	SaleLineID id.ID
	Quantity   types.Quantity
	// Amount overrides the pro-rated refund amount for the line.
	Amount *types.Money
}

// CreateRequest describes a refund against a sale.
type CreateRequest struct {
	SaleID id.ID
	Lines  []LineRequest
	// Restock returns refunded units to their batches. Nil means true.
	Restock *bool
	Reason  string
}

func (r CreateRequest) restock() bool {
	return r.Restock == nil || *r.Restock
}

// Validate checks the request shape.
func (r CreateRequest) Validate() error {
	if id.IsNil(r.SaleID) {
		return apperror.NewValidation("sale is required").WithDetail("field", "saleId")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return apperror.NewValidation("refund reason is required").WithDetail("field", "reason")
	}
	if len(r.Lines) == 0 {
		return apperror.NewValidation("refund must have at least one line").WithDetail("field", "lines")
	}
	seen := make(map[id.ID]bool, len(r.Lines))
	for i, l := range r.Lines {
		if id.IsNil(l.SaleLineID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: sale line is required", i+1)).WithDetail("line", i+1)
		}
		if seen[l.SaleLineID] {
			return apperror.NewValidation(fmt.Sprintf("line %d: sale line listed twice", i+1)).WithDetail("line", i+1)
		}
		seen[l.SaleLineID] = true
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i+1)).WithDetail("line", i+1)
		}
		if l.Amount != nil && l.Amount.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("line %d: amount cannot be negative", i+1)).WithDetail("line", i+1)
		}
	}
	return nil
}

// Create issues a refund.
//
// The sale row stays locked from the first check to the last insert, so
// concurrent refunds of one sale are evaluated one after another against the
// same cumulative totals.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Result, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result *Result
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		saleDoc, err := s.sales.LockForUpdate(ctx, req.SaleID)
		if err != nil {
			return err
		}
		if saleDoc.Status != sale.StatusCompleted {
			return apperror.NewInvariantViolation(fmt.Sprintf("cannot refund a %s sale", saleDoc.Status)).
				WithDetail("sale_id", saleDoc.ID.String())
		}

		prior, err := s.repo.ListBySale(ctx, saleDoc.ID)
		if err != nil {
			return fmt.Errorf("list refunds: %w", err)
		}
		refundedTotal := types.Zero()
		for _, r := range prior {
			if r.IsActive() {
				refundedTotal = refundedTotal.Add(r.Amount)
			}
		}
		priorLines, err := s.repo.ActiveLines(ctx, saleDoc.ID)
		if err != nil {
			return fmt.Errorf("list refunded lines: %w", err)
		}
		refundedQty := make(map[id.ID]types.Quantity)
		for _, pl := range priorLines {
			refundedQty[pl.SaleLineID] += pl.Quantity
		}

		doc := &Refund{
			Document:    entity.NewDocument(),
			SaleID:      saleDoc.ID,
			Status:      StatusCompleted,
			Amount:      types.Zero(),
			Reason:      strings.TrimSpace(req.Reason),
			Restock:     req.restock(),
			ProcessedBy: actor.UserID,
		}
		audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)

		shares := lineShares(saleDoc)
		for i, lr := range req.Lines {
			saleLine, ok := saleDoc.FindLine(lr.SaleLineID)
			if !ok {
				return apperror.NewValidation(fmt.Sprintf("line %d does not belong to sale %s", i+1, saleDoc.Number)).
					WithDetail("sale_line_id", lr.SaleLineID.String())
			}
			already := refundedQty[saleLine.ID]
			if already+lr.Quantity > saleLine.Quantity {
				return apperror.NewInvariantViolation("refund quantity exceeds quantity sold").
					WithDetail("sale_line_id", saleLine.ID.String()).
					WithDetail("sold", saleLine.Quantity.Int64()).
					WithDetail("already_refunded", already.Int64()).
					WithDetail("requested", lr.Quantity.Int64())
			}

			amount := proratedAmount(shares[saleLine.ID], saleLine.Quantity, already, lr.Quantity)
			if lr.Amount != nil {
				amount = types.RoundMoney(*lr.Amount)
			}

			doc.Lines = append(doc.Lines, Line{
				ID:          id.New(),
				RefundID:    doc.ID,
				LineNo:      i + 1,
				SaleLineID:  saleLine.ID,
				ItemID:      saleLine.ItemID,
				Quantity:    lr.Quantity,
				Amount:      amount,
				Allocations: spread(lr.Quantity, batchCapacities(saleLine, priorLines)),
			})
			doc.Amount = doc.Amount.Add(amount)
		}

		cumulative := refundedTotal.Add(doc.Amount)
		if cumulative.GreaterThan(saleDoc.Total) {
			return apperror.NewInvariantViolation("refund total exceeds sale total").
				WithDetail("sale_total", saleDoc.Total.StringFixed(2)).
				WithDetail("already_refunded", refundedTotal.StringFixed(2)).
				WithDetail("requested", doc.Amount.StringFixed(2))
		}
		doc.Type = TypePartial
		if cumulative.Equal(saleDoc.Total) {
			doc.Type = TypeFull
		}

		cfg := numerator.DefaultConfig(numerator.PrefixRefund)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, doc.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		if err := doc.Validate(ctx); err != nil {
			return err
		}
		if err := s.applyStock(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create refund: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		if err := s.audit.LogCreate(ctx, audit.EntityRefund, doc.ID, doc); err != nil {
			return err
		}

		for _, l := range doc.Lines {
			refundedQty[l.SaleLineID] += l.Quantity
		}
		result = &Result{
			Refund:              doc,
			RefundedTotal:       cumulative,
			RemainingRefundable: saleDoc.Total.Sub(cumulative),
			Lines:               remainingLines(saleDoc, refundedQty),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "refund completed",
		"id", result.Refund.ID,
		"number", result.Refund.Number,
		"sale_id", result.Refund.SaleID,
		"amount", result.Refund.Amount.StringFixed(2),
		"type", result.Refund.Type,
		"restock", result.Refund.Restock,
	)
	return result, nil
}

func (s *Service) applyStock(ctx context.Context, doc *Refund) error {
	for _, l := range doc.Lines {
		lineID := l.SaleLineID
		ref := stock.Reference{Type: stock.RefRefund, ID: doc.ID, LineID: &lineID, Reason: doc.Reason}
		for _, a := range l.Allocations {
			if doc.Restock {
				if _, err := s.ledger.Restore(ctx, stock.BatchChange{
					BatchID:  a.BatchID,
					Quantity: a.Quantity,
					Kind:     stock.KindRefund,
					Ref:      ref,
				}); err != nil {
					return fmt.Errorf("restock batch %s: %w", a.BatchID, err)
				}
				continue
			}
			if err := s.ledger.RecordNoRestock(ctx, a.BatchID, a.Quantity, ref); err != nil {
				return fmt.Errorf("record no-restock for batch %s: %w", a.BatchID, err)
			}
		}
	}
	return nil
}

func remainingLines(doc *sale.Sale, refunded map[id.ID]types.Quantity) []LineRemaining {
	out := make([]LineRemaining, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		out = append(out, LineRemaining{
			SaleLineID: l.ID,
			ItemID:     l.ItemID,
			Sold:       l.Quantity,
			Refunded:   refunded[l.ID],
			Remaining:  l.Quantity - refunded[l.ID],
		})
	}
	return out
}

// CancelRequest cancels a completed refund.
type CancelRequest struct {
	Reason   string
	Approver security.Approver
}

// Cancel moves a completed refund to cancelled under manager authorization.
// Restocked units are taken back out of the batches they were returned to,
// which fails with INSUFFICIENT_STOCK if they have since been sold again.
func (s *Service) Cancel(ctx context.Context, refundID id.ID, req CancelRequest) (*Refund, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperror.NewValidation("cancel reason is required").WithDetail("field", "reason")
	}
	authorizedBy, err := s.authorizer.Authorize(ctx, security.PrivilegeCancelRefund, req.Approver)
	if err != nil {
		return nil, err
	}

	var doc *Refund
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		head, err := s.repo.GetByID(ctx, refundID)
		if err != nil {
			return err
		}
		// Same lock order as Create: sale first, then refund.
		if _, err := s.sales.LockForUpdate(ctx, head.SaleID); err != nil {
			return err
		}
		doc, err = s.repo.GetForUpdate(ctx, refundID)
		if err != nil {
			return err
		}
		if doc.Status == StatusCancelled {
			return apperror.NewInvariantViolation("refund is already cancelled").
				WithDetail("refund_id", refundID.String())
		}
		if doc.Lines, err = s.repo.GetLines(ctx, refundID); err != nil {
			return fmt.Errorf("get lines: %w", err)
		}

		before := *doc
		before.Lines = nil

		if doc.Restock {
			for _, l := range doc.Lines {
				lineID := l.SaleLineID
				for _, a := range l.Allocations {
					if _, err := s.ledger.Drain(ctx, stock.BatchChange{
						BatchID:  a.BatchID,
						Quantity: a.Quantity,
						Kind:     stock.KindRefundReversal,
						Ref:      stock.Reference{Type: stock.RefRefund, ID: doc.ID, LineID: &lineID, Reason: reason},
					}); err != nil {
						return err
					}
				}
			}
		}

		cancelledAt := time.Now().UTC()
		doc.Status = StatusCancelled
		doc.CancelledBy = authorizedBy
		doc.CancelledAt = &cancelledAt
		doc.CancelReason = reason
		audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}

		after := *doc
		after.Lines = nil
		return s.audit.LogUpdate(ctx, audit.EntityRefund, doc.ID, before, after)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "refund cancelled", "id", doc.ID, "number", doc.Number, "authorized_by", doc.CancelledBy)
	return doc, nil
}

// GetByID retrieves a refund with lines.
func (s *Service) GetByID(ctx context.Context, refundID id.ID) (*Refund, error) {
	doc, err := s.repo.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if doc.Lines, err = s.repo.GetLines(ctx, refundID); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return doc, nil
}

// ListBySale returns every refund of a sale, cancelled ones included.
func (s *Service) ListBySale(ctx context.Context, saleID id.ID) ([]*Refund, error) {
	return s.repo.ListBySale(ctx, saleID)
}

// List retrieves refunds.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Refund], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// HasActiveRefunds reports whether the sale has non-cancelled refunds.
func (s *Service) HasActiveRefunds(ctx context.Context, saleID id.ID) (bool, error) {
	return s.repo.HasActive(ctx, saleID)
}

var _ sale.RefundLedger = (*Service)(nil)
