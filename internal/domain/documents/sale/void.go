package sale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/domain/audit"
	"pharmaledger/internal/domain/registers/stock"
	"pharmaledger/pkg/logger"
)

// VoidRequest cancels a completed sale.
type VoidRequest struct {
	Reason   string
	Approver security.Approver
	// RestoreStock returns every allocation to its batch. Nil means true.
	RestoreStock *bool
}

func (r VoidRequest) restore() bool {
	return r.RestoreStock == nil || *r.RestoreStock
}

// Void marks a completed sale voided under manager authorization.
//
// A sale is voided at most once, and never after a refund has been issued
// against it. When stock is restored, each allocation goes back to the batch
// it came from as a void_restore movement.
func (s *Service) Void(ctx context.Context, saleID id.ID, req VoidRequest) (*Sale, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperror.NewValidation("void reason is required").WithDetail("field", "reason")
	}

	authorizedBy, err := s.authorizer.Authorize(ctx, security.PrivilegeVoidSale, req.Approver)
	if err != nil {
		return nil, err
	}

	var doc *Sale
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.LockForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if doc.Status == StatusVoided {
			return apperror.NewInvariantViolation("sale is already voided").
				WithDetail("sale_id", saleID.String())
		}

		if s.refunds != nil {
			active, err := s.refunds.HasActiveRefunds(ctx, saleID)
			if err != nil {
				return fmt.Errorf("check refunds: %w", err)
			}
			if active {
				return apperror.NewInvariantViolation("sale has refunds and cannot be voided").
					WithDetail("sale_id", saleID.String())
			}
		}

		before := *doc
		before.Lines = nil

		if req.restore() {
			for _, line := range doc.Lines {
				for _, a := range line.Allocations {
					_, err := s.ledger.Restore(ctx, stock.BatchChange{
						BatchID:  a.BatchID,
						Quantity: a.Quantity,
						Kind:     stock.KindVoidRestore,
						Ref: stock.Reference{
							Type:   stock.RefSale,
							ID:     doc.ID,
							LineID: &line.ID,
							Reason: reason,
						},
					})
					if err != nil {
						return fmt.Errorf("restore batch %s: %w", a.BatchID, err)
					}
				}
			}
		}

		voidedAt := time.Now().UTC()
		doc.Status = StatusVoided
		doc.VoidReason = reason
		doc.VoidedBy = authorizedBy
		doc.VoidedAt = &voidedAt
		doc.StockRestored = req.restore()
		audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)

		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}

		after := *doc
		after.Lines = nil
		return s.audit.LogUpdate(ctx, audit.EntitySale, doc.ID, before, after)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale voided",
		"id", doc.ID,
		"number", doc.Number,
		"authorized_by", doc.VoidedBy,
		"stock_restored", doc.StockRestored,
	)
	return doc, nil
}
