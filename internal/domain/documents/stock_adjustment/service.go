package stock_adjustment

import (
	"context"
	"fmt"
	"strings"

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

// Ledger is the part of the stock ledger used by adjustments.
type Ledger interface {
	GetBatch(ctx context.Context, batchID id.ID) (*stock.Batch, error)
	Adjust(ctx context.Context, req stock.AdjustRequest) (*stock.Batch, error)
}

// Service provides the request/approve workflow for stock corrections.
type Service struct {
	repo       Repository
	ledger     Ledger
	authorizer security.Authorizer
	numerator  numerator.Generator
	txManager  tx.Manager
	audit      audit.Logger
}

// NewService creates a new stock adjustment service.
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
	return &Service{
		repo:       repo,
		ledger:     ledger,
		authorizer: authorizer,
		numerator:  numGen,
		txManager:  txManager,
		audit:      auditLog,
	}
}

// RequestInput describes a requested correction.
type RequestInput struct {
	BatchID    id.ID
	Delta      types.Quantity
	ReasonCode ReasonCode
	Note       string
}

// Request records a pending adjustment. Stock is not touched until approval.
func (s *Service) Request(ctx context.Context, in RequestInput) (*StockAdjustment, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}

	doc := &StockAdjustment{
		Document:    entity.NewDocument(),
		BatchID:     in.BatchID,
		Delta:       in.Delta,
		ReasonCode:  in.ReasonCode,
		Status:      StatusPending,
		RequestedBy: actor.UserID,
	}
	doc.Comment = strings.TrimSpace(in.Note)
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.ledger.GetBatch(ctx, in.BatchID)
		if err != nil {
			return err
		}
		doc.ItemID = batch.ItemID

		cfg := numerator.DefaultConfig(numerator.PrefixStockAdjustment)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, doc.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create adjustment: %w", err)
		}
		return s.audit.LogCreate(ctx, audit.EntityStockAdjustment, doc.ID, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjustment requested",
		"id", doc.ID,
		"number", doc.Number,
		"batch_id", doc.BatchID,
		"delta", doc.Delta,
	)
	return doc, nil
}

// Approve applies a pending adjustment to the ledger. The status change and
// the ledger mutation commit together.
func (s *Service) Approve(ctx context.Context, adjustmentID id.ID, approver security.Approver, note string) (*StockAdjustment, error) {
	approvedBy, err := s.authorizer.Authorize(ctx, security.PrivilegeApproveAdjustment, approver)
	if err != nil {
		return nil, err
	}

	doc, err := s.decide(ctx, adjustmentID, func(ctx context.Context, doc *StockAdjustment) error {
		if err := doc.Approve(approvedBy, strings.TrimSpace(note)); err != nil {
			return err
		}
		_, err := s.ledger.Adjust(ctx, stock.AdjustRequest{
			BatchID: doc.BatchID,
			Delta:   doc.Delta,
			Ref: stock.Reference{
				Type:   stock.RefAdjustment,
				ID:     doc.ID,
				Reason: string(doc.ReasonCode),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjustment approved", "id", doc.ID, "number", doc.Number, "approved_by", approvedBy)
	return doc, nil
}

// Reject closes a pending adjustment without touching stock.
func (s *Service) Reject(ctx context.Context, adjustmentID id.ID, approver security.Approver, note string) (*StockAdjustment, error) {
	rejectedBy, err := s.authorizer.Authorize(ctx, security.PrivilegeApproveAdjustment, approver)
	if err != nil {
		return nil, err
	}

	doc, err := s.decide(ctx, adjustmentID, func(_ context.Context, doc *StockAdjustment) error {
		return doc.Reject(rejectedBy, strings.TrimSpace(note))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjustment rejected", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

func (s *Service) decide(ctx context.Context, adjustmentID id.ID, fn func(ctx context.Context, doc *StockAdjustment) error) (*StockAdjustment, error) {
	var doc *StockAdjustment
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, adjustmentID)
		if err != nil {
			return err
		}
		before := *doc
		if err := fn(ctx, doc); err != nil {
			return err
		}
		audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		return s.audit.LogUpdate(ctx, audit.EntityStockAdjustment, doc.ID, before, *doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetByID retrieves an adjustment.
func (s *Service) GetByID(ctx context.Context, adjustmentID id.ID) (*StockAdjustment, error) {
	return s.repo.GetByID(ctx, adjustmentID)
}

// List retrieves adjustments.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockAdjustment], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}
