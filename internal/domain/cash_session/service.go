package cash_session

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
	"pharmaledger/pkg/logger"
)

// SalesTotals reports sale totals tagged with a session.
type SalesTotals interface {
	// CashSalesTotal sums totals of completed cash sales of the session.
	CashSalesTotal(ctx context.Context, sessionID id.ID) (types.Money, error)
}

// Service manages cash sessions.
type Service struct {
	repo      Repository
	sales     SalesTotals
	numerator numerator.Generator
	txManager tx.Manager
	audit     audit.Logger
}

// NewService creates a new cash session service.
func NewService(repo Repository, sales SalesTotals, numGen numerator.Generator, txManager tx.Manager, auditLog audit.Logger) *Service {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		sales:     sales,
		numerator: numGen,
		txManager: txManager,
		audit:     auditLog,
	}
}

// OpenRequest opens a drawer for the calling cashier.
type OpenRequest struct {
	DrawerID     string
	OpeningFloat types.Money
	Note         string
}

// Open starts a session for the authenticated cashier.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.OpeningFloat.IsNegative() {
		return nil, apperror.NewValidation("opening float cannot be negative").WithDetail("field", "openingFloat")
	}
	drawerID := strings.TrimSpace(req.DrawerID)

	doc := &Session{
		Document:     entity.NewDocument(),
		CashierID:    actor.UserID,
		DrawerID:     drawerID,
		OpeningFloat: types.RoundMoney(req.OpeningFloat),
		Status:       StatusOpen,
	}
	doc.OpenedAt = doc.CreatedAt
	doc.Comment = req.Note
	audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		open, err := s.repo.FindOpen(ctx, actor.UserID, &drawerID)
		if err != nil {
			return fmt.Errorf("find open sessions: %w", err)
		}
		if len(open) > 0 {
			return apperror.NewInvariantViolation("cashier already has an open session on this drawer").
				WithDetail("session_id", open[0].ID.String()).
				WithDetail("drawer_id", drawerID)
		}

		cfg := numerator.DefaultConfig(numerator.PrefixCashSession)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, doc.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		if err := s.repo.Create(ctx, doc); err != nil {
			return err
		}
		return s.audit.LogCreate(ctx, audit.EntityCashSession, doc.ID, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "cash session opened",
		"id", doc.ID,
		"number", doc.Number,
		"drawer_id", doc.DrawerID,
		"opening_float", doc.OpeningFloat.StringFixed(2),
	)
	return doc, nil
}

// RecordCashDrop records cash removed from an open drawer.
func (s *Service) RecordCashDrop(ctx context.Context, sessionID id.ID, amount types.Money, reason string) (*CashDrop, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("cash drop amount must be positive").WithDetail("field", "amount")
	}

	drop := &CashDrop{
		ID:        id.New(),
		SessionID: sessionID,
		Amount:    types.RoundMoney(amount),
		Reason:    strings.TrimSpace(reason),
		ActorID:   actor.UserID,
		CreatedAt: time.Now().UTC(),
	}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sess, err := s.repo.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := sess.requireOpen(); err != nil {
			return err
		}
		if err := s.repo.CreateDrop(ctx, drop); err != nil {
			return fmt.Errorf("create cash drop: %w", err)
		}
		return s.audit.LogCreate(ctx, audit.EntityCashDrop, drop.ID, drop)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "cash drop recorded", "session_id", sessionID, "amount", drop.Amount.StringFixed(2))
	return drop, nil
}

// CloseRequest closes a session with the counted drawer amount.
type CloseRequest struct {
	CountedAmount types.Money
	Note          string
}

// Close reconciles and closes a session. Closing is the only operation that
// computes and stores the variance.
func (s *Service) Close(ctx context.Context, sessionID id.ID, req CloseRequest) (*Session, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.CountedAmount.IsNegative() {
		return nil, apperror.NewValidation("counted amount cannot be negative").WithDetail("field", "countedAmount")
	}

	var doc *Session
	var rec Reconciliation
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if !doc.IsOpen() {
			return apperror.NewInvariantViolation("cash session is already closed").
				WithDetail("session_id", sessionID.String())
		}
		before := *doc

		cashSales, err := s.sales.CashSalesTotal(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("sum cash sales: %w", err)
		}
		drops, err := s.repo.SumDrops(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("sum cash drops: %w", err)
		}
		rec = Reconcile(doc.OpeningFloat, cashSales, drops, types.RoundMoney(req.CountedAmount))

		closedAt := time.Now().UTC()
		doc.Status = StatusClosed
		doc.ClosedAt = &closedAt
		doc.ClosedBy = actor.UserID
		doc.CashSales = &rec.CashSales
		doc.CashDrops = &rec.CashDrops
		doc.ExpectedAmount = &rec.Expected
		doc.CountedAmount = &rec.Counted
		doc.Variance = &rec.Variance
		if note := strings.TrimSpace(req.Note); note != "" {
			doc.Comment = note
		}
		audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)

		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		return s.audit.LogUpdate(ctx, audit.EntityCashSession, doc.ID, before, *doc)
	})
	if err != nil {
		return nil, err
	}

	if !rec.Variance.IsZero() {
		logger.Warn(ctx, "cash session closed with variance",
			"id", doc.ID,
			"expected", rec.Expected.StringFixed(2),
			"counted", rec.Counted.StringFixed(2),
			"variance", rec.Variance.StringFixed(2),
		)
	} else {
		logger.Info(ctx, "cash session closed", "id", doc.ID, "number", doc.Number)
	}
	return doc, nil
}

// GetByID retrieves a session.
func (s *Service) GetByID(ctx context.Context, sessionID id.ID) (*Session, error) {
	return s.repo.GetByID(ctx, sessionID)
}

// ListDrops returns the cash drops of a session.
func (s *Service) ListDrops(ctx context.Context, sessionID id.ID) ([]CashDrop, error) {
	if _, err := s.repo.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListDrops(ctx, sessionID)
}

// List retrieves sessions.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Session], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// Current returns the open sessions of the authenticated cashier.
func (s *Service) Current(ctx context.Context) ([]*Session, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.FindOpen(ctx, actor.UserID, nil)
}

// ResolveOpenSession picks the session a sale is tagged with.
//
// An explicit sessionID must be open and belong to the cashier. Without one,
// the cashier's only open session is used; nil is returned when there is none.
// A cashier with open sessions on several drawers must name one.
func (s *Service) ResolveOpenSession(ctx context.Context, cashierID string, sessionID *id.ID) (*id.ID, error) {
	if sessionID != nil {
		sess, err := s.repo.GetForShare(ctx, *sessionID)
		if err != nil {
			return nil, err
		}
		if sess.CashierID != cashierID {
			return nil, apperror.NewInvariantViolation("cash session belongs to another cashier").
				WithDetail("session_id", sessionID.String())
		}
		if err := sess.requireOpen(); err != nil {
			return nil, err
		}
		return &sess.ID, nil
	}

	open, err := s.repo.FindOpen(ctx, cashierID, nil)
	if err != nil {
		return nil, fmt.Errorf("find open sessions: %w", err)
	}
	switch len(open) {
	case 0:
		return nil, nil
	case 1:
		sess, err := s.repo.GetForShare(ctx, open[0].ID)
		if err != nil {
			return nil, err
		}
		if err := sess.requireOpen(); err != nil {
			return nil, err
		}
		return &sess.ID, nil
	default:
		return nil, apperror.NewValidation("cashier has several open sessions; sessionId is required").
			WithDetail("field", "sessionId")
	}
}
