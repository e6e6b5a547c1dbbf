package sale

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

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

// Ledger is the part of the stock ledger used by sales and voids.
type Ledger interface {
	Allocate(ctx context.Context, req stock.AllocateRequest) ([]stock.Allocation, error)
	Restore(ctx context.Context, ch stock.BatchChange) (*stock.Batch, error)
}

// TaxRateProvider returns the organization's configured sales tax rate in percent.
type TaxRateProvider interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

// SessionResolver finds the cash session a sale belongs to.
//
// With sessionID set it verifies the session is open and owned by the cashier.
// Without it, it returns the cashier's single open session, or nil when there is none.
type SessionResolver interface {
	ResolveOpenSession(ctx context.Context, cashierID string, sessionID *id.ID) (*id.ID, error)
}

// RefundLedger reports refund activity against a sale.
type RefundLedger interface {
	HasActiveRefunds(ctx context.Context, saleID id.ID) (bool, error)
}

// RefundLedgerFunc adapts a function to RefundLedger.
type RefundLedgerFunc func(ctx context.Context, saleID id.ID) (bool, error)

func (f RefundLedgerFunc) HasActiveRefunds(ctx context.Context, saleID id.ID) (bool, error) {
	return f(ctx, saleID)
}

// Dependencies wires a Service.
type Dependencies struct {
	Repo       Repository
	Ledger     Ledger
	TaxRates   TaxRateProvider
	Sessions   SessionResolver
	Refunds    RefundLedger
	Authorizer security.Authorizer
	Numerator  numerator.Generator
	TxManager  tx.Manager
	Audit      audit.Logger

	// RequireOpenSession rejects sales by cashiers without an open cash session.
	RequireOpenSession bool
}

// Service provides business operations for sales.
type Service struct {
	repo               Repository
	ledger             Ledger
	taxRates           TaxRateProvider
	sessions           SessionResolver
	refunds            RefundLedger
	authorizer         security.Authorizer
	numerator          numerator.Generator
	txManager          tx.Manager
	audit              audit.Logger
	hooks              *domain.HookRegistry[*Sale]
	requireOpenSession bool
}

// NewService creates a new sale service.
func NewService(deps Dependencies) *Service {
	s := &Service{
		repo:               deps.Repo,
		ledger:             deps.Ledger,
		taxRates:           deps.TaxRates,
		sessions:           deps.Sessions,
		refunds:            deps.Refunds,
		authorizer:         deps.Authorizer,
		numerator:          deps.Numerator,
		txManager:          deps.TxManager,
		audit:              deps.Audit,
		hooks:              domain.NewHookRegistry[*Sale](),
		requireOpenSession: deps.RequireOpenSession,
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.authorizer == nil {
		s.authorizer = security.ActorAuthorizer{}
	}
	s.hooks.OnBeforeCreate(func(ctx context.Context, doc *Sale) error {
		audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)
		return nil
	})
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Sale] {
	return s.hooks
}

// LineRequest is one cart line.
type LineRequest struct {
	ItemID    id.ID
	Quantity  types.Quantity
	UnitPrice types.Money
}

// CreateRequest is a cart submitted for checkout.
type CreateRequest struct {
	CustomerID      *id.ID
	SessionID       *id.ID
	Lines           []LineRequest
	DiscountAmount  *types.Money
	DiscountPercent *decimal.Decimal
	PaymentMethod   PaymentMethod
	AmountTendered  types.Money
	// AllowExpired lets allocation use expired batches; requires stock:sell_expired.
	AllowExpired bool
	Comment      string
}

// Validate checks the request shape.
func (r CreateRequest) Validate() error {
	if len(r.Lines) == 0 {
		return apperror.NewValidation("sale must have at least one line").WithDetail("field", "lines")
	}
	for i, l := range r.Lines {
		if id.IsNil(l.ItemID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: item is required", i+1)).WithDetail("line", i+1)
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i+1)).WithDetail("line", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("line %d: unit price cannot be negative", i+1)).WithDetail("line", i+1)
		}
	}
	if !r.PaymentMethod.IsValid() {
		return apperror.NewValidation(fmt.Sprintf("unsupported payment method %q", r.PaymentMethod)).
			WithDetail("field", "paymentMethod")
	}
	return nil
}

// Create checks out a cart.
//
// Pricing, payment and privilege checks run before the ledger is touched.
// Allocation of every line, the sale row, its lines and allocations then
// commit in one transaction; if any line cannot be allocated the whole sale
// is rolled back.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Sale, error) {
	actor, err := security.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.AllowExpired && !security.ActorHolds(actor, security.PrivilegeSellExpired) {
		return nil, security.Forbidden(security.PrivilegeSellExpired)
	}

	rate, err := s.taxRates.TaxRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("get tax rate: %w", err)
	}
	totals, err := ComputeTotals(req.Lines, Discount{Amount: req.DiscountAmount, Percent: req.DiscountPercent}, rate)
	if err != nil {
		return nil, err
	}
	payment, err := SettlePayment(req.PaymentMethod, req.AmountTendered, totals.Total)
	if err != nil {
		return nil, err
	}

	doc := &Sale{
		Document:       newDocument(req.Comment),
		CustomerID:     req.CustomerID,
		CashierID:      actor.UserID,
		Subtotal:       totals.Subtotal,
		Discount:       totals.Discount,
		TaxRate:        rate,
		Tax:            totals.Tax,
		Total:          totals.Total,
		PaymentMethod:  payment.Method,
		AmountTendered: payment.Tendered,
		Change:         payment.Change,
		Status:         StatusCompleted,
	}
	for i, l := range req.Lines {
		doc.Lines = append(doc.Lines, Line{
			ID:        id.New(),
			SaleID:    doc.ID,
			LineNo:    i + 1,
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			UnitPrice: types.RoundMoney(l.UnitPrice),
			Subtotal:  types.LineAmount(l.Quantity, l.UnitPrice),
		})
	}

	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sessionID, err := s.sessions.ResolveOpenSession(ctx, actor.UserID, req.SessionID)
		if err != nil {
			return err
		}
		if sessionID == nil && s.requireOpenSession {
			return apperror.NewInvariantViolation("cashier has no open cash session")
		}
		doc.SessionID = sessionID

		cfg := numerator.DefaultConfig(numerator.PrefixSale)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, doc.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		for i := range doc.Lines {
			line := &doc.Lines[i]
			allocations, err := s.ledger.Allocate(ctx, stock.AllocateRequest{
				ItemID:       line.ItemID,
				Quantity:     line.Quantity,
				AsOf:         doc.Date,
				AllowExpired: req.AllowExpired,
				Ref:          stock.Reference{Type: stock.RefSale, ID: doc.ID, LineID: &line.ID},
			})
			if err != nil {
				if appErr, ok := apperror.AsAppError(err); ok {
					appErr.WithDetail("line_no", line.LineNo)
				}
				return err
			}
			line.Allocations = allocations
		}

		if err := doc.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return s.audit.LogCreate(ctx, audit.EntitySale, doc.ID, doc)
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "sale completed",
		"id", doc.ID,
		"number", doc.Number,
		"total", doc.Total.StringFixed(2),
		"payment_method", doc.PaymentMethod,
	)
	return doc, nil
}

// GetByID retrieves a sale with lines and allocations.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	doc, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// LockForUpdate loads a sale with its lines under a row lock.
// It must be called inside a transaction.
func (s *Service) LockForUpdate(ctx context.Context, saleID id.ID) (*Sale, error) {
	doc, err := s.repo.GetForUpdate(ctx, saleID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List retrieves sales (headers only).
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

func newDocument(comment string) entity.Document {
	doc := entity.NewDocument()
	doc.Comment = comment
	return doc
}
