package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/types"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/domain/cash_session"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

const (
	cashSessionTable = "doc_cash_sessions"
	cashDropTable    = "doc_cash_drops"

	// uniqueOpenSession is the partial unique index on (cashier_id, drawer_id) WHERE status = 'open'.
	uniqueOpenSession = "doc_cash_sessions_open_drawer_idx"
)

var cashDropCols = postgres.ExtractDBColumns[cash_session.CashDrop]()

// CashSessionRepo implements cash_session.Repository.
type CashSessionRepo struct {
	*BaseDocumentRepo[*cash_session.Session]
}

var _ cash_session.Repository = (*CashSessionRepo)(nil)

// NewCashSessionRepo creates a new cash session repository.
func NewCashSessionRepo(txManager *postgres.TxManager) *CashSessionRepo {
	base := NewBaseDocumentRepo[*cash_session.Session](
		txManager, cashSessionTable, "cash_session", postgres.ExtractDBColumns[cash_session.Session](),
	)
	base.WithListSpec(postgres.ListSpec{
		SearchColumn: "number",
		DateColumn:   "opened_at",
		Sortable:     []string{"number", "opened_at", "closed_at", "created_at"},
		DefaultOrder: "opened_at DESC",
		TieBreaker:   "id DESC",
	})
	return &CashSessionRepo{BaseDocumentRepo: base}
}

// Create stores a new open session. The partial unique index rejects a second
// open session of the cashier on the same drawer.
func (r *CashSessionRepo) Create(ctx context.Context, s *cash_session.Session) error {
	err := r.BaseDocumentRepo.Create(ctx, s)
	if err != nil && postgres.IsUniqueViolation(err, uniqueOpenSession) {
		return apperror.NewInvariantViolation("cashier already has an open session on this drawer").
			WithDetail("drawer_id", s.DrawerID)
	}
	return err
}

func (r *CashSessionRepo) GetByID(ctx context.Context, sessionID id.ID) (*cash_session.Session, error) {
	s := &cash_session.Session{}
	if err := r.BaseDocumentRepo.GetByID(ctx, s, sessionID); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *CashSessionRepo) GetForUpdate(ctx context.Context, sessionID id.ID) (*cash_session.Session, error) {
	s := &cash_session.Session{}
	if err := r.BaseDocumentRepo.GetForUpdate(ctx, s, sessionID); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *CashSessionRepo) GetForShare(ctx context.Context, sessionID id.ID) (*cash_session.Session, error) {
	s := &cash_session.Session{}
	if err := r.BaseDocumentRepo.GetForShare(ctx, s, sessionID); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *CashSessionRepo) Update(ctx context.Context, s *cash_session.Session) error {
	version, updatedAt, err := r.BaseDocumentRepo.Update(ctx, s)
	if err != nil {
		return err
	}
	s.Version, s.UpdatedAt = version, updatedAt
	return nil
}

// FindOpen returns the cashier's open sessions, oldest first.
func (r *CashSessionRepo) FindOpen(ctx context.Context, cashierID string, drawerID *string) ([]*cash_session.Session, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"cashier_id": cashierID, "status": cash_session.StatusOpen}).
		OrderBy("opened_at", "id")
	if drawerID != nil {
		q = q.Where(squirrel.Eq{"drawer_id": *drawerID})
	}

	var out []*cash_session.Session
	if err := postgres.SelectAll(ctx, r.Querier(ctx), &out, q); err != nil {
		return nil, fmt.Errorf("open sessions: %w", err)
	}
	return out, nil
}

func (r *CashSessionRepo) List(ctx context.Context, f cash_session.ListFilter) (domain.ListResult[*cash_session.Session], error) {
	var where []squirrel.Sqlizer
	if f.CashierID != "" {
		where = append(where, squirrel.Eq{"cashier_id": f.CashierID})
	}
	if f.DrawerID != "" {
		where = append(where, squirrel.Eq{"drawer_id": f.DrawerID})
	}
	if f.Status != nil {
		where = append(where, squirrel.Eq{"status": *f.Status})
	}
	return r.BaseDocumentRepo.List(ctx, f.ListFilter, where...)
}

func (r *CashSessionRepo) CreateDrop(ctx context.Context, drop *cash_session.CashDrop) error {
	q := r.Builder().
		Insert(cashDropTable).
		SetMap(postgres.PickColumns(postgres.StructToMap(drop), cashDropCols))
	if _, err := postgres.Exec(ctx, r.Querier(ctx), q); err != nil {
		return fmt.Errorf("insert cash drop: %w", err)
	}
	return nil
}

// ListDrops returns the drops of a session in the order they were made.
func (r *CashSessionRepo) ListDrops(ctx context.Context, sessionID id.ID) ([]cash_session.CashDrop, error) {
	var out []cash_session.CashDrop
	err := postgres.SelectAll(ctx, r.Querier(ctx), &out, r.Builder().
		Select(cashDropCols...).
		From(cashDropTable).
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("created_at", "id"))
	if err != nil {
		return nil, fmt.Errorf("cash drops: %w", err)
	}
	return out, nil
}

func (r *CashSessionRepo) SumDrops(ctx context.Context, sessionID id.ID) (types.Money, error) {
	sql, args, err := r.Builder().
		Select("COALESCE(SUM(amount), 0)").
		From(cashDropTable).
		Where(squirrel.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	total := types.Zero()
	if err := r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return types.Zero(), fmt.Errorf("sum cash drops: %w", err)
	}
	return total, nil
}
