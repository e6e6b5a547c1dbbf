// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/domain"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

// immutableCols are never rewritten by Update.
var immutableCols = []string{"id", "version", "created_at", "created_by", "updated_at"}

// BaseDocumentRepo provides common CRUD operations for document headers.
// Lines live in their own tables and are handled by the concrete repos.
type BaseDocumentRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	updateCols []string
	// uniqueNumber is the constraint name of the per-table number index.
	uniqueNumber string
	listSpec     postgres.ListSpec
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txManager *postgres.TxManager,
	tableName string,
	entityName string,
	selectCols []string,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txManager:    txManager,
		tableName:    tableName,
		entityName:   entityName,
		selectCols:   selectCols,
		updateCols:   postgres.ColumnsExcept(selectCols, immutableCols...),
		uniqueNumber: tableName + "_number_key",
		listSpec: postgres.ListSpec{
			SearchColumn: "number",
			DateColumn:   "date",
			Sortable:     []string{"number", "date", "created_at", "updated_at"},
			DefaultOrder: "date DESC",
			TieBreaker:   "id DESC",
		},
	}
}

// Querier returns the transaction in ctx or the pool.
func (r *BaseDocumentRepo[T]) Querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return postgres.Builder()
}

// Create inserts a new document header.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, entity T) error {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	q := r.Builder().
		Insert(r.tableName).
		SetMap(postgres.PickColumns(data, r.selectCols))

	if _, err := postgres.Exec(ctx, r.Querier(ctx), q); err != nil {
		if postgres.IsUniqueViolation(err, r.uniqueNumber) {
			return apperror.NewInvariantViolation(r.entityName+" number already used").
				WithDetail("number", data["number"])
		}
		if postgres.IsUniqueViolation(err, r.tableName+"_pkey") {
			return apperror.NewInvariantViolation(r.entityName+" already exists").
				WithDetail("id", fmt.Sprint(data["id"]))
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}

	return nil
}

// Update writes the mutable columns when the stored version still matches.
// It returns the new version and update time; the caller copies them back.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, entity T) (int, time.Time, error) {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return 0, time.Time{}, fmt.Errorf("no db tags found in entity")
	}

	entityID := data["id"]
	version, ok := data["version"].(int)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	now := time.Now().UTC()
	q := r.Builder().
		Update(r.tableName).
		SetMap(postgres.PickColumns(data, r.updateCols)).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": entityID, "version": version})

	affected, err := postgres.Exec(ctx, r.Querier(ctx), q)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("update %s: %w", r.tableName, err)
	}

	if affected == 0 {
		if err := r.exists(ctx, entityID); err != nil {
			return 0, time.Time{}, err
		}
		return 0, time.Time{}, apperror.NewConcurrencyConflict(r.entityName, fmt.Sprint(entityID))
	}

	return version + 1, now, nil
}

func (r *BaseDocumentRepo[T]) exists(ctx context.Context, entityID any) error {
	var found bool
	sql, args, err := r.Builder().
		Select("TRUE").From(r.tableName).Where(squirrel.Eq{"id": entityID}).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return fmt.Errorf("build exists: %w", err)
	}
	if err := r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&found); err != nil {
		return fmt.Errorf("check %s: %w", r.tableName, err)
	}
	if !found {
		return apperror.NewNotFound(r.entityName, fmt.Sprint(entityID))
	}
	return nil
}

// baseSelect creates a SELECT builder over the header columns.
func (r *BaseDocumentRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// GetByID retrieves a document by ID.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, dst T, entityID id.ID) error {
	return postgres.GetOne(ctx, r.Querier(ctx), dst,
		r.baseSelect().Where(squirrel.Eq{"id": entityID}),
		r.entityName, entityID.String())
}

// GetForUpdate retrieves a document with a row lock.
func (r *BaseDocumentRepo[T]) GetForUpdate(ctx context.Context, dst T, entityID id.ID) error {
	return postgres.GetOne(ctx, r.Querier(ctx), dst,
		r.baseSelect().Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE"),
		r.entityName, entityID.String())
}

// GetForShare retrieves a document with a shared row lock.
func (r *BaseDocumentRepo[T]) GetForShare(ctx context.Context, dst T, entityID id.ID) error {
	return postgres.GetOne(ctx, r.Querier(ctx), dst,
		r.baseSelect().Where(squirrel.Eq{"id": entityID}).Suffix("FOR SHARE"),
		r.entityName, entityID.String())
}

// List applies the common filter, then the caller's conditions in where.
func (r *BaseDocumentRepo[T]) List(ctx context.Context, filter domain.ListFilter, where ...squirrel.Sqlizer) (domain.ListResult[T], error) {
	q := postgres.ApplyListFilter(r.baseSelect(), filter, r.listSpec)
	for _, w := range where {
		q = q.Where(w)
	}
	return postgres.SelectPage[T](ctx, r.Querier(ctx), q, filter, r.listSpec)
}

// WithListSpec overrides how List filters and sorts.
func (r *BaseDocumentRepo[T]) WithListSpec(spec postgres.ListSpec) *BaseDocumentRepo[T] {
	r.listSpec = spec
	return r
}
