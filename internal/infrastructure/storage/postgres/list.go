package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/domain"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// ListSpec describes how a table answers domain.ListFilter.
type ListSpec struct {
	// SearchColumn is matched with ILIKE against Search. Empty disables search.
	SearchColumn string
	// DateColumn is bounded by DateFrom/DateTo.
	DateColumn string
	// IDColumn is matched against IDs. Defaults to "id".
	IDColumn string
	// Sortable columns accepted in OrderBy.
	Sortable []string
	// DefaultOrder is used when OrderBy is empty, e.g. "created_at DESC".
	DefaultOrder string
	// TieBreaker is appended to every ORDER BY for a stable page order.
	TieBreaker string
}

// ApplyListFilter adds the common filter conditions to q.
func ApplyListFilter(q squirrel.SelectBuilder, f domain.ListFilter, spec ListSpec) squirrel.SelectBuilder {
	if f.Search != "" && spec.SearchColumn != "" {
		q = q.Where(squirrel.ILike{spec.SearchColumn: "%" + f.Search + "%"})
	}
	if len(f.IDs) > 0 {
		col := spec.IDColumn
		if col == "" {
			col = "id"
		}
		q = q.Where(squirrel.Eq{col: f.IDs})
	}
	if spec.DateColumn != "" {
		if f.DateFrom != nil {
			q = q.Where(squirrel.GtOrEq{spec.DateColumn: *f.DateFrom})
		}
		if f.DateTo != nil {
			q = q.Where(squirrel.Lt{spec.DateColumn: *f.DateTo})
		}
	}
	return q
}

// ParseOrderBy turns "-field" / "+field" / "field" into an ORDER BY clause
// restricted to spec.Sortable.
func ParseOrderBy(orderBy string, spec ListSpec) (string, error) {
	clause := spec.DefaultOrder
	if strings.TrimSpace(orderBy) != "" {
		direction := "ASC"
		field := orderBy
		if strings.HasPrefix(orderBy, "-") {
			direction = "DESC"
			field = strings.TrimPrefix(orderBy, "-")
		} else if strings.HasPrefix(orderBy, "+") {
			field = strings.TrimPrefix(orderBy, "+")
		}
		field = strings.TrimSpace(field)

		allowed := false
		for _, col := range spec.Sortable {
			if col == field {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
		}
		clause = field + " " + direction
	}
	if spec.TieBreaker != "" {
		if clause == "" {
			return spec.TieBreaker, nil
		}
		clause += ", " + spec.TieBreaker
	}
	return clause, nil
}

// SelectPage counts the rows matched by q, then scans the requested page.
func SelectPage[T any](ctx context.Context, querier Querier, q squirrel.SelectBuilder, f domain.ListFilter, spec ListSpec) (domain.ListResult[T], error) {
	f.Normalize()
	result := domain.ListResult[T]{
		Items:  []T{},
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	countSQL, countArgs, err := Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := ParseOrderBy(f.OrderBy, spec)
	if err != nil {
		return result, err
	}
	if orderBy != "" {
		q = q.OrderBy(orderBy)
	}
	q = q.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	return result, nil
}

// GetOne scans a single row, mapping no rows to NOT_FOUND for entity/key.
func GetOne(ctx context.Context, querier Querier, dst any, q squirrel.Sqlizer, entity string, key any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, querier, dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(entity, key)
		}
		return fmt.Errorf("get %s: %w", entity, err)
	}
	return nil
}

// SelectAll scans every row of q into dst.
func SelectAll(ctx context.Context, querier Querier, dst any, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, dst, sql, args...); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	return nil
}

// Exec runs a built statement and returns the affected row count.
func Exec(ctx context.Context, querier Querier, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
