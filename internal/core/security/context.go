package security

import (
	"context"

	"pharmaledger/internal/core/apperror"
	appctx "pharmaledger/internal/core/context"
)

// CurrentActor returns the authenticated actor or an UNAUTHORIZED error.
//
// Usage in domain layer:
//
//	actor, err := security.CurrentActor(ctx)
//	if err != nil {
//	    return nil, err
//	}
//	sale.CashierID = actor.UserID
func CurrentActor(ctx context.Context) (*appctx.UserContext, error) {
	u := appctx.GetUser(ctx)
	if u == nil || u.UserID == "" {
		return nil, apperror.NewUnauthorized("authenticated actor required")
	}
	return u, nil
}
