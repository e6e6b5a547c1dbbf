package security

import (
	"fmt"

	"pharmaledger/internal/core/apperror"
)

// Forbidden returns the error reported when a privilege check fails.
func Forbidden(p Privilege) error {
	return apperror.NewForbidden(fmt.Sprintf("privilege %s required", p)).
		WithDetail("privilege", string(p))
}
