package dto

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerOnce sync.Once

// RegisterValidators installs the custom rules on gin's validator engine.
// It panics if a rule cannot be registered.
//
//	decimal_gte0  money or rate that must not be negative
//	decimal_gt0   money that must be positive
//	percent       decimal within [0, 100]
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := RegisterOn(v); err != nil {
			panic(err)
		}
	})
}

// RegisterOn installs the custom rules on v.
func RegisterOn(v *validator.Validate) error {
	// Decimals validate as their string form so field tags apply to them.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	rules := map[string]validator.Func{
		"decimal_gte0": decimalRule(func(d decimal.Decimal) bool { return !d.IsNegative() }),
		"decimal_gt0":  decimalRule(func(d decimal.Decimal) bool { return d.IsPositive() }),
		"percent": decimalRule(func(d decimal.Decimal) bool {
			return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
		}),
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s validator: %w", tag, err)
		}
	}
	return nil
}

func decimalRule(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return ok(d)
	}
}
