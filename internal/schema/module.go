package schema

import "go.uber.org/fx"

// Module provides the schema validator to Fx, bound to the order batch schema.
var Module = fx.Options(
	fx.Provide(func() *Validator {
		return NewValidator(DefaultOrderSchema())
	}),
)
