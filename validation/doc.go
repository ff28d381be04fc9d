// Package validation provides struct tag validation backed by
// go-playground/validator and a fluent field validator for programmatic
// checks. Both report failures as INVALID_ARGUMENT AppErrors carrying a
// "fields" detail.
//
// # Struct Tag Validation
//
//	type PipelineConfig struct {
//	    BufferSize int `validate:"gte=1"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	err := validation.New().
//	    Positive("size", size).
//	    NonNegative("capacity", capacity).
//	    Validate()
package validation
