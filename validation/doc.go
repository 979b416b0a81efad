// Package validation provides input validation utilities for configuration
// structs and pipeline parameters.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Struct tag validation is
// recommended for configuration loaded from files.
//
// # Struct Tag Validation
//
//	type StageConfig struct {
//	    Backend string `validate:"required,oneof=sequential workers conc"`
//	    Workers int    `validate:"min=1"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("binary", cfg.Binary).Min("workers", cfg.Workers, 1)
//	err := v.Validate()
package validation
