// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup.
//
// Beyond the struct tags, declared bean names must be unique and the same
// type may be declared once.  Whether a declared name uses the reserved
// prefix is checked later by the registry, which owns that rule.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New()

var ErrDuplicateBean = errors.New("config: duplicate bean declaration")

//
// public API
//

// validateStruct returns the validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	types := make(map[string]struct{}, len(c.Beans))
	names := make(map[string]struct{}, len(c.Beans))
	for _, b := range c.Beans {
		if _, dup := types[b.Type]; dup {
			return fmt.Errorf("%w: type %s", ErrDuplicateBean, b.Type)
		}
		if _, dup := names[b.ParamName]; dup {
			return fmt.Errorf("%w: param_name %s", ErrDuplicateBean, b.ParamName)
		}
		types[b.Type] = struct{}{}
		names[b.ParamName] = struct{}{}
	}
	return nil
}
