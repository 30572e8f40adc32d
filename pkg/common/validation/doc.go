// Package validation provides common validation utilities for configuration
// parameters across the flowgate library.
//
// Every helper returns a *errors.ValidationError carrying the module and
// field name, so constructors can surface consistent messages without
// repeating the formatting logic.
package validation
