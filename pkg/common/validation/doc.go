// Package validation provides common validation utilities for constructor
// parameters across the rxflow library.
//
// The helpers return *errors.ValidationError values so callers get
// consistent messages and can match them with errors.Is against
// errors.ErrInvalidConfiguration.
package validation
