// Package sentinel holds infrastructure facts that stores and clients report
// so callers can branch with errors.Is regardless of the backend:
//
//   - ErrNotFound: the key or record does not exist
//   - ErrInvalidState: the data exists but cannot be used as stored
//   - ErrUnavailable: the store or upstream cannot be reached right now
//
// Failures shown to users go through pkg/domain-errors instead.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
