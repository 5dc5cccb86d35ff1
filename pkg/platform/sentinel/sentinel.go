package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, repositories and object storage
// return these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity, file or cache record does not exist
//   - ErrExpired: cart or checkout session is past its expiry
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
