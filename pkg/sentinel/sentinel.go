package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: record already exists and may not be rewritten
// - ErrCorrupt: a persisted record failed to parse
// - ErrExpired: record has passed its expiry instant
// - ErrUnavailable: the storage medium itself is unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrCorrupt     = errors.New("corrupt record")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
