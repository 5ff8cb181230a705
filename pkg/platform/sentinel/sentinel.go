package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, clients and the push
// channel return these (optionally wrapped) so callers can branch on the
// fact rather than on message text:
// - ErrNotFound: entity does not exist in a store or behind the API
// - ErrExpired: pending edit outlived its suppression window
// - ErrUnavailable: backend or push channel temporarily unreachable
// - ErrInvalidState: entity in wrong state for requested operation
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
