// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// auction engine and handlers to distinguish between different failure
// scenarios without depending on driver-specific errors. For example,
// ErrConflict signals that a conditional update lost a race against a
// concurrent writer, while ErrDuplicate signals that a uniqueness
// constraint (one token per user per item, one slip per item, one
// history row per payment reference) was violated.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. The
// MySQL implementations translate sql.ErrNoRows into this value so
// that callers never compare against database/sql sentinels directly.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an atomic conditional update finds that
// its precondition no longer holds, e.g. a bid's compare-and-set on the
// item's previous price observing a price written by a concurrent bid.
// Callers may re-read and retry.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint. It covers duplicate bidding tokens per (item, user),
// duplicate slips per item, duplicate settlement transactions and
// duplicate payment references.
var ErrDuplicate = errors.New("duplicate")

// ErrEmailExists is returned by user creation when the email address is
// already registered.
var ErrEmailExists = errors.New("email already exists")
