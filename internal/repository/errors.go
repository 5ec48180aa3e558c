// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation workflow to distinguish between different failure scenarios
// without inspecting driver-specific errors.
package repository

import "errors"

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key, such as a
// second reservation for the same (member, exam) pair or a second exam with
// the same title and time.
var ErrDuplicate = errors.New("duplicate key")

// ErrStale is returned when a conditional UPDATE or DELETE matched no rows
// because the row changed state after it was read.
var ErrStale = errors.New("row changed concurrently")
