package mixer

import "errors"

var (
	// ErrNotImplemented is returned for GROUP_MODE_* features streamlib.h
	// names but spec.md §1 excludes: N-way conferencing and ASR hooks.
	ErrNotImplemented = errors.New("mixer: feature not implemented")

	// ErrGroupNotFound is not returned by Registry.Mix, which reports a
	// group id that has never received a Contribute call with ok=false.
	ErrGroupNotFound = errors.New("mixer: group not found")
)
