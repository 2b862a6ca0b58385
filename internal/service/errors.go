package service

import "errors"

var (
	// ErrConcurrentSync is returned when a run is requested while another is
	// in flight for the same supplier. Not fatal; callers may retry later.
	ErrConcurrentSync = errors.New("sync already running for supplier")

	// ErrProviderFetch marks a run-level failure of the supplier bulk fetch.
	ErrProviderFetch = errors.New("provider fetch failed")

	// ErrRunFinalized is returned on a second terminal transition attempt.
	ErrRunFinalized = errors.New("sync run already finalized")
)
