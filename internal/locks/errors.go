// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Failure taxonomy for lock operations.
package locks

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout reports that the wait deadline elapsed before the lock
	// was granted.
	ErrTimeout = errors.New("locks: lock wait timed out")

	// ErrCancelled reports that a queued request was withdrawn before it
	// could be granted: the owning session released the resource, or an
	// administrator force-unlocked or cleared it.
	ErrCancelled = errors.New("locks: lock request cancelled")

	// ErrInvalidResource reports a missing resource identifier.
	ErrInvalidResource = errors.New("locks: resource name required")
)

// timeoutError decorates ErrTimeout with the request that missed its
// deadline. Matched with errors.Is(err, ErrTimeout).
func timeoutError(resource, session string, mode Mode, waited time.Duration) error {
	return fmt.Errorf("%w: %s lock on %q for session %s after %s",
		ErrTimeout, mode, resource, session, waited.Round(time.Millisecond))
}

// cancelError decorates ErrCancelled with the request and the cause
// ("released by owner", "force unlock"). Matched with
// errors.Is(err, ErrCancelled).
func cancelError(resource, session string, mode Mode, cause string) error {
	return fmt.Errorf("%w: %s lock on %q for session %s: %s",
		ErrCancelled, mode, resource, session, cause)
}
