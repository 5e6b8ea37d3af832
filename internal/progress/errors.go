package progress

import (
	"context"
	"errors"
)

var (
	// ErrAuthRequired indicates no signed-in user was available for a load.
	ErrAuthRequired = errors.New("sign in required")
	// ErrTimeout indicates the load pipeline did not finish within the configured bound.
	ErrTimeout = errors.New("load timed out")
	// ErrNetworkFailure indicates the document store could not be reached.
	ErrNetworkFailure = errors.New("network failure")
	// ErrPerRecord indicates a single challenge's check-ins could not be loaded.
	ErrPerRecord = errors.New("challenge check-ins unavailable")
	// ErrCancelled indicates the attempt was cancelled or replaced.
	ErrCancelled = errors.New("load cancelled")
)

// Kind classifies load errors by how they propagate.
type Kind string

const (
	KindNone             Kind = ""
	KindAuthRequired     Kind = "auth_required"
	KindTimeout          Kind = "timeout"
	KindPerRecordFailure Kind = "per_record_failure"
	KindNetworkFailure   Kind = "network_failure"
	KindCancellation     Kind = "cancellation"
)

// KindOf reports the kind of err. Unclassified errors from the store are
// treated as network failures.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrAuthRequired):
		return KindAuthRequired
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancellation
	case errors.Is(err, ErrPerRecord):
		return KindPerRecordFailure
	default:
		return KindNetworkFailure
	}
}

// UserMessage returns the message surfaced to the presentation layer for err.
// Cancellation is silent and yields an empty message.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindNone, KindCancellation:
		return ""
	case KindAuthRequired:
		return "Please sign in to view your progress."
	case KindTimeout:
		return "Loading your progress timed out. Pull to refresh to try again."
	default:
		return "Couldn't load your progress. Check your connection and try again."
	}
}
