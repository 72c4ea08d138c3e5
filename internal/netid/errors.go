package netid

import "errors"

// Sentinel errors of the Network-ID Manager. ErrInvalidConfig is wrapped
// with fmt.Errorf ("%w: ...") at its call sites so callers can still
// errors.Is against it; the others are returned bare. Several sentinels are
// declared for callers to match on but are not returned by any function in
// this package: ErrNotStarted, ErrNoRoute, ErrLoopDetected,
// ErrUnknownSecret, ErrHTLExhausted, ErrTimeout and ErrNoConsensus. The
// forwarding path reports routing outcomes as RejectedLoop replies, and
// round trips surface the transport's own errors.
var (
	// ErrInvalidConfig is returned by Config.Validate when a tunable is out
	// of its allowed range.
	ErrInvalidConfig = errors.New("netid: invalid config")

	// ErrNotStarted names a Service used before Start.
	ErrNotStarted = errors.New("netid: service not started")

	// ErrAlreadyStarted is returned by Service.Start when called twice.
	ErrAlreadyStarted = errors.New("netid: service already started")

	// ErrNoRoute names a forwarding hop with no further candidate peer to
	// route to.
	ErrNoRoute = errors.New("netid: no route to target")

	// ErrLoopDetected names a SecretPing uid already seen by this node.
	ErrLoopDetected = errors.New("netid: loop detected")

	// ErrUnknownSecret names a SecretPing that references a uid this node
	// never stored.
	ErrUnknownSecret = errors.New("netid: unknown secret uid")

	// ErrSecretMismatch is returned by StoreSecretRoundTrip when the
	// Accepted reply carries a uid other than the one sent.
	ErrSecretMismatch = errors.New("netid: secret mismatch for uid")

	// ErrHTLExhausted names a message that arrives with htl <= 0.
	ErrHTLExhausted = errors.New("netid: htl exhausted")

	// ErrTimeout names a round trip that did not complete within its
	// configured deadline.
	ErrTimeout = errors.New("netid: round trip timed out")

	// ErrNoConsensus names a group that cannot settle on any candidate id.
	// Reckoning never fails this way: it falls back to a random id.
	ErrNoConsensus = errors.New("netid: no consensus reached")

	// ErrNilHost is returned by New when host is nil.
	ErrNilHost = errors.New("netid: host must not be nil")
)
