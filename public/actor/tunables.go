package actor

import "time"

// Default values for the operational knobs SPEC_FULL.md §4.11 requires
// to be configurable rather than fixed: the registrar call timeout, the
// subscription poll interval, and the compression threshold.
const (
	defaultRegDriverTimeout  = 3000 * time.Millisecond
	defaultPollInterval      = 100 * time.Millisecond
	defaultCompressThreshold = 8192
)

// Tunables holds the per-Actor (or per-server) operational knobs that
// would otherwise be fixed constants. A zero value for any field
// selects its documented default, so callers that only care about one
// knob need not fill in the rest.
type Tunables struct {
	// RegDriverTimeout bounds a single RegDriver request/reply round
	// trip (spec.md §4.5).
	RegDriverTimeout time.Duration
	// PollInterval bounds how long a Subscription's worker blocks in a
	// single poll, keeping Stop responsive (spec.md §4.7).
	PollInterval time.Duration
	// CompressThreshold is the payload size at or above which a driver
	// opportunistically S2-compresses a frame before transmission
	// (SPEC_FULL.md §4.2).
	CompressThreshold int
}

func (t Tunables) withDefaults() Tunables {
	if t.RegDriverTimeout <= 0 {
		t.RegDriverTimeout = defaultRegDriverTimeout
	}
	if t.PollInterval <= 0 {
		t.PollInterval = defaultPollInterval
	}
	if t.CompressThreshold <= 0 {
		t.CompressThreshold = defaultCompressThreshold
	}
	return t
}

// firstTunables returns the first element of opts, defaulted, or the
// all-defaults Tunables if opts is empty. It backs the `tunables
// ...Tunables` optional-trailing-parameter convention used by
// NewConnectionPool and NewActor, so existing callers that don't care
// about these knobs need not change.
func firstTunables(opts []Tunables) Tunables {
	if len(opts) == 0 {
		return Tunables{}.withDefaults()
	}
	return opts[0].withDefaults()
}
