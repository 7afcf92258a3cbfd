package geomodel

// SourceKind enumerates the four concrete data sources.
type SourceKind string

const (
	SourceKindPrivateBucket SourceKind = "private_bucket"
	SourceKindPublicBucket  SourceKind = "public_bucket"
	SourceKindHTTPAPIA      SourceKind = "http_api_a"
	SourceKindHTTPAPIB      SourceKind = "http_api_b"
)

// SourceDescriptor names and orders one entry in the fallback chain.
// Priority only affects construction-time ordering.
type SourceDescriptor struct {
	ID       string
	Kind     SourceKind
	Priority int
}

// BreakerState is the circuit breaker's externally visible state.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// CircuitState is a point-in-time snapshot of one breaker, returned for
// health reporting.
type CircuitState struct {
	State         BreakerState
	FailureCount  int
	LastFailureTS int64
	OpenUntilTS   int64
}

// UsageStats holds the per-source monotonic counters, shared read/write
// across every concurrent request for the process lifetime.
type UsageStats struct {
	Attempts     int64
	Successes    int64
	Failures     int64
	CircuitTrips int64
}
