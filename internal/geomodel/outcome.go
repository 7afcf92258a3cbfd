package geomodel

// ErrorKind enumerates the error taxonomy a data source can report. These
// are tags, not Go error types: ElevationOutcome.Error carries one as
// data so the orchestrator can decide breaker behaviour without
// type-switching on wrapped errors.
type ErrorKind string

const (
	ErrCrsUnknown   ErrorKind = "CrsUnknown"
	ErrCrsMismatch  ErrorKind = "CrsMismatch"
	ErrTimeout      ErrorKind = "Timeout"
	ErrRateLimited  ErrorKind = "RateLimited"
	ErrCircuitOpen  ErrorKind = "CircuitOpen"
	ErrUpstream     ErrorKind = "Upstream"
	ErrInternal     ErrorKind = "Internal"
)

// OutcomeKind tags which variant of ElevationOutcome is populated.
type OutcomeKind int

const (
	OutcomeFound OutcomeKind = iota
	OutcomeNotCovered
	OutcomeNoData
	OutcomeError
)

// ElevationOutcome is the sum type every data source returns, replacing
// exception-flow for "not found". Only a bug should ever produce a Go
// error from a DataSource: coverage gaps are outcomes, not errors.
type ElevationOutcome struct {
	Kind OutcomeKind

	// Found fields.
	ElevationM  float64
	SourceID    string
	ResolutionM float64
	DataType    DataType
	Message     string

	// NoData / Error fields.
	ErrKind ErrorKind
	Detail  string

	// RetryAfter is set by sources that received an explicit Retry-After
	// header (http_api_a/b on 429); the breaker honours it over the
	// configured recovery timeout when larger.
	RetryAfter *int
}

func Found(sourceID string, elevationM, resolutionM float64, dataType DataType, message string) ElevationOutcome {
	return ElevationOutcome{
		Kind:        OutcomeFound,
		ElevationM:  elevationM,
		SourceID:    sourceID,
		ResolutionM: resolutionM,
		DataType:    dataType,
		Message:     message,
	}
}

func NotCovered() ElevationOutcome {
	return ElevationOutcome{Kind: OutcomeNotCovered}
}

func NoData(sourceID string) ElevationOutcome {
	return ElevationOutcome{Kind: OutcomeNoData, SourceID: sourceID}
}

func Error(kind ErrorKind, sourceID, detail string) ElevationOutcome {
	return ElevationOutcome{Kind: OutcomeError, ErrKind: kind, SourceID: sourceID, Detail: detail}
}

func ErrorWithRetryAfter(kind ErrorKind, sourceID, detail string, retryAfterSeconds int) ElevationOutcome {
	o := Error(kind, sourceID, detail)
	o.RetryAfter = &retryAfterSeconds
	return o
}

// IsFailure reports whether this outcome should trip the owning circuit
// breaker. NotCovered and NoData are coverage gaps, not failures.
func (o ElevationOutcome) IsFailure() bool {
	return o.Kind == OutcomeError
}
