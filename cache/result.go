package cache

// Status is the outcome of a cache lookup.
type Status int

const (
	// LookupMiss means no stored question was similar enough.
	LookupMiss Status = iota
	// LookupHit means a stored answer was found.
	LookupHit
	// LookupUnavailable means the cache could not be consulted.
	LookupUnavailable
)

func (s Status) String() string {
	switch s {
	case LookupMiss:
		return "miss"
	case LookupHit:
		return "hit"
	case LookupUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// LookupResult describes a cache lookup.
// RecordID, Question, Answer and Score are set only for a hit; Err only when unavailable.
type LookupResult struct {
	Status   Status
	RecordID string
	Question string
	Answer   string
	Score    float32
	Err      error
}
