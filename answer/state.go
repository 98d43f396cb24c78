package answer

// State is a stage of answering one question.
type State int

const (
	StateStart State = iota
	StateCacheLookup
	StateCacheHit
	StateCacheMiss
	StateRetrieve
	StateGenerate
	StateStreamOut
	StateStore
	StateDone
	StateError
)

var stateNames = [...]string{
	StateStart:       "start",
	StateCacheLookup: "cache-lookup",
	StateCacheHit:    "cache-hit",
	StateCacheMiss:   "cache-miss",
	StateRetrieve:    "retrieve",
	StateGenerate:    "generate",
	StateStreamOut:   "stream-out",
	StateStore:       "store",
	StateDone:        "done",
	StateError:       "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}
