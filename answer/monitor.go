package answer

// Monitor observes an answer as it moves through its states.
// Callbacks run on the goroutine ranging over the answer sequence.
type Monitor interface {
	Enter(state State)
}

// MonitorFunc adapts a function to Monitor.
type MonitorFunc func(state State)

func (f MonitorFunc) Enter(state State) { f(state) }

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Enter(_ State) {}
