package shm

// ProducerState is the producer's terminal-state flag. It leaves
// ProducerRunning at most once.
type ProducerState uint32

const (
	ProducerRunning ProducerState = iota
	ProducerDone
	ProducerAborted
)

func (s ProducerState) String() string {
	switch s {
	case ProducerRunning:
		return "running"
	case ProducerDone:
		return "done"
	case ProducerAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ConsumerState tracks the consumer through
// Waiting -> Draining -> {Done, Partial, Aborted}.
type ConsumerState uint32

const (
	ConsumerWaiting ConsumerState = iota
	ConsumerDraining
	ConsumerDone
	// ConsumerPartial means the producer reported done before delivering
	// every announced byte.
	ConsumerPartial
	ConsumerAborted
)

// Terminal reports whether the consumer has stopped draining.
func (s ConsumerState) Terminal() bool {
	return s == ConsumerDone || s == ConsumerPartial || s == ConsumerAborted
}

func (s ConsumerState) String() string {
	switch s {
	case ConsumerWaiting:
		return "waiting"
	case ConsumerDraining:
		return "draining"
	case ConsumerDone:
		return "done"
	case ConsumerPartial:
		return "partial"
	case ConsumerAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
