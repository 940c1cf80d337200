package types

// ProducerState represents the state of a signal producer goroutine.
type ProducerState string

const (
	// ProducerStopped means the producer is not running.
	ProducerStopped ProducerState = "stopped"
	// ProducerDisabled means the producer's device was absent at startup.
	ProducerDisabled ProducerState = "disabled"
	// ProducerWaiting means the producer is blocked waiting for its next event.
	ProducerWaiting ProducerState = "waiting"
	// ProducerReconnecting means the device was lost and is being re-found.
	ProducerReconnecting ProducerState = "reconnecting"
	// ProducerError means the producer exited after an unrecoverable failure.
	ProducerError ProducerState = "error"
)

// ProducerStatus is a point-in-time view of one producer.
type ProducerStatus struct {
	Name  string        `json:"name"`
	State ProducerState `json:"state"`
}
