package ingestion

// State is the phase of an ingestion run.
type State string

const (
	StateIdle              State = "IDLE"
	StateInit              State = "INIT"
	StateLoadingCheckpoint State = "LOADING_CHECKPOINT"
	StateStreaming         State = "STREAMING"
	StateDone              State = "DONE"
)
