package rpcclient

import "context"

// DefaultTraceFunc is the TraceFunc the orchestrator binary wires when no
// dedicated SNOS re-execution client is configured. It returns an empty
// trace rather than ErrBlockNotFound so the ingestor can still exercise
// the rest of the pipeline end to end against a real L1 client.
func DefaultTraceFunc(_ context.Context, _ uint64) ([]byte, error) {
	return []byte{}, nil
}
