// Package remoteprover defines the contract the layout-bridge stage and
// its trace generator use against a remote proving service: submit trace
// generation, submit proof generation, poll job status, and download the
// resulting proof or trace. The HTTP implementation is
// grounded on x/superblock/proofs/prover/http_client.go's request/response
// shape.
package remoteprover

import "context"

// JobStatus is the prover's reported state for a submitted job.
type JobStatus string

const (
	JobInProgress JobStatus = "InProgress"
	JobCompleted  JobStatus = "Completed"
	JobFailed     JobStatus = "Failed"
)

// JobKind names the logical operation a job represents, used to pick the
// right record out of GetQueryJobs' list by JobName.
type JobKind string

const (
	JobNameTraceGeneration JobKind = "TRACE_GENERATION"
	JobNameProofGeneration JobKind = "PROOF_GENERATION"
)

// JobRecord is one entry in the list GetQueryJobs returns; a single query
// id can fan out into more than one named sub-job.
type JobRecord struct {
	JobName JobKind
	Status  JobStatus
}

// Client is the remote prover API contract from SPEC_FULL.md §6.
type Client interface {
	SubmitTraceGeneration(ctx context.Context, label string, program, input []byte) (queryID string, err error)
	SubmitProofGeneration(ctx context.Context, pie []byte, layout, label string) (queryID string, err error)
	GetQueryJobs(ctx context.Context, queryID string) ([]JobRecord, error)
	GetProof(ctx context.Context, queryID string) ([]byte, error)
	GetTrace(ctx context.Context, queryID string) ([]byte, error)
}
