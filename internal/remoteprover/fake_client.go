package remoteprover

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// FakeClient is an in-memory Client used by the bridge-prover and
// trace-generator tests to simulate submit/poll/fetch sequences and count
// calls per operation, which is how the "at-most-one remote job per
// (block, kind)" property is asserted without a live prover.
type FakeClient struct {
	mu sync.Mutex

	nextID        int64
	traceSubmits  int
	proofSubmits  int
	jobsByQuery   map[string][]JobRecord
	proofByQuery  map[string][]byte
	traceByQuery  map[string][]byte
	failTraceSubmit bool
	failProofSubmit bool
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		jobsByQuery:  make(map[string][]JobRecord),
		proofByQuery: make(map[string][]byte),
		traceByQuery: make(map[string][]byte),
	}
}

func (f *FakeClient) FailNextTraceSubmits(fail bool) { f.failTraceSubmit = fail }
func (f *FakeClient) FailNextProofSubmits(fail bool) { f.failProofSubmit = fail }

func (f *FakeClient) TraceSubmitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.traceSubmits
}

func (f *FakeClient) ProofSubmitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.proofSubmits
}

func (f *FakeClient) newQueryID() string {
	id := atomic.AddInt64(&f.nextID, 1)
	return fmt.Sprintf("query-%d", id)
}

func (f *FakeClient) SubmitTraceGeneration(_ context.Context, _ string, _, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTraceSubmit {
		return "", fmt.Errorf("simulated trace submit failure")
	}
	f.traceSubmits++
	id := f.newQueryID()
	f.jobsByQuery[id] = []JobRecord{{JobName: JobNameTraceGeneration, Status: JobInProgress}}
	f.traceByQuery[id] = []byte("trace-pie-" + id)
	return id, nil
}

func (f *FakeClient) SubmitProofGeneration(_ context.Context, _ []byte, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProofSubmit {
		return "", fmt.Errorf("simulated proof submit failure")
	}
	f.proofSubmits++
	id := f.newQueryID()
	f.jobsByQuery[id] = []JobRecord{{JobName: JobNameProofGeneration, Status: JobInProgress}}
	f.proofByQuery[id] = []byte("bridge-proof-" + id)
	return id, nil
}

// CompleteJob marks the named job for queryID as Completed so the next
// poll observes it. Tests call this to simulate the remote prover
// finishing work asynchronously.
func (f *FakeClient) CompleteJob(queryID string, name JobKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, j := range f.jobsByQuery[queryID] {
		if j.JobName == name {
			f.jobsByQuery[queryID][i].Status = JobCompleted
		}
	}
}

// FailJob marks the named job for queryID as Failed.
func (f *FakeClient) FailJob(queryID string, name JobKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, j := range f.jobsByQuery[queryID] {
		if j.JobName == name {
			f.jobsByQuery[queryID][i].Status = JobFailed
		}
	}
}

func (f *FakeClient) GetQueryJobs(_ context.Context, queryID string) ([]JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobs, ok := f.jobsByQuery[queryID]
	if !ok {
		return nil, fmt.Errorf("unknown query id %q", queryID)
	}
	return append([]JobRecord(nil), jobs...), nil
}

func (f *FakeClient) GetProof(_ context.Context, queryID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	proof, ok := f.proofByQuery[queryID]
	if !ok {
		return nil, fmt.Errorf("no proof for query id %q", queryID)
	}
	return proof, nil
}

func (f *FakeClient) GetTrace(_ context.Context, queryID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trace, ok := f.traceByQuery[queryID]
	if !ok {
		return nil, fmt.Errorf("no trace for query id %q", queryID)
	}
	return trace, nil
}

var _ Client = (*FakeClient)(nil)
