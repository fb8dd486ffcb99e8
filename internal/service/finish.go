// Package service holds the primitives shared by every pipeline stage:
// cooperative shutdown (FinishHandle / ShutdownController) and the
// retry-with-backoff helper used around fallible remote calls.
package service

import "sync"

// FinishHandle is owned by a single stage worker. It carries the shutdown
// request signal and the drain-complete barrier the controller waits on.
// The zero value is not usable; construct with NewFinishHandle.
type FinishHandle struct {
	shutdownCh chan struct{}
	shutdownOnce sync.Once

	finishCh chan struct{}
	finishOnce sync.Once
}

// NewFinishHandle creates a handle in the running state.
func NewFinishHandle() *FinishHandle {
	return &FinishHandle{
		shutdownCh: make(chan struct{}),
		finishCh:   make(chan struct{}),
	}
}

// ShutdownHandle returns the controller-facing view of this handle: a way
// to request shutdown and to wait for the drain to complete.
func (h *FinishHandle) ShutdownHandle() *ShutdownHandle {
	return &ShutdownHandle{owner: h}
}

// ShutdownRequested returns a channel that closes once shutdown has been
// requested. Select on it alongside channel sends/receives and sleeps.
func (h *FinishHandle) ShutdownRequested() <-chan struct{} {
	return h.shutdownCh
}

// IsShutdownRequested is a non-blocking probe, used between poll sleeps.
func (h *FinishHandle) IsShutdownRequested() bool {
	select {
	case <-h.shutdownCh:
		return true
	default:
		return false
	}
}

// Finish must be called exactly once, by the worker, when its main loop
// returns (whether by input-channel closure or by shutdown). It unblocks
// any ShutdownHandle.Wait call.
func (h *FinishHandle) Finish() {
	h.finishOnce.Do(func() { close(h.finishCh) })
}

func (h *FinishHandle) requestShutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdownCh) })
}

// ShutdownHandle is the controller-facing counterpart of a FinishHandle.
type ShutdownHandle struct {
	owner *FinishHandle
}

// Shutdown requests the owning stage to stop at its next selectable point.
// Safe to call more than once.
func (s *ShutdownHandle) Shutdown() {
	s.owner.requestShutdown()
}

// Wait blocks until the owning stage has called FinishHandle.Finish.
func (s *ShutdownHandle) Wait() {
	<-s.owner.finishCh
}
