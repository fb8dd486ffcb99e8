package service

import (
	"sync"

	"github.com/rs/zerolog"
)

// ShutdownController fans a single shutdown request out to every stage it
// is told about, and lets the caller await every stage's drain. It applies
// the cancel+WaitGroup shutdown idiom across an arbitrary number of stage
// handles instead of one fixed worker pool.
type ShutdownController struct {
	mu       sync.Mutex
	handles  []*ShutdownHandle
	log      zerolog.Logger
	shutdown bool
}

// NewShutdownController constructs an empty controller.
func NewShutdownController(log zerolog.Logger) *ShutdownController {
	return &ShutdownController{
		log: log.With().Str("component", "shutdown-controller").Logger(),
	}
}

// Register adds a stage's handle to the fan-out set. Call before Shutdown.
func (c *ShutdownController) Register(h *ShutdownHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles = append(c.handles, h)
}

// Shutdown requests every registered stage to stop and blocks until each
// one has drained. Idempotent: a second call is a no-op.
func (c *ShutdownController) Shutdown() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.shutdown = true
	handles := append([]*ShutdownHandle(nil), c.handles...)
	c.mu.Unlock()

	c.log.Info().Int("stages", len(handles)).Msg("Shutdown requested, fanning out")
	for _, h := range handles {
		h.Shutdown()
	}

	var wg sync.WaitGroup
	wg.Add(len(handles))
	for _, h := range handles {
		h := h
		go func() {
			defer wg.Done()
			h.Wait()
		}()
	}
	wg.Wait()
	c.log.Info().Msg("All stages drained")
}
