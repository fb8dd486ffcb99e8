package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/compose-network/proving-orchestrator/internal/pipeline"
)

func TestSplitProof_RespectsChunkBound(t *testing.T) {
	for _, size := range []int{0, 1, maxProofChunkBytes, maxProofChunkBytes + 1, maxProofChunkBytes*3 + 17} {
		raw := make([]byte, size)
		chunks := splitProof(pipeline.ParsedStarkProof{Raw: raw})

		total := 0
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), maxProofChunkBytes)
			total += len(c)
		}
		assert.Equal(t, size, total, "chunking must not drop or duplicate bytes")
	}
}

func TestRandomJobID_Unique(t *testing.T) {
	a, err := randomJobID()
	assert.NoError(t, err)
	b, err := randomJobID()
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
