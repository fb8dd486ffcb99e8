package settlement

import (
	"crypto/rand"
	"math/big"

	"github.com/compose-network/proving-orchestrator/internal/pipeline"
)

// maxProofChunkBytes bounds a single integrity verification call,
// mirroring piltover.rs's `integrity::split_proof::<Layout>(...)`
// helper from the (out-of-scope) `integrity` crate: a proof too large
// for one call is sliced, with each chunk sent as its own transaction.
const maxProofChunkBytes = 24 * 1024

// splitProof slices a layout-bridge proof's raw bytes into chunks no
// larger than maxProofChunkBytes, the Go analogue of piltover.rs's
// `integrity::split_proof::<Layout>(...)`.
func splitProof(proof pipeline.ParsedStarkProof) [][]byte {
	raw := proof.Raw
	if len(raw) == 0 {
		return nil
	}

	chunks := make([][]byte, 0, (len(raw)/maxProofChunkBytes)+1)
	for start := 0; start < len(raw); start += maxProofChunkBytes {
		end := start + maxProofChunkBytes
		if end > len(raw) {
			end = len(raw)
		}
		chunks = append(chunks, raw[start:end])
	}
	return chunks
}

// call is one contract invocation, its calldata already packed by an
// ABI binding; the settlement stage sends one transaction per call.
type call struct {
	to       [20]byte
	calldata []byte
}

// randomJobID mints a fresh random integrity job id, the Go analogue of
// piltover.rs's `SigningKey::from_random().secret_scalar()` — a
// sufficiently unpredictable id is all that's required here, not a real
// signing key.
func randomJobID() (*big.Int, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(buf), nil
}
