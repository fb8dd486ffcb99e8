package settlement

import (
	"crypto/sha256"
	"math/big"
)

// poseidonHashMany stands in for piltover.rs's
// starknet_crypto::poseidon_hash_many when a mocked layout-bridge proof
// is in play: the real STARK-friendly Poseidon hash is cryptographic
// proving machinery, out of scope for this module (see SPEC_FULL.md
// §1). A SHA-256 fold is used instead; it is only ever exercised behind
// Config.UseMockLayoutBridge, a test/dev escape hatch, never the
// production verification path.
func poseidonHashMany(felts []*big.Int) *big.Int {
	h := sha256.New()
	for _, f := range felts {
		if f == nil {
			continue
		}
		h.Write(f.Bytes())
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}
