package settlement

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/proving-orchestrator/internal/pipeline"
)

// fakeChainClient is an in-memory ChainClient used by settlement tests
// to count transactions, assert sequential nonce usage, and simulate
// get_state responses without a live node.
type fakeChainClient struct {
	mu           sync.Mutex
	nonce        uint64
	sentNonces   []uint64
	txCount      int32
	account      common.Address
	callResponse []byte
}

func newFakeChainClient() *fakeChainClient {
	return &fakeChainClient{account: common.HexToAddress("0x1234")}
}

func (f *fakeChainClient) Account() common.Address { return f.account }

func (f *fakeChainClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeChainClient) SendTransaction(_ context.Context, _ common.Address, nonce uint64, _ []byte) (common.Hash, error) {
	f.mu.Lock()
	f.sentNonces = append(f.sentNonces, nonce)
	f.mu.Unlock()
	n := atomic.AddInt32(&f.txCount, 1)
	return common.BigToHash(big.NewInt(int64(n))), nil
}

func (f *fakeChainClient) WaitForReceipt(context.Context, common.Hash) (TxReceipt, error) {
	return TxReceipt{ActualFee: big.NewInt(100)}, nil
}

func (f *fakeChainClient) Call(context.Context, common.Address, []byte) ([]byte, error) {
	return f.callResponse, nil
}

func (f *fakeChainClient) TxCount() int {
	return int(atomic.LoadInt32(&f.txCount))
}

func (f *fakeChainClient) SentNonces() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.sentNonces...)
}

type identityProofCodec struct{}

func (identityProofCodec) CalculateOutput(pipeline.ParsedStarkProof) []*big.Int {
	return []*big.Int{big.NewInt(7)}
}
