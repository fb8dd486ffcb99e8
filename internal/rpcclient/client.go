// Package rpcclient defines the upstream-chain contract the block
// ingestor polls against: fetch a block's transaction count and obtain
// its SNOS execution trace (PIE). The concrete upstream RPC semantics are
// out of scope for this module (see SPEC_FULL.md §1); this package only
// fixes the interface and an ethclient-backed adapter for the
// transaction-count half, grounded on the ethclient usage in
// x/superblock/batch/listener.go.
package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// ErrBlockNotFound is returned by ProveBlock when the requested block has
// not been produced by the upstream chain yet; the ingestor treats this
// as expected and does not log it as an error.
var ErrBlockNotFound = errors.New("rpcclient: block not found")

// SnosTraceClient is the contract the block ingestor polls against.
// ProveBlock returns the block's PIE trace bytes and its transaction
// count; a real implementation performs SNOS re-execution (out of scope
// here) against an upstream Starknet-style RPC endpoint.
type SnosTraceClient interface {
	ProveBlock(ctx context.Context, blockNumber uint64) (pie []byte, nTxs uint64, err error)
}

// Client wraps an ethclient.Client for the transaction-count half of the
// contract; SNOS trace generation itself must be supplied by the caller
// (TraceFunc) since it is out of scope for this module.
type Client struct {
	eth  *ethclient.Client
	log  zerolog.Logger
	// TraceFunc performs the out-of-scope SNOS re-execution step. It must
	// return ErrBlockNotFound (wrapped or not) when the block does not
	// exist yet so the ingestor's backoff-and-retry loop engages.
	TraceFunc func(ctx context.Context, blockNumber uint64) ([]byte, error)
}

func New(eth *ethclient.Client, log zerolog.Logger, traceFunc func(context.Context, uint64) ([]byte, error)) *Client {
	return &Client{
		eth:       eth,
		log:       log.With().Str("component", "rpc-client").Logger(),
		TraceFunc: traceFunc,
	}
}

func (c *Client) ProveBlock(ctx context.Context, blockNumber uint64) ([]byte, uint64, error) {
	if c.TraceFunc == nil {
		return nil, 0, fmt.Errorf("rpcclient: no trace function configured")
	}

	pie, err := c.TraceFunc(ctx, blockNumber)
	if err != nil {
		return nil, 0, err
	}

	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, 0, fmt.Errorf("fetch header for block %d: %w", blockNumber, err)
	}

	block, err := c.eth.BlockByHash(ctx, header.Hash())
	if err != nil {
		return nil, 0, fmt.Errorf("fetch block body for %d: %w", blockNumber, err)
	}

	return pie, uint64(len(block.Transactions())), nil
}

var _ SnosTraceClient = (*Client)(nil)
