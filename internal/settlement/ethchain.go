package settlement

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthChainClient implements ChainClient over a live
// github.com/ethereum/go-ethereum ethclient.Client, using a single
// ECDSA key for sequential signing, standing in for the original's
// SingleOwnerAccount model.
type EthChainClient struct {
	eth        *ethclient.Client
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	account    common.Address
	pollEvery  time.Duration
}

// NewEthChainClient wires an ethclient.Client to a signing key. chainID
// is required up front (no implicit discovery) so every transaction is
// signed deterministically for the configured network.
func NewEthChainClient(eth *ethclient.Client, chainID *big.Int, privateKey *ecdsa.PrivateKey, pollEvery time.Duration) (*EthChainClient, error) {
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("invalid signing key: public key is not ECDSA")
	}
	if pollEvery <= 0 {
		pollEvery = time.Second
	}
	return &EthChainClient{
		eth:        eth,
		chainID:    chainID,
		privateKey: privateKey,
		account:    crypto.PubkeyToAddress(*publicKey),
		pollEvery:  pollEvery,
	}, nil
}

func (c *EthChainClient) Account() common.Address {
	return c.account
}

func (c *EthChainClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("fetch pending nonce: %w", err)
	}
	return nonce, nil
}

func (c *EthChainClient) SendTransaction(ctx context.Context, to common.Address, nonce uint64, calldata []byte) (common.Hash, error) {
	gasTipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas tip cap: %w", err)
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch latest header: %w", err)
	}
	gasFeeCap := new(big.Int).Add(gasTipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.account,
		To:   &to,
		Data: calldata,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &to,
		Data:      calldata,
	})

	signed, err := types.SignTx(tx, types.NewLondonSigner(c.chainID), c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast transaction: %w", err)
	}

	return signed.Hash(), nil
}

func (c *EthChainClient) WaitForReceipt(ctx context.Context, txHash common.Hash) (TxReceipt, error) {
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return TxReceipt{TransactionHash: txHash, ActualFee: effectiveFee(receipt)}, nil
		}

		select {
		case <-ctx.Done():
			return TxReceipt{}, ctx.Err()
		case <-time.After(c.pollEvery):
		}
	}
}

func effectiveFee(receipt *types.Receipt) *big.Int {
	if receipt == nil || receipt.EffectiveGasPrice == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(receipt.EffectiveGasPrice, new(big.Int).SetUint64(receipt.GasUsed))
}

func (c *EthChainClient) Call(ctx context.Context, to common.Address, calldata []byte) ([]byte, error) {
	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: calldata}, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract %s: %w", to.Hex(), err)
	}
	return result, nil
}

var _ ChainClient = (*EthChainClient)(nil)
