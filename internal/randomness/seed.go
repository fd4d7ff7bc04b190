package randomness

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// HeaderSource reads block headers.
type HeaderSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// DeriveSeed mixes a block hash with the request id.
func DeriveSeed(blockHash common.Hash, requestID *uint256.Int) *uint256.Int {
	id := requestID.Bytes32()
	return new(uint256.Int).SetBytes(crypto.Keccak256(blockHash.Bytes(), id[:]))
}

// SeedFromBlock derives the operator seed for requestID from the hash of block
// blockNumber.
func SeedFromBlock(ctx context.Context, src HeaderSource, blockNumber uint64, requestID *uint256.Int) (*uint256.Int, error) {
	if src == nil {
		return nil, fmt.Errorf("header source is nil")
	}
	if requestID == nil {
		return nil, fmt.Errorf("request id is required")
	}
	header, err := src.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, fmt.Errorf("header %d: %w", blockNumber, err)
	}
	return DeriveSeed(header.Hash(), requestID), nil
}
