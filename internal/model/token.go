package model

import "github.com/ethereum/go-ethereum/common"

// NativeToken is the descriptor address used for the chain's native asset.
var NativeToken = common.Address{}

// TokenDescriptor identifies a token and the scale of its amounts.
// Two descriptors are equal when their addresses are equal.
type TokenDescriptor struct {
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol,omitempty"`
	Name     string         `json:"name,omitempty"`
}

// IsNative reports whether the descriptor refers to the native asset.
func (t TokenDescriptor) IsNative() bool {
	return t.Address == NativeToken
}

// Same compares descriptors by address.
func (t TokenDescriptor) Same(other TokenDescriptor) bool {
	return t.Address == other.Address
}
