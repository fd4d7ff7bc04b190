package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ForwardCall is the net part of a trade handed to the target protocol.
type ForwardCall struct {
	From   common.Address
	Token  common.Address
	Amount *uint256.Int
	Data   []byte
}

// Protocol is the target of routed trades.
type Protocol interface {
	Address() common.Address
	Forward(ctx context.Context, call ForwardCall) error
}

const stakingABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "user", "type": "address"},
      {"internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "stakeFor",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  }
]`

var (
	stakingABI     abi.ABI
	stakingABIOnce sync.Once
	stakingABIErr  error
)

// StakingABI returns the parsed staking protocol ABI.
func StakingABI() (abi.ABI, error) {
	stakingABIOnce.Do(func() {
		stakingABI, stakingABIErr = abi.JSON(strings.NewReader(stakingABIJSON))
	})
	return stakingABI, stakingABIErr
}

var ErrInvalidCalldata = errors.New("invalid protocol calldata")

// EncodeStakeFor packs a stakeFor(user, amount) call.
func EncodeStakeFor(user common.Address, amount *uint256.Int) ([]byte, error) {
	parsed, err := StakingABI()
	if err != nil {
		return nil, fmt.Errorf("parse staking abi: %w", err)
	}
	data, err := parsed.Pack("stakeFor", user, amount.ToBig())
	if err != nil {
		return nil, fmt.Errorf("pack stakeFor: %w", err)
	}
	return data, nil
}

// DecodeStakeFor unpacks stakeFor calldata.
func DecodeStakeFor(data []byte) (common.Address, *uint256.Int, error) {
	parsed, err := StakingABI()
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("parse staking abi: %w", err)
	}
	if len(data) < 4 {
		return common.Address{}, nil, fmt.Errorf("%w: short calldata", ErrInvalidCalldata)
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil || method.Name != "stakeFor" {
		return common.Address{}, nil, fmt.Errorf("%w: unknown selector %x", ErrInvalidCalldata, data[:4])
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: %v", ErrInvalidCalldata, err)
	}
	if len(values) != 2 {
		return common.Address{}, nil, fmt.Errorf("%w: unexpected arguments", ErrInvalidCalldata)
	}
	user, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("%w: user is %T", ErrInvalidCalldata, values[0])
	}
	amount, err := asUint256(values[1])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: %v", ErrInvalidCalldata, err)
	}
	return user, amount, nil
}

// StakingProtocol records stakeFor calls per user.
type StakingProtocol struct {
	mu      sync.RWMutex
	address common.Address
	staked  map[common.Address]*uint256.Int
}

func NewStakingProtocol(address common.Address) *StakingProtocol {
	return &StakingProtocol{
		address: address,
		staked:  make(map[common.Address]*uint256.Int),
	}
}

func (p *StakingProtocol) Address() common.Address {
	return p.address
}

// Forward decodes the calldata and stakes the requested amount for its user.
func (p *StakingProtocol) Forward(ctx context.Context, call ForwardCall) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	user, amount, err := DecodeStakeFor(call.Data)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	current, ok := p.staked[user]
	if !ok {
		current = new(uint256.Int)
	}
	next, overflow := new(uint256.Int).AddOverflow(current, amount)
	if overflow {
		return fmt.Errorf("stake for %s: overflow", user.Hex())
	}
	p.staked[user] = next
	return nil
}

// Staked returns the recorded stake of user.
func (p *StakingProtocol) Staked(user common.Address) *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if amount, ok := p.staked[user]; ok {
		return amount.Clone()
	}
	return new(uint256.Int)
}

func asUint256(value interface{}) (*uint256.Int, error) {
	v, ok := value.(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("unexpected amount type %T", value)
	}
	out, overflow := uint256.FromBig(v)
	if overflow || v.Sign() < 0 {
		return nil, fmt.Errorf("amount %s out of range", v)
	}
	return out, nil
}
