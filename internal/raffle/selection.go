package raffle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// WinnerSelector turns a drawn random value into the ordered winners of a round.
type WinnerSelector interface {
	// Draw derives winning ticket ids. Ids are distinct within one round.
	Draw(randomValue *uint256.Int, tickets uint64, winners int) []uint64
	// Resolve returns the winners to pay, given the owners of the drawn tickets
	// and the list submitted at settlement.
	Resolve(drawn, submitted []common.Address, winners int) ([]common.Address, error)
}

// TicketDraw selects winners by ticket ownership.
type TicketDraw struct{}

func (TicketDraw) Draw(randomValue *uint256.Int, tickets uint64, winners int) []uint64 {
	if tickets == 0 || winners <= 0 || randomValue == nil {
		return nil
	}
	count := uint64(winners)
	if count > tickets {
		count = tickets
	}

	n := uint256.NewInt(tickets)
	ids := make([]uint64, 0, count)
	taken := make(map[uint64]struct{}, count)
	for k := uint64(0); uint64(len(ids)) < count; k++ {
		var id uint64
		if k == 0 {
			id = new(uint256.Int).Mod(randomValue, n).Uint64()
		} else {
			id = new(uint256.Int).Mod(deriveWord(randomValue, k), n).Uint64()
		}
		for {
			if _, ok := taken[id]; !ok {
				break
			}
			id = (id + 1) % tickets
		}
		taken[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func (TicketDraw) Resolve(drawn, submitted []common.Address, _ int) ([]common.Address, error) {
	if len(submitted) == 0 {
		return append([]common.Address(nil), drawn...), nil
	}
	if len(submitted) != len(drawn) {
		return nil, fmt.Errorf("%w: got %d, drawn %d", ErrWinnerCountMismatch, len(submitted), len(drawn))
	}
	for i := range drawn {
		if submitted[i] != drawn[i] {
			return nil, fmt.Errorf("%w: rank %d", ErrWinnerMismatch, i)
		}
	}
	return append([]common.Address(nil), submitted...), nil
}

// OperatorList trusts the operator-submitted ranking.
type OperatorList struct{}

func (OperatorList) Draw(*uint256.Int, uint64, int) []uint64 {
	return nil
}

func (OperatorList) Resolve(_, submitted []common.Address, winners int) ([]common.Address, error) {
	if len(submitted) != winners {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWinnerCountMismatch, len(submitted), winners)
	}
	return append([]common.Address(nil), submitted...), nil
}

// deriveWord hashes (randomValue, k) into the k-th prize word.
func deriveWord(randomValue *uint256.Int, k uint64) *uint256.Int {
	seed := randomValue.Bytes32()
	index := uint256.NewInt(k).Bytes32()
	return new(uint256.Int).SetBytes(crypto.Keccak256(seed[:], index[:]))
}

func selectorFor(selection Selection) (WinnerSelector, error) {
	switch selection {
	case SelectionTicketDraw:
		return TicketDraw{}, nil
	case SelectionOperatorList:
		return OperatorList{}, nil
	default:
		return nil, fmt.Errorf("selection %q: %w", selection, ErrUnsupported)
	}
}
