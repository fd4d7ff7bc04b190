package fee

import (
	"errors"

	"github.com/holiman/uint256"
)

// HundredPercent is the basis point denominator.
const HundredPercent = 10_000

var (
	ErrInvalidFee = errors.New("invalid fee")
	ErrOverflow   = errors.New("arithmetic overflow")
)

var hundredPercent = uint256.NewInt(HundredPercent)

// ApplyTradeFee returns the gross amount whose detached net equals net.
func ApplyTradeFee(net *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if feeBps >= HundredPercent {
		return nil, ErrInvalidFee
	}
	return mulDiv(net, hundredPercent, uint256.NewInt(HundredPercent-feeBps))
}

// DetachTradeFee returns the part of gross that is forwarded to the target protocol.
func DetachTradeFee(gross *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if feeBps > HundredPercent {
		return nil, ErrInvalidFee
	}
	return mulDiv(gross, uint256.NewInt(HundredPercent-feeBps), hundredPercent)
}

// ProtocolFeeFromDelta returns the protocol share of a pot contribution.
func ProtocolFeeFromDelta(delta *uint256.Int, protocolFeeBps uint64) (*uint256.Int, error) {
	if protocolFeeBps > HundredPercent {
		return nil, ErrInvalidFee
	}
	return mulDiv(delta, uint256.NewInt(protocolFeeBps), hundredPercent)
}

// Split divides delta into the protocol fee and the pot increment.
// fee + increment == delta always holds.
func Split(delta *uint256.Int, protocolFeeBps uint64) (*uint256.Int, *uint256.Int, error) {
	protocolFee, err := ProtocolFeeFromDelta(delta, protocolFeeBps)
	if err != nil {
		return nil, nil, err
	}
	increment, err := Sub(delta, protocolFee)
	if err != nil {
		return nil, nil, err
	}
	return protocolFee, increment, nil
}

// TradeAmountFromPotDelta sizes a trade that yields potDelta at the given trade fee.
func TradeAmountFromPotDelta(potDelta *uint256.Int, tradeFeeBps uint64) (*uint256.Int, error) {
	if tradeFeeBps == 0 || tradeFeeBps > HundredPercent {
		return nil, ErrInvalidFee
	}
	return mulDiv(potDelta, hundredPercent, uint256.NewInt(tradeFeeBps))
}

// Add returns x+y or ErrOverflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns x-y or ErrOverflow when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDiv returns x*y/d truncated, with a 512-bit intermediate product.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	return mulDiv(x, y, d)
}

func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrInvalidFee
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}
