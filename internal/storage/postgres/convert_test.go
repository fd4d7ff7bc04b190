package postgres

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
)

func TestDecimalHelpers(t *testing.T) {
	if got := decimalText(nil); got != "0" {
		t.Fatalf("nil decimal = %s", got)
	}
	big := uint256.MustFromDecimal("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	if got := decimalText(big); got != big.Dec() {
		t.Fatalf("max decimal mismatch: %s", got)
	}
	if optionalDecimal(nil) != nil {
		t.Fatalf("expected nil optional")
	}
	if v := optionalDecimal(uint256.NewInt(5)); v == nil || *v != "5" {
		t.Fatalf("optional mismatch: %v", v)
	}
	if nullable("") != nil {
		t.Fatalf("expected nil for empty string")
	}
}

func TestNilCursorIsNoop(t *testing.T) {
	var cursor *Cursor
	if _, ok, err := cursor.Load(context.Background()); ok || err != nil {
		t.Fatalf("expected empty load, got %v %v", ok, err)
	}
	if err := cursor.Save(context.Background(), 10); err != nil {
		t.Fatalf("save: %v", err)
	}
}
