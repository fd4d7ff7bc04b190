package funds

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestBookTransfer(t *testing.T) {
	book := NewBook()
	token := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")

	if err := book.Mint(token, alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := book.Transfer(context.Background(), token, alice, bob, uint256.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := book.BalanceOf(token, alice).Uint64(); got != 60 {
		t.Fatalf("alice balance %d", got)
	}
	if got := book.BalanceOf(token, bob).Uint64(); got != 40 {
		t.Fatalf("bob balance %d", got)
	}

	err := book.Transfer(context.Background(), token, bob, alice, uint256.NewInt(41))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := book.BalanceOf(token, bob).Uint64(); got != 40 {
		t.Fatalf("failed transfer changed balance: %d", got)
	}

	balances := book.Balances()
	if len(balances) != 2 || balances[0].Account != alice {
		t.Fatalf("unexpected balances: %+v", balances)
	}
}

func TestTreasury(t *testing.T) {
	book := NewBook()
	raffle := common.HexToAddress("0x9999999999999999999999999999999999999999")
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	treasury := Treasury{Book: book, Account: raffle}
	ctx := context.Background()

	if err := book.Mint(common.Address{}, owner, uint256.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := treasury.Collect(ctx, common.Address{}, owner, uint256.NewInt(10)); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if err := treasury.Pay(ctx, common.Address{}, owner, uint256.NewInt(3)); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if got := book.BalanceOf(common.Address{}, raffle).Uint64(); got != 7 {
		t.Fatalf("treasury balance %d", got)
	}
}

func TestBookRestore(t *testing.T) {
	token := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")

	src := NewBook()
	if err := src.Mint(token, alice, uint256.NewInt(7)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	dst := NewBook()
	if err := dst.Mint(token, common.HexToAddress("0x02"), uint256.NewInt(1)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := dst.Restore(src.Balances()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := dst.BalanceOf(token, alice).Uint64(); got != 7 {
		t.Fatalf("restored balance %d", got)
	}
	if len(dst.Balances()) != 1 {
		t.Fatalf("restore must replace existing balances")
	}
	if err := dst.Restore([]Balance{{Token: token, Account: alice}}); err == nil {
		t.Fatalf("expected missing amount error")
	}
}
