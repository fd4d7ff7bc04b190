package funds

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// Balance is one (token, account) entry of a Book.
type Balance struct {
	Token   common.Address `json:"token"`
	Account common.Address `json:"account"`
	Amount  *uint256.Int   `json:"amount"`
}

// Book is an in-memory token balance ledger.
type Book struct {
	mu       sync.RWMutex
	balances map[common.Address]map[common.Address]*uint256.Int
}

func NewBook() *Book {
	return &Book{balances: make(map[common.Address]map[common.Address]*uint256.Int)}
}

// BalanceOf returns the balance of account in token.
func (b *Book) BalanceOf(token, account common.Address) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if amount, ok := b.balances[token][account]; ok {
		return amount.Clone()
	}
	return new(uint256.Int)
}

// Mint credits account with newly deposited funds.
func (b *Book) Mint(token, account common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	next, overflow := new(uint256.Int).AddOverflow(b.get(token, account), amount)
	if overflow {
		return fmt.Errorf("mint %s: balance overflow", account.Hex())
	}
	b.set(token, account, next)
	return nil
}

// Transfer moves amount from one account to another.
func (b *Book) Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	fromBalance := b.get(token, from)
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBalance, amount)
	}
	if from == to {
		return nil
	}
	toBalance, overflow := new(uint256.Int).AddOverflow(b.get(token, to), amount)
	if overflow {
		return fmt.Errorf("transfer to %s: balance overflow", to.Hex())
	}
	b.set(token, from, new(uint256.Int).Sub(fromBalance, amount))
	b.set(token, to, toBalance)
	return nil
}

// Balances lists every non-zero balance ordered by token then account.
func (b *Book) Balances() []Balance {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Balance
	for token, accounts := range b.balances {
		for account, amount := range accounts {
			if amount.IsZero() {
				continue
			}
			out = append(out, Balance{Token: token, Account: account, Amount: amount.Clone()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Token != out[j].Token {
			return out[i].Token.Hex() < out[j].Token.Hex()
		}
		return out[i].Account.Hex() < out[j].Account.Hex()
	})
	return out
}

func (b *Book) get(token, account common.Address) *uint256.Int {
	if amount, ok := b.balances[token][account]; ok {
		return amount
	}
	return new(uint256.Int)
}

func (b *Book) set(token, account common.Address, amount *uint256.Int) {
	accounts, ok := b.balances[token]
	if !ok {
		accounts = make(map[common.Address]*uint256.Int)
		b.balances[token] = accounts
	}
	accounts[account] = amount
}

// Treasury spends and receives on behalf of one account of a Book.
type Treasury struct {
	Book    *Book
	Account common.Address
}

func (t Treasury) Pay(ctx context.Context, token, to common.Address, amount *uint256.Int) error {
	return t.Book.Transfer(ctx, token, t.Account, to, amount)
}

func (t Treasury) Collect(ctx context.Context, token, from common.Address, amount *uint256.Int) error {
	return t.Book.Transfer(ctx, token, from, t.Account, amount)
}

// Restore replaces every balance with the given entries.
func (b *Book) Restore(balances []Balance) error {
	next := make(map[common.Address]map[common.Address]*uint256.Int)
	for _, bal := range balances {
		if bal.Amount == nil {
			return fmt.Errorf("restore %s: missing amount", bal.Account.Hex())
		}
		if next[bal.Token] == nil {
			next[bal.Token] = make(map[common.Address]*uint256.Int)
		}
		next[bal.Token][bal.Account] = bal.Amount.Clone()
	}
	b.mu.Lock()
	b.balances = next
	b.mu.Unlock()
	return nil
}
