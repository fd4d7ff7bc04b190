package postgres

import (
	"context"

	"github.com/holiman/uint256"
)

func decimalText(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func optionalDecimal(v *uint256.Int) *string {
	if v == nil {
		return nil
	}
	text := v.Dec()
	return &text
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Cursor adapts a named indexer_state row to the indexer cursor interface.
type Cursor struct {
	Store *Store
	Key   string
}

func (c *Cursor) Load(ctx context.Context) (uint64, bool, error) {
	if c == nil || c.Store == nil {
		return 0, false, nil
	}
	return c.Store.LoadState(ctx, c.Key)
}

func (c *Cursor) Save(ctx context.Context, last uint64) error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.SaveState(ctx, c.Key, last)
}
