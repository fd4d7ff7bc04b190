package model

// PoolMeta captures the immutable pool fields needed to price a swap.
type PoolMeta struct {
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
	Fee    uint32 `json:"fee"`
}

// Has reports whether token is one of the pool's two tokens.
func (m PoolMeta) Has(token string) bool {
	return token != "" && (equalFoldHex(m.Token0, token) || equalFoldHex(m.Token1, token))
}
