package balances

import (
	"context"
	"math/big"
	"sync"
)

// MemChainReader is an in-memory ChainReader reference implementation for
// tests and `cmd/rebalancer -dev`, mirroring internal/chainservice's
// MemChainService: fixed balances seeded up front, with a thread-safe
// Set for tests that need to move the needle mid-run.
type MemChainReader struct {
	mu       sync.Mutex
	native   map[string]*big.Int
	balances map[string]*big.Int // key: tokenAddress + ":" + owner
}

// NewMemChainReader constructs an empty MemChainReader; every balance
// defaults to zero until seeded via SetNative/SetToken.
func NewMemChainReader() *MemChainReader {
	return &MemChainReader{
		native:   make(map[string]*big.Int),
		balances: make(map[string]*big.Int),
	}
}

// SetNative seeds owner's native balance.
func (m *MemChainReader) SetNative(owner string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.native[owner] = amount
}

// SetToken seeds owner's balance of tokenAddress.
func (m *MemChainReader) SetToken(tokenAddress, owner string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[tokenAddress+":"+owner] = amount
}

func (m *MemChainReader) NativeBalance(ctx context.Context, owner string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount, ok := m.native[owner]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}

func (m *MemChainReader) TokenBalance(ctx context.Context, tokenAddress, owner string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount, ok := m.balances[tokenAddress+":"+owner]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}

var _ ChainReader = (*MemChainReader)(nil)
