package chainservice

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/everclearorg/mark-sub000/internal/domain/rebalance"
)

// MemChainService is an in-memory ChainService reference implementation
// for tests and `cmd/rebalancer -dev`. Every submission is recorded and
// succeeds unless the (chainID, To) pair has been pre-configured to fail
// via FailNext.
type MemChainService struct {
	mu       sync.Mutex
	nextHash uint64
	fail     map[string]error
	history  []submission
}

type submission struct {
	ChainID int64
	Request TxRequest
}

// NewMemChainService constructs an empty in-memory ChainService.
func NewMemChainService() *MemChainService {
	return &MemChainService{fail: make(map[string]error)}
}

// FailNext arranges for the next submission on chainID targeting to, to
// fail with err.
func (m *MemChainService) FailNext(chainID int64, to string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[key(chainID, to)] = err
}

func key(chainID int64, to string) string {
	return fmt.Sprintf("%d:%s", chainID, to)
}

func (m *MemChainService) SubmitAndMonitor(ctx context.Context, chainID int64, req TxRequest) (rebalance.Receipt, error) {
	select {
	case <-ctx.Done():
		return rebalance.Receipt{}, ctx.Err()
	default:
	}

	m.mu.Lock()
	m.history = append(m.history, submission{ChainID: chainID, Request: req})
	k := key(chainID, req.To)
	if err, ok := m.fail[k]; ok {
		delete(m.fail, k)
		m.mu.Unlock()
		return rebalance.Receipt{
			TransactionHash: m.nextTxHash(),
			Status:          "failed",
		}, err
	}
	m.mu.Unlock()

	return rebalance.Receipt{
		TransactionHash:   m.nextTxHash(),
		BlockNumber:       m.nextBlock(),
		Status:            "success",
		CumulativeGasUsed: 21000,
	}, nil
}

func (m *MemChainService) nextTxHash() string {
	n := atomic.AddUint64(&m.nextHash, 1)
	return fmt.Sprintf("0xtx%08d", n)
}

func (m *MemChainService) nextBlock() uint64 {
	return atomic.LoadUint64(&m.nextHash) + 1_000_000
}

// History returns every submission observed so far, for test assertions.
func (m *MemChainService) History() []TxRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TxRequest, 0, len(m.history))
	for _, s := range m.history {
		out = append(out, s.Request)
	}
	return out
}

var _ ChainService = (*MemChainService)(nil)
