package node

import (
	"sync"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

// mempool is the node's set of admitted pending signed transactions,
// unordered and unique by signature.
type mempool struct {
	mu  sync.RWMutex
	txs map[string]txn.SignedTransaction // keyed by signature
}

func newMempool() *mempool {
	return &mempool{txs: make(map[string]txn.SignedTransaction)}
}

// admissionError is returned by admit when a transaction fails one of
// the mempool's admission rules.
type admissionError string

func (e admissionError) Error() string { return string(e) }

const (
	ErrCoinbaseExternallySubmitted admissionError = "node: coinbase cannot be submitted as a transaction"
	ErrDuplicateTransaction        admissionError = "node: duplicate transaction signature"
	ErrInsufficientBalance         admissionError = "node: insufficient balance"
)

// admit validates tx against the current chain tip and the rest of the
// mempool, then inserts it if it passes. chainBlocks is the canonical
// chain at the moment of admission.
func (m *mempool) admit(tx txn.SignedTransaction, chainBlocks []chain.Block) error {
	if tx.IsCoinbase() {
		return ErrCoinbaseExternallySubmitted
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.txs[tx.Signature]; dup {
		return ErrDuplicateTransaction
	}

	pending := m.snapshotLocked()
	balance := chain.Balance(chainBlocks, pending, tx.Sender)
	if balance-tx.Amount < 0 {
		return ErrInsufficientBalance
	}

	m.txs[tx.Signature] = tx
	return nil
}

// snapshot returns every pending transaction, in no particular order.
func (m *mempool) snapshot() []txn.SignedTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *mempool) snapshotLocked() []txn.SignedTransaction {
	out := make([]txn.SignedTransaction, 0, len(m.txs))
	for _, tx := range m.txs {
		out = append(out, tx)
	}
	return out
}

// size returns the number of pending transactions.
func (m *mempool) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

// purge removes every transaction in txs from the mempool, the action
// taken whenever a block containing them is appended or adopted so a
// confirmed transaction never lingers as still-pending.
func (m *mempool) purge(txs []txn.SignedTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range txs {
		delete(m.txs, tx.Signature)
	}
}
