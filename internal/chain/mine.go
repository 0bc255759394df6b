package chain

import (
	"errors"

	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

// ErrInterrupted is returned by MineNextBlock when stop fires before a
// valid nonce is found.
var ErrInterrupted = errors.New("chain: mining interrupted")

// StopSignal is a cooperative cancellation flag the mining loop polls
// between nonce attempts. A caller sets it via Stop(); Stopped() is safe
// to call concurrently.
type StopSignal struct {
	ch chan struct{}
}

// NewStopSignal returns a fresh, unset signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Stop marks the signal set. Idempotent.
func (s *StopSignal) Stop() {
	select {
	case <-s.ch:
	default:
		close(s.ch)
	}
}

// Stopped reports whether Stop has been called.
func (s *StopSignal) Stopped() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// nowFunc is overridden in tests to make mined timestamps deterministic.
var nowFunc = defaultNow

// MineNextBlock iterates nonce from 0, checking stop between every
// attempt, until it finds a hash satisfying SatisfiesPoW at Difficulty.
// The coinbase (paying MiningReward to minerPubKey) is always txs[0];
// mempool is appended after it. Returns ErrInterrupted if stop fires
// first.
func MineNextBlock(prev Block, minerPubKey string, mempool []txn.SignedTransaction, stop *StopSignal) (Block, error) {
	txs := make([]txn.SignedTransaction, 0, len(mempool)+1)
	txs = append(txs, txn.Coinbase(minerPubKey, MiningReward, nowFunc()))
	txs = append(txs, mempool...)

	block := Block{
		Height:     prev.Height + 1,
		PrevHash:   prev.Hash,
		Txs:        txs,
		Nonce:      0,
		Difficulty: Difficulty,
		Miner:      minerPubKey,
	}

	for nonce := int64(0); ; nonce++ {
		if stop.Stopped() {
			return Block{}, ErrInterrupted
		}
		block.Nonce = nonce
		block.Timestamp = nowFunc()
		hash := block.DeriveHash()
		if SatisfiesPoW(hash, block.Difficulty) {
			block.Hash = hash
			return block, nil
		}
	}
}
