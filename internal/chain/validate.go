package chain

import (
	"fmt"

	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

// Difficulty is the fixed number of leading ASCII '0' characters a
// non-genesis block's hash must have. There is no retargeting: this
// value is constant for the life of the network. A package variable
// rather than a constant only so tests can lower it; production code
// never reassigns it.
var Difficulty = 5

// MiningReward is the fixed coinbase amount paid to a block's miner.
// There is no halving schedule.
var MiningReward = txn.NewAmountFromCoins(50, 0)

// MiningMin is the mempool size at which the node server should
// interrupt an in-flight mining round to pick up newly admitted
// transactions.
const MiningMin = 1

// Validate checks block against its declared predecessor. prev is nil
// only when validating the genesis block (height 0).
func Validate(block Block, prev *Block) error {
	if block.Height == 0 {
		return validateGenesis(block)
	}
	if prev == nil {
		return fmt.Errorf("%w: non-genesis block has no predecessor", ErrPrevHashMismatch)
	}
	if block.Height != prev.Height+1 {
		return ErrHeightMismatch
	}
	if block.PrevHash != prev.Hash {
		return ErrPrevHashMismatch
	}
	if block.Hash != block.DeriveHash() {
		return ErrHashMismatch
	}
	if !SatisfiesPoW(block.Hash, block.Difficulty) {
		return ErrPowFailure
	}
	return validateTxShape(block)
}

func validateGenesis(block Block) error {
	if block.PrevHash != GenesisPrevHash {
		return fmt.Errorf("%w: prev_hash is not the genesis sentinel", ErrGenesisShape)
	}
	if block.Hash != block.DeriveHash() {
		return ErrHashMismatch
	}
	return nil
}

// validateTxShape enforces I4/I5/I7-within-block: exactly one coinbase,
// first in list, paying MiningReward to block.Miner, and every
// transaction verifies.
func validateTxShape(block Block) error {
	if len(block.Txs) == 0 {
		return ErrEmptyTxs
	}
	first := block.Txs[0]
	if !first.IsCoinbase() {
		return ErrMissingCoinbase
	}
	if first.Amount != MiningReward || first.Recipient != block.Miner {
		return ErrCoinbaseShape
	}
	seenSignatures := make(map[string]struct{}, len(block.Txs))
	for i, tx := range block.Txs {
		if i > 0 && tx.IsCoinbase() {
			return ErrExtraCoinbase
		}
		if !txn.Verify(tx) {
			return ErrTxValidation
		}
		if _, dup := seenSignatures[tx.Signature]; dup {
			return ErrDuplicateTxInBlock
		}
		seenSignatures[tx.Signature] = struct{}{}
	}
	return nil
}

// ValidateChain walks blocks left to right, validating each against its
// predecessor and replaying balances to enforce I6 (no signer's balance
// ever goes negative) and I7 (no signature repeats across the whole
// chain). It returns the index of the first invalid block, or -1 if the
// whole chain is valid.
func ValidateChain(blocks []Block) (int, error) {
	balances := make(map[string]txn.Amount)
	signatures := make(map[string]struct{})

	var prev *Block
	for i, block := range blocks {
		if err := Validate(block, prev); err != nil {
			return i, err
		}
		for _, tx := range block.Txs {
			if !tx.IsCoinbase() {
				// The coinbase signature is always the fixed literal
				// marker, so it is expected to repeat across every block
				// and is excluded from the cross-chain uniqueness check
				// (I7).
				if _, dup := signatures[tx.Signature]; dup {
					return i, ErrDuplicateTxInBlock
				}
				signatures[tx.Signature] = struct{}{}

				balances[tx.Sender] -= tx.Amount
				if balances[tx.Sender] < 0 {
					return i, ErrBalanceUnderflow
				}
			}
			balances[tx.Recipient] += tx.Amount
		}
		b := block
		prev = &b
	}
	return -1, nil
}

// Balance replays every block in blocks plus every transaction in
// mempool (credits for recipient, debits for non-coinbase sender) and
// returns pubKey's resulting balance. Used by /balance and mempool
// admission's available-balance check.
func Balance(blocks []Block, mempool []txn.SignedTransaction, pubKey string) txn.Amount {
	var balance txn.Amount
	for _, block := range blocks {
		for _, tx := range block.Txs {
			applyDelta(&balance, tx, pubKey)
		}
	}
	for _, tx := range mempool {
		applyDelta(&balance, tx, pubKey)
	}
	return balance
}

func applyDelta(balance *txn.Amount, tx txn.SignedTransaction, pubKey string) {
	if tx.Recipient == pubKey {
		*balance += tx.Amount
	}
	if !tx.IsCoinbase() && tx.Sender == pubKey {
		*balance -= tx.Amount
	}
}
