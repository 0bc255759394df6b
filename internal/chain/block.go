// Package chain implements the block/proof-of-work engine: the Block
// record and its header hash, the PoW predicate, block and full-chain
// validation with running-balance enforcement, genesis construction, and
// the cancellable mining loop.
package chain

import (
	"strings"

	"github.com/KNG60/KS-crytocurrency/internal/hashutil"
	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

// GenesisPrevHash is the 64 ASCII '0' characters standing in for "no
// parent" at height 0.
var GenesisPrevHash = strings.Repeat("0", 64)

// Block is one entry of the chain. Hash is derived, never set directly
// by a caller other than the constructors in this package.
type Block struct {
	Height     int64                   `json:"height"`
	PrevHash   string                  `json:"prev_hash"`
	Timestamp  int64                   `json:"timestamp"`
	Txs        []txn.SignedTransaction `json:"txs"`
	Nonce      int64                   `json:"nonce"`
	Difficulty int                     `json:"difficulty"`
	Miner      string                  `json:"miner"`
	Hash       string                  `json:"hash"`
}

// header returns every field except Hash, in the map shape hashutil.H
// expects. This is the exact byte-determinism contract: two nodes
// computing header() over equal blocks must get equal hashes.
func (b Block) header() map[string]any {
	txs := make([]any, len(b.Txs))
	for i, t := range b.Txs {
		txs[i] = t.Record()
	}
	return map[string]any{
		"height":     b.Height,
		"prev_hash":  b.PrevHash,
		"timestamp":  b.Timestamp,
		"txs":        txs,
		"nonce":      b.Nonce,
		"difficulty": b.Difficulty,
		"miner":      b.Miner,
	}
}

// DeriveHash recomputes and returns H(header), the value Hash must equal
// for the block to be well-formed (I2).
func (b Block) DeriveHash() string {
	return hashutil.H(b.header())
}

// SatisfiesPoW reports whether hash begins with difficulty ASCII '0'
// characters, the spec's proof-of-work predicate.
func SatisfiesPoW(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hash) < difficulty {
		return false
	}
	return strings.Count(hash[:difficulty], "0") == difficulty
}

// CreateGenesis builds the deterministic height-0 block: zero timestamp
// and a fixed miner name keep its hash identical across every node that
// constructs it independently. Difficulty is hardcoded to 0 rather than
// the package's configured Difficulty value, since genesis is never
// mined and must hash identically regardless of whatever difficulty a
// given node happens to run with.
func CreateGenesis() Block {
	b := Block{
		Height:     0,
		PrevHash:   GenesisPrevHash,
		Timestamp:  0,
		Txs:        nil,
		Nonce:      0,
		Difficulty: 0,
		Miner:      "genesis",
	}
	b.Hash = b.DeriveHash()
	return b
}
