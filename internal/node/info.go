package node

import (
	"github.com/KNG60/KS-crytocurrency/internal/chain"
	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

// Info is the GET /info response shape.
type Info struct {
	PublicKey           string                  `json:"public_key"`
	Balance             txn.Amount              `json:"balance"`
	Role                Role                    `json:"role"`
	Chain               []chain.Block           `json:"chain"`
	PendingTransactions []txn.SignedTransaction `json:"pending_transactions"`
	Forks               []chain.Block           `json:"forks"`
}

// GetInfo assembles the current node-info snapshot.
func (s *Server) GetInfo() (Info, error) {
	blocks, err := s.chainStore.LoadChain()
	if err != nil {
		return Info{}, err
	}
	pending := s.mempool.snapshot()
	balance := chain.Balance(blocks, pending, s.cfg.PublicKey)
	return Info{
		PublicKey:           s.cfg.PublicKey,
		Balance:             balance,
		Role:                s.cfg.Role,
		Chain:               blocks,
		PendingTransactions: pending,
		Forks:               s.orphans.forksSnapshot(),
	}, nil
}
