package node

import (
	"context"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

// AddTransaction validates and admits tx to the mempool, gossips it to
// peers on success, and interrupts the miner if the mempool has just
// crossed chain.MiningMin.
func (s *Server) AddTransaction(ctx context.Context, tx txn.SignedTransaction) error {
	decoded, err := txn.Decode(tx, tx.Txid())
	if err != nil {
		return err
	}

	blocks, err := s.chainStore.LoadChain()
	if err != nil {
		return err
	}
	before := s.mempool.size()
	if err := s.mempool.admit(decoded, blocks); err != nil {
		return err
	}

	if before < chain.MiningMin && s.mempool.size() >= chain.MiningMin {
		s.interruptMiner()
	}

	s.net.BroadcastTransaction(ctx, s.peerEndpoints(), decoded)
	return nil
}

// Mempool returns a snapshot of every pending transaction, for GET
// /transactions.
func (s *Server) Mempool() []txn.SignedTransaction {
	return s.mempool.snapshot()
}

// Balance returns pubKey's chain+mempool balance, for GET
// /balance/{pubkey}.
func (s *Server) Balance(pubKey string) (txn.Amount, error) {
	blocks, err := s.chainStore.LoadChain()
	if err != nil {
		return 0, err
	}
	return chain.Balance(blocks, s.mempool.snapshot(), pubKey), nil
}

// Chain returns the full persisted chain, for GET /blocks.
func (s *Server) Chain() ([]chain.Block, error) {
	return s.chainStore.LoadChain()
}
