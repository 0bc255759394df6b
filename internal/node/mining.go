package node

import (
	"context"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

// StartMining launches the background mining thread if one is not
// already running. It loops while miningEnabled, mining against a fresh
// snapshot of the tip/mempool each round and restarting whenever its
// attempt is interrupted.
func (s *Server) StartMining(ctx context.Context) {
	s.miningMu.Lock()
	if s.miningEnabled {
		s.miningMu.Unlock()
		return
	}
	s.miningEnabled = true
	s.miningDone = make(chan struct{})
	done := s.miningDone
	s.miningMu.Unlock()

	go s.miningLoop(ctx, done)
}

// StopMining sets miningEnabled false; the current round finishes or is
// interrupted on its own, then the loop exits.
func (s *Server) StopMining() {
	s.miningMu.Lock()
	s.miningEnabled = false
	if s.miningStop != nil {
		s.miningStop.Stop()
	}
	s.miningMu.Unlock()
}

// MiningStatus reports whether the background miner is running.
func (s *Server) MiningStatus() (running bool, role Role) {
	s.miningMu.Lock()
	defer s.miningMu.Unlock()
	return s.miningEnabled, s.cfg.Role
}

func (s *Server) miningLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		s.miningMu.Lock()
		if !s.miningEnabled {
			s.miningMu.Unlock()
			return
		}
		stop := chain.NewStopSignal()
		s.miningStop = stop
		s.miningMu.Unlock()

		select {
		case <-ctx.Done():
			return
		default:
		}

		tip, pending := s.miningSnapshot()
		block, err := chain.MineNextBlock(tip, s.cfg.PublicKey, pending, stop)
		if err != nil {
			// Interrupted: restart the loop against the new tip/mempool.
			continue
		}

		if err := s.appendMinedBlock(ctx, block); err != nil {
			s.log.WithError(err).Warn("mining: failed to append locally-mined block")
		}
	}
}

// miningSnapshot takes a consistent snapshot of tip and mempool under
// chainMu, so a mining round never mixes a tip from one moment with
// mempool contents from another.
func (s *Server) miningSnapshot() (chain.Block, []txn.SignedTransaction) {
	s.chainMu.Lock()
	defer s.chainMu.Unlock()
	return s.tip, s.mempool.snapshot()
}

// interruptMiner sets the current mining round's stop signal, the
// mechanism every tip-changing event (append, reorg, /mine,
// mempool-crossing-threshold) uses to make the background miner restart
// against fresh state.
func (s *Server) interruptMiner() {
	s.miningMu.Lock()
	defer s.miningMu.Unlock()
	if s.miningStop != nil {
		s.miningStop.Stop()
	}
}

// MineOnce runs a single synchronous mining round on the calling
// goroutine, for the /mine endpoint. It ignores miningEnabled but still
// requires the miner role.
func (s *Server) MineOnce(ctx context.Context) (chain.Block, error) {
	tip, pending := s.miningSnapshot()
	stop := chain.NewStopSignal()
	block, err := chain.MineNextBlock(tip, s.cfg.PublicKey, pending, stop)
	if err != nil {
		return chain.Block{}, err
	}
	if err := s.appendMinedBlock(ctx, block); err != nil {
		return chain.Block{}, err
	}
	return block, nil
}
