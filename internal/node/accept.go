package node

import (
	"context"
	"errors"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
	"github.com/KNG60/KS-crytocurrency/internal/netclient"
)

// Acceptance outcomes returned by ReceiveBlock; these are also the
// exact strings POST /blocks reports back to the submitting peer.
const (
	StatusAccepted       = "accepted"
	StatusReorganized    = "reorganized"
	StatusOrphanBuffered = "orphan-buffered"
)

var (
	// ErrDuplicateBlock means the block's hash is already known (S1).
	ErrDuplicateBlock = errors.New("node: duplicate block")
	// ErrBlockRejected means none of S2-S5 accepted the block.
	ErrBlockRejected = errors.New("node: block rejected")
)

// ReceiveBlock runs the block-acceptance state machine S0-S5 against an
// already-decoded block. S0 (malformed_block on decode failure) is the
// HTTP layer's responsibility, since decoding happens before a Block
// value exists to pass here.
func (s *Server) ReceiveBlock(ctx context.Context, b chain.Block) (string, error) {
	// S1: duplicate.
	if s.orphans.isKnown(b.Hash) {
		return "", ErrDuplicateBlock
	}

	s.chainMu.Lock()
	tip := s.tip
	s.chainMu.Unlock()

	// S2: extends the current tip directly.
	if err := chain.Validate(b, &tip); err == nil {
		s.appendAndFlush(ctx, b)
		return StatusAccepted, nil
	}

	// S3: attaches to a known ancestor that is not the tip.
	if s.orphans.isKnown(b.PrevHash) {
		ancestor, ok := s.blockByHash(b.PrevHash)
		if ok {
			if err := chain.Validate(b, &ancestor); err == nil {
				s.orphans.buffer(b)
				if b.Height > tip.Height {
					if adopted, _, err := s.tryAdoptLongerChain(ctx, b.Height+1); err == nil && adopted {
						return StatusReorganized, nil
					}
				}
				return StatusOrphanBuffered, nil
			}
		}
	}

	// S4: unknown parent entirely — buffer speculatively.
	if !s.orphans.isKnown(b.PrevHash) {
		// Buffered without further checks: the HTTP layer (S0) only
		// verifies that the body decodes as a block.
		s.orphans.buffer(b)
		if b.Height >= tip.Height+1 {
			if adopted, _, err := s.tryAdoptLongerChain(ctx, b.Height+1); err == nil && adopted {
				return StatusReorganized, nil
			}
		}
		return StatusOrphanBuffered, nil
	}

	// S5: known ancestor exists but B failed isolated validation against
	// it; try a reorg anyway if B claims enough height, else reject.
	if b.Height >= tip.Height+1 {
		if adopted, _, err := s.tryAdoptLongerChain(ctx, b.Height+1); err == nil && adopted {
			return StatusReorganized, nil
		}
	}
	return "", ErrBlockRejected
}

// blockByHash scans the persisted chain for hash. Adequate at this
// system's scale; a larger deployment would index blocks by hash
// directly instead of scanning the height-ordered store.
func (s *Server) blockByHash(hash string) (chain.Block, bool) {
	blocks, err := s.chainStore.LoadChain()
	if err != nil {
		return chain.Block{}, false
	}
	for _, b := range blocks {
		if b.Hash == hash {
			return b, true
		}
	}
	return chain.Block{}, false
}

// appendAndFlush persists b as the new tip, purges its transactions from
// the mempool, then iteratively flushes any buffered orphans that now
// extend the chain — deterministically picking the smallest-hash
// candidate when siblings share a parent, leaving the rest buffered as
// forks. It then interrupts the miner so it restarts against the new
// tip, and broadcasts every appended block and notifies the graph
// manager.
func (s *Server) appendAndFlush(ctx context.Context, b chain.Block) {
	var appended []chain.Block

	s.chainMu.Lock()
	s.extendLocked(b)
	appended = append(appended, b)

	current := b
	for {
		candidates := s.orphans.take(current.Hash)
		if len(candidates) == 0 {
			break
		}
		winner := candidates[0]
		s.orphans.requeue(current.Hash, candidates[1:])
		s.extendLocked(winner)
		appended = append(appended, winner)
		current = winner
	}
	s.chainMu.Unlock()

	s.interruptMiner()
	s.broadcastAndNotify(ctx, appended)
}

// extendLocked persists b, updates the cached tip, marks its hash known,
// and purges its transactions from the mempool. Caller must hold
// chainMu.
func (s *Server) extendLocked(b chain.Block) {
	if err := s.chainStore.SaveBlock(b); err != nil {
		s.log.WithError(err).Error("node: failed to persist block")
		return
	}
	s.tip = b
	s.orphans.markKnown(b.Hash)
	s.mempool.purge(b.Txs)
}

// appendMinedBlock is the mining thread / synchronous /mine path's
// append: identical to appendAndFlush but starting from a block this
// node produced itself rather than received over the wire.
func (s *Server) appendMinedBlock(ctx context.Context, b chain.Block) error {
	s.appendAndFlush(ctx, b)
	return nil
}

func (s *Server) broadcastAndNotify(ctx context.Context, blocks []chain.Block) {
	peers := s.peerEndpoints()
	for _, b := range blocks {
		s.net.BroadcastBlock(ctx, peers, b)
	}
	s.notifyGraphManager(ctx)
}

// tryAdoptLongerChain fetches every candidate peer's chain, picks the
// longest one that is at least minTarget long, fully validates it, and
// atomically replaces the local chain if it checks out.
func (s *Server) tryAdoptLongerChain(ctx context.Context, minTarget int64) (adopted bool, newLength int, err error) {
	candidates := s.candidatePeers()

	var best []chain.Block
	for _, peer := range candidates {
		remote, err := s.net.FetchChain(ctx, peer)
		if err != nil {
			continue
		}
		if int64(len(remote)) < minTarget {
			continue
		}
		if len(remote) <= len(best) {
			continue
		}
		if idx, verr := chain.ValidateChain(remote); verr != nil {
			s.log.WithField("index", idx).WithError(verr).Debug("reorg: candidate chain failed validation")
			continue
		}
		best = remote
	}

	if best == nil {
		return false, 0, nil
	}

	s.chainMu.Lock()
	if err := s.chainStore.ReplaceChain(best); err != nil {
		s.chainMu.Unlock()
		return false, 0, err
	}
	s.tip = best[len(best)-1]
	for _, b := range best {
		s.orphans.markKnown(b.Hash)
		s.mempool.purge(b.Txs)
	}
	s.chainMu.Unlock()

	s.interruptMiner()
	s.notifyGraphManager(ctx)
	return true, len(best), nil
}

// candidatePeers returns the deduplicated union of configured seed
// peers and the current peer set, the pool a reorg checks for a longer
// chain.
func (s *Server) candidatePeers() []netclient.Endpoint {
	seen := make(map[string]struct{})
	var out []netclient.Endpoint
	add := func(e netclient.Endpoint) {
		key := e.Host + ":" + e.Port
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	for _, p := range s.cfg.SeedPeers {
		add(p)
	}
	for _, p := range s.peerEndpoints() {
		add(p)
	}
	return out
}
