// Package node is the process-wide orchestrator: it hosts the HTTP API,
// owns the mempool, drives the mining thread, executes the
// block-acceptance state machine (including orphan buffering and
// reorg), and runs bootstrap against seed peers.
package node

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
	"github.com/KNG60/KS-crytocurrency/internal/chainstore"
	"github.com/KNG60/KS-crytocurrency/internal/netclient"
	"github.com/KNG60/KS-crytocurrency/internal/peerstore"
)

// Role selects whether the node runs a mining thread.
type Role string

const (
	RoleNormal Role = "normal"
	RoleMiner  Role = "miner"
)

// Config holds the construction-time parameters for a Server, mirroring
// the node binary's CLI surface.
type Config struct {
	Host                  string
	Port                  string
	PublicKey             string
	Role                  Role
	SeedPeers             []netclient.Endpoint
	CentralizedManagerURL string
	BaseDir               string // directory holding chain_<port>.db and peers_<port>.db (default "db")

	MaxPeers          int
	MaxBootstrapPeers int
}

func (c Config) withDefaults() Config {
	if c.MaxPeers == 0 {
		c.MaxPeers = 5
	}
	if c.MaxBootstrapPeers == 0 {
		c.MaxBootstrapPeers = 3
	}
	if c.BaseDir == "" {
		c.BaseDir = "db"
	}
	return c
}

// Server is the single owned value holding every piece of node state:
// chain, mempool, peers, orphans, and the mining handle.
type Server struct {
	cfg Config
	log *logrus.Logger

	chainStore *chainstore.Store
	peerStore  *peerstore.Store
	mempool    *mempool
	orphans    *orphanPool
	net        *netclient.Client

	// chainMu serializes every chain mutation (append, replace, orphan
	// flush) together with its paired mempool purge with a single coarse
	// lock, so a reader never observes a chain update without its
	// matching mempool purge.
	chainMu sync.Mutex
	tip     chain.Block

	miningMu      sync.Mutex
	miningEnabled bool
	miningStop    *chain.StopSignal
	miningDone    chan struct{}
}

// New constructs a Server and opens its chain/peer stores, but does not
// yet run the startup sequence — call Start for that.
func New(cfg Config, log *logrus.Logger) (*Server, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logrus.StandardLogger()
	}

	chainStore, err := chainstore.Open(cfg.BaseDir, cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("node: opening chain store: %w", err)
	}
	peerStore, err := peerstore.Open(cfg.BaseDir, cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("node: opening peer store: %w", err)
	}

	return &Server{
		cfg:        cfg,
		log:        log,
		chainStore: chainStore,
		peerStore:  peerStore,
		mempool:    newMempool(),
		orphans:    newOrphanPool(),
		net:        netclient.New(),
	}, nil
}

// Close releases the underlying chain and peer databases.
func (s *Server) Close() error {
	err1 := s.chainStore.Close()
	err2 := s.peerStore.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Start runs the node's startup sequence: pull a longer chain from
// seed peers if one exists, otherwise persist genesis; populate known
// hashes; spawn bootstrap; start the miner if configured; register with
// the centralized manager if configured. It does not serve HTTP — call
// Router (http.go) and hand it to an http.Server separately, the way
// cmd/node does.
func (s *Server) Start(ctx context.Context) error {
	if err := s.loadOrBootstrapChain(ctx); err != nil {
		return err
	}

	blocks, err := s.chainStore.LoadChain()
	if err != nil {
		return fmt.Errorf("node: loading chain after startup: %w", err)
	}
	for _, b := range blocks {
		s.orphans.markKnown(b.Hash)
	}
	s.tip = blocks[len(blocks)-1]

	if len(s.cfg.SeedPeers) > 0 {
		go s.bootstrap(ctx)
	}
	if s.cfg.Role == RoleMiner {
		s.StartMining(ctx)
	}
	if s.cfg.CentralizedManagerURL != "" {
		go s.registerWithManager(ctx)
	}
	return nil
}

// loadOrBootstrapChain implements startup steps 1-2: pull a longer valid
// chain from a seed peer if one exists, otherwise, if the local store is
// still empty, create and persist genesis.
func (s *Server) loadOrBootstrapChain(ctx context.Context) error {
	existing, err := s.chainStore.LoadChain()
	if err != nil {
		return fmt.Errorf("node: loading existing chain: %w", err)
	}

	for _, peer := range s.cfg.SeedPeers {
		remote, err := s.net.FetchChain(ctx, peer)
		if err != nil || len(remote) <= len(existing) {
			continue
		}
		if idx, verr := chain.ValidateChain(remote); verr != nil {
			s.log.WithFields(logrus.Fields{"peer": peer, "index": idx, "err": verr}).Debug("startup: seed chain invalid")
			continue
		}
		if err := s.chainStore.ReplaceChain(remote); err != nil {
			return fmt.Errorf("node: persisting seed chain: %w", err)
		}
		// Best-effort: copy the seed's mempool too.
		if pending, err := s.net.FetchPending(ctx, peer); err == nil {
			for _, tx := range pending {
				_ = s.mempool.admit(tx, remote)
			}
		}
		return nil
	}
	if len(existing) > 0 {
		return nil
	}

	genesis := chain.CreateGenesis()
	if err := s.chainStore.SaveBlock(genesis); err != nil {
		return fmt.Errorf("node: persisting genesis: %w", err)
	}
	return nil
}

// registerWithManager posts /register-node with retries, the
// asynchronous startup step 6.
func (s *Server) registerWithManager(ctx context.Context) {
	own := netclient.PeerAddress{Host: s.cfg.Host, Port: s.cfg.Port}
	backoff := time.Second
	for attempt := 0; attempt < 5; attempt++ {
		if err := s.net.RegisterNode(ctx, s.cfg.CentralizedManagerURL, own); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
	s.log.Warn("node: giving up registering with centralized manager")
}

// notifyGraphManager is a fire-and-forget call made on every
// membership/chain state change, so the graph manager's topology view
// never drifts far from reality.
func (s *Server) notifyGraphManager(ctx context.Context) {
	if s.cfg.CentralizedManagerURL == "" {
		return
	}
	s.net.Notify(ctx, s.cfg.CentralizedManagerURL)
}

// shuffle returns a copy of endpoints in random order, used by
// bootstrap's peer-selection step.
func shuffle(endpoints []netclient.Endpoint) []netclient.Endpoint {
	out := append([]netclient.Endpoint{}, endpoints...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// selfAddress is own's {host, port}.
func (s *Server) selfAddress() netclient.PeerAddress {
	return netclient.PeerAddress{Host: s.cfg.Host, Port: s.cfg.Port}
}

// PublicKey returns the node's own public key (its mining identity).
func (s *Server) PublicKey() string { return s.cfg.PublicKey }
