package node

import (
	"context"
	"errors"

	"github.com/KNG60/KS-crytocurrency/internal/netclient"
	"github.com/KNG60/KS-crytocurrency/internal/peerstore"
)

// Peer admission failure kinds.
var (
	ErrSelfPeer          = errors.New("node: cannot add self as peer")
	ErrPeerLimitReached  = errors.New("node: peer limit reached")
	ErrPeerUnreachable   = errors.New("node: candidate peer did not respond to ping")
)

// peerEndpoints returns every stored peer as a netclient.Endpoint,
// most-recent-first.
func (s *Server) peerEndpoints() []netclient.Endpoint {
	peers, err := s.peerStore.GetAll()
	if err != nil {
		s.log.WithError(err).Warn("node: failed to list peers")
		return nil
	}
	out := make([]netclient.Endpoint, len(peers))
	for i, p := range peers {
		out[i] = netclient.Endpoint{Host: p.Host, Port: p.Port}
	}
	return out
}

// AdmitPeer is the POST /peers admission rule: reject self, evict
// unresponsive peers to make room under MaxPeers, require the
// candidate to answer a ping, then insert and notify.
func (s *Server) AdmitPeer(ctx context.Context, host, port string) error {
	if host == s.cfg.Host && port == s.cfg.Port {
		return ErrSelfPeer
	}

	count, err := s.peerStore.Count()
	if err != nil {
		return err
	}
	if count >= s.cfg.MaxPeers {
		s.evictUnresponsivePeers(ctx)
		count, err = s.peerStore.Count()
		if err != nil {
			return err
		}
		if count >= s.cfg.MaxPeers {
			return ErrPeerLimitReached
		}
	}

	if err := s.net.Ping(ctx, netclient.Endpoint{Host: host, Port: port}); err != nil {
		return ErrPeerUnreachable
	}

	if err := s.peerStore.Add(host, port, peerstore.DirectionInbound); err != nil {
		return err
	}
	s.notifyGraphManager(ctx)
	return nil
}

// evictUnresponsivePeers pings every currently stored peer and removes
// any that fail, making room for a new admission when the set is full.
func (s *Server) evictUnresponsivePeers(ctx context.Context) {
	peers, err := s.peerStore.GetAll()
	if err != nil {
		return
	}
	for _, p := range peers {
		if err := s.net.Ping(ctx, netclient.Endpoint{Host: p.Host, Port: p.Port}); err != nil {
			_ = s.peerStore.Remove(p.Host, p.Port)
		}
	}
}

// ListPeers returns the current peer set, most-recent-first.
func (s *Server) ListPeers() ([]netclient.PeerAddress, error) {
	peers, err := s.peerStore.GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]netclient.PeerAddress, len(peers))
	for i, p := range peers {
		out[i] = netclient.PeerAddress{Host: p.Host, Port: p.Port}
	}
	return out, nil
}
