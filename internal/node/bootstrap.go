package node

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/KNG60/KS-crytocurrency/internal/netclient"
	"github.com/KNG60/KS-crytocurrency/internal/peerstore"
)

// bootstrap is the background task run once at startup: union the
// configured seed peers with the peers each of them reports, shuffle,
// and register as inbound with candidates until MaxBootstrapPeers
// succeed.
func (s *Server) bootstrap(ctx context.Context) {
	candidates := s.collectBootstrapCandidates(ctx)
	candidates = shuffle(candidates)

	own := s.selfAddress()
	successes := 0
	for _, peer := range candidates {
		if successes >= s.cfg.MaxBootstrapPeers {
			return
		}
		if peer.Host == s.cfg.Host && peer.Port == s.cfg.Port {
			continue
		}
		if err := s.net.RegisterAsInbound(ctx, peer, own); err != nil {
			s.log.WithFields(logrus.Fields{"peer": peer, "err": err}).Debug("bootstrap: peer rejected registration")
			continue
		}
		if err := s.peerStore.Add(peer.Host, peer.Port, peerstore.DirectionOutbound); err != nil {
			s.log.WithError(err).Warn("bootstrap: failed to record peer")
			continue
		}
		successes++
		s.notifyGraphManager(ctx)
	}
}

// collectBootstrapCandidates unions the configured seed peers with the
// peer lists each seed reports, minus self.
func (s *Server) collectBootstrapCandidates(ctx context.Context) []netclient.Endpoint {
	seen := make(map[string]struct{})
	var out []netclient.Endpoint
	add := func(e netclient.Endpoint) {
		if e.Host == s.cfg.Host && e.Port == s.cfg.Port {
			return
		}
		key := e.Host + ":" + e.Port
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}

	for _, seed := range s.cfg.SeedPeers {
		add(seed)
		peers, err := s.net.FetchPeers(ctx, seed)
		if err != nil {
			continue
		}
		for _, p := range peers {
			add(netclient.Endpoint{Host: p.Host, Port: p.Port})
		}
	}
	return out
}
