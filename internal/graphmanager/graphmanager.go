// Package graphmanager is the out-of-band topology aggregator: a small
// process that nodes self-register with, which crawls their /peers and
// /info endpoints and streams merged {nodes, edges} snapshots to
// observers over Server-Sent Events.
package graphmanager

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KNG60/KS-crytocurrency/internal/netclient"
)

// NodeID is "host:port", the graph manager's node identifier.
type NodeID string

func id(host, port string) NodeID { return NodeID(host + ":" + port) }

// NodeSnapshot is one crawled node's state, embedded in the graph JSON.
type NodeSnapshot struct {
	Reachable bool                   `json:"reachable"`
	Peers     []netclient.PeerAddress `json:"peers"`
	Info      map[string]any         `json:"info,omitempty"`
}

// GraphNode is one entry of the snapshot's "nodes" array.
type GraphNode struct {
	ID        NodeID         `json:"id"`
	Label     string         `json:"label"`
	Reachable bool           `json:"reachable"`
	Info      map[string]any `json:"info,omitempty"`
}

// GraphEdge is one undirected peer relation, deduplicated by sorted
// endpoint pair.
type GraphEdge struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}

// Graph is the full network topology snapshot served by /network-graph
// and streamed by /network-stream.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// crawlTimeout bounds each per-node /peers and /info call during a BFS
// crawl, keeping one unreachable node from stalling the whole snapshot.
const crawlTimeout = 2 * time.Second

// Manager owns the known-node set and the live SSE subscriber fan-out.
type Manager struct {
	log *logrus.Logger
	net *netclient.Client

	mu    sync.Mutex
	known map[NodeID]struct{}

	subMu sync.Mutex
	subs  map[chan Graph]struct{}
}

// New constructs a Manager. A nil logger falls back to the standard
// logrus logger.
func New(log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		log:   log,
		net:   netclient.New(),
		known: make(map[NodeID]struct{}),
		subs:  make(map[chan Graph]struct{}),
	}
}

// RegisterNode adds (host, port) to the known-node set, the entry point
// for a node's POST /register-node call. On first sight of this node it
// fans out a fresh snapshot to every SSE subscriber, in the background,
// so registration never blocks on a crawl.
func (m *Manager) RegisterNode(host, port string) {
	nodeID := id(host, port)

	m.mu.Lock()
	_, already := m.known[nodeID]
	if !already {
		m.known[nodeID] = struct{}{}
	}
	m.mu.Unlock()

	if !already {
		m.log.WithField("node", nodeID).Info("graphmanager: registered node")
		go m.broadcast()
	}
}

// Notify triggers an out-of-band snapshot push to every SSE subscriber,
// the entry point for POST /notify.
func (m *Manager) Notify() {
	go m.broadcast()
}

// Snapshot runs one BFS crawl of the known-node set and returns the
// resulting graph, the entry point for GET /network-graph.
func (m *Manager) Snapshot(ctx context.Context) Graph {
	return m.crawl(ctx)
}

// crawl performs a breadth-first walk starting from the known nodes:
// fetch /peers and /info from each, discover new nodes via peer lists,
// and build the deduplicated {nodes, edges} graph.
func (m *Manager) crawl(ctx context.Context) Graph {
	m.mu.Lock()
	toVisit := make([]NodeID, 0, len(m.known))
	for n := range m.known {
		toVisit = append(toVisit, n)
	}
	m.mu.Unlock()

	visited := make(map[NodeID]struct{})
	data := make(map[NodeID]NodeSnapshot)

	for len(toVisit) > 0 {
		nodeID := toVisit[0]
		toVisit = toVisit[1:]
		if _, seen := visited[nodeID]; seen {
			continue
		}
		visited[nodeID] = struct{}{}

		snap := m.crawlOne(ctx, nodeID)
		data[nodeID] = snap

		for _, p := range snap.Peers {
			peerID := id(p.Host, p.Port)
			if _, seen := visited[peerID]; !seen {
				toVisit = append(toVisit, peerID)
			}
		}
	}

	return Graph{
		Nodes: buildNodes(visited, data),
		Edges: buildEdges(data),
	}
}

func (m *Manager) crawlOne(ctx context.Context, nodeID NodeID) NodeSnapshot {
	host, port := splitID(nodeID)
	endpoint := netclient.Endpoint{Host: host, Port: port}

	crawlCtx, cancel := context.WithTimeout(ctx, crawlTimeout)
	defer cancel()

	peers, err := m.net.FetchPeers(crawlCtx, endpoint)
	if err != nil {
		m.log.WithFields(logrus.Fields{"node": nodeID, "err": err}).Debug("graphmanager: node unreachable")
		return NodeSnapshot{Reachable: false}
	}

	info, err := m.net.FetchInfo(crawlCtx, endpoint)
	if err != nil {
		info = nil
	}

	return NodeSnapshot{Reachable: true, Peers: peers, Info: info}
}

func buildNodes(visited map[NodeID]struct{}, data map[NodeID]NodeSnapshot) []GraphNode {
	ids := make([]NodeID, 0, len(visited))
	for n := range visited {
		ids = append(ids, n)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	nodes := make([]GraphNode, 0, len(ids))
	for _, n := range ids {
		snap := data[n]
		_, port := splitID(n)
		nodes = append(nodes, GraphNode{
			ID:        n,
			Label:     port,
			Reachable: snap.Reachable,
			Info:      snap.Info,
		})
	}
	return nodes
}

func buildEdges(data map[NodeID]NodeSnapshot) []GraphEdge {
	seen := make(map[[2]NodeID]struct{})
	var edges []GraphEdge
	for nodeID, snap := range data {
		if !snap.Reachable {
			continue
		}
		for _, p := range snap.Peers {
			peerID := id(p.Host, p.Port)
			pair := sortedPair(nodeID, peerID)
			if _, dup := seen[pair]; dup {
				continue
			}
			seen[pair] = struct{}{}
			edges = append(edges, GraphEdge{From: pair[0], To: pair[1]})
		}
	}
	return edges
}

func sortedPair(a, b NodeID) [2]NodeID {
	if a < b {
		return [2]NodeID{a, b}
	}
	return [2]NodeID{b, a}
}

func splitID(n NodeID) (host, port string) {
	s := string(n)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// broadcast crawls the network once and pushes the result to every live
// subscriber, dropping it for any subscriber whose buffer is full rather
// than blocking the crawl goroutine on a slow consumer.
func (m *Manager) broadcast() {
	graph := m.crawl(context.Background())

	m.subMu.Lock()
	defer m.subMu.Unlock()
	sent := 0
	for ch := range m.subs {
		select {
		case ch <- graph:
			sent++
		default:
			// Slow subscriber: drop this update rather than block.
		}
	}
	m.log.WithField("subscribers", sent).Info("graphmanager: snapshot pushed")
}

// subscribe registers a new SSE subscriber channel and returns it along
// with an unsubscribe function. Buffered to 1 so one update can wait
// while the subscriber is still writing the previous one; broadcast
// drops any further update until that slot is drained.
func (m *Manager) subscribe() (chan Graph, func()) {
	ch := make(chan Graph, 1)
	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()

	unsubscribe := func() {
		m.subMu.Lock()
		delete(m.subs, ch)
		m.subMu.Unlock()
		close(ch)
	}
	return ch, unsubscribe
}
