// Package peerstore is the BadgerDB-backed bounded peer set: upsert by
// (host, port), removal, and most-recent-first listing.
package peerstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

const peerPrefix = "peer:"

// Direction records whether a peer connection was initiated by us
// (outbound) or by them (inbound). It is stored with the peer only; it
// never gates admission and is not included in /peers or /info output.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Peer is one row of the peer set.
type Peer struct {
	Host      string    `json:"host"`
	Port      string    `json:"port"`
	Direction Direction `json:"direction,omitempty"`
	LastSeen  int64     `json:"last_seen"`
}

func (p Peer) key() string {
	return peerPrefix + p.Host + ":" + p.Port
}

// Store is a single node's peer database at db/peers_<port>.db.
type Store struct {
	db *badger.DB
}

// Open creates or reopens the peer store for port under baseDir, at
// db/peers_<port>.db.
func Open(baseDir, port string) (*Store, error) {
	path := filepath.Join(baseDir, fmt.Sprintf("peers_%s.db", port))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("peerstore: creating %s: %w", path, err)
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("peerstore: opening badger at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// nowFunc is overridden in tests for deterministic LastSeen ordering.
var nowFunc = defaultNow

// Add upserts (host, port), refreshing LastSeen and Direction.
func (s *Store) Add(host, port string, direction Direction) error {
	peer := Peer{Host: host, Port: port, Direction: direction, LastSeen: nowFunc()}
	encoded, err := json.Marshal(peer)
	if err != nil {
		return fmt.Errorf("peerstore: marshal peer %s:%s: %w", host, port, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(peer.key()), encoded)
	})
}

// Remove deletes (host, port) if present; removing an absent peer is a
// no-op, not an error.
func (s *Store) Remove(host, port string) error {
	key := Peer{Host: host, Port: port}.key()
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// GetAll returns every stored peer, most-recently-seen first.
func (s *Store) GetAll() ([]Peer, error) {
	var peers []Peer
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(peerPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p Peer
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			peers = append(peers, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("peerstore: listing peers: %w", err)
	}
	sort.SliceStable(peers, func(i, j int) bool {
		return peers[i].LastSeen > peers[j].LastSeen
	})
	return peers, nil
}

// Count returns the number of stored peers.
func (s *Store) Count() (int, error) {
	peers, err := s.GetAll()
	if err != nil {
		return 0, err
	}
	return len(peers), nil
}

// Has reports whether (host, port) is already a member.
func (s *Store) Has(host, port string) (bool, error) {
	key := Peer{Host: host, Port: port}.key()
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}
