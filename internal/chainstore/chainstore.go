// Package chainstore is the BadgerDB-backed append-only block store: an
// ordered-by-height insert, an atomic whole-chain swap, and tip lookup.
package chainstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
)

const (
	blockPrefix = "block:"
	lastHashKey = "lh"
)

// Store is a single node's chain database at db/chain_<port>.db.
type Store struct {
	db *badger.DB
}

// Open creates or reopens the chain store for port under baseDir, at
// db/chain_<port>.db.
func Open(baseDir, port string) (*Store, error) {
	path := filepath.Join(baseDir, fmt.Sprintf("chain_%s.db", port))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("chainstore: creating %s: %w", path, err)
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("chainstore: opening badger at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func heightKey(height int64) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], uint64(height))
	return key
}

// SaveBlock inserts b keyed by height, overwriting any existing entry at
// that height — idempotent for repeated delivery of the same block.
func (s *Store) SaveBlock(b chain.Block) error {
	encoded, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("chainstore: marshal block %d: %w", b.Height, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(heightKey(b.Height), encoded); err != nil {
			return err
		}
		return txn.Set([]byte(lastHashKey), []byte(b.Hash))
	})
}

// ReplaceChain atomically swaps the stored chain for newChain: within a
// single Badger transaction every existing block key is deleted and the
// replacement set is written, so a concurrent reader observes either the
// whole old chain or the whole new one, never a mixture.
func (s *Store) ReplaceChain(newChain []chain.Block) error {
	return s.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(blockPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		var staleKeys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			staleKeys = append(staleKeys, append([]byte{}, it.Item().Key()...))
		}
		it.Close()

		for _, k := range staleKeys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for _, b := range newChain {
			encoded, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("chainstore: marshal block %d: %w", b.Height, err)
			}
			if err := txn.Set(heightKey(b.Height), encoded); err != nil {
				return err
			}
		}
		if len(newChain) > 0 {
			return txn.Set([]byte(lastHashKey), []byte(newChain[len(newChain)-1].Hash))
		}
		return txn.Delete([]byte(lastHashKey))
	})
}

// LoadChain returns every stored block ordered by height ascending.
func (s *Store) LoadChain() ([]chain.Block, error) {
	var blocks []chain.Block
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(blockPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var b chain.Block
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &b)
			}); err != nil {
				return err
			}
			blocks = append(blocks, b)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chainstore: loading chain: %w", err)
	}
	return blocks, nil
}

// GetLastBlock returns the highest-height stored block. ok is false if
// the store is empty (no genesis persisted yet).
func (s *Store) GetLastBlock() (block chain.Block, ok bool, err error) {
	blocks, err := s.LoadChain()
	if err != nil {
		return chain.Block{}, false, err
	}
	if len(blocks) == 0 {
		return chain.Block{}, false, nil
	}
	return blocks[len(blocks)-1], true, nil
}
