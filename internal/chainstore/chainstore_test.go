package chainstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KNG60/KS-crytocurrency/internal/chain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), "5001")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveBlockThenGetLastBlock(t *testing.T) {
	s := openTestStore(t)

	genesis := chain.CreateGenesis()
	require.NoError(t, s.SaveBlock(genesis))

	last, ok, err := s.GetLastBlock()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, genesis, last)
}

func TestGetLastBlockEmptyStore(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.GetLastBlock()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveBlockIsIdempotentByHeight(t *testing.T) {
	s := openTestStore(t)

	genesis := chain.CreateGenesis()
	require.NoError(t, s.SaveBlock(genesis))
	require.NoError(t, s.SaveBlock(genesis))

	blocks, err := s.LoadChain()
	require.NoError(t, err)
	require.Len(t, blocks, 1)
}

func TestLoadChainOrdersByHeightAscending(t *testing.T) {
	s := openTestStore(t)

	genesis := chain.CreateGenesis()
	b1 := genesis
	b1.Height = 1
	b1.PrevHash = genesis.Hash
	b1.Hash = b1.DeriveHash()

	require.NoError(t, s.SaveBlock(b1))
	require.NoError(t, s.SaveBlock(genesis))

	blocks, err := s.LoadChain()
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, int64(0), blocks[0].Height)
	require.Equal(t, int64(1), blocks[1].Height)
}

func TestReplaceChainIsAllOrNothing(t *testing.T) {
	s := openTestStore(t)

	genesis := chain.CreateGenesis()
	require.NoError(t, s.SaveBlock(genesis))

	other := genesis
	other.Miner = "different-genesis"
	other.Hash = other.DeriveHash()

	require.NoError(t, s.ReplaceChain([]chain.Block{other}))

	blocks, err := s.LoadChain()
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, other, blocks[0])

	last, ok, err := s.GetLastBlock()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, other.Hash, last.Hash)
}
