package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

func TestCreateGenesisSatisfiesItsOwnHash(t *testing.T) {
	g := CreateGenesis()
	require.Equal(t, g.DeriveHash(), g.Hash)
	require.Equal(t, GenesisPrevHash, g.PrevHash)
	require.NoError(t, Validate(g, nil))
}

func TestCreateGenesisIsDeterministic(t *testing.T) {
	require.Equal(t, CreateGenesis(), CreateGenesis())
}

func TestSatisfiesPoW(t *testing.T) {
	require.True(t, SatisfiesPoW("000001abc", 5))
	require.False(t, SatisfiesPoW("00001abc", 5))
	require.True(t, SatisfiesPoW("anything", 0))
}

func TestMineNextBlockProducesValidBlock(t *testing.T) {
	restoreDifficulty := Difficulty
	Difficulty = 1
	defer func() { Difficulty = restoreDifficulty }()

	genesis := CreateGenesis()
	stop := NewStopSignal()

	block, err := MineNextBlock(genesis, "miner-pubkey", nil, stop)
	require.NoError(t, err)
	require.Equal(t, int64(1), block.Height)
	require.Equal(t, genesis.Hash, block.PrevHash)
	require.True(t, SatisfiesPoW(block.Hash, Difficulty))
	require.NoError(t, Validate(block, &genesis))
}

func TestMineNextBlockHonorsStopSignalPromptly(t *testing.T) {
	restoreDifficulty := Difficulty
	Difficulty = 64 // unreachable within the test's timeout
	defer func() { Difficulty = restoreDifficulty }()

	genesis := CreateGenesis()
	stop := NewStopSignal()
	stop.Stop()

	start := time.Now()
	_, err := MineNextBlock(genesis, "miner-pubkey", nil, stop)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrInterrupted)
	require.Less(t, elapsed, 100*time.Millisecond)
}

func TestValidateRejectsWrongPrevHash(t *testing.T) {
	restoreDifficulty := Difficulty
	Difficulty = 1
	defer func() { Difficulty = restoreDifficulty }()

	genesis := CreateGenesis()
	stop := NewStopSignal()
	block, err := MineNextBlock(genesis, "miner-pubkey", nil, stop)
	require.NoError(t, err)

	block.PrevHash = "tampered"
	require.ErrorIs(t, Validate(block, &genesis), ErrPrevHashMismatch)
}

func TestValidateTxShapeRejectsBadCoinbaseAmount(t *testing.T) {
	restoreDifficulty := Difficulty
	Difficulty = 1
	defer func() { Difficulty = restoreDifficulty }()

	genesis := CreateGenesis()
	stop := NewStopSignal()
	block, err := MineNextBlock(genesis, "miner-pubkey", nil, stop)
	require.NoError(t, err)

	block.Txs[0].Amount = MiningReward * 2
	require.ErrorIs(t, validateTxShape(block), ErrCoinbaseShape)
}

func TestValidateChainWalksAndReportsEarliestFailure(t *testing.T) {
	restoreDifficulty := Difficulty
	Difficulty = 1
	defer func() { Difficulty = restoreDifficulty }()

	genesis := CreateGenesis()
	stop := NewStopSignal()
	b1, err := MineNextBlock(genesis, "miner-pubkey", nil, stop)
	require.NoError(t, err)

	idx, err := ValidateChain([]Block{genesis, b1})
	require.NoError(t, err)
	require.Equal(t, -1, idx)

	tampered := b1
	tampered.Height = 5
	idx, err = ValidateChain([]Block{genesis, tampered})
	require.Equal(t, 1, idx)
	require.ErrorIs(t, err, ErrHeightMismatch)
}

func TestValidateChainRejectsBalanceUnderflow(t *testing.T) {
	restoreDifficulty := Difficulty
	Difficulty = 1
	defer func() { Difficulty = restoreDifficulty }()

	priv, err := txn.GenerateKey()
	require.NoError(t, err)
	sender := txn.PublicKeyHex(priv.PubKey())

	genesis := CreateGenesis()
	stop := NewStopSignal()
	// Miner is not sender, so sender has a zero chain balance; any spend
	// by sender must fail the running-balance check.
	b1, err := MineNextBlock(genesis, "someone-else", nil, stop)
	require.NoError(t, err)

	overspend, err := txn.New(sender, "recipient", txn.NewAmountFromCoins(1, 0), 100)
	require.NoError(t, err)
	signed, err := txn.Sign(priv, overspend)
	require.NoError(t, err)

	b2 := Block{
		Height:     2,
		PrevHash:   b1.Hash,
		Txs:        append([]txn.SignedTransaction{txn.Coinbase("someone-else", MiningReward, 200)}, signed),
		Difficulty: 1,
		Miner:      "someone-else",
		Timestamp:  200,
	}
	for nonce := int64(0); ; nonce++ {
		b2.Nonce = nonce
		h := b2.DeriveHash()
		if SatisfiesPoW(h, 1) {
			b2.Hash = h
			break
		}
	}

	idx, err := ValidateChain([]Block{genesis, b1, b2})
	require.Equal(t, 2, idx)
	require.ErrorIs(t, err, ErrBalanceUnderflow)
}

func TestBalanceReplaysBlocksAndMempool(t *testing.T) {
	restoreDifficulty := Difficulty
	Difficulty = 1
	defer func() { Difficulty = restoreDifficulty }()

	priv, err := txn.GenerateKey()
	require.NoError(t, err)
	miner := txn.PublicKeyHex(priv.PubKey())

	genesis := CreateGenesis()
	stop := NewStopSignal()
	b1, err := MineNextBlock(genesis, miner, nil, stop)
	require.NoError(t, err)

	spend, err := txn.New(miner, "recipient-key", txn.NewAmountFromCoins(25, 0), 500)
	require.NoError(t, err)
	signedSpend, err := txn.Sign(priv, spend)
	require.NoError(t, err)

	balance := Balance([]Block{genesis, b1}, []txn.SignedTransaction{signedSpend}, miner)
	require.Equal(t, MiningReward-txn.NewAmountFromCoins(25, 0), balance)

	recipientBalance := Balance([]Block{genesis, b1}, []txn.SignedTransaction{signedSpend}, "recipient-key")
	require.Equal(t, txn.NewAmountFromCoins(25, 0), recipientBalance)
}
