package txn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignThenVerifyRoundTrips(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	tx, err := New(PublicKeyHex(priv.PubKey()), "recipient-key", NewAmountFromCoins(5, 0), 1000)
	require.NoError(t, err)

	signed, err := Sign(priv, tx)
	require.NoError(t, err)
	require.True(t, Verify(signed))
}

func TestVerifyRejectsTamperedAmount(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	tx, err := New(PublicKeyHex(priv.PubKey()), "recipient-key", NewAmountFromCoins(5, 0), 1000)
	require.NoError(t, err)
	signed, err := Sign(priv, tx)
	require.NoError(t, err)

	signed.Amount = NewAmountFromCoins(500, 0)
	require.False(t, Verify(signed))
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	other, err := GenerateKey()
	require.NoError(t, err)

	tx, err := New(PublicKeyHex(other.PubKey()), "recipient-key", NewAmountFromCoins(5, 0), 1000)
	require.NoError(t, err)
	signed, err := Sign(priv, tx)
	require.NoError(t, err)

	require.False(t, Verify(signed))
}

func TestCoinbaseVerifiesWithoutSender(t *testing.T) {
	cb := Coinbase("miner-key", NewAmountFromCoins(1, 0), 1000)
	require.True(t, cb.IsCoinbase())
	require.True(t, Verify(cb))
}

func TestNewRejectsNonPositiveAmount(t *testing.T) {
	_, err := New("sender-key", "recipient-key", 0, 1000)
	require.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = New("sender-key", "recipient-key", -1, 1000)
	require.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestTxidStableAcrossStructCopiesChangesOnMutation(t *testing.T) {
	tx, err := New("sender-key", "recipient-key", NewAmountFromCoins(1, 500000), 42)
	require.NoError(t, err)

	copy := tx
	require.Equal(t, tx.Txid(), copy.Txid())

	copy.Timestamp = 43
	require.NotEqual(t, tx.Txid(), copy.Txid())
}

func TestDecodeRoundTripsASignedTransaction(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	tx, err := New(PublicKeyHex(priv.PubKey()), "recipient-key", NewAmountFromCoins(2, 0), 500)
	require.NoError(t, err)
	signed, err := Sign(priv, tx)
	require.NoError(t, err)

	decoded, err := Decode(signed, signed.Txid())
	require.NoError(t, err)
	require.Equal(t, signed, decoded)
}

func TestDecodeRejectsTxidMismatch(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	tx, err := New(PublicKeyHex(priv.PubKey()), "recipient-key", NewAmountFromCoins(2, 0), 500)
	require.NoError(t, err)
	signed, err := Sign(priv, tx)
	require.NoError(t, err)

	_, err = Decode(signed, "not-the-real-txid")
	require.ErrorIs(t, err, ErrTxidMismatch)
}

func TestDecodeRejectsInvalidSignature(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	tx, err := New(PublicKeyHex(priv.PubKey()), "recipient-key", NewAmountFromCoins(2, 0), 500)
	require.NoError(t, err)
	signed, err := Sign(priv, tx)
	require.NoError(t, err)
	signed.Signature = "00"

	_, err = Decode(signed, signed.Txid())
	require.ErrorIs(t, err, ErrInvalidSignature)
}
