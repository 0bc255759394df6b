package walletkit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAccountThenUnlockRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	w, err := Open(path)
	require.NoError(t, err)

	account, err := w.CreateAccount("alice", "correct-horse-battery-staple")
	require.NoError(t, err)
	require.Equal(t, "alice", account.Label)
	require.NotEmpty(t, account.Address)
	require.True(t, ValidateAddress(account.Address))

	priv, err := w.Unlock("alice", "correct-horse-battery-staple")
	require.NoError(t, err)
	require.NotNil(t, priv)
}

func TestUnlockRejectsWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	w, err := Open(path)
	require.NoError(t, err)

	_, err = w.CreateAccount("bob", "right-passphrase")
	require.NoError(t, err)

	_, err = w.Unlock("bob", "wrong-passphrase")
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestCreateAccountRejectsDuplicateLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	w, err := Open(path)
	require.NoError(t, err)

	_, err = w.CreateAccount("carol", "pw")
	require.NoError(t, err)
	_, err = w.CreateAccount("carol", "pw")
	require.ErrorIs(t, err, ErrAccountExists)
}

func TestWalletPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	w, err := Open(path)
	require.NoError(t, err)
	_, err = w.CreateAccount("dave", "pw")
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)
	accounts := reopened.ListAccounts()
	require.Len(t, accounts, 1)
	require.Equal(t, "dave", accounts[0].Label)
}

func TestDeleteAccountRemovesIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	w, err := Open(path)
	require.NoError(t, err)
	_, err = w.CreateAccount("erin", "pw")
	require.NoError(t, err)

	require.NoError(t, w.DeleteAccount("erin"))
	_, err = w.GetAccount("erin")
	require.ErrorIs(t, err, ErrAccountNotFound)

	err = w.DeleteAccount("erin")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestValidateAddressRejectsTamperedChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	w, err := Open(path)
	require.NoError(t, err)
	account, err := w.CreateAccount("frank", "pw")
	require.NoError(t, err)

	tampered := account.Address[:len(account.Address)-1] + "x"
	if tampered == account.Address {
		tampered = account.Address[:len(account.Address)-1] + "y"
	}
	require.False(t, ValidateAddress(tampered))
}
