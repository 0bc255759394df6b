// Package walletkit is the external, non-core wallet tool's key
// management: labeled secp256k1 accounts, encrypted at rest, with a
// Base58Check display address. It makes no network calls; balance
// queries go through internal/netclient's FetchBalance.
package walletkit

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/KNG60/KS-crytocurrency/internal/txn"
)

// ErrAccountExists is returned by CreateAccount when label is already in
// use within this wallet file.
var ErrAccountExists = errors.New("walletkit: account already exists")

// ErrAccountNotFound is returned when label has no matching account.
var ErrAccountNotFound = errors.New("walletkit: account not found")

// Account is one labeled key pair, persisted with its private key
// encrypted at rest.
type Account struct {
	Label        string `json:"label"`
	PublicKeyHex string `json:"public_key_hex"`
	Address      string `json:"address"`

	EncryptedKey string `json:"encrypted_key"` // hex
	Salt         string `json:"salt"`          // hex
	Nonce        string `json:"nonce"`          // hex
}

// Wallet is a collection of labeled accounts persisted as a single JSON
// file.
type Wallet struct {
	mu       sync.Mutex
	path     string
	Accounts map[string]Account `json:"accounts"`
}

// Open loads the wallet file at path if it exists, or returns an empty
// wallet ready to be saved there.
func Open(path string) (*Wallet, error) {
	w := &Wallet{path: path, Accounts: make(map[string]Account)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("walletkit: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("walletkit: decoding %s: %w", path, err)
	}
	if w.Accounts == nil {
		w.Accounts = make(map[string]Account)
	}
	return w, nil
}

func (w *Wallet) save() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("walletkit: creating wallet directory: %w", err)
	}
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("walletkit: encoding wallet: %w", err)
	}
	return os.WriteFile(w.path, data, 0o600)
}

// CreateAccount generates a fresh secp256k1 key pair, encrypts the
// private key under passphrase, and persists it under label.
func (w *Wallet) CreateAccount(label, passphrase string) (Account, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.Accounts[label]; exists {
		return Account{}, ErrAccountExists
	}

	priv, err := txn.GenerateKey()
	if err != nil {
		return Account{}, fmt.Errorf("walletkit: generating key: %w", err)
	}
	pubHex := txn.PublicKeyHex(priv.PubKey())

	ciphertext, salt, nonce, err := encryptPrivateKey(priv.Serialize(), passphrase)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		Label:        label,
		PublicKeyHex: pubHex,
		Address:      Address(priv.PubKey().SerializeUncompressed()),
		EncryptedKey: hex.EncodeToString(ciphertext),
		Salt:         hex.EncodeToString(salt),
		Nonce:        hex.EncodeToString(nonce[:]),
	}
	w.Accounts[label] = account
	if err := w.save(); err != nil {
		return Account{}, err
	}
	return account, nil
}

// DeleteAccount removes label from the wallet.
func (w *Wallet) DeleteAccount(label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.Accounts[label]; !exists {
		return ErrAccountNotFound
	}
	delete(w.Accounts, label)
	return w.save()
}

// GetAccount returns the stored (public) record for label.
func (w *Wallet) GetAccount(label string) (Account, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	account, exists := w.Accounts[label]
	if !exists {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

// ListAccounts returns every account, ordered by label.
func (w *Wallet) ListAccounts() []Account {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Account, 0, len(w.Accounts))
	for _, a := range w.Accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Unlock decrypts label's private key with passphrase, returning
// ErrWrongPassphrase on mismatch.
func (w *Wallet) Unlock(label, passphrase string) (*btcec.PrivateKey, error) {
	account, err := w.GetAccount(label)
	if err != nil {
		return nil, err
	}

	ciphertext, err := hex.DecodeString(account.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("walletkit: malformed stored key: %w", err)
	}
	saltBytes, err := hex.DecodeString(account.Salt)
	if err != nil {
		return nil, fmt.Errorf("walletkit: malformed stored salt: %w", err)
	}
	nonceBytes, err := hex.DecodeString(account.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, fmt.Errorf("walletkit: malformed stored nonce: %w", err)
	}
	var nonce [24]byte
	copy(nonce[:], nonceBytes)

	plain, err := decryptPrivateKey(ciphertext, saltBytes, nonce, passphrase)
	if err != nil {
		return nil, err
	}
	priv, _ := btcec.PrivKeyFromBytes(plain)
	return priv, nil
}
