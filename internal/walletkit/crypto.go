package walletkit

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// ErrWrongPassphrase is returned by decryptPrivateKey when the passphrase
// does not open the stored ciphertext (wrong password or corrupted file).
var ErrWrongPassphrase = errors.New("walletkit: wrong passphrase or corrupted account")

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32

	saltLength = 16
)

// deriveKey stretches passphrase with salt into a secretbox key via
// scrypt.
func deriveKey(passphrase string, salt []byte) (*[32]byte, error) {
	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("walletkit: deriving key: %w", err)
	}
	var key [32]byte
	copy(key[:], derived)
	return &key, nil
}

// encryptPrivateKey seals privKeyBytes under a fresh random salt and
// nonce, returning the values to persist in an Account record.
func encryptPrivateKey(privKeyBytes []byte, passphrase string) (ciphertext, salt []byte, nonce [24]byte, err error) {
	salt = make([]byte, saltLength)
	if _, err = rand.Read(salt); err != nil {
		return nil, nil, nonce, fmt.Errorf("walletkit: generating salt: %w", err)
	}
	if _, err = rand.Read(nonce[:]); err != nil {
		return nil, nil, nonce, fmt.Errorf("walletkit: generating nonce: %w", err)
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, nil, nonce, err
	}
	ciphertext = secretbox.Seal(nil, privKeyBytes, &nonce, key)
	return ciphertext, salt, nonce, nil
}

// decryptPrivateKey opens a ciphertext produced by encryptPrivateKey.
func decryptPrivateKey(ciphertext, salt []byte, nonce [24]byte, passphrase string) ([]byte, error) {
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plain, ok := secretbox.Open(nil, ciphertext, &nonce, key)
	if !ok {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}
