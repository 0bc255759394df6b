package walletkit

import (
	"bytes"
	"crypto/sha256"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// addressVersion is the single network version byte this chain uses
// (0x00, Bitcoin mainnet's byte); there is no testnet distinction.
const addressVersion = byte(0x00)

const checksumLength = 4

// publicKeyHash is Hash160(pubKey): SHA-256 followed by RIPEMD-160.
func publicKeyHash(pubKey []byte) []byte {
	sum := sha256.Sum256(pubKey)
	hasher := ripemd160.New()
	hasher.Write(sum[:])
	return hasher.Sum(nil)
}

// checksum is the first 4 bytes of double-SHA256(payload).
func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLength]
}

// Address derives the display Base58Check address from an uncompressed
// secp256k1 public key: version || Hash160(pubKey) || checksum, Base58
// encoded.
func Address(pubKey []byte) string {
	versioned := append([]byte{addressVersion}, publicKeyHash(pubKey)...)
	full := append(versioned, checksum(versioned)...)
	return base58.Encode(full)
}

// ValidateAddress reports whether address Base58-decodes to a well-formed
// version+hash+checksum triple with a matching checksum.
func ValidateAddress(address string) bool {
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != 1+20+checksumLength {
		return false
	}
	payload := decoded[:1+20]
	want := checksum(payload)
	got := decoded[1+20:]
	return bytes.Equal(want, got)
}
