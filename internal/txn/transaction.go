// Package txn implements the transaction data model: the Transaction and
// SignedTransaction records, txid derivation, secp256k1-ECDSA
// signing/verification, and the coinbase marker.
package txn

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/KNG60/KS-crytocurrency/internal/hashutil"
)

// CoinbaseSignature is the literal signature value that marks a coinbase
// transaction on the wire, in place of an ECDSA signature.
const CoinbaseSignature = "COINBASE"

// Transaction is the immutable record signed by a sender. Sender is empty
// for a coinbase transaction (the mining reward), which is only legal as
// the first transaction of a block.
type Transaction struct {
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient"`
	Amount    Amount `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// IsCoinbase reports whether this transaction has no sender, the wire
// convention for the mining-reward transaction.
func (t Transaction) IsCoinbase() bool {
	return t.Sender == ""
}

// Failure kinds returned by this package.
var (
	ErrNonPositiveAmount  = errors.New("txn: amount must be positive")
	ErrTxidMismatch       = errors.New("txn: txid mismatch")
	ErrInvalidSignature   = errors.New("txn: invalid signature")
	ErrMalformedPublicKey = errors.New("txn: malformed public key")
)

// New builds a Transaction, rejecting a non-positive amount.
func New(sender, recipient string, amount Amount, timestamp int64) (Transaction, error) {
	if !amount.Positive() {
		return Transaction{}, ErrNonPositiveAmount
	}
	return Transaction{Sender: sender, Recipient: recipient, Amount: amount, Timestamp: timestamp}, nil
}

// record returns the four semantic fields as a map suitable for
// hashutil.H, with an absent sender represented as a JSON null literal
// (hashutil.canonicalize passes nil through unchanged).
func (t Transaction) record() map[string]any {
	var sender any
	if t.Sender != "" {
		sender = t.Sender
	}
	return map[string]any{
		"sender":    sender,
		"recipient": t.Recipient,
		"amount":    jsonNumber(t.Amount),
		"timestamp": t.Timestamp,
	}
}

// jsonNumber renders an Amount as the bare numeric literal hashutil.H
// embeds verbatim in the canonical payload (hashutil re-marshals whatever
// it is handed, so a string here would hash differently than the wire
// form's bare number — numberLiteral keeps it unquoted).
func jsonNumber(a Amount) any {
	return numberLiteral(a.String())
}

// numberLiteral is a bare JSON number literal that marshals to itself.
type numberLiteral string

func (n numberLiteral) MarshalJSON() ([]byte, error) { return []byte(n), nil }

// Txid is a pure function of the four semantic fields.
func (t Transaction) Txid() string {
	return hashutil.H(t.record())
}

// Record returns the full wire record of a signed transaction (the four
// semantic fields plus the signature), suitable for embedding in a
// block's header record before it is passed to hashutil.H.
func (st SignedTransaction) Record() map[string]any {
	r := st.Transaction.record()
	r["signature"] = st.Signature
	return r
}

// SignedTransaction pairs a Transaction with its signature. For a
// coinbase transaction, Signature is the literal CoinbaseSignature.
// Otherwise it is the hex-encoded ECDSA signature over the UTF-8 bytes of
// the txid.
type SignedTransaction struct {
	Transaction
	Signature string `json:"signature"`
}

// Sign signs the UTF-8 bytes of txid(tx) with privKey and returns the
// resulting SignedTransaction. Not used for coinbase transactions, which
// are constructed directly with CoinbaseSignature.
func Sign(privKey *btcec.PrivateKey, tx Transaction) (SignedTransaction, error) {
	if tx.IsCoinbase() {
		return SignedTransaction{}, errors.New("txn: cannot Sign a coinbase transaction, construct it directly")
	}
	digest := sha256.Sum256([]byte(tx.Txid()))
	sig := ecdsa.Sign(privKey, digest[:])
	return SignedTransaction{Transaction: tx, Signature: hex.EncodeToString(sig.Serialize())}, nil
}

// Coinbase builds the mining-reward transaction, recipient == miner,
// amount == reward, marked with the CoinbaseSignature.
func Coinbase(miner string, reward Amount, timestamp int64) SignedTransaction {
	return SignedTransaction{
		Transaction: Transaction{Recipient: miner, Amount: reward, Timestamp: timestamp},
		Signature:   CoinbaseSignature,
	}
}

// Verify checks the signature against the embedded transaction. For a
// coinbase transaction it requires the literal marker and an empty
// sender; otherwise it decodes Sender as an uncompressed secp256k1 point
// and verifies the ECDSA signature over the txid using SHA-256 digest.
func Verify(st SignedTransaction) bool {
	if st.IsCoinbase() {
		return st.Signature == CoinbaseSignature
	}
	pubKey, err := parsePublicKey(st.Sender)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(st.Signature)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(st.Txid()))
	return sig.Verify(digest[:], pubKey)
}

func parsePublicKey(hexKey string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPublicKey, err)
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPublicKey, err)
	}
	return pub, nil
}

// PublicKeyHex returns the hex of the X9.62 uncompressed encoding of pub,
// the wire representation used as Transaction.Sender / Coinbase.Recipient.
func PublicKeyHex(pub *btcec.PublicKey) string {
	return hex.EncodeToString(pub.SerializeUncompressed())
}

// GenerateKey creates a fresh secp256k1 keypair, used by tests and by the
// external wallet tool (cmd/wallet) — never by the node itself.
func GenerateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}
