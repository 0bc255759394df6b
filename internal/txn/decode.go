package txn

// Decode validates a SignedTransaction received off the wire: the amount
// must be positive, the embedded txid (recomputed from the four semantic
// fields) must match wireTxid, and the signature must verify. Callers
// that already trust a transaction (e.g. one they just signed locally)
// should not need Decode — it exists for the boundary where bytes from a
// peer become a transaction the mempool or block validator can reason
// about.
//
// wireTxid is taken as a separate parameter, rather than always
// recomputed from st, because the current wire format has no txid
// field of its own — every production caller passes st.Txid() back in,
// which can never mismatch. The parameter exists so Decode is already
// correct the day the wire format grows an explicit txid field
// (serialization bugs, truncation, and replay tooling all produce a
// txid that disagrees with its claimed fields, which is exactly what
// this check is for); until then only the tests exercise the mismatch
// path directly.
func Decode(st SignedTransaction, wireTxid string) (SignedTransaction, error) {
	if !st.Amount.Positive() {
		return SignedTransaction{}, ErrNonPositiveAmount
	}
	if got := st.Txid(); got != wireTxid {
		return SignedTransaction{}, ErrTxidMismatch
	}
	if !Verify(st) {
		return SignedTransaction{}, ErrInvalidSignature
	}
	return st, nil
}
