package chain

import "errors"

// Error kinds returned by Validate/ValidateChain, each naming the
// specific integrity check a block or chain failed.
var (
	ErrHashMismatch      = errors.New("chain: hash does not equal H(header)")
	ErrPrevHashMismatch  = errors.New("chain: prev_hash does not equal predecessor hash")
	ErrHeightMismatch    = errors.New("chain: height is not predecessor height + 1")
	ErrPowFailure        = errors.New("chain: hash does not satisfy proof-of-work difficulty")
	ErrGenesisShape      = errors.New("chain: genesis block is malformed")
	ErrEmptyTxs          = errors.New("chain: block has no transactions")
	ErrMissingCoinbase   = errors.New("chain: first transaction is not a coinbase")
	ErrExtraCoinbase     = errors.New("chain: more than one coinbase transaction in block")
	ErrCoinbaseShape     = errors.New("chain: coinbase amount or recipient does not match policy")
	ErrTxValidation      = errors.New("chain: a transaction failed signature or txid validation")
	ErrDuplicateTxInBlock = errors.New("chain: duplicate signature within block or across chain")
	ErrBalanceUnderflow  = errors.New("chain: balance replay went negative")
)
