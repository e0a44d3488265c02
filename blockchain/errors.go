package blockchain

import "errors"

var (
	// ErrChainExists is returned by Create when a chain namespace already
	// has a genesis block.
	ErrChainExists = errors.New("blockchain: chain already exists")
	// ErrNoChain is returned by Open when no genesis block has been written
	// yet to the requested namespace.
	ErrNoChain = errors.New("blockchain: no existing chain, create one first")
	// ErrBlockNotFound is returned by GetBlock for an unknown hash.
	ErrBlockNotFound = errors.New("blockchain: block not found")
	// ErrTxNotFound is returned by FindTransaction when no block in the
	// chain carries the requested transaction id.
	ErrTxNotFound = errors.New("blockchain: transaction not found")
	// ErrInsufficientFunds is returned by NewUTXOTransaction when the
	// sender's spendable outputs don't cover the requested amount.
	ErrInsufficientFunds = errors.New("blockchain: not enough funds")
	// ErrInvalidTransaction is returned by MineBlock when a candidate
	// transaction fails signature verification.
	ErrInvalidTransaction = errors.New("blockchain: invalid transaction")
)
