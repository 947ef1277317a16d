package contract

import (
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/infinity/internal/chain"
)

var (
	ErrNotOwner          = errors.New("connected account is not the contract owner")
	ErrNothingToWithdraw = errors.New("contract balance is zero")
	ErrWrongChain        = errors.New("wallet is connected to a different network")
	ErrNoTokenID         = errors.New("no Transfer to the investor in the receipt")
	ErrInvalidAmount     = errors.New("amount must be a positive whole number of wei")
	ErrNotMined          = errors.New("transaction submitted but not yet mined")
	ErrNotDeployed       = errors.New("no contract code at address")
)

// TxError reports a failed contract transaction. Without a hash the failure
// happened before submission and Error returns the cause unchanged.
type TxError struct {
	Op     string
	TxHash string
	Err    error
}

func (e *TxError) Error() string {
	if e.TxHash == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s transaction %s: %v", e.Op, e.TxHash, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

// Resendable reports whether sending the transaction again cannot duplicate
// it: nothing was submitted, or the submitted one reverted.
func (e *TxError) Resendable() bool {
	return e.TxHash == "" || errors.Is(e.Err, chain.ErrReverted)
}
