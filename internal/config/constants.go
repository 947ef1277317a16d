package config

import "time"

// GasLimitMint caps contract writes sent through the wallet.
const GasLimitMint = uint64(350_000)

// Timeouts shared by commands and the server.
const (
	TxConfirmTimeout  = 3 * time.Minute
	ReceiptPollPeriod = 2 * time.Second
	APITimeout        = 30 * time.Second
	ShutdownTimeout   = 10 * time.Second
)

// ContractVersion tags every serialized investment payload.
const ContractVersion = "IV-SBT-1.0"
