package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is the lifecycle state of an investment position.
type PositionStatus string

const (
	StatusActive    PositionStatus = "Active"
	StatusPending   PositionStatus = "Pending"
	StatusCompleted PositionStatus = "Completed"
)

// Position is a minted investment receipt as reported by the index.
type Position struct {
	TokenID        string          `json:"tokenId"`
	Investor       string          `json:"investor"`
	Principal      decimal.Decimal `json:"principal"`
	TargetAPY      decimal.Decimal `json:"targetAPY"`
	StartTime      time.Time       `json:"startTime"`
	MaturityTime   time.Time       `json:"maturityTime"`
	Status         PositionStatus  `json:"status"`
	ContractType   string          `json:"contractType"`
	StorageLocator string          `json:"storageLocator,omitempty"`
	TermsHash      string          `json:"termsHash"`
	TxHash         string          `json:"txHash,omitempty"`
	Network        string          `json:"network,omitempty"`
	TemplateName   string          `json:"templateName,omitempty"`
}

// StatusAt derives the status at now from the position's dates.
func StatusAt(start, maturity, now time.Time) PositionStatus {
	switch {
	case now.Before(start):
		return StatusPending
	case !now.Before(maturity):
		return StatusCompleted
	}
	return StatusActive
}
