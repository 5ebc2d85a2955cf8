// Package wallet covers the session user's ETH wallet: balance, transaction
// history and withdrawals.
package wallet

import (
	"encoding/json"
	"time"

	"github.com/frahmantamala/employee-portal/internal/ethunit"
)

const (
	ActionDeposit  = "deposit"
	ActionWithdraw = "withdraw"
	ActionPurchase = "purchase"
)

// Balance is the on-chain balance of the session user's wallet.
type Balance struct {
	Balance ethunit.Ether `json:"balance"`
	Address string        `json:"address"`
}

// LogEntry is one wallet transaction. Timestamp is in unix seconds.
type LogEntry struct {
	Timestamp int64         `json:"timestamp"`
	Action    string        `json:"action"`
	AmountEth ethunit.Ether `json:"amountEth"`
}

func (l LogEntry) Time() time.Time {
	return time.Unix(l.Timestamp, 0)
}

// IsDebit reports whether the entry took ether out of the wallet.
func (l LogEntry) IsDebit() bool {
	return l.Action == ActionWithdraw || l.Action == ActionPurchase
}

// SignedAmount is AmountEth, negated for debits.
func (l LogEntry) SignedAmount() ethunit.Ether {
	if l.IsDebit() {
		return l.AmountEth.Neg()
	}
	return l.AmountEth
}

// Logs is the transaction history of one user.
type Logs struct {
	Logs        []LogEntry    `json:"logs"`
	BookBalance ethunit.Ether `json:"bookBalance"`
	LogCount    int           `json:"logCount"`
}

// Overview is the wallet page: balance plus history.
type Overview struct {
	Balance Balance
	Logs    Logs
}

// WithdrawInput is a withdrawal request. PrivateKey falls back to the key
// stored with the session user when empty.
type WithdrawInput struct {
	Amount     ethunit.Ether
	PrivateKey string
}

type withdrawRequest struct {
	UserCode   string      `json:"userCode" validate:"required"`
	PrivateKey string      `json:"privateKey" validate:"required"`
	Amount     json.Number `json:"amount" validate:"required"`
}
