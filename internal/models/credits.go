package models

import "time"

// LedgerKind classifies a credit-affecting event.
type LedgerKind string

const (
	LedgerCredit LedgerKind = "credit"
	LedgerDebit  LedgerKind = "debit"
)

// LedgerEntry is one immutable row of the credit history.
// Amount is signed: credits are positive, debits negative.
type LedgerEntry struct {
	Timestamp   time.Time  `json:"timestamp" yaml:"timestamp"`
	ID          string     `json:"id" yaml:"id"`
	Kind        LedgerKind `json:"kind" yaml:"kind"`
	Description string     `json:"description" yaml:"description"`
	Amount      int64      `json:"amount" yaml:"amount"`
}

// CreditBalance is the spendable credit amount. It is never negative.
type CreditBalance struct {
	Amount int64 `json:"amount" yaml:"amount"`
}

// BalanceOf sums ledger amounts, clamping the result at zero.
func BalanceOf(entries []LedgerEntry) CreditBalance {
	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	if total < 0 {
		total = 0
	}
	return CreditBalance{Amount: total}
}
