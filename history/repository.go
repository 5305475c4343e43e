// Package history defines the ledger's provenance collaborator: an
// append-only write side recording how every output came to exist and
// how it was spent, and a read side the engine and its queries
// consult. Two implementations are provided: an in-memory one (Memory)
// and a relational one backed by database/sql (Postgres).
package history

import (
	"github.com/ledgerforge/utxoledger/lock"
	"github.com/ledgerforge/utxoledger/record"
)

// Status is the derived lifecycle state of an output.
type Status string

const (
	StatusUnspent Status = "unspent"
	StatusSpent   Status = "spent"
)

// OutputHistory is the read-model projection find_output_history
// returns: everything known about an output's life.
type OutputHistory struct {
	ID        record.OutputID
	Amount    record.Amount
	Lock      lock.OutputLock
	CreatedBy record.TxID
	SpentBy   record.TxID // zero value ("") if still unspent
	Status    Status
}

// GenesisOrigin marks the provenance value used for genesis outputs.
const GenesisOrigin record.TxID = "genesis"

// Repository is the provenance collaborator the engine writes to
// during apply/applyCoinbase/genesis and reads from to answer
// queries. Every write method must be atomic: either every effect of
// one call is visible, or none is (the relational implementation
// wraps each call in a single *sql.Tx).
type Repository interface {
	// SaveTransaction records a regular transaction's effects: the
	// creation provenance of its new outputs, the spend provenance of
	// its consumed outputs, the fee, and the full payload of each
	// spent output (so FindSpentOutput keeps working afterward).
	SaveTransaction(tx *record.Tx, fee record.Amount, spent []*record.Output) error

	// SaveCoinbase records a coinbase's new-output provenance and its
	// minted amount.
	SaveCoinbase(cb *record.CoinbaseTx) error

	// SaveGenesis records outputs created with no originating
	// transaction.
	SaveGenesis(outputs []*record.Output) error

	// FindSpentOutput returns the full output if it is recorded as
	// spent, so its value remains inspectable after consumption.
	FindSpentOutput(id record.OutputID) (*record.Output, bool)

	// FindOutputHistory returns the full provenance/lifecycle record
	// for id, if known (created as unspent, spent, or genesis).
	FindOutputHistory(id record.OutputID) (OutputHistory, bool)

	FindOutputCreatedBy(id record.OutputID) (record.TxID, bool)
	FindOutputSpentBy(id record.OutputID) (record.TxID, bool)
	FindFeeForTx(id record.TxID) (record.Amount, bool)
	FindAllTxFees() map[record.TxID]record.Amount
	IsCoinbase(id record.TxID) bool
	FindCoinbaseAmount(id record.TxID) (record.Amount, bool)

	// FindUnspentByOwner, FindUnspentByAmountRange, and the rest of
	// the queryable extension let a store-backed ledger answer common
	// questions in O(result) rather than by scanning the whole
	// unspent index.
	FindUnspentByOwner(owner string) []*record.Output
	FindUnspentByAmountRange(min record.Amount, hasMax bool, max record.Amount) []*record.Output
	FindUnspentByLockType(lockType string) []*record.Output
	FindOutputsCreatedBy(txID record.TxID) []*record.Output
	CountUnspent() int
	SumUnspentByOwner(owner string) record.Amount
	FindCoinbaseTransactions() []record.TxID
	FindTransactionsByFeeRange(min record.Amount, hasMax bool, max record.Amount) []record.TxID
}
