package utxoledger

import (
	"github.com/ledgerforge/utxoledger/history"
	"github.com/ledgerforge/utxoledger/record"
	"github.com/ledgerforge/utxoledger/utxoset"
)

// Unspent returns a snapshot of every currently-unspent output.
func (e *Engine) Unspent() []utxoset.Entry { return e.unspent.Iter() }

// TotalUnspentAmount returns the cached sum of unspent outputs.
func (e *Engine) TotalUnspentAmount() record.Amount { return e.unspent.TotalAmount() }

// UnspentByOwner returns the unspent outputs locked to owner.
func (e *Engine) UnspentByOwner(owner string) []*record.Output { return e.unspent.OwnedBy(owner) }

// TotalUnspentByOwner sums UnspentByOwner(owner).
func (e *Engine) TotalUnspentByOwner(owner string) record.Amount {
	return e.unspent.TotalOwnedBy(owner)
}

// TotalFeesCollected returns the cumulative fee total across every
// applied regular transaction.
func (e *Engine) TotalFeesCollected() record.Amount { return e.totalFees }

// TotalMinted returns the cumulative value introduced by coinbase
// transactions, kept separate from genesis-seeded value.
func (e *Engine) TotalMinted() record.Amount { return e.totalMinted }

// TotalGenesisValue returns the cumulative value seeded by WithGenesis.
func (e *Engine) TotalGenesisValue() record.Amount { return e.totalGenesis }

// FeeForTx returns the fee recorded for a regular transaction.
func (e *Engine) FeeForTx(id record.TxID) (record.Amount, bool) { return e.repo.FindFeeForTx(id) }

// AllTxFees returns every recorded transaction fee, keyed by tx id.
func (e *Engine) AllTxFees() map[record.TxID]record.Amount { return e.repo.FindAllTxFees() }

// IsTxApplied reports whether id (regular or coinbase) has been
// applied to this ledger value.
func (e *Engine) IsTxApplied(id record.TxID) bool { return e.applied[id] }

// IsCoinbase reports whether id names an applied coinbase transaction.
func (e *Engine) IsCoinbase(id record.TxID) bool { return e.repo.IsCoinbase(id) }

// CoinbaseAmount returns the amount minted by coinbase id.
func (e *Engine) CoinbaseAmount(id record.TxID) (record.Amount, bool) {
	return e.repo.FindCoinbaseAmount(id)
}

// OutputCreatedBy returns the transaction (or "genesis") that created
// id.
func (e *Engine) OutputCreatedBy(id record.OutputID) (record.TxID, bool) {
	return e.repo.FindOutputCreatedBy(id)
}

// OutputSpentBy returns the transaction that consumed id, if spent.
func (e *Engine) OutputSpentBy(id record.OutputID) (record.TxID, bool) {
	return e.repo.FindOutputSpentBy(id)
}

// GetOutput returns id's full value, whether or not it is still
// unspent.
func (e *Engine) GetOutput(id record.OutputID) (*record.Output, bool) {
	if out, ok := e.unspent.Get(id); ok {
		return out, true
	}
	return e.repo.FindSpentOutput(id)
}

// OutputExists reports whether id has ever existed in this ledger,
// spent or not.
func (e *Engine) OutputExists(id record.OutputID) bool {
	_, ok := e.GetOutput(id)
	return ok
}

// OutputHistory returns the full provenance/lifecycle projection for
// id.
func (e *Engine) OutputHistory(id record.OutputID) (history.OutputHistory, bool) {
	return e.repo.FindOutputHistory(id)
}
