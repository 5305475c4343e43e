// Package mempool stages candidate transactions ahead of application to
// a ledger: it detects within-pool double spends before a transaction
// ever reaches the ledger's own apply validation, and exposes
// commit/replace workflows for fee-bump-style staging.
package mempool

import (
	"github.com/ledgerforge/utxoledger"
	"github.com/ledgerforge/utxoledger/errs"
	"github.com/ledgerforge/utxoledger/record"
)

// Ledger is the subset of *utxoledger.Engine a Pool needs: enough to
// validate a staged transaction and to apply it on commit. Accepting
// this narrow interface (rather than *utxoledger.Engine directly) keeps
// Pool testable against a fake and makes the "apply-capable ledger
// reference" language in the component design explicit in code.
type Ledger interface {
	CanApply(tx *record.Tx) error
	Apply(tx *record.Tx) (*utxoledger.Engine, error)
}

// Pool is a mutable staging area over an apply-capable ledger
// reference. It is not internally synchronized — single-threaded
// cooperative use at the object level, matching utxoset.Set and the
// root Engine.
type Pool struct {
	ledger  Ledger
	order   []record.TxID
	pending map[record.TxID]*record.Tx
	spentBy map[record.OutputID]record.TxID
	fees    map[record.TxID]record.Amount
}

// New returns an empty pool staging against ledger.
func New(ledger Ledger) *Pool {
	return &Pool{
		ledger:  ledger,
		pending: make(map[record.TxID]*record.Tx),
		spentBy: make(map[record.OutputID]record.TxID),
		fees:    make(map[record.TxID]record.Amount),
	}
}

// Add stages tx. It rejects a duplicate pending id, anything the
// underlying ledger's CanApply would reject, and any spend already
// claimed by another pending transaction.
func (p *Pool) Add(tx *record.Tx) error {
	if _, ok := p.pending[tx.ID()]; ok {
		return errs.New(errs.KindDuplicateTx, "transaction already pending: "+string(tx.ID()))
	}
	if err := p.ledger.CanApply(tx); err != nil {
		return err
	}
	for _, spendID := range tx.Spends() {
		if claimant, claimed := p.spentBy[spendID]; claimed {
			return errs.New(errs.KindOutputAlreadySpent, "output already claimed by pending tx "+string(claimant)+": "+string(spendID))
		}
	}

	fee, err := p.feeFor(tx)
	if err != nil {
		return err
	}

	p.pending[tx.ID()] = tx
	p.order = append(p.order, tx.ID())
	p.fees[tx.ID()] = fee
	for _, spendID := range tx.Spends() {
		p.spentBy[spendID] = tx.ID()
	}
	return nil
}

// feeFor recomputes tx's fee by re-reading spend amounts from the base
// ledger's unspent index — the pool never caches a spend's amount
// itself.
func (p *Pool) feeFor(tx *record.Tx) (record.Amount, error) {
	type outputAmounter interface {
		GetOutput(id record.OutputID) (*record.Output, bool)
	}
	engineLedger, ok := p.ledger.(outputAmounter)
	if !ok {
		return 0, nil
	}
	spendAmounts := make([]record.Amount, 0, len(tx.Spends()))
	for _, spendID := range tx.Spends() {
		out, ok := engineLedger.GetOutput(spendID)
		if !ok {
			return 0, errs.New(errs.KindOutputAlreadySpent, "spend references a missing or already-spent output: "+string(spendID))
		}
		spendAmounts = append(spendAmounts, out.Amount())
	}
	spendTotal, err := record.SumAmounts(spendAmounts...)
	if err != nil {
		return 0, err
	}

	outAmounts := make([]record.Amount, 0, len(tx.Outputs()))
	for _, o := range tx.Outputs() {
		outAmounts = append(outAmounts, o.Amount())
	}
	outTotal, err := record.SumAmounts(outAmounts...)
	if err != nil {
		return 0, err
	}
	return spendTotal - outTotal, nil
}

// Remove releases tx_id's claimed outputs and forgets its fee. A no-op
// if tx_id is not pending.
func (p *Pool) Remove(id record.TxID) {
	if _, ok := p.pending[id]; !ok {
		return
	}
	tx := p.pending[id]
	for _, spendID := range tx.Spends() {
		if p.spentBy[spendID] == id {
			delete(p.spentBy, spendID)
		}
	}
	delete(p.pending, id)
	delete(p.fees, id)
	for i, queued := range p.order {
		if queued == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Replace removes oldID and stages newTx in its place, for fee-bump/RBF
// workflows. Fails if oldID is not pending.
func (p *Pool) Replace(oldID record.TxID, newTx *record.Tx) error {
	if _, ok := p.pending[oldID]; !ok {
		return errs.New(errs.KindDuplicateTx, "no such pending transaction to replace: "+string(oldID))
	}
	p.Remove(oldID)
	return p.Add(newTx)
}

// Commit applies every pending transaction to the base ledger in
// insertion order. On the first apply error it halts and leaves that
// transaction and everything still queued after it in the pool
// (halt-and-preserve-remaining); everything applied before the failure
// is gone from the pool, since it now lives in the ledger. On full
// success the pool is cleared. The returned *utxoledger.Engine is the
// ledger value after the last successful apply (nil if nothing
// committed).
func (p *Pool) Commit() (committed int, next *utxoledger.Engine, err error) {
	remaining := append([]record.TxID(nil), p.order...)
	for i, id := range remaining {
		tx := p.pending[id]
		applied, applyErr := p.ledger.Apply(tx)
		if applyErr != nil {
			p.order = remaining[i:]
			return committed, next, applyErr
		}
		next = applied
		p.ledger = applied
		p.forget(id)
		committed++
	}
	p.order = nil
	return committed, next, nil
}

// CommitOne removes id from staging and applies it directly, bypassing
// insertion order.
func (p *Pool) CommitOne(id record.TxID) (*utxoledger.Engine, error) {
	if _, ok := p.pending[id]; !ok {
		return nil, errs.New(errs.KindDuplicateTx, "no such pending transaction: "+string(id))
	}
	tx := p.pending[id]
	applied, err := p.ledger.Apply(tx)
	if err != nil {
		return nil, err
	}
	p.ledger = applied
	p.forget(id)
	for i, queued := range p.order {
		if queued == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return applied, nil
}

// forget removes id's bookkeeping without touching p.order (the caller
// is expected to already be iterating/replacing p.order itself).
func (p *Pool) forget(id record.TxID) {
	tx := p.pending[id]
	for _, spendID := range tx.Spends() {
		if p.spentBy[spendID] == id {
			delete(p.spentBy, spendID)
		}
	}
	delete(p.pending, id)
	delete(p.fees, id)
}

// Has reports whether id is currently pending.
func (p *Pool) Has(id record.TxID) bool {
	_, ok := p.pending[id]
	return ok
}

// Get returns the pending transaction for id, if any.
func (p *Pool) Get(id record.TxID) (*record.Tx, bool) {
	tx, ok := p.pending[id]
	return tx, ok
}

// All returns every pending transaction in insertion order.
func (p *Pool) All() []*record.Tx {
	out := make([]*record.Tx, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.pending[id])
	}
	return out
}

// Count returns the number of pending transactions.
func (p *Pool) Count() int { return len(p.pending) }

// TotalPendingFees sums the fees of every pending transaction.
func (p *Pool) TotalPendingFees() record.Amount {
	var total record.Amount
	for _, fee := range p.fees {
		total += fee
	}
	return total
}

// FeeFor returns the recorded fee for a pending transaction.
func (p *Pool) FeeFor(id record.TxID) (record.Amount, bool) {
	fee, ok := p.fees[id]
	return fee, ok
}
