// Package utxoledger is the root transaction-application engine: it
// orchestrates the lock model, the unspent-output index, and the
// history repository into two ledger deployment shapes (in-memory and
// store-backed) behind a single Engine type.
package utxoledger

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerforge/utxoledger/errs"
	"github.com/ledgerforge/utxoledger/history"
	"github.com/ledgerforge/utxoledger/lock"
	"github.com/ledgerforge/utxoledger/record"
	"github.com/ledgerforge/utxoledger/utxoset"
)

// Engine is an immutable ledger value: apply/applyCoinbase return a
// new *Engine rather than mutating the receiver.
type Engine struct {
	unspent      *utxoset.Set
	applied      map[record.TxID]bool
	totalFees    record.Amount
	totalMinted  record.Amount // coinbase-minted value only
	totalGenesis record.Amount // genesis-seeded value only
	repo         history.Repository
	reg          *lock.Registry
	clock        lock.Clock
	log          *zap.SugaredLogger
}

// EngineOption configures Engine construction.
type EngineOption func(*engineOpts)

type engineOpts struct {
	reg   *lock.Registry
	clock lock.Clock
	log   *zap.SugaredLogger
}

// WithRegistry supplies the lock registry stored on the engine and used
// by FromCanonical to reconstruct locks. Spend validation calls each
// output's lock directly and does not consult it. Defaults to
// lock.Default().
func WithRegistry(reg *lock.Registry) EngineOption {
	return func(o *engineOpts) { o.reg = reg }
}

// WithClock supplies the wall-clock source stored on the engine.
// Defaults to time.Now().Unix(). TimeLock validation does not read it:
// each TimeLock uses the clock it was constructed with.
func WithClock(clock lock.Clock) EngineOption {
	return func(o *engineOpts) { o.clock = clock }
}

// WithLogger attaches a structured logger for slow-path diagnostics on
// the store-backed shape — failed commits and rollbacks surfaced by
// the history repository. A nil logger (the default) is a no-op; the
// in-memory shape never logs since it has no backend to fail.
func WithLogger(log *zap.SugaredLogger) EngineOption {
	return func(o *engineOpts) { o.log = log }
}

func resolveOpts(opts []EngineOption) engineOpts {
	o := engineOpts{reg: lock.Default(), clock: func() int64 { return time.Now().Unix() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// InMemory returns an empty ledger whose provenance is held in process
// memory (history.Memory).
func InMemory(opts ...EngineOption) *Engine {
	o := resolveOpts(opts)
	return &Engine{
		unspent: utxoset.New(),
		applied: make(map[record.TxID]bool),
		repo:    history.NewMemory(),
		reg:     o.reg,
		clock:   o.clock,
	}
}

// WithStore returns an empty ledger whose provenance is delegated to
// repo (typically a *history.Postgres bound to one ledger_id).
func WithStore(repo history.Repository, opts ...EngineOption) *Engine {
	o := resolveOpts(opts)
	return &Engine{
		unspent: utxoset.New(),
		applied: make(map[record.TxID]bool),
		repo:    repo,
		reg:     o.reg,
		clock:   o.clock,
		log:     o.log,
	}
}

// WithGenesis seeds e with outputs that have no originating
// transaction (provenance "genesis"). Legal only on an empty ledger;
// returns GenesisNotAllowed otherwise.
func (e *Engine) WithGenesis(outputs ...*record.Output) (*Engine, error) {
	if e.unspent.Count() != 0 || len(e.applied) != 0 {
		return nil, errs.New(errs.KindGenesisNotAllowed, "genesis is only allowed into an empty ledger")
	}
	seen := make(map[record.OutputID]bool, len(outputs))
	for _, o := range outputs {
		if seen[o.ID()] {
			return nil, errs.New(errs.KindDuplicateOutputID, "duplicate output id in genesis set: "+string(o.ID()))
		}
		seen[o.ID()] = true
	}

	next := e.clone()
	var total record.Amount
	for _, o := range outputs {
		next.unspent.Add(o)
		total += o.Amount()
	}
	next.totalGenesis += total
	if err := e.repo.SaveGenesis(outputs); err != nil {
		if e.log != nil {
			e.log.Warnw("genesis save failed", "err", err)
		}
		return nil, err
	}
	return next, nil
}

// clone returns a new *Engine with an independently-mutable unspent
// index and applied set, sharing the (immutable) repo/reg/clock.
func (e *Engine) clone() *Engine {
	appliedCopy := make(map[record.TxID]bool, len(e.applied))
	for id := range e.applied {
		appliedCopy[id] = true
	}
	return &Engine{
		unspent:      e.unspent.Clone(),
		applied:      appliedCopy,
		totalFees:    e.totalFees,
		totalMinted:  e.totalMinted,
		totalGenesis: e.totalGenesis,
		repo:         e.repo,
		reg:          e.reg,
		clock:        e.clock,
		log:          e.log,
	}
}

// validated is the outcome of checking a regular transaction against
// the current ledger state without mutating anything: the fee it
// would produce and the full output value of each spend (needed by
// SaveTransaction to stash spent-output payloads).
type validated struct {
	fee    record.Amount
	spends []*record.Output
}

func (e *Engine) validate(tx *record.Tx) (validated, error) {
	if e.applied[tx.ID()] {
		return validated{}, errs.New(errs.KindDuplicateTx, "transaction already applied: "+string(tx.ID()))
	}

	spendOutputs := make([]*record.Output, 0, len(tx.Spends()))
	spendAmounts := make([]record.Amount, 0, len(tx.Spends()))
	for idx, spendID := range tx.Spends() {
		out, ok := e.unspent.Get(spendID)
		if !ok {
			return validated{}, errs.New(errs.KindOutputAlreadySpent, "spend references a missing or already-spent output: "+string(spendID))
		}
		if err := out.Lock().Validate(tx, idx); err != nil {
			return validated{}, errs.Wrap(errs.KindAuthorization, "spend "+string(spendID), err)
		}
		spendOutputs = append(spendOutputs, out)
		spendAmounts = append(spendAmounts, out.Amount())
	}
	spendTotal, err := record.SumAmounts(spendAmounts...)
	if err != nil {
		return validated{}, err
	}

	amounts := make([]record.Amount, 0, len(tx.Outputs()))
	for _, o := range tx.Outputs() {
		amounts = append(amounts, o.Amount())
	}
	outputTotal, err := record.SumAmounts(amounts...)
	if err != nil {
		return validated{}, err
	}

	if spendTotal < outputTotal {
		return validated{}, errs.New(errs.KindInsufficientSpends, "sum of spends is less than sum of outputs")
	}

	for _, o := range tx.Outputs() {
		if e.unspent.Contains(o.ID()) {
			spent := false
			for _, spendID := range tx.Spends() {
				if spendID == o.ID() {
					spent = true
					break
				}
			}
			if !spent {
				return validated{}, errs.New(errs.KindDuplicateOutputID, "new output id collides with an unspent output: "+string(o.ID()))
			}
		}
	}

	return validated{fee: spendTotal - outputTotal, spends: spendOutputs}, nil
}

// CanApply reports the error Apply would return for tx, or nil. It
// does not mutate the ledger.
func (e *Engine) CanApply(tx *record.Tx) error {
	_, err := e.validate(tx)
	return err
}

// Apply validates and applies a regular transaction, returning the
// resulting ledger value.
func (e *Engine) Apply(tx *record.Tx) (*Engine, error) {
	v, err := e.validate(tx)
	if err != nil {
		return nil, err
	}

	next := e.clone()
	for _, spendID := range tx.Spends() {
		next.unspent.Remove(spendID)
	}
	for _, o := range tx.Outputs() {
		next.unspent.Add(o)
	}
	next.applied[tx.ID()] = true
	next.totalFees += v.fee

	if err := e.repo.SaveTransaction(tx, v.fee, v.spends); err != nil {
		if e.log != nil {
			e.log.Warnw("transaction save failed", "tx_id", tx.ID(), "err", err)
		}
		return nil, err
	}
	return next, nil
}

// ApplyCoinbase mints cb's outputs into the ledger.
func (e *Engine) ApplyCoinbase(cb *record.CoinbaseTx) (*Engine, error) {
	if e.applied[cb.ID()] {
		return nil, errs.New(errs.KindDuplicateTx, "coinbase already applied: "+string(cb.ID()))
	}
	for _, o := range cb.Outputs() {
		if e.unspent.Contains(o.ID()) {
			return nil, errs.New(errs.KindDuplicateOutputID, "coinbase output id collides with an unspent output: "+string(o.ID()))
		}
	}
	total, err := cb.TotalMinted()
	if err != nil {
		return nil, err
	}

	next := e.clone()
	for _, o := range cb.Outputs() {
		next.unspent.Add(o)
	}
	next.applied[cb.ID()] = true
	next.totalMinted += total

	if err := e.repo.SaveCoinbase(cb); err != nil {
		if e.log != nil {
			e.log.Warnw("coinbase save failed", "tx_id", cb.ID(), "err", err)
		}
		return nil, err
	}
	return next, nil
}

// selectForOwner picks owner's unspent outputs largest-first (ties
// broken by ascending id, for determinism) until at least need has
// been accumulated. Returns the selection and its total; ok is false
// if owner's outputs don't cover need.
func (e *Engine) selectForOwner(owner string, need record.Amount) (selected []*record.Output, total record.Amount, ok bool) {
	owned := e.unspent.OwnedBy(owner)
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].Amount() != owned[j].Amount() {
			return owned[i].Amount() > owned[j].Amount()
		}
		return owned[i].ID() < owned[j].ID()
	})
	for _, o := range owned {
		selected = append(selected, o)
		total += o.Amount()
		if total >= need {
			return selected, total, true
		}
	}
	return selected, total, total >= need
}

// Transfer moves amount from fromOwner to toOwner, paying fee, by
// selecting fromOwner's outputs largest-first and returning change to
// fromOwner. The built transaction is signed by fromOwner.
func (e *Engine) Transfer(fromOwner, toOwner string, amount, fee record.Amount) (*Engine, error) {
	need, err := record.AddAmount(amount, fee)
	if err != nil {
		return nil, err
	}
	selected, total, ok := e.selectForOwner(fromOwner, need)
	if !ok {
		return nil, errs.New(errs.KindInsufficientSpends, fmt.Sprintf("%s does not own enough to transfer %d plus fee %d", fromOwner, amount, fee))
	}

	spends := make([]record.OutputID, len(selected))
	for i, o := range selected {
		spends[i] = o.ID()
	}

	recipient, err := record.OwnedBy(toOwner, amount, "")
	if err != nil {
		return nil, err
	}
	outputs := []*record.Output{recipient}
	if change := total - need; change > 0 {
		changeOut, err := record.OwnedBy(fromOwner, change, "")
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, changeOut)
	}

	tx, err := record.Create(spends, outputs, record.WithSigner(fromOwner))
	if err != nil {
		return nil, err
	}
	return e.Apply(tx)
}

// Credit issues a coinbase of amount to owner. If id is empty, the
// output id is generated from content.
func (e *Engine) Credit(owner string, amount record.Amount, id record.OutputID) (*Engine, error) {
	out, err := record.OwnedBy(owner, amount, id)
	if err != nil {
		return nil, err
	}
	cb, err := record.CreateCoinbase([]*record.Output{out})
	if err != nil {
		return nil, err
	}
	return e.ApplyCoinbase(cb)
}

// Debit burns amount plus fee from owner's outputs: it selects enough
// owned outputs to strictly exceed amount+fee, returns the remainder
// to owner as change, and produces no recipient output, so the entire
// difference between spent and produced is recorded as the
// transaction's fee. A selection that covers amount+fee exactly is
// rejected as InsufficientSpends, since a zero-amount change output is
// invalid — debit requires strictly more than amount+fee on hand.
func (e *Engine) Debit(owner string, amount, fee record.Amount) (*Engine, error) {
	need, err := record.AddAmount(amount, fee)
	if err != nil {
		return nil, err
	}
	owned := e.unspent.OwnedBy(owner)
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].Amount() != owned[j].Amount() {
			return owned[i].Amount() > owned[j].Amount()
		}
		return owned[i].ID() < owned[j].ID()
	})

	var selected []*record.Output
	var total record.Amount
	for _, o := range owned {
		selected = append(selected, o)
		total += o.Amount()
		if total > need {
			break
		}
	}
	if total <= need {
		return nil, errs.New(errs.KindInsufficientSpends, owner+" does not have a strictly positive change output available after debit")
	}

	spends := make([]record.OutputID, len(selected))
	for i, o := range selected {
		spends[i] = o.ID()
	}
	changeOut, err := record.OwnedBy(owner, total-need, "")
	if err != nil {
		return nil, err
	}
	tx, err := record.Create(spends, []*record.Output{changeOut}, record.WithSigner(owner))
	if err != nil {
		return nil, err
	}
	return e.Apply(tx)
}
