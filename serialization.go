package utxoledger

import (
	"encoding/json"

	"github.com/ledgerforge/utxoledger/errs"
	"github.com/ledgerforge/utxoledger/history"
	"github.com/ledgerforge/utxoledger/record"
	"github.com/ledgerforge/utxoledger/utxoset"
)

// ledgerSchemaVersion is bumped whenever the JSON shape below changes
// incompatibly.
const ledgerSchemaVersion = 1

// snapshot is the versioned JSON representation of a ledger.
// unspent and spentOutputs are keyed by OutputId to {amount, lock}, as
// produced by record.Output.ToCanonical.
type snapshot struct {
	Version         int                       `json:"version"`
	Unspent         map[string]map[string]any `json:"unspent"`
	AppliedTxs      []string                  `json:"appliedTxs"`
	TxFees          map[string]int64          `json:"txFees"`
	CoinbaseAmounts map[string]int64          `json:"coinbaseAmounts"`
	OutputCreatedBy map[string]string         `json:"outputCreatedBy"`
	OutputSpentBy   map[string]string         `json:"outputSpentBy"`
	SpentOutputs    map[string]map[string]any `json:"spentOutputs"`
}

// ToCanonical returns the JSON-ready snapshot of e. It walks every
// applied transaction id (plus the synthetic "genesis" origin) through
// the repository's existing read methods rather than requiring a bulk
// dump operation on Repository, so both Memory and Postgres work
// without an enlarged interface.
func (e *Engine) ToCanonical() map[string]any {
	unspent := e.unspent.ToCanonical()

	appliedTxs := make([]string, 0, len(e.applied))
	for id := range e.applied {
		appliedTxs = append(appliedTxs, string(id))
	}

	txFees := make(map[string]int64)
	for id, fee := range e.repo.FindAllTxFees() {
		txFees[string(id)] = int64(fee)
	}

	coinbaseAmounts := make(map[string]int64)
	for id := range e.applied {
		if amt, ok := e.repo.FindCoinbaseAmount(id); ok {
			coinbaseAmounts[string(id)] = int64(amt)
		}
	}

	outputCreatedBy := make(map[string]string)
	outputSpentBy := make(map[string]string)
	spentOutputs := make(map[string]map[string]any)

	origins := append([]record.TxID{history.GenesisOrigin}, txIDsOf(appliedTxs)...)
	for _, origin := range origins {
		for _, out := range e.repo.FindOutputsCreatedBy(origin) {
			outputCreatedBy[string(out.ID())] = string(origin)
			if spentBy, ok := e.repo.FindOutputSpentBy(out.ID()); ok {
				outputSpentBy[string(out.ID())] = string(spentBy)
				if full, ok := e.repo.FindSpentOutput(out.ID()); ok {
					spentOutputs[string(out.ID())] = full.ToCanonical()
				}
			}
		}
	}

	snap := snapshot{
		Version:         ledgerSchemaVersion,
		Unspent:         unspent,
		AppliedTxs:      appliedTxs,
		TxFees:          txFees,
		CoinbaseAmounts: coinbaseAmounts,
		OutputCreatedBy: outputCreatedBy,
		OutputSpentBy:   outputSpentBy,
		SpentOutputs:    spentOutputs,
	}

	out := map[string]any{
		"version":         snap.Version,
		"unspent":         snap.Unspent,
		"appliedTxs":      snap.AppliedTxs,
		"txFees":          snap.TxFees,
		"coinbaseAmounts": snap.CoinbaseAmounts,
		"outputCreatedBy": snap.OutputCreatedBy,
		"outputSpentBy":   snap.OutputSpentBy,
		"spentOutputs":    snap.SpentOutputs,
	}
	return out
}

func txIDsOf(ids []string) []record.TxID {
	out := make([]record.TxID, len(ids))
	for i, id := range ids {
		out[i] = record.TxID(id)
	}
	return out
}

// MarshalLedgerJSON is a convenience wrapper returning the bytes of
// ToCanonical.
func (e *Engine) MarshalLedgerJSON() ([]byte, error) {
	return json.Marshal(e.ToCanonical())
}

// FromCanonical reconstructs an in-memory engine from the map produced
// by ToCanonical. A missing "lock" field on any output is an error:
// the library never assumes lock.None. opts supplies the registry that
// reconstructs every lock; restored TimeLocks read the system clock.
func FromCanonical(form map[string]any, opts ...EngineOption) (*Engine, error) {
	o := resolveOpts(opts)

	// Normalize the in-process form ToCanonical returns (typed nested
	// maps, int64 amounts) into the generic shape json.Unmarshal yields.
	raw, err := json.Marshal(form)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, "encoding snapshot", err)
	}
	form = nil
	if err := json.Unmarshal(raw, &form); err != nil {
		return nil, errs.Wrap(errs.KindPersistence, "decoding snapshot", err)
	}

	unspentRaw, ok := form["unspent"].(map[string]any)
	if !ok {
		return nil, errs.New(errs.KindPersistence, "snapshot missing unspent")
	}
	unspentForm := make(map[string]map[string]any, len(unspentRaw))
	for id, v := range unspentRaw {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, errs.New(errs.KindPersistence, "unspent["+id+"] is not an object")
		}
		unspentForm[id] = m
	}
	unspentSet, err := utxoset.FromCanonical(unspentForm, o.reg)
	if err != nil {
		return nil, err
	}

	spentOutputs := make(map[record.OutputID]*record.Output)
	if raw, ok := form["spentOutputs"].(map[string]any); ok {
		for id, v := range raw {
			m, ok := v.(map[string]any)
			if !ok {
				continue
			}
			out, err := record.OutputFromCanonical(record.OutputID(id), m, o.reg)
			if err != nil {
				return nil, err
			}
			spentOutputs[record.OutputID(id)] = out
		}
	}

	createdBy := stringMap(form["outputCreatedBy"])
	spentBy := stringMap(form["outputSpentBy"])

	fees := make(map[record.TxID]record.Amount)
	for id, v := range numberMap(form["txFees"]) {
		fees[record.TxID(id)] = record.Amount(v)
	}
	coinbases := make(map[record.TxID]record.Amount)
	isCoinbase := make(map[record.TxID]bool)
	for id, v := range numberMap(form["coinbaseAmounts"]) {
		coinbases[record.TxID(id)] = record.Amount(v)
		isCoinbase[record.TxID(id)] = true
	}

	allOutputs := make(map[record.OutputID]*record.Output)
	for _, entry := range unspentSet.Iter() {
		allOutputs[entry.ID] = entry.Output
	}
	for id, out := range spentOutputs {
		allOutputs[id] = out
	}

	createdByTx := make(map[record.OutputID]record.TxID, len(createdBy))
	for outID, txID := range createdBy {
		createdByTx[record.OutputID(outID)] = record.TxID(txID)
	}
	spentByTx := make(map[record.OutputID]record.TxID, len(spentBy))
	for outID, txID := range spentBy {
		spentByTx[record.OutputID(outID)] = record.TxID(txID)
	}

	mem := history.NewMemory()
	mem.LoadSnapshot(allOutputs, createdByTx, spentByTx, fees, coinbases, isCoinbase)

	applied := make(map[record.TxID]bool)
	for _, v := range sliceOf(form["appliedTxs"]) {
		applied[record.TxID(v)] = true
	}

	var totalFees, totalMinted, totalGenesis record.Amount
	for _, fee := range fees {
		totalFees += fee
	}
	for _, amt := range coinbases {
		totalMinted += amt
	}
	for outID, txID := range createdByTx {
		if txID == history.GenesisOrigin {
			if out, ok := allOutputs[outID]; ok {
				totalGenesis += out.Amount()
			}
		}
	}

	return &Engine{
		unspent:      unspentSet,
		applied:      applied,
		totalFees:    totalFees,
		totalMinted:  totalMinted,
		totalGenesis: totalGenesis,
		repo:         mem,
		reg:          o.reg,
		clock:        o.clock,
	}, nil
}

func stringMap(v any) map[string]string {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

func numberMap(v any) map[string]int64 {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]int64, len(raw))
	for k, val := range raw {
		switch n := val.(type) {
		case float64:
			out[k] = int64(n)
		case int64:
			out[k] = n
		case int:
			out[k] = int64(n)
		}
	}
	return out
}

func sliceOf(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
