package history

import (
	"github.com/ledgerforge/utxoledger/lock"
	"github.com/ledgerforge/utxoledger/record"
)

// Memory is an in-memory Repository, the default collaborator for
// utxoledger.InMemory(). It is not safe for concurrent use, matching the
// single-threaded-at-the-object-level model the rest of this library
// assumes.
type Memory struct {
	outputs    map[record.OutputID]*record.Output
	createdBy  map[record.OutputID]record.TxID
	spentBy    map[record.OutputID]record.TxID
	fees       map[record.TxID]record.Amount
	coinbases  map[record.TxID]record.Amount
	isCoinbase map[record.TxID]bool
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		outputs:    make(map[record.OutputID]*record.Output),
		createdBy:  make(map[record.OutputID]record.TxID),
		spentBy:    make(map[record.OutputID]record.TxID),
		fees:       make(map[record.TxID]record.Amount),
		coinbases:  make(map[record.TxID]record.Amount),
		isCoinbase: make(map[record.TxID]bool),
	}
}

// LoadSnapshot replaces m's contents wholesale, used by the root
// package's FromCanonical to rehydrate an in-memory repository from a
// ledger snapshot. outputs must contain every output ever created
// (unspent and spent); spentBy's presence for an id is what marks it
// spent, independent of outputs' own membership.
func (m *Memory) LoadSnapshot(
	outputs map[record.OutputID]*record.Output,
	createdBy map[record.OutputID]record.TxID,
	spentBy map[record.OutputID]record.TxID,
	fees map[record.TxID]record.Amount,
	coinbases map[record.TxID]record.Amount,
	isCoinbase map[record.TxID]bool,
) {
	m.outputs = outputs
	m.createdBy = createdBy
	m.spentBy = spentBy
	m.fees = fees
	m.coinbases = coinbases
	m.isCoinbase = isCoinbase
}

func (m *Memory) SaveTransaction(tx *record.Tx, fee record.Amount, spent []*record.Output) error {
	for _, out := range tx.Outputs() {
		m.outputs[out.ID()] = out
		m.createdBy[out.ID()] = tx.ID()
	}
	for i, spendID := range tx.Spends() {
		m.spentBy[spendID] = tx.ID()
		if i < len(spent) {
			m.outputs[spendID] = spent[i]
		}
	}
	m.fees[tx.ID()] = fee
	return nil
}

func (m *Memory) SaveCoinbase(cb *record.CoinbaseTx) error {
	for _, out := range cb.Outputs() {
		m.outputs[out.ID()] = out
		m.createdBy[out.ID()] = cb.ID()
	}
	total, err := cb.TotalMinted()
	if err != nil {
		return err
	}
	m.coinbases[cb.ID()] = total
	m.isCoinbase[cb.ID()] = true
	return nil
}

func (m *Memory) SaveGenesis(outputs []*record.Output) error {
	for _, out := range outputs {
		m.outputs[out.ID()] = out
		m.createdBy[out.ID()] = GenesisOrigin
	}
	return nil
}

func (m *Memory) FindSpentOutput(id record.OutputID) (*record.Output, bool) {
	if _, spent := m.spentBy[id]; !spent {
		return nil, false
	}
	out, ok := m.outputs[id]
	return out, ok
}

func (m *Memory) FindOutputHistory(id record.OutputID) (OutputHistory, bool) {
	out, ok := m.outputs[id]
	if !ok {
		return OutputHistory{}, false
	}
	createdBy := m.createdBy[id]
	spentBy, spent := m.spentBy[id]
	status := StatusUnspent
	if spent {
		status = StatusSpent
	}
	return OutputHistory{
		ID:        id,
		Amount:    out.Amount(),
		Lock:      out.Lock(),
		CreatedBy: createdBy,
		SpentBy:   spentBy,
		Status:    status,
	}, true
}

func (m *Memory) FindOutputCreatedBy(id record.OutputID) (record.TxID, bool) {
	txID, ok := m.createdBy[id]
	return txID, ok
}

func (m *Memory) FindOutputSpentBy(id record.OutputID) (record.TxID, bool) {
	txID, ok := m.spentBy[id]
	return txID, ok
}

func (m *Memory) FindFeeForTx(id record.TxID) (record.Amount, bool) {
	fee, ok := m.fees[id]
	return fee, ok
}

func (m *Memory) FindAllTxFees() map[record.TxID]record.Amount {
	out := make(map[record.TxID]record.Amount, len(m.fees))
	for id, fee := range m.fees {
		out[id] = fee
	}
	return out
}

func (m *Memory) IsCoinbase(id record.TxID) bool { return m.isCoinbase[id] }

func (m *Memory) FindCoinbaseAmount(id record.TxID) (record.Amount, bool) {
	amt, ok := m.coinbases[id]
	return amt, ok
}

func (m *Memory) unspentIter(keep func(*record.Output) bool) []*record.Output {
	var out []*record.Output
	for id, o := range m.outputs {
		if _, spent := m.spentBy[id]; spent {
			continue
		}
		if keep == nil || keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (m *Memory) FindUnspentByOwner(owner string) []*record.Output {
	return m.unspentIter(func(o *record.Output) bool {
		lk, ok := o.Lock().(lock.Owner)
		return ok && lk.Name == owner
	})
}

func (m *Memory) FindUnspentByAmountRange(min record.Amount, hasMax bool, max record.Amount) []*record.Output {
	return m.unspentIter(func(o *record.Output) bool {
		if o.Amount() < min {
			return false
		}
		if hasMax && o.Amount() > max {
			return false
		}
		return true
	})
}

func (m *Memory) FindUnspentByLockType(lockType string) []*record.Output {
	return m.unspentIter(func(o *record.Output) bool {
		return o.Lock().ToCanonical().TypeOf() == lockType
	})
}

func (m *Memory) FindOutputsCreatedBy(txID record.TxID) []*record.Output {
	var out []*record.Output
	for id, creator := range m.createdBy {
		if creator == txID {
			if o, ok := m.outputs[id]; ok {
				out = append(out, o)
			}
		}
	}
	return out
}

func (m *Memory) CountUnspent() int {
	return len(m.unspentIter(nil))
}

func (m *Memory) SumUnspentByOwner(owner string) record.Amount {
	var total record.Amount
	for _, o := range m.FindUnspentByOwner(owner) {
		total += o.Amount()
	}
	return total
}

func (m *Memory) FindCoinbaseTransactions() []record.TxID {
	var ids []record.TxID
	for id := range m.isCoinbase {
		ids = append(ids, id)
	}
	return ids
}

func (m *Memory) FindTransactionsByFeeRange(min record.Amount, hasMax bool, max record.Amount) []record.TxID {
	var ids []record.TxID
	for id, fee := range m.fees {
		if fee < min {
			continue
		}
		if hasMax && fee > max {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

var _ Repository = (*Memory)(nil)
