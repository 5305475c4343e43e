package history_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/utxoledger/history"
	"github.com/ledgerforge/utxoledger/record"
)

func mustOutput(t *testing.T, owner string, amount record.Amount, id record.OutputID) *record.Output {
	t.Helper()
	out, err := record.OwnedBy(owner, amount, id)
	require.NoError(t, err)
	return out
}

func TestSaveGenesisAndFindOutputsCreatedBy(t *testing.T) {
	m := history.NewMemory()
	out1 := mustOutput(t, "alice", 10, "o1")
	out2 := mustOutput(t, "bob", 20, "o2")
	require.NoError(t, m.SaveGenesis([]*record.Output{out1, out2}))

	created := m.FindOutputsCreatedBy(history.GenesisOrigin)
	assert.Len(t, created, 2)

	txID, ok := m.FindOutputCreatedBy("o1")
	require.True(t, ok)
	assert.Equal(t, history.GenesisOrigin, txID)
}

func TestSaveTransactionRecordsSpendAndCreateProvenance(t *testing.T) {
	m := history.NewMemory()
	spent := mustOutput(t, "alice", 10, "o1")
	require.NoError(t, m.SaveGenesis([]*record.Output{spent}))

	recipient := mustOutput(t, "bob", 10, "o2")
	tx, err := record.Create([]record.OutputID{"o1"}, []*record.Output{recipient}, record.WithSigner("alice"))
	require.NoError(t, err)
	require.NoError(t, m.SaveTransaction(tx, 0, []*record.Output{spent}))

	spentOut, ok := m.FindSpentOutput("o1")
	require.True(t, ok)
	assert.Equal(t, record.Amount(10), spentOut.Amount())

	spentBy, ok := m.FindOutputSpentBy("o1")
	require.True(t, ok)
	assert.Equal(t, tx.ID(), spentBy)

	createdBy, ok := m.FindOutputCreatedBy("o2")
	require.True(t, ok)
	assert.Equal(t, tx.ID(), createdBy)

	fee, ok := m.FindFeeForTx(tx.ID())
	require.True(t, ok)
	assert.Equal(t, record.Amount(0), fee)
}

func TestSaveCoinbaseMarksIsCoinbase(t *testing.T) {
	m := history.NewMemory()
	out := mustOutput(t, "alice", 50, "o1")
	cb, err := record.CreateCoinbase([]*record.Output{out})
	require.NoError(t, err)
	require.NoError(t, m.SaveCoinbase(cb))

	assert.True(t, m.IsCoinbase(cb.ID()))
	amt, ok := m.FindCoinbaseAmount(cb.ID())
	require.True(t, ok)
	assert.Equal(t, record.Amount(50), amt)

	ids := m.FindCoinbaseTransactions()
	assert.Contains(t, ids, cb.ID())
}

func TestFindUnspentByOwnerExcludesSpent(t *testing.T) {
	m := history.NewMemory()
	o1 := mustOutput(t, "alice", 10, "o1")
	o2 := mustOutput(t, "alice", 20, "o2")
	require.NoError(t, m.SaveGenesis([]*record.Output{o1, o2}))

	change := mustOutput(t, "alice", 10, "o3")
	tx, err := record.Create([]record.OutputID{"o1"}, []*record.Output{change}, record.WithSigner("alice"))
	require.NoError(t, err)
	require.NoError(t, m.SaveTransaction(tx, 0, []*record.Output{o1}))

	unspent := m.FindUnspentByOwner("alice")
	ids := make([]record.OutputID, 0, len(unspent))
	for _, o := range unspent {
		ids = append(ids, o.ID())
	}
	assert.ElementsMatch(t, []record.OutputID{"o2", "o3"}, ids)
	assert.Equal(t, record.Amount(30), m.SumUnspentByOwner("alice"))
	assert.Equal(t, 2, m.CountUnspent())
}

func TestFindUnspentByAmountRange(t *testing.T) {
	m := history.NewMemory()
	require.NoError(t, m.SaveGenesis([]*record.Output{
		mustOutput(t, "alice", 5, "o1"),
		mustOutput(t, "alice", 15, "o2"),
		mustOutput(t, "alice", 25, "o3"),
	}))

	withMax := m.FindUnspentByAmountRange(10, true, 20)
	require.Len(t, withMax, 1)
	assert.Equal(t, record.OutputID("o2"), withMax[0].ID())

	noMax := m.FindUnspentByAmountRange(10, false, 0)
	assert.Len(t, noMax, 2)
}

func TestFindUnspentByLockType(t *testing.T) {
	m := history.NewMemory()
	open, err := record.Open(10, "o1")
	require.NoError(t, err)
	require.NoError(t, m.SaveGenesis([]*record.Output{open, mustOutput(t, "alice", 5, "o2")}))

	assert.Len(t, m.FindUnspentByLockType("none"), 1)
	assert.Len(t, m.FindUnspentByLockType("owner"), 1)
}

func TestFindTransactionsByFeeRange(t *testing.T) {
	m := history.NewMemory()
	spend := mustOutput(t, "alice", 100, "o1")
	require.NoError(t, m.SaveGenesis([]*record.Output{spend}))

	out, err := record.Open(90, "o2")
	require.NoError(t, err)
	tx, err := record.Create([]record.OutputID{"o1"}, []*record.Output{out}, record.WithSigner("alice"))
	require.NoError(t, err)
	require.NoError(t, m.SaveTransaction(tx, 10, []*record.Output{spend}))

	ids := m.FindTransactionsByFeeRange(5, true, 15)
	assert.Contains(t, ids, tx.ID())
	assert.Empty(t, m.FindTransactionsByFeeRange(20, false, 0))
}

func TestLoadSnapshotReplacesContents(t *testing.T) {
	m := history.NewMemory()
	out := mustOutput(t, "alice", 10, "o1")
	m.LoadSnapshot(
		map[record.OutputID]*record.Output{"o1": out},
		map[record.OutputID]record.TxID{"o1": history.GenesisOrigin},
		map[record.OutputID]record.TxID{},
		map[record.TxID]record.Amount{},
		map[record.TxID]record.Amount{},
		map[record.TxID]bool{},
	)

	txID, ok := m.FindOutputCreatedBy("o1")
	require.True(t, ok)
	assert.Equal(t, history.GenesisOrigin, txID)
	assert.Equal(t, 1, m.CountUnspent())
}

func TestOutputHistoryReflectsLifecycle(t *testing.T) {
	m := history.NewMemory()
	out := mustOutput(t, "alice", 10, "o1")
	require.NoError(t, m.SaveGenesis([]*record.Output{out}))

	hist, ok := m.FindOutputHistory("o1")
	require.True(t, ok)
	assert.Equal(t, history.StatusUnspent, hist.Status)

	change := mustOutput(t, "alice", 10, "o2")
	tx, err := record.Create([]record.OutputID{"o1"}, []*record.Output{change}, record.WithSigner("alice"))
	require.NoError(t, err)
	require.NoError(t, m.SaveTransaction(tx, 0, []*record.Output{out}))

	hist, ok = m.FindOutputHistory("o1")
	require.True(t, ok)
	assert.Equal(t, history.StatusSpent, hist.Status)
	assert.Equal(t, tx.ID(), hist.SpentBy)
}
