package mempool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	utxoledger "github.com/ledgerforge/utxoledger"
	"github.com/ledgerforge/utxoledger/mempool"
	"github.com/ledgerforge/utxoledger/record"
)

func mustOutput(t *testing.T, owner string, amount record.Amount, id record.OutputID) *record.Output {
	t.Helper()
	out, err := record.OwnedBy(owner, amount, id)
	require.NoError(t, err)
	return out
}

func genesisLedger(t *testing.T, balances map[string]record.Amount) *utxoledger.Engine {
	t.Helper()
	outs := make([]*record.Output, 0, len(balances))
	for owner, amount := range balances {
		outs = append(outs, mustOutput(t, owner, amount, record.OutputID(owner+"-genesis")))
	}
	e, err := utxoledger.InMemory().WithGenesis(outs...)
	require.NoError(t, err)
	return e
}

func TestAddRejectsDuplicatePending(t *testing.T) {
	e := genesisLedger(t, map[string]record.Amount{"alice": 100})
	pool := mempool.New(e)

	recipient := mustOutput(t, "bob", 40, "")
	tx, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{recipient}, record.WithSigner("alice"), record.WithID("tx1"))
	require.NoError(t, err)

	require.NoError(t, pool.Add(tx))
	require.Error(t, pool.Add(tx))
}

func TestAddRejectsWhatLedgerWouldReject(t *testing.T) {
	e := genesisLedger(t, map[string]record.Amount{"alice": 100})
	pool := mempool.New(e)

	recipient := mustOutput(t, "bob", 40, "")
	tx, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{recipient}, record.WithSigner("mallory"))
	require.NoError(t, err)

	require.Error(t, pool.Add(tx))
}

func TestAddRejectsCrossPendingDoubleSpend(t *testing.T) {
	e := genesisLedger(t, map[string]record.Amount{"alice": 100})
	pool := mempool.New(e)

	r1 := mustOutput(t, "bob", 10, "")
	tx1, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{r1}, record.WithSigner("alice"), record.WithID("tx1"))
	require.NoError(t, err)
	require.NoError(t, pool.Add(tx1))

	r2 := mustOutput(t, "carol", 20, "")
	tx2, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{r2}, record.WithSigner("alice"), record.WithID("tx2"))
	require.NoError(t, err)
	require.Error(t, pool.Add(tx2), "a second pending tx must not claim an output tx1 already claims")
}

func TestRemoveReleasesClaim(t *testing.T) {
	e := genesisLedger(t, map[string]record.Amount{"alice": 100})
	pool := mempool.New(e)

	r1 := mustOutput(t, "bob", 10, "")
	tx1, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{r1}, record.WithSigner("alice"), record.WithID("tx1"))
	require.NoError(t, err)
	require.NoError(t, pool.Add(tx1))

	pool.Remove("tx1")
	assert.False(t, pool.Has("tx1"))

	r2 := mustOutput(t, "carol", 20, "")
	tx2, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{r2}, record.WithSigner("alice"), record.WithID("tx2"))
	require.NoError(t, err)
	assert.NoError(t, pool.Add(tx2), "the claim must be released so a later tx can reuse the output")
}

func TestRemoveIsNoOpWhenAbsent(t *testing.T) {
	e := genesisLedger(t, map[string]record.Amount{"alice": 100})
	pool := mempool.New(e)
	pool.Remove("nonexistent")
	assert.Equal(t, 0, pool.Count())
}

func TestReplaceFailsIfOldAbsent(t *testing.T) {
	e := genesisLedger(t, map[string]record.Amount{"alice": 100})
	pool := mempool.New(e)

	r := mustOutput(t, "bob", 10, "")
	tx, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{r}, record.WithSigner("alice"))
	require.NoError(t, err)
	require.Error(t, pool.Replace("nonexistent", tx))
}

func TestReplaceSwapsInNewTx(t *testing.T) {
	e := genesisLedger(t, map[string]record.Amount{"alice": 100})
	pool := mempool.New(e)

	lowFee := mustOutput(t, "bob", 95, "")
	tx1, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{lowFee}, record.WithSigner("alice"), record.WithID("tx1"))
	require.NoError(t, err)
	require.NoError(t, pool.Add(tx1))

	highFee := mustOutput(t, "bob", 80, "")
	tx2, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{highFee}, record.WithSigner("alice"), record.WithID("tx2"))
	require.NoError(t, err)

	require.NoError(t, pool.Replace("tx1", tx2))
	assert.False(t, pool.Has("tx1"))
	assert.True(t, pool.Has("tx2"))
}

func TestCommitAppliesInOrderAndClearsPool(t *testing.T) {
	e := genesisLedger(t, map[string]record.Amount{"alice": 100})
	pool := mempool.New(e)

	r1 := mustOutput(t, "bob", 40, "")
	tx1, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{r1}, record.WithSigner("alice"), record.WithID("tx1"))
	require.NoError(t, err)
	require.NoError(t, pool.Add(tx1))

	committed, next, err := pool.Commit()
	require.NoError(t, err)
	assert.Equal(t, 1, committed)
	assert.Equal(t, 0, pool.Count())
	assert.Equal(t, record.Amount(40), next.TotalUnspentByOwner("bob"))
}

func TestCommitOneAppliesSingleTx(t *testing.T) {
	e := genesisLedger(t, map[string]record.Amount{"alice": 100})
	pool := mempool.New(e)

	r1 := mustOutput(t, "bob", 40, "")
	tx1, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{r1}, record.WithSigner("alice"), record.WithID("tx1"))
	require.NoError(t, err)
	require.NoError(t, pool.Add(tx1))

	next, err := pool.CommitOne("tx1")
	require.NoError(t, err)
	assert.Equal(t, record.Amount(40), next.TotalUnspentByOwner("bob"))
	assert.False(t, pool.Has("tx1"))
}

func TestQueriesReportFees(t *testing.T) {
	e := genesisLedger(t, map[string]record.Amount{"alice": 100})
	pool := mempool.New(e)

	r1 := mustOutput(t, "bob", 40, "")
	tx1, err := record.Create([]record.OutputID{"alice-genesis"}, []*record.Output{r1}, record.WithSigner("alice"), record.WithID("tx1"))
	require.NoError(t, err)
	require.NoError(t, pool.Add(tx1))

	fee, ok := pool.FeeFor("tx1")
	require.True(t, ok)
	assert.Equal(t, record.Amount(60), fee)
	assert.Equal(t, record.Amount(60), pool.TotalPendingFees())
	assert.Len(t, pool.All(), 1)
}
