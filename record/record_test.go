package record_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/utxoledger/lock"
	"github.com/ledgerforge/utxoledger/record"
)

func TestAddAmountOverflow(t *testing.T) {
	_, err := record.AddAmount(record.MaxAmount, 1)
	require.Error(t, err)

	sum, err := record.AddAmount(10, 20)
	require.NoError(t, err)
	assert.Equal(t, record.Amount(30), sum)
}

func TestSumAmounts(t *testing.T) {
	sum, err := record.SumAmounts(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, record.Amount(6), sum)

	_, err = record.SumAmounts(record.MaxAmount, record.MaxAmount)
	require.Error(t, err)
}

func TestOutputPositivity(t *testing.T) {
	_, err := record.Open(0, "")
	require.Error(t, err, "zero amount must be rejected")

	_, err = record.Open(-5, "")
	require.Error(t, err)

	out, err := record.Open(10, "")
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID(), "an omitted id must be generated")
}

func TestOutputIDsAreUnique(t *testing.T) {
	a, err := record.Open(10, "")
	require.NoError(t, err)
	b, err := record.Open(10, "")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID(), "two generated ids for the same amount must not collide")
}

func TestCreateRequiresSpendsAndOutputs(t *testing.T) {
	out, err := record.Open(10, "out1")
	require.NoError(t, err)

	_, err = record.Create(nil, []*record.Output{out})
	require.Error(t, err)

	_, err = record.Create([]record.OutputID{"in1"}, nil)
	require.Error(t, err)
}

func TestCreateDeterministicID(t *testing.T) {
	out1, err := record.Open(10, "out1")
	require.NoError(t, err)
	out2, err := record.Open(10, "out1")
	require.NoError(t, err)

	tx1, err := record.Create([]record.OutputID{"spend1"}, []*record.Output{out1})
	require.NoError(t, err)
	tx2, err := record.Create([]record.OutputID{"spend1"}, []*record.Output{out2})
	require.NoError(t, err)

	assert.Equal(t, tx1.ID(), tx2.ID(), "equal spends+outputs must generate equal ids")
}

func TestCreateRejectsDuplicateIDs(t *testing.T) {
	out, err := record.Open(10, "out1")
	require.NoError(t, err)

	_, err = record.Create([]record.OutputID{"spend1", "spend1"}, []*record.Output{out})
	require.Error(t, err, "duplicate spend id within one transaction must be rejected")

	out2, err := record.Open(5, "out1")
	require.NoError(t, err)
	_, err = record.Create([]record.OutputID{"spend1"}, []*record.Output{out, out2})
	require.Error(t, err, "duplicate output id within one transaction must be rejected")
}

func TestCoinbaseRequiresOutputs(t *testing.T) {
	_, err := record.CreateCoinbase(nil)
	require.Error(t, err, "an empty coinbase is a construction error")
}

func TestCoinbaseTotalMinted(t *testing.T) {
	out1, err := record.Open(10, "out1")
	require.NoError(t, err)
	out2, err := record.Open(25, "out2")
	require.NoError(t, err)

	cb, err := record.CreateCoinbase([]*record.Output{out1, out2})
	require.NoError(t, err)

	total, err := cb.TotalMinted()
	require.NoError(t, err)
	assert.Equal(t, record.Amount(35), total)
}

func TestOutputCanonicalRoundTrip(t *testing.T) {
	reg := lock.NewRegistry()
	out, err := record.OwnedBy("alice", 42, "out1")
	require.NoError(t, err)

	form := out.ToCanonical()
	rebuilt, err := record.OutputFromCanonical(out.ID(), form, reg)
	require.NoError(t, err)

	assert.Equal(t, out.ID(), rebuilt.ID())
	assert.Equal(t, out.Amount(), rebuilt.Amount())
	assert.Equal(t, out.Lock().ToCanonical(), rebuilt.Lock().ToCanonical())
}

func TestOutputFromCanonicalRequiresLock(t *testing.T) {
	reg := lock.NewRegistry()
	_, err := record.OutputFromCanonical("out1", map[string]any{"amount": int64(10)}, reg)
	require.Error(t, err, "a missing lock field must never default to lock.None")
}
