package utxoset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/utxoledger/lock"
	"github.com/ledgerforge/utxoledger/record"
	"github.com/ledgerforge/utxoledger/utxoset"
)

func mustOutput(t *testing.T, owner string, amount record.Amount, id record.OutputID) *record.Output {
	t.Helper()
	out, err := record.OwnedBy(owner, amount, id)
	require.NoError(t, err)
	return out
}

func TestAddAndRemoveTrackTotal(t *testing.T) {
	s := utxoset.New()
	s.Add(mustOutput(t, "alice", 10, "o1"))
	s.Add(mustOutput(t, "bob", 20, "o2"))
	assert.Equal(t, record.Amount(30), s.TotalAmount())
	assert.Equal(t, 2, s.Count())

	s.Remove("o1")
	assert.Equal(t, record.Amount(20), s.TotalAmount())
	assert.Equal(t, 1, s.Count())
	assert.False(t, s.Contains("o1"))
}

func TestAddOverwriteAdjustsTotalByDelta(t *testing.T) {
	s := utxoset.New()
	s.Add(mustOutput(t, "alice", 10, "o1"))
	s.Add(mustOutput(t, "alice", 50, "o1"))
	assert.Equal(t, record.Amount(50), s.TotalAmount())
	assert.Equal(t, 1, s.Count())
}

func TestCloneIsIndependent(t *testing.T) {
	s := utxoset.New()
	s.Add(mustOutput(t, "alice", 10, "o1"))

	clone := s.Clone()
	clone.Add(mustOutput(t, "bob", 20, "o2"))
	clone.Remove("o1")

	assert.Equal(t, 1, s.Count(), "the original must not see the clone's mutations")
	assert.Equal(t, record.Amount(10), s.TotalAmount())
	assert.Equal(t, 1, clone.Count())
	assert.Equal(t, record.Amount(20), clone.TotalAmount())
}

func TestOwnedByFiltersByOwnerName(t *testing.T) {
	s := utxoset.New()
	s.Add(mustOutput(t, "alice", 10, "o1"))
	s.Add(mustOutput(t, "alice", 5, "o2"))
	s.Add(mustOutput(t, "bob", 7, "o3"))

	owned := s.OwnedBy("alice")
	assert.Len(t, owned, 2)
	assert.Equal(t, record.Amount(15), s.TotalOwnedBy("alice"))
	assert.Equal(t, record.Amount(7), s.TotalOwnedBy("bob"))
	assert.Equal(t, record.Amount(0), s.TotalOwnedBy("carol"))
}

func TestForEachEarlyExit(t *testing.T) {
	s := utxoset.New()
	s.Add(mustOutput(t, "alice", 10, "o1"))
	s.Add(mustOutput(t, "alice", 10, "o2"))

	visited := 0
	s.ForEach(func(record.OutputID, *record.Output) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}

func TestCanonicalRoundTrip(t *testing.T) {
	reg := lock.NewRegistry()
	s := utxoset.New()
	s.Add(mustOutput(t, "alice", 10, "o1"))
	s.Add(mustOutput(t, "bob", 20, "o2"))

	form := s.ToCanonical()
	rebuilt, err := utxoset.FromCanonical(form, reg)
	require.NoError(t, err)

	assert.Equal(t, s.Count(), rebuilt.Count())
	assert.Equal(t, s.TotalAmount(), rebuilt.TotalAmount())
	out, ok := rebuilt.Get("o1")
	require.True(t, ok)
	assert.Equal(t, record.Amount(10), out.Amount())
}
