package lock_test

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/utxoledger/lock"
)

type fakeTx struct {
	id     string
	signer string
	proofs map[int]string
}

func (f fakeTx) TxID() string    { return f.id }
func (f fakeTx) Signer() string  { return f.signer }
func (f fakeTx) ProofAt(i int) (string, bool) {
	p, ok := f.proofs[i]
	return p, ok
}

func TestNoneAllowsAnySpend(t *testing.T) {
	var n lock.None
	assert.NoError(t, n.Validate(fakeTx{}, 0))
}

func TestOwnerRequiresExactSigner(t *testing.T) {
	o, err := lock.NewOwner("alice")
	require.NoError(t, err)

	assert.NoError(t, o.Validate(fakeTx{signer: "alice"}, 0))
	assert.Error(t, o.Validate(fakeTx{signer: "bob"}, 0))
}

func TestOwnerIgnoresProofs(t *testing.T) {
	o, err := lock.NewOwner("alice")
	require.NoError(t, err)
	// Owner must never consult proofs, only SignedBy.
	assert.NoError(t, o.Validate(fakeTx{signer: "alice", proofs: map[int]string{0: "garbage"}}, 0))
}

func TestPublicKeyRejectsMalformedProof(t *testing.T) {
	pk, err := lock.NewPublicKey("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	require.NoError(t, err)
	assert.Error(t, pk.Validate(fakeTx{id: "tx1", proofs: map[int]string{0: "not-base64!!"}}, 0))
	assert.Error(t, pk.Validate(fakeTx{id: "tx1"}, 0), "missing proof must fail")
}

func TestTimeLockRejectsPastUnlockTime(t *testing.T) {
	clock := func() int64 { return 100 }
	_, err := lock.NewTimeLock(lock.None{}, 50, clock)
	require.Error(t, err, "an unlock time already in the past is a construction error")
}

func TestTimeLockBlocksUntilUnlocked(t *testing.T) {
	now := int64(100)
	clock := func() int64 { return now }
	tl, err := lock.NewTimeLock(lock.None{}, 200, clock)
	require.NoError(t, err)

	assert.Error(t, tl.Validate(fakeTx{}, 0), "still time-locked")
	now = 200
	assert.NoError(t, tl.Validate(fakeTx{}, 0), "unlocked once clock reaches UnlockTime")
}

func TestAlreadyUnlockedTimeLockBypassesConstructorCheck(t *testing.T) {
	clock := func() int64 { return 1000 }
	tl := lock.NewAlreadyUnlockedTimeLock(lock.None{}, 50, clock)
	assert.NoError(t, tl.Validate(fakeTx{}, 0), "restoring an already-unlocked timelock must not re-check the past")
}

func TestMultisigThreshold(t *testing.T) {
	ms, err := lock.NewMultisig(2, []string{"alice", "bob", "carol"})
	require.NoError(t, err)

	assert.NoError(t, ms.Validate(fakeTx{proofs: map[int]string{0: "alice, bob"}}, 0))
	assert.Error(t, ms.Validate(fakeTx{proofs: map[int]string{0: "alice"}}, 0), "below threshold")
	assert.Error(t, ms.Validate(fakeTx{proofs: map[int]string{0: "alice, mallory"}}, 0), "unknown signer")
}

func TestMultisigRejectsBlankSigner(t *testing.T) {
	_, err := lock.NewMultisig(1, []string{"alice", "  "})
	require.Error(t, err)
}

func TestHashLockRequiresPreimage(t *testing.T) {
	hl, err := lock.NewHashLock([]byte{1, 2, 3, 4}, lock.AlgoSHA256, nil)
	require.NoError(t, err)
	assert.Error(t, hl.Validate(fakeTx{proofs: map[int]string{0: "wrong"}}, 0))
}

func TestHashLockWrapsInner(t *testing.T) {
	owner, err := lock.NewOwner("alice")
	require.NoError(t, err)

	preimage := "secret"
	digest := shaHex(preimage)
	hl, err := lock.NewHashLock(digest, lock.AlgoSHA256, owner)
	require.NoError(t, err)

	require.NoError(t, hl.Validate(fakeTx{signer: "alice", proofs: map[int]string{0: preimage}}, 0))
	assert.Error(t, hl.Validate(fakeTx{signer: "bob", proofs: map[int]string{0: preimage}}, 0), "correct preimage but wrong inner signer")
}

func TestRegistryRoundTripBuiltins(t *testing.T) {
	reg := lock.NewRegistry()

	none := lock.None{}
	got, err := reg.FromCanonical(none.ToCanonical())
	require.NoError(t, err)
	assert.Equal(t, none, got)

	owner, err := lock.NewOwner("alice")
	require.NoError(t, err)
	got, err = reg.FromCanonical(owner.ToCanonical())
	require.NoError(t, err)
	assert.Equal(t, owner, got)
}

func TestRegistryUnknownTypeFails(t *testing.T) {
	reg := lock.NewRegistry()
	_, err := reg.FromCanonical(lock.CanonicalForm{"type": "nonsense"})
	require.Error(t, err)
}

func TestRegistryRegisterHasHandlerAndReset(t *testing.T) {
	reg := lock.NewRegistry()
	reg.Register(lock.TypeTimeLock, lock.TimeLockFactory(reg))
	reg.Register(lock.TypeMultisig, lock.MultisigFactory())
	reg.Register(lock.TypeHashLock, lock.HashLockFactory(reg))

	assert.True(t, reg.HasHandler(lock.TypeTimeLock))
	assert.True(t, reg.HasHandler(lock.TypeMultisig))
	assert.ElementsMatch(t, []string{lock.TypeNone, lock.TypeOwner, lock.TypePublicKey, lock.TypeTimeLock, lock.TypeMultisig, lock.TypeHashLock}, reg.RegisteredTags())

	reg.Reset()
	assert.False(t, reg.HasHandler(lock.TypeTimeLock))
}

func TestTimeLockCanonicalRoundTrip(t *testing.T) {
	reg := lock.NewRegistry()
	reg.Register(lock.TypeTimeLock, lock.TimeLockFactory(reg))

	owner, err := lock.NewOwner("alice")
	require.NoError(t, err)
	tl := lock.NewAlreadyUnlockedTimeLock(owner, 500, nil)

	got, err := reg.FromCanonical(tl.ToCanonical())
	require.NoError(t, err)
	rebuilt, ok := got.(lock.TimeLock)
	require.True(t, ok)
	assert.Equal(t, int64(500), rebuilt.UnlockTime)
	assert.Equal(t, owner, rebuilt.Inner)
}

func shaHex(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}
