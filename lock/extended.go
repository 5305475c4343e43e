package lock

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // supported HashLock digest, not used for new signatures
	"golang.org/x/crypto/sha3"
)

// Extension variant type tags. These are not built-in (Registry starts
// without handlers for them); a caller must Register them before
// Registry.FromCanonical can reconstruct one from persisted state.
const (
	TypeTimeLock = "timelock"
	TypeMultisig = "multisig"
	TypeHashLock = "hashlock"
)

func defaultClock() int64 { return time.Now().Unix() }

// TimeLock rejects every spend until Clock() >= UnlockTime, then
// delegates to Inner.
type TimeLock struct {
	Inner      OutputLock
	UnlockTime int64
	clock      Clock
}

// NewTimeLock builds a TimeLock that is not yet unlocked; it rejects an
// UnlockTime that has already passed. Use NewAlreadyUnlockedTimeLock to
// bypass this check when restoring a TimeLock from persistence.
func NewTimeLock(inner OutputLock, unlockTime int64, clock Clock) (TimeLock, error) {
	if clock == nil {
		clock = defaultClock
	}
	if unlockTime <= clock() {
		return TimeLock{}, newError("NewTimeLock", "unlock time is in the past")
	}
	return TimeLock{Inner: inner, UnlockTime: unlockTime, clock: clock}, nil
}

// NewAlreadyUnlockedTimeLock restores a TimeLock without enforcing the
// future-time constructor check, for deserialization only.
func NewAlreadyUnlockedTimeLock(inner OutputLock, unlockTime int64, clock Clock) TimeLock {
	if clock == nil {
		clock = defaultClock
	}
	return TimeLock{Inner: inner, UnlockTime: unlockTime, clock: clock}
}

func (t TimeLock) Validate(tx TxView, spendIndex int) error {
	if t.clock == nil {
		t.clock = defaultClock
	}
	if t.clock() < t.UnlockTime {
		return newError("TimeLock.Validate", "still time-locked")
	}
	return t.Inner.Validate(tx, spendIndex)
}

func (t TimeLock) ToCanonical() CanonicalForm {
	return CanonicalForm{
		"type":        TypeTimeLock,
		"unlock_time": t.UnlockTime,
		"inner":       map[string]any(t.Inner.ToCanonical()),
	}
}

// Multisig requires at least Threshold of Signers to appear,
// comma-separated, in the spend's proof.
type Multisig struct {
	Threshold int
	Signers   []string
}

func NewMultisig(threshold int, signers []string) (Multisig, error) {
	if len(signers) == 0 {
		return Multisig{}, newError("NewMultisig", "signers must not be empty")
	}
	if threshold < 1 || threshold > len(signers) {
		return Multisig{}, newError("NewMultisig", "threshold must be between 1 and len(signers)")
	}
	seen := make(map[string]bool, len(signers))
	for _, s := range signers {
		if strings.TrimSpace(s) == "" {
			return Multisig{}, newError("NewMultisig", "signer name must not be blank")
		}
		if seen[s] {
			return Multisig{}, newError("NewMultisig", "duplicate signer: "+s)
		}
		seen[s] = true
	}
	cp := make([]string, len(signers))
	copy(cp, signers)
	return Multisig{Threshold: threshold, Signers: cp}, nil
}

func (m Multisig) Validate(tx TxView, spendIndex int) error {
	proof, ok := tx.ProofAt(spendIndex)
	if !ok {
		return newError("Multisig.Validate", "missing proof for spend index")
	}
	allowed := make(map[string]bool, len(m.Signers))
	for _, s := range m.Signers {
		allowed[s] = true
	}
	seen := make(map[string]bool)
	count := 0
	for _, raw := range strings.Split(proof, ",") {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if !allowed[name] {
			return newError("Multisig.Validate", "unknown signer: "+name)
		}
		count++
	}
	if count < m.Threshold {
		return newError("Multisig.Validate", "below multisig threshold")
	}
	return nil
}

func (m Multisig) ToCanonical() CanonicalForm {
	signers := make([]string, len(m.Signers))
	copy(signers, m.Signers)
	sort.Strings(signers)
	return CanonicalForm{
		"type":      TypeMultisig,
		"threshold": m.Threshold,
		"signers":   signers,
	}
}

// Hash algorithm tags for HashLock.
const (
	AlgoSHA256    = "sha256"
	AlgoSHA512    = "sha512"
	AlgoRIPEMD160 = "ripemd160"
	AlgoSHA3_256  = "sha3-256"
)

// HashLock requires the spend's proof to be the preimage of Hash under
// Algorithm; on success it delegates to Inner, if present.
type HashLock struct {
	Hash      []byte
	Algorithm string
	Inner     OutputLock // nil when there is no wrapped lock
}

func NewHashLock(hash []byte, algorithm string, inner OutputLock) (HashLock, error) {
	switch algorithm {
	case AlgoSHA256, AlgoSHA512, AlgoRIPEMD160, AlgoSHA3_256:
	default:
		return HashLock{}, newError("NewHashLock", "unsupported hash algorithm: "+algorithm)
	}
	if len(hash) == 0 {
		return HashLock{}, newError("NewHashLock", "hash must not be empty")
	}
	cp := make([]byte, len(hash))
	copy(cp, hash)
	return HashLock{Hash: cp, Algorithm: algorithm, Inner: inner}, nil
}

func digest(algorithm string, preimage []byte) []byte {
	switch algorithm {
	case AlgoSHA256:
		sum := sha256.Sum256(preimage)
		return sum[:]
	case AlgoSHA512:
		sum := sha512.Sum512(preimage)
		return sum[:]
	case AlgoRIPEMD160:
		h := ripemd160.New()
		h.Write(preimage)
		return h.Sum(nil)
	case AlgoSHA3_256:
		sum := sha3.Sum256(preimage)
		return sum[:]
	default:
		return nil
	}
}

func (h HashLock) Validate(tx TxView, spendIndex int) error {
	proof, ok := tx.ProofAt(spendIndex)
	if !ok {
		return newError("HashLock.Validate", "missing proof for spend index")
	}
	got := digest(h.Algorithm, []byte(proof))
	if got == nil || subtle.ConstantTimeCompare(got, h.Hash) != 1 {
		return newError("HashLock.Validate", "preimage does not match hash")
	}
	if h.Inner != nil {
		return h.Inner.Validate(tx, spendIndex)
	}
	return nil
}

func (h HashLock) ToCanonical() CanonicalForm {
	form := CanonicalForm{
		"type":      TypeHashLock,
		"hash":      hex.EncodeToString(h.Hash),
		"algorithm": h.Algorithm,
	}
	if h.Inner != nil {
		form["inner"] = map[string]any(h.Inner.ToCanonical())
	}
	return form
}
