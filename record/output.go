package record

import "github.com/ledgerforge/utxoledger/lock"

// Output is an immutable (id, amount, lock) triple: a value-bearing
// record that can be consumed at most once.
type Output struct {
	id     OutputID
	amount Amount
	lock   lock.OutputLock
}

// ID returns the output's identifier.
func (o *Output) ID() OutputID { return o.id }

// Amount returns the output's value.
func (o *Output) Amount() Amount { return o.amount }

// Lock returns the output's authorization predicate.
func (o *Output) Lock() lock.OutputLock { return o.lock }

func newOutput(id OutputID, amount Amount, lk lock.OutputLock) (*Output, error) {
	if amount <= 0 {
		return nil, newError("Output", "output amount must be positive")
	}
	if lk == nil {
		return nil, newError("Output", "output lock must not be nil")
	}
	if id == "" {
		id = generateOutputID(amount)
	}
	if err := validateOutputID(id); err != nil {
		return nil, err
	}
	return &Output{id: id, amount: amount, lock: lk}, nil
}

// Open creates an output spendable by anyone (lock.None). If id is
// empty, one is generated from the amount plus fresh randomness.
func Open(amount Amount, id OutputID) (*Output, error) {
	return newOutput(id, amount, lock.None{})
}

// OwnedBy creates an output spendable only by a transaction whose
// SignedBy equals owner.
func OwnedBy(owner string, amount Amount, id OutputID) (*Output, error) {
	lk, err := lock.NewOwner(owner)
	if err != nil {
		return nil, err
	}
	return newOutput(id, amount, lk)
}

// SignedByKey creates an output spendable only by presenting a valid
// Ed25519 signature over the spending transaction's id, verified
// against the base64-encoded public key pubKeyB64.
func SignedByKey(pubKeyB64 string, amount Amount, id OutputID) (*Output, error) {
	lk, err := lock.NewPublicKey(pubKeyB64)
	if err != nil {
		return nil, err
	}
	return newOutput(id, amount, lk)
}

// LockedWith creates an output guarded by an arbitrary lock, built-in
// or custom.
func LockedWith(lk lock.OutputLock, amount Amount, id OutputID) (*Output, error) {
	return newOutput(id, amount, lk)
}
