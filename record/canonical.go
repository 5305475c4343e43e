package record

import "github.com/ledgerforge/utxoledger/lock"

// ToCanonical returns the JSON-ready {amount, lock} representation used
// by ledger serialization and by the relational backend's row decode.
func (o *Output) ToCanonical() map[string]any {
	return map[string]any{
		"amount": int64(o.amount),
		"lock":   map[string]any(o.lock.ToCanonical()),
	}
}

// OutputFromCanonical rebuilds an Output from its id and the {amount,
// lock} map produced by ToCanonical. A missing "lock" field is an
// error: the library never assumes lock.None.
func OutputFromCanonical(id OutputID, form map[string]any, reg *lock.Registry) (*Output, error) {
	amountRaw, ok := form["amount"]
	if !ok {
		return nil, newError("OutputFromCanonical", "missing amount")
	}
	amount, ok := asAmount(amountRaw)
	if !ok {
		return nil, newError("OutputFromCanonical", "invalid amount")
	}

	lockRaw, ok := form["lock"]
	if !ok {
		return nil, newError("OutputFromCanonical", "missing lock")
	}
	lockMap, ok := lockRaw.(map[string]any)
	if !ok {
		if cf, ok2 := lockRaw.(lock.CanonicalForm); ok2 {
			lockMap = map[string]any(cf)
		} else {
			return nil, newError("OutputFromCanonical", "lock must be an object")
		}
	}

	lk, err := reg.FromCanonical(lock.CanonicalForm(lockMap))
	if err != nil {
		return nil, err
	}
	return newOutput(id, amount, lk)
}

func asAmount(v any) (Amount, bool) {
	switch n := v.(type) {
	case int64:
		return Amount(n), true
	case int:
		return Amount(n), true
	case float64:
		return Amount(n), true
	default:
		return 0, false
	}
}
