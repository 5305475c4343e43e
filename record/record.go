// Package record defines the immutable value objects of the ledger's
// data model: amounts, output and transaction identifiers, outputs,
// regular transactions, and coinbase transactions. Constructors are the
// only way to obtain a value of these types, so every instance in
// circulation already satisfies its structural invariants.
package record

import (
	"fmt"
	"math"
	"regexp"
)

// Amount is a non-negative quantity in the ledger's smallest unit.
// int64 is wide enough that sums of legal positive amounts cannot
// silently wrap before AddAmount/SumAmounts detect the overflow.
type Amount int64

// MaxAmount is the largest representable Amount.
const MaxAmount Amount = math.MaxInt64

// AddAmount returns a+b, failing with an *Error ("amount overflow")
// instead of wrapping.
func AddAmount(a, b Amount) (Amount, error) {
	if a > 0 && b > MaxAmount-a {
		return 0, newError("AddAmount", "amount overflow")
	}
	return a + b, nil
}

// SumAmounts folds AddAmount over vals, starting from zero.
func SumAmounts(vals ...Amount) (Amount, error) {
	var total Amount
	var err error
	for _, v := range vals {
		total, err = AddAmount(total, v)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// OutputID uniquely identifies an output for its entire lifetime within
// a ledger, spent or not.
type OutputID string

// TxID uniquely identifies a transaction (regular or coinbase) across
// the whole ledger.
type TxID string

var txIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validateOutputID(id OutputID) error {
	if id == "" {
		return newError("OutputID", "output id must not be empty")
	}
	return nil
}

func validateTxID(id TxID) error {
	if !txIDPattern.MatchString(string(id)) {
		return newError("TxID", "transaction id must be 1-64 chars of [A-Za-z0-9_-]")
	}
	return nil
}

// Error is a structural-validation failure raised by a record
// constructor (non-positive amount, malformed id, duplicate id within
// a transaction, empty input/output lists, amount overflow, ...). The
// root ledger package returns these unchanged; they are not wrapped
// into its LedgerError taxonomy.
type Error struct {
	Op  string
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func newError(op, msg string) *Error {
	return &Error{Op: op, Msg: msg}
}
