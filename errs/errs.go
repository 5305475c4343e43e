// Package errs defines the ledger's error taxonomy as a single
// Kind-tagged family so callers can switch on failure class or use
// errors.Is against one sentinel per kind. It lives in its own
// package, beneath both history and the root engine, so both can
// return these errors without an import cycle; the root package
// re-exports the names a caller actually sees.
package errs

import "fmt"

// Kind identifies a class of ledger failure.
type Kind int

const (
	KindDuplicateTx Kind = iota
	KindDuplicateOutputID
	KindOutputAlreadySpent
	KindInsufficientSpends
	KindAuthorization
	KindGenesisNotAllowed
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindDuplicateTx:
		return "DuplicateTx"
	case KindDuplicateOutputID:
		return "DuplicateOutputID"
	case KindOutputAlreadySpent:
		return "OutputAlreadySpent"
	case KindInsufficientSpends:
		return "InsufficientSpends"
	case KindAuthorization:
		return "Authorization"
	case KindGenesisNotAllowed:
		return "GenesisNotAllowed"
	case KindPersistence:
		return "Persistence"
	default:
		return "Unknown"
	}
}

// LedgerError is the root error type every core failure derives from.
// Msg carries the specific condition; Err optionally wraps an
// underlying cause (e.g. a relational backend's driver error).
type LedgerError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// Is reports whether target is a *LedgerError of the same Kind,
// letting errors.Is(err, ErrDuplicateTx) work regardless of Msg/Err.
func (e *LedgerError) Is(target error) bool {
	le, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return e.Kind == le.Kind
}

// New builds a LedgerError of the given kind.
func New(kind Kind, msg string) *LedgerError {
	return &LedgerError{Kind: kind, Msg: msg}
}

// Wrap builds a LedgerError of the given kind around an underlying
// cause, used by the relational backend to surface driver failures
// after rollback.
func Wrap(kind Kind, msg string, cause error) *LedgerError {
	return &LedgerError{Kind: kind, Msg: msg, Err: cause}
}

// One sentinel per Kind, for errors.Is checks against the class of
// failure without caring about Msg/Err.
var (
	ErrDuplicateTx        = New(KindDuplicateTx, "transaction id already applied or pending")
	ErrDuplicateOutputID  = New(KindDuplicateOutputID, "output id collides with an existing output")
	ErrOutputAlreadySpent = New(KindOutputAlreadySpent, "spend references a missing or already-spent output")
	ErrInsufficientSpends = New(KindInsufficientSpends, "sum of spends is less than sum of outputs")
	ErrAuthorization      = New(KindAuthorization, "lock validation rejected the spend")
	ErrGenesisNotAllowed  = New(KindGenesisNotAllowed, "genesis is only allowed into an empty ledger")
	ErrPersistence        = New(KindPersistence, "backend failure")
)
