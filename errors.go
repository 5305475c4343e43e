package utxoledger

import "github.com/ledgerforge/utxoledger/errs"

// LedgerError is the root error type every core failure derives from.
// It is defined in the internal errs package (shared with history,
// which sits below this package in the import graph) and re-exported
// here under the name callers actually use: utxoledger.LedgerError.
type LedgerError = errs.LedgerError

// ErrorKind identifies a class of ledger failure.
type ErrorKind = errs.Kind

const (
	KindDuplicateTx        = errs.KindDuplicateTx
	KindDuplicateOutputID  = errs.KindDuplicateOutputID
	KindOutputAlreadySpent = errs.KindOutputAlreadySpent
	KindInsufficientSpends = errs.KindInsufficientSpends
	KindAuthorization      = errs.KindAuthorization
	KindGenesisNotAllowed  = errs.KindGenesisNotAllowed
	KindPersistence        = errs.KindPersistence
)

// One sentinel per Kind, usable with errors.Is.
var (
	ErrDuplicateTx        = errs.ErrDuplicateTx
	ErrDuplicateOutputID  = errs.ErrDuplicateOutputID
	ErrOutputAlreadySpent = errs.ErrOutputAlreadySpent
	ErrInsufficientSpends = errs.ErrInsufficientSpends
	ErrAuthorization      = errs.ErrAuthorization
	ErrGenesisNotAllowed  = errs.ErrGenesisNotAllowed
	ErrPersistence        = errs.ErrPersistence
)
