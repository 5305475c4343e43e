// Package lock implements the polymorphic authorization predicate
// attached to every output: the OutputLock capability, its built-in
// and extension variants, canonical (de)serialization, and the
// registry that lets callers add their own variants.
package lock

import "fmt"

// TxView is the minimal transaction surface a lock needs to validate a
// spend. record.Tx implements this without lock importing record,
// which would otherwise create an import cycle (record.Output holds an
// OutputLock).
type TxView interface {
	TxID() string
	Signer() string
	ProofAt(index int) (string, bool)
}

// OutputLock is the authorization predicate for an output. Validate
// reports whether spendIndex-th spend of tx is authorized to consume
// the output this lock guards.
type OutputLock interface {
	Validate(tx TxView, spendIndex int) error
	ToCanonical() CanonicalForm
}

// CanonicalForm is the deterministic map representation of a lock,
// always carrying a "type" key. It is the wire format used by JSON
// ledger serialization and by the relational backend's lock_custom_data
// column.
type CanonicalForm map[string]any

// TypeOf returns the mandatory "type" field, or "" if absent.
func (c CanonicalForm) TypeOf() string {
	t, _ := c["type"].(string)
	return t
}

// Clock abstracts wall-clock seconds so TimeLock is deterministic under
// test. Default is time.Now().Unix(); see Clock and its use in
// extended.go.
type Clock func() int64

// Error is returned by lock construction and validation failures. It
// is wrapped into the root package's LedgerError(KindAuthorization) by
// callers that need the full taxonomy; within this package it stays a
// plain error so lock has no dependency on the engine's error type.
type Error struct {
	Op  string
	Msg string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func newError(op, msg string) *Error {
	return &Error{Op: op, Msg: msg}
}
