// Package utxoset implements the unspent-output index: a keyed
// collection from OutputID to Output with O(1) membership and a cached
// running total.
package utxoset

import (
	"sort"

	"github.com/ledgerforge/utxoledger/lock"
	"github.com/ledgerforge/utxoledger/record"
)

// Set is the unspent-output index. The zero value is not usable; call
// New. Set is not safe for concurrent use.
type Set struct {
	store map[record.OutputID]*record.Output
	total record.Amount
}

// New returns an empty index.
func New() *Set {
	return &Set{store: make(map[record.OutputID]*record.Output)}
}

// Clone returns an independent copy of s. The ledger engine calls this
// before mutating its index so that an Engine value returned by a
// prior apply never observes a later apply's effects.
func (s *Set) Clone() *Set {
	cp := &Set{
		store: make(map[record.OutputID]*record.Output, len(s.store)),
		total: s.total,
	}
	for id, out := range s.store {
		cp.store[id] = out
	}
	return cp
}

// Add inserts or overwrites out, adjusting the cached total by the net
// delta.
func (s *Set) Add(out *record.Output) {
	if old, ok := s.store[out.ID()]; ok {
		s.total -= old.Amount()
	}
	s.store[out.ID()] = out
	s.total += out.Amount()
}

// Remove deletes id if present; a no-op otherwise.
func (s *Set) Remove(id record.OutputID) {
	if old, ok := s.store[id]; ok {
		s.total -= old.Amount()
		delete(s.store, id)
	}
}

// Contains reports whether id is currently unspent.
func (s *Set) Contains(id record.OutputID) bool {
	_, ok := s.store[id]
	return ok
}

// Get returns the output for id, if unspent.
func (s *Set) Get(id record.OutputID) (*record.Output, bool) {
	out, ok := s.store[id]
	return out, ok
}

// Count returns the number of unspent outputs.
func (s *Set) Count() int { return len(s.store) }

// TotalAmount returns the cached sum of all unspent outputs' amounts.
func (s *Set) TotalAmount() record.Amount { return s.total }

// Entry pairs an id with its output, for iteration.
type Entry struct {
	ID     record.OutputID
	Output *record.Output
}

// Iter returns a snapshot of every entry, sorted by id, so the order
// does not change across repeated calls on the same Set value (no
// mutation has occurred).
func (s *Set) Iter() []Entry {
	entries := make([]Entry, 0, len(s.store))
	for id, out := range s.store {
		entries = append(entries, Entry{ID: id, Output: out})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// ForEach walks entries lazily, stopping early if fn returns false.
// Restartable: each call walks the current snapshot from the start.
func (s *Set) ForEach(fn func(record.OutputID, *record.Output) bool) {
	for id, out := range s.store {
		if !fn(id, out) {
			return
		}
	}
}

// OwnedBy returns every unspent output locked with lock.Owner{Name:
// name}, an O(n) scan.
func (s *Set) OwnedBy(name string) []*record.Output {
	var owned []*record.Output
	for _, out := range s.store {
		if o, ok := out.Lock().(lock.Owner); ok && o.Name == name {
			owned = append(owned, out)
		}
	}
	return owned
}

// TotalOwnedBy sums the amounts of OwnedBy(name) without allocating the
// intermediate slice.
func (s *Set) TotalOwnedBy(name string) record.Amount {
	var total record.Amount
	for _, out := range s.store {
		if o, ok := out.Lock().(lock.Owner); ok && o.Name == name {
			total += out.Amount()
		}
	}
	return total
}

// ToCanonical returns the {id: {amount, lock}} map used by ledger
// serialization.
func (s *Set) ToCanonical() map[string]map[string]any {
	out := make(map[string]map[string]any, len(s.store))
	for id, o := range s.store {
		out[string(id)] = o.ToCanonical()
	}
	return out
}

// FromCanonical rebuilds a Set from the map produced by ToCanonical.
func FromCanonical(form map[string]map[string]any, reg *lock.Registry) (*Set, error) {
	s := New()
	for idStr, outForm := range form {
		out, err := record.OutputFromCanonical(record.OutputID(idStr), outForm, reg)
		if err != nil {
			return nil, err
		}
		s.Add(out)
	}
	return s, nil
}
