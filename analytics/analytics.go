// Package analytics provides stateless helpers over a read-only ledger
// snapshot: dust classification, consolidation hints, and aggregate
// statistics. Everything here is built purely from the root engine's
// existing query surface, so it requires no new repository methods.
package analytics

import (
	"sort"

	"github.com/ledgerforge/utxoledger"
	"github.com/ledgerforge/utxoledger/record"
)

// DustThreshold returns the dust threshold at feeRate: an output whose
// amount is at or below this is dust under IsDust.
// feeRate is the implied cost (in the ledger's unit) of including one
// input in a transaction; the caller supplies its own fee model.
func DustThreshold(feeRate record.Amount) record.Amount {
	if feeRate < 0 {
		return 0
	}
	return feeRate
}

// IsDust reports whether spending out alone would cost at least as
// much in implied fee overhead as the output is worth.
func IsDust(out *record.Output, threshold record.Amount) bool {
	return out.Amount() <= threshold
}

// ConsolidationCandidates suggests which of owner's unspent outputs to
// merge into fewer, larger outputs: up to maxInputs of owner's smallest
// outputs, the ones a future transfer would otherwise have to carry
// individually. Outputs are ordered smallest amount first (the reverse
// of transfer's largest-first amount order), ties broken by ascending
// id, so results are reproducible.
func ConsolidationCandidates(e *utxoledger.Engine, owner string, maxInputs int) []record.OutputID {
	if maxInputs <= 0 {
		return nil
	}
	owned := e.UnspentByOwner(owner)
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].Amount() != owned[j].Amount() {
			return owned[i].Amount() < owned[j].Amount()
		}
		return owned[i].ID() < owned[j].ID()
	})
	n := maxInputs
	if n > len(owned) {
		n = len(owned)
	}
	out := make([]record.OutputID, n)
	for i := 0; i < n; i++ {
		out[i] = owned[i].ID()
	}
	return out
}

// Stats is an aggregate snapshot of a ledger's current state.
type Stats struct {
	UnspentCount      int
	UnspentValue      record.Amount
	MeanOutputValue   float64
	MedianOutputValue record.Amount
	TotalFees         record.Amount
	TotalMinted       record.Amount
	TotalGenesis      record.Amount
	OwnerDistribution map[string]record.Amount
}

// Snapshot computes Stats from e's current state. OwnerDistribution
// only covers Owner-locked outputs (outputs locked with None, PublicKey,
// or an extension type have no single "owner" string to key on).
func Snapshot(e *utxoledger.Engine) Stats {
	entries := e.Unspent()
	amounts := make([]record.Amount, 0, len(entries))
	owners := make(map[string]record.Amount)

	for _, entry := range entries {
		amounts = append(amounts, entry.Output.Amount())
		if form := entry.Output.Lock().ToCanonical(); form.TypeOf() == "owner" {
			if name, ok := form["name"].(string); ok {
				owners[name] += entry.Output.Amount()
			}
		}
	}

	stats := Stats{
		UnspentCount:      len(entries),
		UnspentValue:      e.TotalUnspentAmount(),
		TotalFees:         e.TotalFeesCollected(),
		TotalMinted:       e.TotalMinted(),
		TotalGenesis:      e.TotalGenesisValue(),
		OwnerDistribution: owners,
	}
	if len(amounts) == 0 {
		return stats
	}

	var sum record.Amount
	for _, a := range amounts {
		sum += a
	}
	stats.MeanOutputValue = float64(sum) / float64(len(amounts))

	sort.Slice(amounts, func(i, j int) bool { return amounts[i] < amounts[j] })
	mid := len(amounts) / 2
	if len(amounts)%2 == 1 {
		stats.MedianOutputValue = amounts[mid]
	} else {
		stats.MedianOutputValue = (amounts[mid-1] + amounts[mid]) / 2
	}
	return stats
}
