package record

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const idTruncateLen = 32

func truncatedHex(data []byte) string {
	sum := sha256.Sum256(data)
	return strings.ToLower(hex.EncodeToString(sum[:]))[:idTruncateLen]
}

// serializeOutputs joins "id:amount" pairs with "|", in the order
// given.
func serializeOutputs(outs []*Output) string {
	parts := make([]string, len(outs))
	for i, o := range outs {
		parts[i] = string(o.id) + ":" + strconv.FormatInt(int64(o.amount), 10)
	}
	return strings.Join(parts, "|")
}

// generateTxID computes hash = SHA-256(join("|", spend_ids) + "||" +
// serialize_outputs(outputs)), truncated to 32 hex chars.
func generateTxID(spends []OutputID, outputs []*Output) TxID {
	spendParts := make([]string, len(spends))
	for i, s := range spends {
		spendParts[i] = string(s)
	}
	payload := strings.Join(spendParts, "|") + "||" + serializeOutputs(outputs)
	return TxID(truncatedHex([]byte(payload)))
}

// generateCoinbaseID computes hash = SHA-256(serialize_outputs(outputs)),
// truncated to 32 hex chars.
func generateCoinbaseID(outputs []*Output) TxID {
	return TxID(truncatedHex([]byte(serializeOutputs(outputs))))
}

// generateOutputID computes hash = SHA-256(amount + "|" +
// hex(random_16_bytes)), truncated to 32 hex chars. The 16 bytes of
// randomness come from a v4 UUID so two calls with the same amount
// never collide.
func generateOutputID(amount Amount) OutputID {
	random := uuid.New()
	payload := strconv.FormatInt(int64(amount), 10) + "|" + hex.EncodeToString(random[:])
	return OutputID(truncatedHex([]byte(payload)))
}
