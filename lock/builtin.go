package lock

import (
	"crypto/ed25519"
	"encoding/base64"
)

// Built-in lock type tags. Custom handlers registered under these tags
// take precedence over the built-ins (see Registry.FromCanonical).
const (
	TypeNone      = "none"
	TypeOwner     = "owner"
	TypePublicKey = "pubkey"
)

// None is satisfied by any spend: "anyone may spend this output."
type None struct{}

func (None) Validate(TxView, int) error { return nil }

func (None) ToCanonical() CanonicalForm {
	return CanonicalForm{"type": TypeNone}
}

// Owner requires the spending transaction to declare SignedBy == Name.
// It never inspects per-index proofs: Owner and PublicKey stay
// orthogonal, each checking only its own evidence.
type Owner struct {
	Name string
}

func NewOwner(name string) (Owner, error) {
	if name == "" {
		return Owner{}, newError("NewOwner", "owner name must not be empty")
	}
	return Owner{Name: name}, nil
}

func (o Owner) Validate(tx TxView, _ int) error {
	if tx.Signer() != o.Name {
		return newError("Owner.Validate", "transaction not signed by "+o.Name)
	}
	return nil
}

func (o Owner) ToCanonical() CanonicalForm {
	return CanonicalForm{"type": TypeOwner, "name": o.Name}
}

// PublicKey requires proofs[spendIndex] to be a valid Ed25519 detached
// signature, base64-encoded, over the UTF-8 bytes of tx.TxID(), made by
// Key (a base64-encoded 32-byte Ed25519 public key).
type PublicKey struct {
	Key []byte // raw 32-byte Ed25519 public key
}

func NewPublicKey(keyB64 string) (PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return PublicKey{}, newError("NewPublicKey", "key is not valid base64: "+err.Error())
	}
	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, newError("NewPublicKey", "key must decode to 32 bytes")
	}
	return PublicKey{Key: raw}, nil
}

func (p PublicKey) Validate(tx TxView, spendIndex int) error {
	proof, ok := tx.ProofAt(spendIndex)
	if !ok {
		return newError("PublicKey.Validate", "missing proof for spend index")
	}
	sig, err := base64.StdEncoding.DecodeString(proof)
	if err != nil {
		return newError("PublicKey.Validate", "proof is not valid base64: "+err.Error())
	}
	if len(sig) != ed25519.SignatureSize {
		return newError("PublicKey.Validate", "signature must be 64 bytes")
	}
	if !ed25519.Verify(ed25519.PublicKey(p.Key), []byte(tx.TxID()), sig) {
		return newError("PublicKey.Validate", "invalid signature")
	}
	return nil
}

func (p PublicKey) ToCanonical() CanonicalForm {
	return CanonicalForm{
		"type": TypePublicKey,
		"key":  base64.StdEncoding.EncodeToString(p.Key),
	}
}

func builtinFromCanonical(form CanonicalForm) (OutputLock, error) {
	switch form.TypeOf() {
	case TypeNone:
		return None{}, nil
	case TypeOwner:
		name, _ := form["name"].(string)
		return NewOwner(name)
	case TypePublicKey:
		key, _ := form["key"].(string)
		return NewPublicKey(key)
	default:
		return nil, nil
	}
}
