package lock

import (
	"encoding/hex"
	"sync"
)

// Factory builds a lock from its canonical form. Factories for the
// extension variants (TimeLock, Multisig, HashLock) are provided by
// this package as TimeLockFactory/MultisigFactory/HashLockFactory but
// are not registered by default — only None/Owner/PublicKey are always
// available.
type Factory func(CanonicalForm) (OutputLock, error)

// Registry maps a canonical "type" tag to the factory that reconstructs
// it. It is an explicit, passable container rather than global mutable
// state, though Default returns a process-wide instance for callers
// that want the convenience.
type Registry struct {
	mu     sync.RWMutex
	custom map[string]Factory
}

// NewRegistry returns a registry with no custom handlers; None, Owner,
// and PublicKey are still reconstructible via the built-in fallback.
func NewRegistry() *Registry {
	return &Registry{custom: make(map[string]Factory)}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns a lazily-created, process-wide Registry. Tests that
// register custom tags on it should call Reset when done so later
// tests start clean.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = NewRegistry() })
	return defaultReg
}

// Register installs factory under tag, taking precedence over any
// built-in of the same tag.
func (r *Registry) Register(tag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom[tag] = factory
}

// HasHandler reports whether tag resolves to either a custom or a
// built-in factory.
func (r *Registry) HasHandler(tag string) bool {
	r.mu.RLock()
	_, ok := r.custom[tag]
	r.mu.RUnlock()
	if ok {
		return true
	}
	switch tag {
	case TypeNone, TypeOwner, TypePublicKey:
		return true
	default:
		return false
	}
}

// RegisteredTags returns every tag this registry can resolve: the
// always-available built-ins plus any registered custom tags.
func (r *Registry) RegisteredTags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.custom)+3)
	seen := map[string]bool{}
	for _, t := range []string{TypeNone, TypeOwner, TypePublicKey} {
		tags = append(tags, t)
		seen[t] = true
	}
	for t := range r.custom {
		if !seen[t] {
			tags = append(tags, t)
		}
	}
	return tags
}

// Reset clears all custom handlers, restoring the registry to
// built-ins-only. Primarily for hermetic tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom = make(map[string]Factory)
}

// FromCanonical reconstructs a lock from its canonical form. Missing
// "type" or an unregistered tag is a construction error.
func (r *Registry) FromCanonical(form CanonicalForm) (OutputLock, error) {
	tag := form.TypeOf()
	if tag == "" {
		return nil, newError("FromCanonical", "canonical form is missing \"type\"")
	}

	r.mu.RLock()
	factory, ok := r.custom[tag]
	r.mu.RUnlock()
	if ok {
		lk, err := factory(form)
		if err != nil {
			return nil, err
		}
		if lk == nil {
			return nil, newError("FromCanonical", "handler for "+tag+" returned no lock")
		}
		return lk, nil
	}

	lk, err := builtinFromCanonical(form)
	if err != nil {
		return nil, err
	}
	if lk != nil {
		return lk, nil
	}
	return nil, newError("FromCanonical", "no handler registered for type "+tag)
}

func innerForm(form CanonicalForm) (CanonicalForm, bool) {
	raw, ok := form["inner"]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case CanonicalForm:
		return v, true
	case map[string]any:
		return CanonicalForm(v), true
	default:
		return nil, false
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// TimeLockFactory returns a Factory that reconstructs a TimeLock,
// using reg to resolve its inner lock. It always uses
// NewAlreadyUnlockedTimeLock, bypassing the future-time constructor
// check, since deserialization must be able to restore a lock that has
// since unlocked.
func TimeLockFactory(reg *Registry) Factory {
	return func(form CanonicalForm) (OutputLock, error) {
		unlockTime, ok := asInt64(form["unlock_time"])
		if !ok {
			return nil, newError("TimeLockFactory", "missing or invalid unlock_time")
		}
		inner, ok := innerForm(form)
		if !ok {
			return nil, newError("TimeLockFactory", "missing inner lock")
		}
		innerLock, err := reg.FromCanonical(inner)
		if err != nil {
			return nil, err
		}
		return NewAlreadyUnlockedTimeLock(innerLock, unlockTime, nil), nil
	}
}

// MultisigFactory reconstructs a Multisig lock; it needs no registry
// since it has no inner lock.
func MultisigFactory() Factory {
	return func(form CanonicalForm) (OutputLock, error) {
		thresholdRaw, ok := asInt64(form["threshold"])
		if !ok {
			return nil, newError("MultisigFactory", "missing or invalid threshold")
		}
		rawSigners, ok := form["signers"].([]any)
		var signers []string
		if ok {
			signers = make([]string, 0, len(rawSigners))
			for _, s := range rawSigners {
				if str, ok := s.(string); ok {
					signers = append(signers, str)
				}
			}
		} else if strSigners, ok := form["signers"].([]string); ok {
			signers = strSigners
		} else {
			return nil, newError("MultisigFactory", "missing or invalid signers")
		}
		return NewMultisig(int(thresholdRaw), signers)
	}
}

// HashLockFactory reconstructs a HashLock, using reg to resolve an
// optional inner lock.
func HashLockFactory(reg *Registry) Factory {
	return func(form CanonicalForm) (OutputLock, error) {
		hashHex, _ := form["hash"].(string)
		hashBytes, err := hex.DecodeString(hashHex)
		if err != nil {
			return nil, newError("HashLockFactory", "hash is not valid hex: "+err.Error())
		}
		algorithm, _ := form["algorithm"].(string)
		var inner OutputLock
		if inf, ok := innerForm(form); ok {
			inner, err = reg.FromCanonical(inf)
			if err != nil {
				return nil, err
			}
		}
		return NewHashLock(hashBytes, algorithm, inner)
	}
}
