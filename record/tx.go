package record

// Tx is a regular transaction: it consumes Spends and produces
// Outputs, optionally declaring a Signer (checked by Owner locks) and
// per-spend Proofs (checked by PublicKey/Multisig/HashLock locks).
type Tx struct {
	id      TxID
	spends  []OutputID
	outputs []*Output
	signer  string
	proofs  []string
}

// TxOption configures Create.
type TxOption func(*txOpts)

type txOpts struct {
	id     TxID
	signer string
	proofs []string
}

// WithID supplies an explicit transaction id instead of generating one
// from content.
func WithID(id TxID) TxOption {
	return func(o *txOpts) { o.id = id }
}

// WithSigner declares the signer an Owner lock checks against.
func WithSigner(name string) TxOption {
	return func(o *txOpts) { o.signer = name }
}

// WithProofs supplies the per-spend-index proofs that PublicKey,
// Multisig, and HashLock locks consume.
func WithProofs(proofs []string) TxOption {
	return func(o *txOpts) { o.proofs = proofs }
}

// Create builds a transaction from spends and outputs. At least one
// spend and one output are required; spend ids and output ids must
// each be unique within the transaction. When no WithID option is
// given, the id is generated deterministically from spends+outputs,
// so two calls with equal inputs yield equal ids.
func Create(spends []OutputID, outputs []*Output, opts ...TxOption) (*Tx, error) {
	if len(spends) == 0 {
		return nil, newError("Create", "transaction must spend at least one output")
	}
	if len(outputs) == 0 {
		return nil, newError("Create", "transaction must produce at least one output")
	}
	seenSpends := make(map[OutputID]bool, len(spends))
	for _, s := range spends {
		if seenSpends[s] {
			return nil, newError("Create", "duplicate spend id within transaction: "+string(s))
		}
		seenSpends[s] = true
	}
	seenOutputs := make(map[OutputID]bool, len(outputs))
	for _, o := range outputs {
		if seenOutputs[o.id] {
			return nil, newError("Create", "duplicate output id within transaction: "+string(o.id))
		}
		seenOutputs[o.id] = true
	}

	var o txOpts
	for _, opt := range opts {
		opt(&o)
	}

	id := o.id
	if id == "" {
		id = generateTxID(spends, outputs)
	}
	if err := validateTxID(id); err != nil {
		return nil, err
	}

	spendsCopy := append([]OutputID(nil), spends...)
	outputsCopy := append([]*Output(nil), outputs...)
	proofsCopy := append([]string(nil), o.proofs...)

	return &Tx{
		id:      id,
		spends:  spendsCopy,
		outputs: outputsCopy,
		signer:  o.signer,
		proofs:  proofsCopy,
	}, nil
}

// ID returns the transaction's identifier.
func (t *Tx) ID() TxID { return t.id }

// Spends returns the outputs this transaction consumes.
func (t *Tx) Spends() []OutputID {
	return append([]OutputID(nil), t.spends...)
}

// Outputs returns the outputs this transaction produces.
func (t *Tx) Outputs() []*Output {
	return append([]*Output(nil), t.outputs...)
}

// Signer returns the declared signer, or "" if none.
func (t *Tx) Signer() string { return t.signer }

// Proofs returns the per-spend-index proofs.
func (t *Tx) Proofs() []string {
	return append([]string(nil), t.proofs...)
}

// TxID implements lock.TxView.
func (t *Tx) TxID() string { return string(t.id) }

// ProofAt implements lock.TxView: it reports the proof at index, or
// ok=false if none was supplied.
func (t *Tx) ProofAt(index int) (string, bool) {
	if index < 0 || index >= len(t.proofs) {
		return "", false
	}
	return t.proofs[index], true
}
