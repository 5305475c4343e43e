package record

// CoinbaseTx mints value: it has no spends, only outputs.
type CoinbaseTx struct {
	id      TxID
	outputs []*Output
}

// CoinbaseOption configures CreateCoinbase.
type CoinbaseOption func(*coinbaseOpts)

type coinbaseOpts struct {
	id TxID
}

// WithCoinbaseID supplies an explicit id instead of generating one from
// content.
func WithCoinbaseID(id TxID) CoinbaseOption {
	return func(o *coinbaseOpts) { o.id = id }
}

// CreateCoinbase builds a coinbase transaction. At least one output is
// required; empty outputs is a construction error.
func CreateCoinbase(outputs []*Output, opts ...CoinbaseOption) (*CoinbaseTx, error) {
	if len(outputs) == 0 {
		return nil, newError("CreateCoinbase", "coinbase must produce at least one output")
	}
	seen := make(map[OutputID]bool, len(outputs))
	for _, o := range outputs {
		if seen[o.id] {
			return nil, newError("CreateCoinbase", "duplicate output id within coinbase: "+string(o.id))
		}
		seen[o.id] = true
	}

	var o coinbaseOpts
	for _, opt := range opts {
		opt(&o)
	}
	id := o.id
	if id == "" {
		id = generateCoinbaseID(outputs)
	}
	if err := validateTxID(id); err != nil {
		return nil, err
	}

	return &CoinbaseTx{
		id:      id,
		outputs: append([]*Output(nil), outputs...),
	}, nil
}

// ID returns the coinbase transaction's identifier.
func (c *CoinbaseTx) ID() TxID { return c.id }

// Outputs returns the outputs this coinbase produces.
func (c *CoinbaseTx) Outputs() []*Output {
	return append([]*Output(nil), c.outputs...)
}

// TotalMinted sums the coinbase's output amounts.
func (c *CoinbaseTx) TotalMinted() (Amount, error) {
	amounts := make([]Amount, len(c.outputs))
	for i, o := range c.outputs {
		amounts[i] = o.amount
	}
	return SumAmounts(amounts...)
}
