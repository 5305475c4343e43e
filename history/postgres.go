package history

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.uber.org/zap"

	"github.com/ledgerforge/utxoledger/errs"
	"github.com/ledgerforge/utxoledger/lock"
	"github.com/ledgerforge/utxoledger/record"
)

// OpenPostgres opens a database/sql connection pool against dsn using
// the pgx driver and verifies it with a ping. Callers that already
// manage their own *sql.DB should use NewPostgres directly instead.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, "opening postgres connection", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindPersistence, "pinging postgres", err)
	}
	return db, nil
}

// Postgres is a Repository backed by database/sql, driven through
// github.com/jackc/pgx/v5/stdlib so callers register it the ordinary
// database/sql way (sql.Open("pgx", dsn)). Every write wraps a single
// *sql.Tx with rollback on error so a caller never observes a partial
// write.
type Postgres struct {
	db       *sql.DB
	ledgerID string
	reg      *lock.Registry
	log      *zap.SugaredLogger
}

// NewPostgres binds a Repository to one ledger_id's rows within db.
// reg resolves lock_custom_data back into locks on read; pass
// lock.Default() for the common case.
func NewPostgres(db *sql.DB, ledgerID string, reg *lock.Registry) *Postgres {
	return &Postgres{db: db, ledgerID: ledgerID, reg: reg}
}

// WithLogger attaches a structured logger for slow-path diagnostics —
// failed commits and rollbacks. A nil logger (the default) disables
// logging entirely; Postgres never requires one.
func (p *Postgres) WithLogger(log *zap.SugaredLogger) *Postgres {
	p.log = log
	return p
}

// lockColumns decomposes a lock into the four normalized columns:
// lock_type is always set; lock_owner only for owner; lock_pubkey
// only for pubkey; lock_custom_data holds the full canonical form as
// JSON for any other type and must be nil
// for the three built-ins.
func lockColumns(lk lock.OutputLock) (lockType string, owner, pubkey, customData sql.NullString, err error) {
	form := lk.ToCanonical()
	lockType = form.TypeOf()
	switch lockType {
	case lock.TypeNone:
	case lock.TypeOwner:
		if name, ok := form["name"].(string); ok {
			owner = sql.NullString{String: name, Valid: true}
		}
	case lock.TypePublicKey:
		if key, ok := form["key"].(string); ok {
			pubkey = sql.NullString{String: key, Valid: true}
		}
	default:
		raw, marshalErr := json.Marshal(map[string]any(form))
		if marshalErr != nil {
			err = errs.Wrap(errs.KindPersistence, "encoding lock_custom_data", marshalErr)
			return
		}
		customData = sql.NullString{String: string(raw), Valid: true}
	}
	return
}

// lockFromColumns inverts lockColumns, raising on an unknown lock_type
// with no custom data to fall back on.
func (p *Postgres) lockFromColumns(lockType string, owner, pubkey, customData sql.NullString) (lock.OutputLock, error) {
	if customData.Valid {
		var form map[string]any
		if err := json.Unmarshal([]byte(customData.String), &form); err != nil {
			return nil, errs.Wrap(errs.KindPersistence, "decoding lock_custom_data", err)
		}
		return p.reg.FromCanonical(lock.CanonicalForm(form))
	}
	switch lockType {
	case lock.TypeNone:
		return lock.None{}, nil
	case lock.TypeOwner:
		return lock.NewOwner(owner.String)
	case lock.TypePublicKey:
		return lock.NewPublicKey(pubkey.String)
	default:
		return nil, errs.New(errs.KindPersistence, "unknown lock_type with no lock_custom_data: "+lockType)
	}
}

func (p *Postgres) touchAggregates(ctx context.Context, tx *sql.Tx, deltaUnspent, deltaFees, deltaMinted record.Amount) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ledgers
		SET total_unspent = total_unspent + $1,
		    total_fees = total_fees + $2,
		    total_minted = total_minted + $3,
		    updated_at = now()
		WHERE id = $4`,
		int64(deltaUnspent), int64(deltaFees), int64(deltaMinted), p.ledgerID)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "updating ledger aggregates", err)
	}
	return nil
}

func (p *Postgres) insertOutput(ctx context.Context, tx *sql.Tx, out *record.Output, createdBy record.TxID) error {
	lockType, owner, pubkey, customData, err := lockColumns(out.Lock())
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO outputs (id, ledger_id, amount, lock_type, lock_owner, lock_pubkey, lock_custom_data, is_spent, created_by, spent_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, NULL)`,
		string(out.ID()), p.ledgerID, int64(out.Amount()), lockType, owner, pubkey, customData, string(createdBy))
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "inserting output", err)
	}
	return nil
}

func (p *Postgres) markSpent(ctx context.Context, tx *sql.Tx, id record.OutputID, spentBy record.TxID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE outputs SET is_spent = TRUE, spent_by = $1
		WHERE ledger_id = $2 AND id = $3`,
		string(spentBy), p.ledgerID, string(id))
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "marking output spent", err)
	}
	return nil
}

func (p *Postgres) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "beginning transaction", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			if p.log != nil {
				p.log.Errorw("rollback failed after write error", "ledger_id", p.ledgerID, "write_err", err, "rollback_err", rbErr)
			}
			return errs.Wrap(errs.KindPersistence, "rolling back after: "+err.Error(), rbErr)
		}
		if p.log != nil {
			p.log.Warnw("transaction rolled back", "ledger_id", p.ledgerID, "err", err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		if p.log != nil {
			p.log.Errorw("commit failed", "ledger_id", p.ledgerID, "err", err)
		}
		return errs.Wrap(errs.KindPersistence, "committing transaction", err)
	}
	return nil
}

func (p *Postgres) SaveTransaction(rtx *record.Tx, fee record.Amount, spent []*record.Output) error {
	ctx := context.Background()
	return p.withTx(ctx, func(tx *sql.Tx) error {
		var mintedOut record.Amount
		for _, out := range rtx.Outputs() {
			if err := p.insertOutput(ctx, tx, out, rtx.ID()); err != nil {
				return err
			}
			mintedOut += out.Amount()
		}
		var spentIn record.Amount
		for i, spendID := range rtx.Spends() {
			if err := p.markSpent(ctx, tx, spendID, rtx.ID()); err != nil {
				return err
			}
			if i < len(spent) {
				spentIn += spent[i].Amount()
			}
		}
		signer := sql.NullString{}
		if rtx.Signer() != "" {
			signer = sql.NullString{String: rtx.Signer(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, ledger_id, is_coinbase, signed_by, fee, coinbase_amount)
			VALUES ($1, $2, FALSE, $3, $4, NULL)`,
			string(rtx.ID()), p.ledgerID, signer, int64(fee))
		if err != nil {
			return errs.Wrap(errs.KindPersistence, "inserting transaction", err)
		}
		return p.touchAggregates(ctx, tx, mintedOut-spentIn, fee, 0)
	})
}

func (p *Postgres) SaveCoinbase(cb *record.CoinbaseTx) error {
	ctx := context.Background()
	return p.withTx(ctx, func(tx *sql.Tx) error {
		total, err := cb.TotalMinted()
		if err != nil {
			return err
		}
		for _, out := range cb.Outputs() {
			if err := p.insertOutput(ctx, tx, out, cb.ID()); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (id, ledger_id, is_coinbase, signed_by, fee, coinbase_amount)
			VALUES ($1, $2, TRUE, NULL, NULL, $3)`,
			string(cb.ID()), p.ledgerID, int64(total))
		if err != nil {
			return errs.Wrap(errs.KindPersistence, "inserting coinbase transaction", err)
		}
		return p.touchAggregates(ctx, tx, total, 0, total)
	})
}

func (p *Postgres) SaveGenesis(outputs []*record.Output) error {
	ctx := context.Background()
	return p.withTx(ctx, func(tx *sql.Tx) error {
		var total record.Amount
		for _, out := range outputs {
			if err := p.insertOutput(ctx, tx, out, GenesisOrigin); err != nil {
				return err
			}
			total += out.Amount()
		}
		return p.touchAggregates(ctx, tx, total, 0, total)
	})
}

func (p *Postgres) scanOutput(id record.OutputID, amount int64, lockType string, owner, pubkey, customData sql.NullString) (*record.Output, error) {
	lk, err := p.lockFromColumns(lockType, owner, pubkey, customData)
	if err != nil {
		return nil, err
	}
	return record.LockedWith(lk, record.Amount(amount), id)
}

func (p *Postgres) FindSpentOutput(id record.OutputID) (*record.Output, bool) {
	row := p.db.QueryRowContext(context.Background(), `
		SELECT amount, lock_type, lock_owner, lock_pubkey, lock_custom_data
		FROM outputs WHERE ledger_id = $1 AND id = $2 AND is_spent = TRUE`,
		p.ledgerID, string(id))
	var amount int64
	var lockType string
	var owner, pubkey, customData sql.NullString
	if err := row.Scan(&amount, &lockType, &owner, &pubkey, &customData); err != nil {
		return nil, false
	}
	out, err := p.scanOutput(id, amount, lockType, owner, pubkey, customData)
	if err != nil {
		return nil, false
	}
	return out, true
}

func (p *Postgres) FindOutputHistory(id record.OutputID) (OutputHistory, bool) {
	row := p.db.QueryRowContext(context.Background(), `
		SELECT amount, lock_type, lock_owner, lock_pubkey, lock_custom_data, is_spent, created_by, spent_by
		FROM outputs WHERE ledger_id = $1 AND id = $2`,
		p.ledgerID, string(id))
	var amount int64
	var lockType string
	var owner, pubkey, customData, spentBy sql.NullString
	var isSpent bool
	var createdBy string
	if err := row.Scan(&amount, &lockType, &owner, &pubkey, &customData, &isSpent, &createdBy, &spentBy); err != nil {
		return OutputHistory{}, false
	}
	lk, err := p.lockFromColumns(lockType, owner, pubkey, customData)
	if err != nil {
		return OutputHistory{}, false
	}
	status := StatusUnspent
	if isSpent {
		status = StatusSpent
	}
	return OutputHistory{
		ID:        id,
		Amount:    record.Amount(amount),
		Lock:      lk,
		CreatedBy: record.TxID(createdBy),
		SpentBy:   record.TxID(spentBy.String),
		Status:    status,
	}, true
}

func (p *Postgres) FindOutputCreatedBy(id record.OutputID) (record.TxID, bool) {
	var createdBy string
	err := p.db.QueryRowContext(context.Background(),
		`SELECT created_by FROM outputs WHERE ledger_id = $1 AND id = $2`, p.ledgerID, string(id)).Scan(&createdBy)
	if err != nil {
		return "", false
	}
	return record.TxID(createdBy), true
}

func (p *Postgres) FindOutputSpentBy(id record.OutputID) (record.TxID, bool) {
	var spentBy sql.NullString
	err := p.db.QueryRowContext(context.Background(),
		`SELECT spent_by FROM outputs WHERE ledger_id = $1 AND id = $2 AND is_spent = TRUE`, p.ledgerID, string(id)).Scan(&spentBy)
	if err != nil || !spentBy.Valid {
		return "", false
	}
	return record.TxID(spentBy.String), true
}

func (p *Postgres) FindFeeForTx(id record.TxID) (record.Amount, bool) {
	var fee sql.NullInt64
	err := p.db.QueryRowContext(context.Background(),
		`SELECT fee FROM transactions WHERE ledger_id = $1 AND id = $2`, p.ledgerID, string(id)).Scan(&fee)
	if err != nil || !fee.Valid {
		return 0, false
	}
	return record.Amount(fee.Int64), true
}

func (p *Postgres) FindAllTxFees() map[record.TxID]record.Amount {
	out := make(map[record.TxID]record.Amount)
	rows, err := p.db.QueryContext(context.Background(),
		`SELECT id, fee FROM transactions WHERE ledger_id = $1 AND fee IS NOT NULL`, p.ledgerID)
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var fee int64
		if rows.Scan(&id, &fee) == nil {
			out[record.TxID(id)] = record.Amount(fee)
		}
	}
	return out
}

func (p *Postgres) IsCoinbase(id record.TxID) bool {
	var isCoinbase bool
	err := p.db.QueryRowContext(context.Background(),
		`SELECT is_coinbase FROM transactions WHERE ledger_id = $1 AND id = $2`, p.ledgerID, string(id)).Scan(&isCoinbase)
	return err == nil && isCoinbase
}

func (p *Postgres) FindCoinbaseAmount(id record.TxID) (record.Amount, bool) {
	var amount sql.NullInt64
	err := p.db.QueryRowContext(context.Background(),
		`SELECT coinbase_amount FROM transactions WHERE ledger_id = $1 AND id = $2 AND is_coinbase = TRUE`, p.ledgerID, string(id)).Scan(&amount)
	if err != nil || !amount.Valid {
		return 0, false
	}
	return record.Amount(amount.Int64), true
}

func (p *Postgres) queryOutputs(query string, args ...any) []*record.Output {
	var out []*record.Output
	rows, err := p.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var amount int64
		var lockType string
		var owner, pubkey, customData sql.NullString
		if err := rows.Scan(&id, &amount, &lockType, &owner, &pubkey, &customData); err != nil {
			continue
		}
		o, err := p.scanOutput(record.OutputID(id), amount, lockType, owner, pubkey, customData)
		if err == nil {
			out = append(out, o)
		}
	}
	return out
}

func (p *Postgres) FindUnspentByOwner(owner string) []*record.Output {
	return p.queryOutputs(`
		SELECT id, amount, lock_type, lock_owner, lock_pubkey, lock_custom_data
		FROM outputs WHERE ledger_id = $1 AND is_spent = FALSE AND lock_owner = $2`,
		p.ledgerID, owner)
}

func (p *Postgres) FindUnspentByAmountRange(min record.Amount, hasMax bool, max record.Amount) []*record.Output {
	if hasMax {
		return p.queryOutputs(`
			SELECT id, amount, lock_type, lock_owner, lock_pubkey, lock_custom_data
			FROM outputs WHERE ledger_id = $1 AND is_spent = FALSE AND amount >= $2 AND amount <= $3`,
			p.ledgerID, int64(min), int64(max))
	}
	return p.queryOutputs(`
		SELECT id, amount, lock_type, lock_owner, lock_pubkey, lock_custom_data
		FROM outputs WHERE ledger_id = $1 AND is_spent = FALSE AND amount >= $2`,
		p.ledgerID, int64(min))
}

func (p *Postgres) FindUnspentByLockType(lockType string) []*record.Output {
	return p.queryOutputs(`
		SELECT id, amount, lock_type, lock_owner, lock_pubkey, lock_custom_data
		FROM outputs WHERE ledger_id = $1 AND is_spent = FALSE AND lock_type = $2`,
		p.ledgerID, lockType)
}

func (p *Postgres) FindOutputsCreatedBy(txID record.TxID) []*record.Output {
	return p.queryOutputs(`
		SELECT id, amount, lock_type, lock_owner, lock_pubkey, lock_custom_data
		FROM outputs WHERE ledger_id = $1 AND created_by = $2`,
		p.ledgerID, string(txID))
}

func (p *Postgres) CountUnspent() int {
	var count int
	err := p.db.QueryRowContext(context.Background(),
		`SELECT count(*) FROM outputs WHERE ledger_id = $1 AND is_spent = FALSE`, p.ledgerID).Scan(&count)
	if err != nil {
		return 0
	}
	return count
}

func (p *Postgres) SumUnspentByOwner(owner string) record.Amount {
	var sum sql.NullInt64
	err := p.db.QueryRowContext(context.Background(),
		`SELECT coalesce(sum(amount), 0) FROM outputs WHERE ledger_id = $1 AND is_spent = FALSE AND lock_owner = $2`,
		p.ledgerID, owner).Scan(&sum)
	if err != nil {
		return 0
	}
	return record.Amount(sum.Int64)
}

func (p *Postgres) FindCoinbaseTransactions() []record.TxID {
	var ids []record.TxID
	rows, err := p.db.QueryContext(context.Background(),
		`SELECT id FROM transactions WHERE ledger_id = $1 AND is_coinbase = TRUE`, p.ledgerID)
	if err != nil {
		return ids
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if rows.Scan(&id) == nil {
			ids = append(ids, record.TxID(id))
		}
	}
	return ids
}

func (p *Postgres) FindTransactionsByFeeRange(min record.Amount, hasMax bool, max record.Amount) []record.TxID {
	var ids []record.TxID
	var rows *sql.Rows
	var err error
	if hasMax {
		rows, err = p.db.QueryContext(context.Background(),
			`SELECT id FROM transactions WHERE ledger_id = $1 AND fee >= $2 AND fee <= $3`,
			p.ledgerID, int64(min), int64(max))
	} else {
		rows, err = p.db.QueryContext(context.Background(),
			`SELECT id FROM transactions WHERE ledger_id = $1 AND fee >= $2`,
			p.ledgerID, int64(min))
	}
	if err != nil {
		return ids
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if rows.Scan(&id) == nil {
			ids = append(ids, record.TxID(id))
		}
	}
	return ids
}

var _ Repository = (*Postgres)(nil)
