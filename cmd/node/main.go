// Command node is a small demonstration program for the ledger
// library: it boots an in-memory ledger, seeds genesis outputs, mints
// a coinbase reward, and runs a transfer so the engine's
// behavior can be observed end to end. It is not part of the library's
// public contract — callers embed the utxoledger/record/lock packages
// directly.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ledgerforge/utxoledger"
	"github.com/ledgerforge/utxoledger/analytics"
	"github.com/ledgerforge/utxoledger/record"
)

func main() {
	genesisAmount := flag.Int64("genesis", 1000, "genesis output amount credited to the treasury")
	rewardAmount := flag.Int64("reward", 100, "coinbase reward amount minted to the miner")
	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	sugar := logger.Sugar()
	sugar.Infow("starting ledger demo node", "genesis", *genesisAmount, "reward", *rewardAmount)

	ledger, err := runDemo(sugar, record.Amount(*genesisAmount), record.Amount(*rewardAmount))
	if err != nil {
		sugar.Fatalw("demo run failed", "err", err)
	}

	stats := analytics.Snapshot(ledger)
	sugar.Infow("ledger state after demo run",
		"unspent_count", stats.UnspentCount,
		"unspent_value", stats.UnspentValue,
		"total_fees", stats.TotalFees,
		"total_minted", stats.TotalMinted,
		"total_genesis", stats.TotalGenesis,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sugar.Info("demo node idle, press ctrl-c to exit")
	<-sigChan
	sugar.Info("shutting down")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// runDemo seeds a treasury genesis output, mints a reward coinbase, and
// transfers part of the treasury's balance to a second owner, all
// through the public Engine API — mirroring the shape a real embedder
// would drive (genesis, credit, transfer).
func runDemo(log *zap.SugaredLogger, genesisAmount, rewardAmount record.Amount) (*utxoledger.Engine, error) {
	treasury, err := record.OwnedBy("treasury", genesisAmount, "")
	if err != nil {
		return nil, err
	}

	ledger := utxoledger.InMemory()
	ledger, err = ledger.WithGenesis(treasury)
	if err != nil {
		return nil, err
	}
	log.Infow("genesis applied", "owner", "treasury", "amount", genesisAmount)

	ledger, err = ledger.Credit("miner", rewardAmount, "")
	if err != nil {
		return nil, err
	}
	log.Infow("coinbase applied", "owner", "miner", "amount", rewardAmount)

	ledger, err = ledger.Transfer("treasury", "alice", genesisAmount/4, 1)
	if err != nil {
		return nil, err
	}
	log.Infow("transfer applied", "from", "treasury", "to", "alice", "amount", genesisAmount/4, "fee", 1)

	return ledger, nil
}
