package app

import (
	"fmt"
	"math/big"

	log "github.com/sirupsen/logrus"

	"taskmarket/internal/config"
	"taskmarket/internal/ledger"
	"taskmarket/internal/ledger/evm"
	"taskmarket/internal/ledger/memledger"
	"taskmarket/internal/services"
	"taskmarket/internal/store"
)

// devSeedBalance funds the configured actor in memory mode so submissions
// have something to escrow.
var devSeedBalance = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1_000_000))

// App wires the gateway, cache and services together and is shared by the
// CLI commands and the HTTP API.
type App struct {
	Config    *config.Config
	Log       *log.Logger
	Gateway   ledger.Gateway
	Cache     *store.JobCache
	Poller    *services.Poller
	Balances  *services.BalanceOracle
	Lifecycle *services.LifecycleController
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := log.New()
	a := &App{Config: cfg, Log: logger}

	if err := a.initGateway(); err != nil {
		return nil, err
	}
	a.initCore()

	logger.WithField("ledger_mode", cfg.Ledger.Mode).Info("application initialized")
	return a, nil
}

func (a *App) initGateway() error {
	switch a.Config.Ledger.Mode {
	case config.LedgerModeMemory:
		ml := memledger.New()
		if addr := a.Config.Actor.Address; addr != "" {
			ml.Credit(addr, devSeedBalance)
		}
		a.Gateway = ml
	case config.LedgerModeEVM:
		gw, err := evm.New(evm.Config{
			Endpoint:        a.Config.Ledger.Endpoint,
			ContractAddress: a.Config.Ledger.ContractAddress,
			ChainID:         a.Config.Ledger.ChainID,
			PrivateKeys:     a.Config.Ledger.Keys,
			CallTimeout:     a.Config.Ledger.RequestTimeout,
		})
		if err != nil {
			return fmt.Errorf("init evm gateway: %w", err)
		}
		a.Gateway = gw
	default:
		return fmt.Errorf("unknown ledger mode %q", a.Config.Ledger.Mode)
	}
	return nil
}

func (a *App) initCore() {
	a.Cache = store.NewJobCache()
	a.Poller = services.NewPoller(a.Gateway, a.Cache, a.Config.Poll.Interval, a.Log)
	a.Balances = services.NewBalanceOracle(a.Gateway, a.Log)
	a.Lifecycle = services.NewLifecycleController(a.Gateway, a.Cache, a.Log)
}

// SignerFor returns the signing identity for an address. Key custody lives
// behind the gateway; the core only carries the address.
func (a *App) SignerFor(address string) ledger.Signer {
	return ledger.AddressSigner(address)
}
