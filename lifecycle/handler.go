// Package lifecycle handles everything the platform delivers after the fact:
// inbound packets, acknowledgements, timeouts, sub-call replies and channel
// handshakes.
package lifecycle

import (
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vitwit/ampkernel/ledger"
	"github.com/vitwit/ampkernel/logger"
	"github.com/vitwit/ampkernel/metrics"
	"github.com/vitwit/ampkernel/registry"
	"github.com/vitwit/ampkernel/router"
	"github.com/vitwit/ampkernel/state"
	"github.com/vitwit/ampkernel/types"
	"github.com/vitwit/ampkernel/utils"
)

// Handler runs each callback in its own state transaction.
type Handler struct {
	store    *state.Store
	registry *registry.Registry
	ledger   *ledger.Ledger
	dispatch *router.Dispatcher
	names    types.NameService
	factory  types.ComponentFactory

	// namingService receives inbound username registrations.
	namingService string
	timeout       time.Duration

	log     logger.Logger
	metrics metrics.Recorder
}

// Config carries the handler's collaborators and settings.
type Config struct {
	Store         *state.Store
	Registry      *registry.Registry
	Ledger        *ledger.Ledger
	Dispatcher    *router.Dispatcher
	Names         types.NameService
	Factory       types.ComponentFactory
	NamingService string
	Timeout       time.Duration
	Logger        logger.Logger
	Metrics       metrics.Recorder
}

func New(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.NoopLogger{}
	}
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Handler{
		store:         cfg.Store,
		registry:      cfg.Registry,
		ledger:        cfg.Ledger,
		dispatch:      cfg.Dispatcher,
		names:         cfg.Names,
		factory:       cfg.Factory,
		namingService: cfg.NamingService,
		timeout:       cfg.Timeout,
		log:           log.With(map[string]any{"module": "lifecycle"}),
		metrics:       rec,
	}
}

func chainLabels(env types.Env) map[string]string {
	return map[string]string{"chain": env.ChainName}
}

// recordFunds counts event name and adds c to its funds total.
func (h *Handler) recordFunds(name string, env types.Env, c sdk.Coin) {
	h.metrics.IncCounter(name, chainLabels(env))
	h.metrics.AddAmount(name, utils.CoinValue(c), map[string]string{"chain": env.ChainName, "denom": c.Denom})
}

// recordPending refreshes the pending packet gauge from kv.
func (h *Handler) recordPending(kv state.KVStore, env types.Env) {
	pending, err := h.ledger.Outgoing(kv)
	if err != nil {
		h.log.Warn("failed to count pending packets", map[string]any{"error": err.Error()})
		return
	}
	h.metrics.SetGauge(metrics.PendingPackets, float64(len(pending)), chainLabels(env))
}
