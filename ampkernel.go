// Package ampkernel routes addressed messages between composable on-chain
// components, locally or across chains over IBC, and keeps funds that fail to
// cross a chain boundary recoverable by their owner.
package ampkernel

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vitwit/ampkernel/clients"
	"github.com/vitwit/ampkernel/config"
	"github.com/vitwit/ampkernel/ledger"
	"github.com/vitwit/ampkernel/lifecycle"
	"github.com/vitwit/ampkernel/logger"
	"github.com/vitwit/ampkernel/metrics"
	"github.com/vitwit/ampkernel/packetid"
	"github.com/vitwit/ampkernel/registry"
	"github.com/vitwit/ampkernel/router"
	"github.com/vitwit/ampkernel/state"
	"github.com/vitwit/ampkernel/types"
	"github.com/vitwit/ampkernel/utils"
)

// Kernel is the entry point the host platform drives. Calls are serialised,
// and each one runs in its own state transaction.
type Kernel struct {
	mu sync.Mutex

	chainName     string
	owner         string
	namingService string

	store          *state.Store
	registry       *registry.Registry
	ledger         *ledger.Ledger
	ids            *packetid.Generator
	dispatch       *router.Dispatcher
	handler        *lifecycle.Handler
	contracts      types.ContractQuerier
	componentTypes types.TypeRegistry

	timeout time.Duration
	logger  logger.Logger
	metrics metrics.Recorder
	closers []io.Closer
}

// New wires a kernel over store and collab.
func New(cfg *config.Config, store *state.Store, collab clients.Collaborators, opts ...Option) (*Kernel, error) {
	if cfg == nil {
		return nil, types.ConfigError("config is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, types.ConfigError("invalid config", err)
	}
	if store == nil {
		return nil, types.ConfigError("state store is required", nil)
	}
	if err := collab.Validate(); err != nil {
		return nil, types.ConfigError("invalid collaborators", err)
	}

	k := &Kernel{
		chainName:      cfg.ChainName,
		owner:          cfg.Owner,
		namingService:  cfg.NamingServiceAddress,
		store:          store,
		registry:       registry.New(),
		ledger:         ledger.New(),
		ids:            packetid.New(),
		contracts:      collab.Contracts,
		componentTypes: collab.Types,
		timeout:        cfg.PacketTimeout,
		logger:         logger.NoopLogger{},
		metrics:        metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(k)
	}
	k.logger = k.logger.With(map[string]any{"chain": k.chainName})

	local := router.New(collab.Names, collab.Types, collab.Contracts, k.logger)
	remote := router.NewSender(k.registry, k.ids, k.ledger, collab.Denoms, k.timeout, k.logger)
	k.dispatch = router.NewDispatcher(local, remote, k.metrics)
	k.handler = lifecycle.New(lifecycle.Config{
		Store:         store,
		Registry:      k.registry,
		Ledger:        k.ledger,
		Dispatcher:    k.dispatch,
		Names:         collab.Names,
		Factory:       collab.Factory,
		NamingService: k.namingService,
		Timeout:       k.timeout,
		Logger:        k.logger,
		Metrics:       k.metrics,
	})
	return k, nil
}

// NewFromConfig builds the store, logger, metrics and collaborators described
// by cfg. Without a gRPC endpoint the collaborators are an empty in-memory
// chain.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, types.ConfigError("invalid config", err)
	}

	log, err := logger.NewZapLogger(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, types.ConfigError("failed to build logger", err)
	}
	base := []Option{WithLogger(log)}
	if cfg.Metrics.Enabled {
		rec, err := metrics.NewPrometheusRecorder(nil)
		if err != nil {
			return nil, types.ConfigError("failed to register metrics", err)
		}
		base = append(base, WithMetrics(rec))
	}

	denoms := clients.NewPathDenomRegistry()
	for local, counterparty := range cfg.AssetChannels {
		denoms.AddChannel(local, counterparty)
	}

	var (
		collab  clients.Collaborators
		closers []io.Closer
	)
	if cfg.GRPC.RemoteCollaborators() {
		client, err := clients.NewCosmosClient(cfg.GRPC.Endpoint, cfg.NamingServiceAddress, cfg.TypeRegistryAddress)
		if err != nil {
			return nil, types.ConfigError("failed to dial collaborators", err)
		}
		collab = clients.Collaborators{Names: client, Types: client, Contracts: client, Denoms: denoms, Factory: client}
		closers = append(closers, client)
	} else {
		collab = clients.NewMemoryChain().Collaborators(denoms)
	}

	store, err := state.Open(cfg.ChainName, cfg.Store.Backend, cfg.Store.Dir)
	if err != nil {
		closeAll(closers)
		return nil, types.StateError("open store", err)
	}
	closers = append(closers, store)

	k, err := New(cfg, store, collab, append(base, opts...)...)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	k.closers = closers
	return k, nil
}

// Close releases the store and collaborator connections opened by
// NewFromConfig.
func (k *Kernel) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	err := closeAll(k.closers)
	k.closers = nil
	return err
}

func closeAll(closers []io.Closer) error {
	var first error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Send dispatches envelopes on behalf of sender. Local recipients become
// sub-calls on this chain, remote ones become packets. Either every envelope
// is dispatched or none is.
func (k *Kernel) Send(ctx context.Context, env types.Env, sender string, envelopes ...types.Envelope) (*types.Response, error) {
	if sender == "" {
		return nil, types.InvalidAddress(sender, fmt.Errorf("empty sender"))
	}
	if len(envelopes) == 0 {
		return nil, types.InvalidPacket("no messages to send")
	}
	return k.run(func(kv state.KVStore) (*types.Response, error) {
		return k.dispatch.DispatchAll(ctx, kv, env, sender, envelopes, nil)
	})
}

// Receive dispatches a batch forwarded by a component, keeping its context so
// the original caller survives the hop. Only managed components may forward.
func (k *Kernel) Receive(ctx context.Context, env types.Env, sender string, batch types.EnvelopeBatch) (*types.Response, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	if err := k.requireComponent(ctx, sender); err != nil {
		return nil, err
	}
	pctx := batch.Context
	return k.run(func(kv state.KVStore) (*types.Response, error) {
		return k.dispatch.DispatchAll(ctx, kv, env, sender, batch.Messages, &pctx)
	})
}

func (k *Kernel) requireComponent(ctx context.Context, sender string) error {
	codeID, ok, err := k.contracts.ContractCodeID(ctx, sender)
	if err != nil {
		return fmt.Errorf("lookup contract %s: %w", sender, err)
	}
	if ok {
		_, ok, err = k.componentTypes.ComponentType(ctx, codeID)
		if err != nil {
			return fmt.Errorf("lookup component type of code %d: %w", codeID, err)
		}
	}
	if !ok {
		return types.Unauthorized("%s is not a managed component", sender)
	}
	return nil
}

// CreateRemote asks the kernel on chain to instantiate a component of
// componentType owned by owner, or by sender when owner is empty.
func (k *Kernel) CreateRemote(ctx context.Context, env types.Env, sender, chain, componentType, owner string, msg []byte) (*types.Response, error) {
	if owner == "" {
		owner = sender
	}
	if len(msg) > 0 {
		if err := utils.ValidateJSON(msg); err != nil {
			return nil, types.InvalidPacket(fmt.Sprintf("instantiate message: %v", err))
		}
	}
	packet := types.CreateComponent{InstantiateMsg: msg, Owner: owner, ComponentType: componentType}
	if err := utils.ValidateStruct(packet); err != nil {
		return nil, types.InvalidPacket(err.Error())
	}
	return k.sendPacket(env, chain, packet)
}

// RegisterRemoteUsername mirrors a username registration to chain. Only the
// naming service may call it.
func (k *Kernel) RegisterRemoteUsername(ctx context.Context, env types.Env, sender, chain, username, address string) (*types.Response, error) {
	if k.namingService == "" || sender != k.namingService {
		return nil, types.Unauthorized("only the naming service can register usernames remotely")
	}
	packet := types.RegisterUsername{Username: username, Address: address}
	if err := utils.ValidateStruct(packet); err != nil {
		return nil, types.InvalidPacket(err.Error())
	}
	return k.sendPacket(env, chain, packet)
}

func (k *Kernel) sendPacket(env types.Env, chain string, msg types.PacketMsg) (*types.Response, error) {
	return k.run(func(kv state.KVStore) (*types.Response, error) {
		sub, id, err := k.dispatch.Sender().SendPacket(kv, env, chain, msg)
		if err != nil {
			return nil, err
		}
		k.metrics.IncCounter(metrics.PacketSent, map[string]string{"chain": env.ChainName})
		return types.NewResponse().AddMessage(*sub).
			AddAttribute("action", msg.PacketTag()).
			AddAttribute("packet_id", id), nil
	})
}

// AssignChannels binds a counterparty chain to its channels. Owner only.
func (k *Kernel) AssignChannels(sender string, record types.ChannelRecord) error {
	if sender != k.owner {
		return types.Unauthorized("only the owner can assign channels")
	}
	if err := utils.ValidateStruct(record); err != nil {
		return types.InvalidPacket(err.Error())
	}
	_, err := k.run(func(kv state.KVStore) (*types.Response, error) {
		return nil, k.registry.Assign(kv, record)
	})
	if err == nil {
		k.logger.Info("channels assigned", map[string]any{
			"counterparty":    record.ChainName,
			"message_channel": record.MessageChannelID,
			"asset_channel":   record.AssetChannelID,
		})
	}
	return err
}

// run executes fn in a transaction committed only when fn succeeds.
func (k *Kernel) run(fn func(kv state.KVStore) (*types.Response, error)) (*types.Response, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	tx := k.store.Begin()
	defer tx.Discard()

	resp, err := fn(tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, types.StateError("commit", err)
	}
	return resp, nil
}

func (k *Kernel) OnRecvPacket(ctx context.Context, env types.Env, packet types.Packet) (types.Acknowledgement, *types.Response) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.handler.OnRecvPacket(ctx, env, packet)
}

// OnTransferHook executes the message in the memo of an inbound ICS-20
// transfer addressed to this kernel.
func (k *Kernel) OnTransferHook(ctx context.Context, env types.Env, packet types.Packet, memo string) (types.Acknowledgement, *types.Response) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.handler.OnTransferHook(ctx, env, packet, memo)
}

func (k *Kernel) OnAcknowledgement(ctx context.Context, env types.Env, ack types.AckReceived) types.Outcome {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.handler.OnAcknowledgement(ctx, env, ack)
}

func (k *Kernel) OnTimeout(ctx context.Context, env types.Env, timeout types.TimeoutReceived) types.Outcome {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.handler.OnTimeout(ctx, env, timeout)
}

func (k *Kernel) OnReply(ctx context.Context, env types.Env, reply types.Reply) (*types.Response, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.handler.OnReply(ctx, env, reply)
}

func (k *Kernel) OnChannelOpen(hs types.ChannelHandshake) (string, error) {
	return k.handler.OnChannelOpen(hs)
}

func (k *Kernel) OnChannelConnect(hs types.ChannelHandshake) error {
	return k.handler.OnChannelConnect(hs)
}

func (k *Kernel) OnChannelClose(channelID string) {
	k.handler.OnChannelClose(channelID)
}

// query runs fn against a transaction that is always discarded.
func (k *Kernel) query(fn func(kv state.KVStore) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	tx := k.store.Begin()
	defer tx.Discard()
	return fn(tx)
}

// Recoveries returns the funds owner can reclaim.
func (k *Kernel) Recoveries(owner string) (sdk.Coins, error) {
	var coins sdk.Coins
	err := k.query(func(kv state.KVStore) (err error) {
		coins, err = k.ledger.Recoveries(kv, owner)
		return err
	})
	return coins, err
}

// PendingPackets lists funded sends still awaiting an ack or timeout.
func (k *Kernel) PendingPackets() ([]types.PendingPacket, error) {
	var out []types.PendingPacket
	err := k.query(func(kv state.KVStore) (err error) {
		out, err = k.ledger.Outgoing(kv)
		return err
	})
	return out, err
}

func (k *Kernel) ChannelInfo(chain string) (types.ChannelRecord, bool, error) {
	var (
		rec   types.ChannelRecord
		found bool
	)
	err := k.query(func(kv state.KVStore) (err error) {
		rec, found, err = k.registry.Channel(kv, chain)
		return err
	})
	return rec, found, err
}

// Channels lists every registered counterparty.
func (k *Kernel) Channels() ([]types.ChannelRecord, error) {
	var out []types.ChannelRecord
	err := k.query(func(kv state.KVStore) (err error) {
		out, err = k.registry.All(kv)
		return err
	})
	return out, err
}

// ChainName returns the counterparty chain bound to channel.
func (k *Kernel) ChainName(channel string) (string, bool, error) {
	var (
		chain string
		found bool
	)
	err := k.query(func(kv state.KVStore) (err error) {
		chain, found, err = k.registry.ChainForChannel(kv, channel)
		return err
	})
	return chain, found, err
}

// PacketCounter returns the next hop index to be minted.
func (k *Kernel) PacketCounter() (uint64, error) {
	var counter uint64
	err := k.query(func(kv state.KVStore) (err error) {
		counter, err = k.ids.Counter(kv)
		return err
	})
	return counter, err
}
