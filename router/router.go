// Package router decides how an envelope reaches its recipient: as a sub-call
// or funds transfer on this chain, or as a packet to another chain.
package router

import (
	"context"
	"encoding/json"
	"fmt"

	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"

	"github.com/vitwit/ampkernel/logger"
	"github.com/vitwit/ampkernel/types"
)

// Router resolves local recipients and builds the single outbound action for
// an envelope. It never touches state.
type Router struct {
	names     types.NameService
	registry  types.TypeRegistry
	contracts types.ContractQuerier
	log       logger.Logger
}

func New(names types.NameService, registry types.TypeRegistry, contracts types.ContractQuerier, log logger.Logger) *Router {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Router{
		names:     names,
		registry:  registry,
		contracts: contracts,
		log:       log.With(map[string]any{"module": "router"}),
	}
}

// ampReceive is the execute message components accept batches on.
type ampReceive struct {
	Batch types.EnvelopeBatch `json:"amp_receive"`
}

// Route produces the sub-call delivering e on this chain. sender is the
// immediate caller; inherited is the caller's context, if any.
func (r *Router) Route(ctx context.Context, env types.Env, sender string, e types.Envelope, inherited *types.PacketContext) (*types.SubMsg, error) {
	target, err := r.Resolve(ctx, env, e.Recipient)
	if err != nil {
		return nil, err
	}

	codeID, isContract, err := r.contracts.ContractCodeID(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("lookup contract %s: %w", target, err)
	}

	var action types.Action
	switch {
	case isContract:
		action, err = r.contractAction(ctx, codeID, target, sender, e, inherited)
		if err != nil {
			return nil, err
		}
	case len(e.Payload) == 0:
		if e.Funds.Empty() {
			return nil, types.InvalidPacket("No funds supplied")
		}
		action = types.BankSend{Msg: &banktypes.MsgSend{
			FromAddress: env.KernelAddress,
			ToAddress:   target,
			Amount:      e.Funds,
		}}
	default:
		return nil, types.InvalidPacket("Recipient is not a contract")
	}

	replyOn := e.Config.ReplyOn
	if replyOn == "" {
		replyOn = types.ReplyError
	}

	r.log.Debug("routed locally", map[string]any{
		"recipient": target,
		"action":    types.ActionType(action),
		"reply_on":  string(replyOn),
	})

	return &types.SubMsg{
		ID:          types.ReplyAMPMessage,
		ReplyOn:     replyOn,
		GasLimit:    e.Config.GasLimit,
		ExitOnError: e.Config.ExitOnError,
		Action:      action,
	}, nil
}

// Resolve turns a recipient reference into an address on this chain.
func (r *Router) Resolve(ctx context.Context, env types.Env, ref types.AddressRef) (string, error) {
	if ref.Kind() == types.AddressRemote {
		if !ref.IsLocalTo(env.ChainName) {
			return "", types.InvalidPacket(fmt.Sprintf("recipient %s is on chain %s", ref, ref.Chain()))
		}
		ref = ref.LocalPart()
	}
	if ref == "" {
		return "", types.InvalidPacket("recipient is empty")
	}
	if ref.Kind() != types.AddressPath {
		return ref.String(), nil
	}

	addr, err := r.names.ResolvePath(ctx, ref.String())
	if err != nil {
		return "", types.InvalidPathname(ref.String(), err)
	}
	return addr, nil
}

func (r *Router) contractAction(ctx context.Context, codeID uint64, target, sender string, e types.Envelope, inherited *types.PacketContext) (types.Action, error) {
	if !e.Config.Direct {
		_, known, err := r.registry.ComponentType(ctx, codeID)
		if err != nil {
			return nil, fmt.Errorf("lookup component type of code %d: %w", codeID, err)
		}
		if known {
			batch := types.NewEnvelopeBatch(types.Inherit(inherited, sender), e.WithRecipient(types.AddressRef(target)))
			msg, err := json.Marshal(ampReceive{Batch: batch})
			if err != nil {
				return nil, fmt.Errorf("encode batch: %w", err)
			}
			return types.WasmExecute{Contract: target, Msg: msg, Funds: e.Funds}, nil
		}
	}
	return types.WasmExecute{Contract: target, Msg: e.Payload, Funds: e.Funds}, nil
}
