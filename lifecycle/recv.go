package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vitwit/ampkernel/ledger"
	"github.com/vitwit/ampkernel/metrics"
	"github.com/vitwit/ampkernel/state"
	"github.com/vitwit/ampkernel/types"
	"github.com/vitwit/ampkernel/utils"
)

// OnRecvPacket executes an inbound packet. It never fails: any error rolls
// back the invocation's state and is returned as a failure acknowledgement
// with an empty response.
func (h *Handler) OnRecvPacket(ctx context.Context, env types.Env, packet types.Packet) (types.Acknowledgement, *types.Response) {
	start := time.Now()
	defer func() {
		h.metrics.ObserveLatency(metrics.RecvPacket, time.Since(start), chainLabels(env))
	}()

	msg, err := utils.ParsePacket(packet.Data)
	if err != nil {
		return h.failRecv(env, packet, err), types.NewResponse()
	}
	return h.execute(ctx, env, packet, msg)
}

// OnTransferHook executes the message carried in the memo of an ICS-20
// transfer that arrived on channel. The transferred funds are already held by
// the kernel.
func (h *Handler) OnTransferHook(ctx context.Context, env types.Env, packet types.Packet, memo string) (types.Acknowledgement, *types.Response) {
	contract, msg, err := utils.ParseHookMemo(memo)
	if err != nil {
		return h.failRecv(env, packet, err), types.NewResponse()
	}
	if contract != env.KernelAddress {
		return h.failRecv(env, packet, types.Unauthorized("hook targets %s, not this kernel", contract)), types.NewResponse()
	}
	if _, ok := msg.(types.SendMessageWithFunds); !ok {
		return h.failRecv(env, packet, types.InvalidPacket(fmt.Sprintf("transfer hooks cannot carry %s", msg.PacketTag()))), types.NewResponse()
	}
	return h.execute(ctx, env, packet, msg)
}

func (h *Handler) execute(ctx context.Context, env types.Env, packet types.Packet, msg types.PacketMsg) (types.Acknowledgement, *types.Response) {
	tx := h.store.Begin()
	defer tx.Discard()

	resp, err := h.handle(ctx, tx, env, packet, msg)
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		return h.failRecv(env, packet, err), types.NewResponse()
	}

	h.metrics.IncCounter(metrics.PacketReceived, chainLabels(env))
	h.log.Info("packet executed", map[string]any{
		"channel":  packet.DestChannel,
		"sequence": packet.Sequence,
		"kind":     msg.PacketTag(),
		"actions":  len(resp.Messages),
	})
	return types.SuccessAck(nil), resp
}

func (h *Handler) failRecv(env types.Env, packet types.Packet, err error) types.Acknowledgement {
	h.metrics.IncCounter(metrics.AckFailureSent, chainLabels(env))
	h.log.Warn("packet failed", map[string]any{
		"channel":  packet.DestChannel,
		"sequence": packet.Sequence,
		"error":    err.Error(),
	})
	return types.ErrorAck(err)
}

func (h *Handler) handle(ctx context.Context, kv state.KVStore, env types.Env, packet types.Packet, msg types.PacketMsg) (*types.Response, error) {
	source, found, err := h.registry.ChainForChannel(kv, packet.DestChannel)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.Unauthorized("channel %s is not registered", packet.DestChannel)
	}

	var resp *types.Response
	switch m := msg.(type) {
	case types.SendMessage:
		resp, err = h.handleSendMessage(ctx, kv, env, source, packet, m)
	case types.SendMessageWithFunds:
		resp, err = h.handleSendWithFunds(ctx, kv, env, source, packet, m)
	case types.CreateComponent:
		resp, err = h.handleCreateComponent(ctx, m)
	case types.RegisterUsername:
		resp, err = h.handleRegisterUsername(m)
	default:
		return nil, types.InvalidPacket(fmt.Sprintf("unsupported packet message %T", msg))
	}
	if err != nil {
		return nil, err
	}
	return resp.AddAttribute("action", msg.PacketTag()).AddAttribute("source_chain", source), nil
}

func (h *Handler) handleSendMessage(ctx context.Context, kv state.KVStore, env types.Env, source string, packet types.Packet, m types.SendMessage) (*types.Response, error) {
	pctx := m.Batch.Context
	origin, err := h.resolveOrigin(ctx, pctx.Origin, pctx.OriginUsername)
	if err != nil {
		return nil, err
	}
	pctx.Origin = origin
	pctx = arrive(pctx, types.Hop{
		Address:   pctx.PreviousSender,
		Username:  pctx.OriginUsername,
		FromChain: source,
		ToChain:   env.ChainName,
		Channel:   packet.DestChannel,
	})
	return h.dispatch.DispatchAll(ctx, kv, env, pctx.PreviousSender, m.Batch.Messages, &pctx)
}

func (h *Handler) handleSendWithFunds(ctx context.Context, kv state.KVStore, env types.Env, source string, packet types.Packet, m types.SendMessageWithFunds) (*types.Response, error) {
	rec, err := h.registry.MustChannel(kv, source)
	if err != nil {
		return nil, err
	}
	if rec.AssetChannelID == "" || packet.DestChannel != rec.AssetChannelID {
		return nil, types.Unauthorized("funded messages from %s must arrive on its asset channel, not %s", source, packet.DestChannel)
	}
	if m.Funds.Amount.IsNil() || m.Funds.IsZero() {
		return nil, types.InvalidZeroAmount()
	}
	if err := m.Funds.Validate(); err != nil {
		return nil, types.InvalidPacket(fmt.Sprintf("invalid funds: %v", err))
	}
	origin, err := h.resolveOrigin(ctx, m.OriginalSender, m.OriginalSenderUsername)
	if err != nil {
		return nil, err
	}

	pctx := arrive(types.PacketContext{
		ID:             m.PacketID,
		Origin:         origin,
		PreviousSender: m.OriginalSender,
		OriginUsername: m.OriginalSenderUsername,
		Hops:           m.PreviousHops,
	}, types.Hop{
		Address:   m.OriginalSender,
		Username:  m.OriginalSenderUsername,
		FromChain: source,
		ToChain:   env.ChainName,
		Channel:   packet.DestChannel,
	})

	e := types.NewEnvelope(m.Recipient, m.Message, sdk.Coins{m.Funds})
	sub, err := h.dispatch.Dispatch(ctx, kv, env, m.OriginalSender, e, &pctx)
	if err != nil {
		return nil, err
	}

	if m.Recipient.IsLocalTo(env.ChainName) {
		key := types.PacketKey{Channel: packet.DestChannel, Sequence: packet.Sequence}
		sub.ID = types.ReplyRefund
		sub.ReplyOn = types.ReplyAlways
		sub.ExitOnError = false
		sub.Payload = ledger.RefundRef(key)
		if err := h.ledger.SaveRefund(kv, key, types.RefundDescriptor{
			OriginalSender: m.OriginalSender,
			Funds:          m.Funds,
			Channel:        packet.DestChannel,
		}); err != nil {
			return nil, err
		}
	}
	return types.NewResponse().AddMessage(*sub), nil
}

func (h *Handler) handleCreateComponent(ctx context.Context, m types.CreateComponent) (*types.Response, error) {
	action, err := h.factory.Create(ctx, m.Owner, m.ComponentType, m.InstantiateMsg)
	if err != nil {
		return nil, err
	}
	return types.NewResponse().AddMessage(types.SubMsg{
		ID:      types.ReplyCreateComponent,
		ReplyOn: types.ReplyError,
		Action:  action,
	}), nil
}

type registerUser struct {
	RegisterUser registerUserBody `json:"register_user"`
}

type registerUserBody struct {
	Username string `json:"username"`
	Address  string `json:"address"`
}

// handleRegisterUsername forwards the registration to the naming service. Its
// failure is caught by the reply and never reverts the acknowledgement.
func (h *Handler) handleRegisterUsername(m types.RegisterUsername) (*types.Response, error) {
	if h.namingService == "" {
		return nil, types.InvalidAddress(h.namingService, fmt.Errorf("no naming service configured"))
	}
	bz, err := json.Marshal(registerUser{RegisterUser: registerUserBody{Username: m.Username, Address: m.Address}})
	if err != nil {
		return nil, fmt.Errorf("encode register_user: %w", err)
	}
	return types.NewResponse().AddMessage(types.SubMsg{
		ID:      types.ReplyRegisterUsername,
		ReplyOn: types.ReplyError,
		Action:  types.WasmExecute{Contract: h.namingService, Msg: bz},
	}), nil
}

// arrive records the crossing into this chain unless the sending kernel
// already did.
func arrive(pctx types.PacketContext, h types.Hop) types.PacketContext {
	if n := len(pctx.Hops); n > 0 {
		last := pctx.Hops[n-1]
		if last.FromChain == h.FromChain && last.ToChain == h.ToChain {
			return pctx
		}
	}
	return pctx.WithHop(h)
}

// resolveOrigin maps a remote username to its local address when one is
// registered here.
func (h *Handler) resolveOrigin(ctx context.Context, origin, username string) (string, error) {
	if username == "" {
		return origin, nil
	}
	addr, ok, err := h.names.ResolveUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("resolve username %s: %w", username, err)
	}
	if !ok {
		return origin, nil
	}
	return addr, nil
}
