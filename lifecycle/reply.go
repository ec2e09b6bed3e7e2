package lifecycle

import (
	"context"
	"fmt"

	"github.com/vitwit/ampkernel/ledger"
	"github.com/vitwit/ampkernel/metrics"
	"github.com/vitwit/ampkernel/state"
	"github.com/vitwit/ampkernel/types"
)

// OnReply processes the result of a sub-call the kernel emitted.
func (h *Handler) OnReply(ctx context.Context, env types.Env, reply types.Reply) (*types.Response, error) {
	tx := h.store.Begin()
	defer tx.Discard()

	var (
		resp *types.Response
		err  error
	)
	switch reply.ID {
	case types.ReplyTransferSequence:
		resp, err = h.onTransferReply(tx, env, reply)
	case types.ReplyRefund:
		resp, err = h.onRefundReply(tx, env, reply)
	case types.ReplyAMPMessage, types.ReplyRegisterUsername, types.ReplyCreateComponent:
		resp = h.onPlainReply(reply)
	default:
		return nil, types.InvalidPacket(fmt.Sprintf("unknown reply id %d", reply.ID))
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, types.StateError("commit reply", err)
	}
	return resp, nil
}

// onTransferReply turns the staged transfer named by the reply payload into
// an outgoing record now the sequence is known. A transfer that failed to
// leave is credited back immediately.
func (h *Handler) onTransferReply(kv state.KVStore, env types.Env, reply types.Reply) (*types.Response, error) {
	resp := types.NewResponse()
	nonce, err := ledger.ParseTransferRef(reply.Payload)
	if err != nil {
		return nil, types.InvalidPacket(err.Error())
	}
	pending, found, err := h.ledger.TakeTransfer(kv, nonce)
	if err != nil {
		return nil, err
	}
	if !found {
		h.log.Warn("transfer reply without a staged transfer", map[string]any{"nonce": nonce, "sequence": reply.Sequence})
		return resp, nil
	}

	if reply.Failed() {
		if err := h.ledger.Credit(kv, pending.RecoveryAddress, pending.Amount); err != nil {
			return nil, err
		}
		h.recordFunds(metrics.RecoveryCredited, env, pending.Amount)
		h.log.Warn("transfer failed to dispatch", map[string]any{
			"channel":          pending.Channel,
			"amount":           pending.Amount.String(),
			"recovery_address": pending.RecoveryAddress,
			"error":            reply.Err,
		})
		return resp.AddAttribute("recovery_credited", pending.Amount.String()), nil
	}

	key := types.PacketKey{Channel: pending.Channel, Sequence: reply.Sequence}
	if err := h.ledger.RecordOutgoing(kv, key, types.OutgoingPacket{
		RecoveryAddress: pending.RecoveryAddress,
		Amount:          pending.Amount,
	}); err != nil {
		return nil, err
	}
	h.recordPending(kv, env)
	return resp.AddAttribute("outgoing_packet", key.String()), nil
}

// onRefundReply sends the funds of a failed inbound funded message back over
// the channel they arrived on.
func (h *Handler) onRefundReply(kv state.KVStore, env types.Env, reply types.Reply) (*types.Response, error) {
	resp := types.NewResponse()
	packet, err := ledger.ParseRefundRef(reply.Payload)
	if err != nil {
		return nil, types.InvalidPacket(err.Error())
	}
	d, found, err := h.ledger.TakeRefund(kv, packet)
	if err != nil {
		return nil, err
	}
	if !found {
		h.log.Warn("refund reply without a saved descriptor", map[string]any{"packet": packet.String()})
		return resp, nil
	}
	if !reply.Failed() {
		return resp, nil
	}

	h.recordFunds(metrics.RefundSent, env, d.Funds)
	h.log.Warn("refunding failed inbound message", map[string]any{
		"channel":   d.Channel,
		"recipient": d.OriginalSender,
		"amount":    d.Funds.String(),
		"error":     reply.Err,
	})
	return resp.AddMessage(types.SubMsg{
		ReplyOn: types.ReplyNever,
		Action: types.IBCTransfer{
			ChannelID: d.Channel,
			ToAddress: d.OriginalSender,
			Amount:    d.Funds,
			Timeout:   env.Time.Add(h.timeout),
		},
	}).AddAttribute("refund", d.Funds.String()), nil
}

func (h *Handler) onPlainReply(reply types.Reply) *types.Response {
	resp := types.NewResponse()
	if reply.Failed() {
		h.log.Error("sub-call failed", map[string]any{"reply_id": reply.ID, "error": reply.Err})
		return resp.AddAttribute("sub_call_error", reply.Err)
	}
	return resp
}
