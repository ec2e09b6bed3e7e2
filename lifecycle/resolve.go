package lifecycle

import (
	"context"

	"github.com/vitwit/ampkernel/metrics"
	"github.com/vitwit/ampkernel/types"
	"github.com/vitwit/ampkernel/utils"
)

// OnAcknowledgement resolves the outgoing record for an acknowledged packet.
// A failure acknowledgement credits the record's amount to its recovery
// address. It never fails; missing records and storage errors yield an
// unexpected outcome.
func (h *Handler) OnAcknowledgement(ctx context.Context, env types.Env, ack types.AckReceived) types.Outcome {
	success := ack.Success
	if success && len(ack.Ack) > 0 {
		if parsed, err := utils.ParseAck(ack.Ack); err == nil && !parsed.Success() {
			success = false
		}
	}
	return h.resolve(env, types.PacketKey{Channel: ack.Channel, Sequence: ack.Sequence}, success)
}

// OnTimeout resolves a packet that was never delivered as a failure.
func (h *Handler) OnTimeout(ctx context.Context, env types.Env, timeout types.TimeoutReceived) types.Outcome {
	h.metrics.IncCounter(metrics.Timeout, chainLabels(env))
	return h.resolve(env, types.PacketKey{Channel: timeout.Channel, Sequence: timeout.Sequence}, false)
}

func (h *Handler) resolve(env types.Env, key types.PacketKey, success bool) types.Outcome {
	fields := map[string]any{"channel": key.Channel, "sequence": key.Sequence, "success": success}
	unexpected := types.Outcome{Kind: types.OutcomeUnexpected, Key: key, Success: success}

	tx := h.store.Begin()
	defer tx.Discard()

	pkt, found, err := h.ledger.TakeOutgoing(tx, key)
	if err != nil {
		fields["error"] = err.Error()
		h.log.Error("failed to load outgoing packet", fields)
		h.metrics.IncCounter(metrics.LifecycleUnexpected, chainLabels(env))
		return unexpected
	}
	if !found {
		h.log.Warn("no outgoing packet for callback", fields)
		h.metrics.IncCounter(metrics.LifecycleUnexpected, chainLabels(env))
		return unexpected
	}

	outcome := types.Outcome{
		Kind:            types.OutcomeResolved,
		Key:             key,
		Success:         success,
		RecoveryAddress: pkt.RecoveryAddress,
	}
	if !success {
		if err := h.ledger.Credit(tx, pkt.RecoveryAddress, pkt.Amount); err != nil {
			fields["error"] = err.Error()
			h.log.Error("failed to credit recovery", fields)
			h.metrics.IncCounter(metrics.LifecycleUnexpected, chainLabels(env))
			return unexpected
		}
		refunded := pkt.Amount
		outcome.Refunded = &refunded
	}
	h.recordPending(tx, env)

	if err := tx.Commit(); err != nil {
		fields["error"] = err.Error()
		h.log.Error("failed to commit packet resolution", fields)
		h.metrics.IncCounter(metrics.LifecycleUnexpected, chainLabels(env))
		return unexpected
	}

	if success {
		h.metrics.IncCounter(metrics.AckSuccess, chainLabels(env))
	} else {
		h.metrics.IncCounter(metrics.AckFailure, chainLabels(env))
		h.recordFunds(metrics.RecoveryCredited, env, pkt.Amount)
		fields["amount"] = pkt.Amount.String()
		fields["recovery_address"] = pkt.RecoveryAddress
	}
	h.log.Info("packet resolved", fields)
	return outcome
}
