package router

import (
	"context"

	"github.com/vitwit/ampkernel/metrics"
	"github.com/vitwit/ampkernel/state"
	"github.com/vitwit/ampkernel/types"
)

// Dispatcher sends each envelope either through the Router or, when the
// recipient lives on another chain, through the Sender.
type Dispatcher struct {
	local   *Router
	remote  *Sender
	metrics metrics.Recorder
}

func NewDispatcher(local *Router, remote *Sender, rec metrics.Recorder) *Dispatcher {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Dispatcher{local: local, remote: remote, metrics: rec}
}

func (d *Dispatcher) Dispatch(ctx context.Context, kv state.KVStore, env types.Env, sender string, e types.Envelope, inherited *types.PacketContext) (*types.SubMsg, error) {
	labels := map[string]string{"chain": env.ChainName}
	if e.Recipient.IsLocalTo(env.ChainName) {
		msg, err := d.local.Route(ctx, env, sender, e, inherited)
		if err != nil {
			return nil, err
		}
		d.metrics.IncCounter(metrics.RoutedLocal, labels)
		return msg, nil
	}

	msg, err := d.remote.Send(ctx, kv, env, sender, e, inherited)
	if err != nil {
		return nil, err
	}
	d.metrics.IncCounter(metrics.PacketSent, labels)
	return msg, nil
}

// DispatchAll dispatches envelopes in order, stopping at the first failure.
func (d *Dispatcher) DispatchAll(ctx context.Context, kv state.KVStore, env types.Env, sender string, envelopes []types.Envelope, inherited *types.PacketContext) (*types.Response, error) {
	resp := types.NewResponse()
	for _, e := range envelopes {
		msg, err := d.Dispatch(ctx, kv, env, sender, e, inherited)
		if err != nil {
			return nil, err
		}
		resp.AddMessage(*msg)
	}
	return resp, nil
}

// Sender exposes the cross-chain sender for non-envelope packets.
func (d *Dispatcher) Sender() *Sender {
	return d.remote
}
