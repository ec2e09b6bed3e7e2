package clients

import (
	"context"
	"fmt"
	"sync"

	"github.com/vitwit/ampkernel/types"
	"github.com/vitwit/ampkernel/utils"
)

// PathDenomRegistry translates denoms using ICS-20 trace paths. It knows, for
// each local asset channel, the channel id on the counterparty side, and the
// traces of vouchers received here.
type PathDenomRegistry struct {
	mu           sync.RWMutex
	counterparty map[string]string
	traces       map[string]denomTrace
}

type denomTrace struct {
	channel   string
	baseDenom string
}

var _ types.DenomRegistry = (*PathDenomRegistry)(nil)

func NewPathDenomRegistry() *PathDenomRegistry {
	return &PathDenomRegistry{
		counterparty: make(map[string]string),
		traces:       make(map[string]denomTrace),
	}
}

// AddChannel records that local channel is connected to counterpartyChannel.
func (r *PathDenomRegistry) AddChannel(channel, counterpartyChannel string) *PathDenomRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counterparty[channel] = counterpartyChannel
	return r
}

// AddTrace records that baseDenom arrived over channel, returning the local
// voucher denom.
func (r *PathDenomRegistry) AddTrace(channel, baseDenom string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	voucher := utils.IBCDenom(utils.TransferPort, channel, baseDenom)
	r.traces[voucher] = denomTrace{channel: channel, baseDenom: baseDenom}
	return voucher
}

// CounterpartyDenom returns the denom funds sent over channel will carry on
// the other side. A voucher returning over the channel it came from unwinds
// to its base denom; anything else gains a hop in its trace.
func (r *PathDenomRegistry) CounterpartyDenom(_ context.Context, denom string, channel string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trace, known := r.traces[denom]
	if known && trace.channel == channel {
		return trace.baseDenom, nil
	}
	if !known && utils.IsIBCDenom(denom) {
		return "", fmt.Errorf("unknown trace for %s", denom)
	}

	cp, ok := r.counterparty[channel]
	if !ok {
		return "", fmt.Errorf("no counterparty known for channel %s", channel)
	}
	if known {
		denom = utils.TransferPort + "/" + trace.channel + "/" + trace.baseDenom
	}
	return utils.IBCDenom(utils.TransferPort, cp, denom), nil
}
