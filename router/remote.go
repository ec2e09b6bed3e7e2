package router

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vitwit/ampkernel/ledger"
	"github.com/vitwit/ampkernel/logger"
	"github.com/vitwit/ampkernel/packetid"
	"github.com/vitwit/ampkernel/registry"
	"github.com/vitwit/ampkernel/state"
	"github.com/vitwit/ampkernel/types"
	"github.com/vitwit/ampkernel/utils"
)

// Sender builds packets for envelopes addressed to other chains.
type Sender struct {
	registry *registry.Registry
	ids      *packetid.Generator
	ledger   *ledger.Ledger
	denoms   types.DenomRegistry
	timeout  time.Duration
	log      logger.Logger
}

func NewSender(reg *registry.Registry, ids *packetid.Generator, l *ledger.Ledger, denoms types.DenomRegistry, timeout time.Duration, log logger.Logger) *Sender {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Sender{
		registry: reg,
		ids:      ids,
		ledger:   l,
		denoms:   denoms,
		timeout:  timeout,
		log:      log.With(map[string]any{"module": "sender"}),
	}
}

// Send stamps a packet id and emits the packet carrying e to the chain named
// by its recipient. Funded envelopes travel as an ICS-20 transfer whose
// sequence is recorded once the platform reports it.
func (s *Sender) Send(ctx context.Context, kv state.KVStore, env types.Env, sender string, e types.Envelope, inherited *types.PacketContext) (*types.SubMsg, error) {
	chain := e.Recipient.Chain()
	rec, err := s.registry.MustChannel(kv, chain)
	if err != nil {
		return nil, err
	}
	local := e.Recipient.LocalPart()
	if local == "" {
		return nil, types.InvalidPacket(fmt.Sprintf("recipient %s names no address on %s", e.Recipient, chain))
	}

	pctx := types.Inherit(inherited, sender)
	id, err := s.ids.GenerateOrValidate(kv, env, pctx.ID)
	if err != nil {
		return nil, err
	}
	pctx.ID = id
	timeout := env.Time.Add(s.timeoutFor(e.Config))

	if e.Funds.Empty() {
		pctx = pctx.WithHop(s.hop(env, sender, pctx, chain, rec.MessageChannelID))
		batch := types.NewEnvelopeBatch(pctx, e.WithRecipient(local))
		data, err := utils.SerializePacket(types.SendMessage{Batch: batch})
		if err != nil {
			return nil, err
		}
		s.log.Debug("sending message packet", map[string]any{"chain": chain, "packet_id": id, "channel": rec.MessageChannelID})
		return &types.SubMsg{
			ReplyOn: types.ReplyNever,
			Action:  types.IBCSendPacket{ChannelID: rec.MessageChannelID, Data: data, Timeout: timeout},
		}, nil
	}

	coin, err := utils.SingleCoin(e.Funds)
	if err != nil {
		return nil, err
	}
	if rec.AssetChannelID == "" {
		return nil, types.Unauthorized("no asset channel registered for chain %s", chain)
	}
	remoteDenom, err := s.denoms.CounterpartyDenom(ctx, coin.Denom, rec.AssetChannelID)
	if err != nil {
		return nil, types.InvalidPacket(fmt.Sprintf("cannot translate %s over %s: %v", coin.Denom, rec.AssetChannelID, err))
	}

	pctx = pctx.WithHop(s.hop(env, sender, pctx, chain, rec.AssetChannelID))
	memo, err := utils.BuildHookMemo(rec.KernelAddress, types.SendMessageWithFunds{
		Recipient:              local,
		Message:                e.Payload,
		Funds:                  sdk.NewCoin(remoteDenom, coin.Amount),
		OriginalSender:         pctx.Origin,
		OriginalSenderUsername: pctx.OriginUsername,
		PreviousHops:           pctx.Hops,
		PacketID:               id,
	})
	if err != nil {
		return nil, err
	}

	owner := refundOwner(e.Config, pctx, sender)
	nonce, err := s.ledger.StageTransfer(kv, types.PendingTransfer{
		Channel:         rec.AssetChannelID,
		RecoveryAddress: owner,
		Amount:          coin,
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("sending funded transfer", map[string]any{
		"chain":     chain,
		"packet_id": id,
		"channel":   rec.AssetChannelID,
		"amount":    coin.String(),
		"refund_to": owner,
	})
	return &types.SubMsg{
		ID:      types.ReplyTransferSequence,
		ReplyOn: types.ReplyAlways,
		Payload: ledger.TransferRef(nonce),
		Action: types.IBCTransfer{
			ChannelID: rec.AssetChannelID,
			ToAddress: rec.KernelAddress,
			Amount:    coin,
			Memo:      memo,
			Timeout:   timeout,
		},
	}, nil
}

// SendPacket emits msg over the message channel of chain and returns the
// packet id minted for it. The id is not part of msg's wire format.
func (s *Sender) SendPacket(kv state.KVStore, env types.Env, chain string, msg types.PacketMsg) (*types.SubMsg, string, error) {
	rec, err := s.registry.MustChannel(kv, chain)
	if err != nil {
		return nil, "", err
	}
	data, err := utils.SerializePacket(msg)
	if err != nil {
		return nil, "", err
	}
	id, err := s.ids.GenerateOrValidate(kv, env, "")
	if err != nil {
		return nil, "", err
	}
	s.log.Debug("sending packet", map[string]any{"chain": chain, "packet_id": id, "kind": msg.PacketTag()})
	return &types.SubMsg{
		ReplyOn: types.ReplyNever,
		Action: types.IBCSendPacket{
			ChannelID: rec.MessageChannelID,
			Data:      data,
			Timeout:   env.Time.Add(s.timeout),
		},
	}, id, nil
}

func (s *Sender) timeoutFor(cfg types.EnvelopeConfig) time.Duration {
	if cfg.CrossChain != nil && cfg.CrossChain.TimeoutSeconds > 0 {
		return time.Duration(cfg.CrossChain.TimeoutSeconds) * time.Second
	}
	return s.timeout
}

func (s *Sender) hop(env types.Env, sender string, pctx types.PacketContext, chain, channel string) types.Hop {
	return types.Hop{
		Address:   sender,
		Username:  pctx.OriginUsername,
		FromChain: env.ChainName,
		ToChain:   chain,
		Channel:   channel,
	}
}

// refundOwner is the cross-chain refund address if set, else the origin,
// else the caller.
func refundOwner(cfg types.EnvelopeConfig, pctx types.PacketContext, sender string) string {
	if cfg.CrossChain != nil && cfg.CrossChain.RefundAddress != "" {
		return cfg.CrossChain.RefundAddress
	}
	if pctx.Origin != "" {
		return pctx.Origin
	}
	return sender
}
