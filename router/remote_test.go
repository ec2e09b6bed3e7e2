package router

import (
	"context"
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/ampkernel/clients"
	"github.com/vitwit/ampkernel/ledger"
	"github.com/vitwit/ampkernel/packetid"
	"github.com/vitwit/ampkernel/registry"
	"github.com/vitwit/ampkernel/state"
	"github.com/vitwit/ampkernel/types"
	"github.com/vitwit/ampkernel/utils"
)

type senderFixture struct {
	kv     *state.Tx
	sender *Sender
	ledger *ledger.Ledger
	ids    *packetid.Generator
	env    types.Env
}

func newSenderFixture(t *testing.T) *senderFixture {
	t.Helper()
	kv := state.NewMemStore().Begin()
	t.Cleanup(kv.Discard)

	reg := registry.New()
	require.NoError(t, reg.Assign(kv, types.ChannelRecord{
		ChainName:        "osmosis",
		MessageChannelID: "channel-1",
		AssetChannelID:   "channel-2",
		KernelAddress:    "osmo1kernel",
	}))
	require.NoError(t, reg.Assign(kv, types.ChannelRecord{
		ChainName:        "juno",
		MessageChannelID: "channel-5",
		KernelAddress:    "juno1kernel",
	}))

	denoms := clients.NewPathDenomRegistry().AddChannel("channel-2", "channel-40")
	l := ledger.New()
	ids := packetid.New()
	return &senderFixture{
		kv:     kv,
		sender: NewSender(reg, ids, l, denoms, time.Hour, nil),
		ledger: l,
		ids:    ids,
		env: types.Env{
			ChainName:     "andromeda",
			Height:        12,
			Time:          time.Unix(1_700_000_000, 0).UTC(),
			KernelAddress: "andr1kernel",
		},
	}
}

func TestSend_UnregisteredChain(t *testing.T) {
	f := newSenderFixture(t)
	_, err := f.sender.Send(context.Background(), f.kv, f.env, "andr1alice",
		types.NewEnvelope("chain-ref://stargaze/stars1x", []byte(`{}`), nil), nil)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestSend_MessagePacket(t *testing.T) {
	f := newSenderFixture(t)
	e := types.NewEnvelope("chain-ref://osmosis/home/bob/app", []byte(`{"ping":{}}`), nil)

	msg, err := f.sender.Send(context.Background(), f.kv, f.env, "andr1alice", e, nil)
	require.NoError(t, err)

	pkt, ok := msg.Action.(types.IBCSendPacket)
	require.True(t, ok)
	assert.Equal(t, "channel-1", pkt.ChannelID)
	assert.Equal(t, f.env.Time.Add(time.Hour), pkt.Timeout)

	decoded, err := utils.ParsePacket(pkt.Data)
	require.NoError(t, err)
	batch := decoded.(types.SendMessage).Batch
	assert.Equal(t, "andromeda.12.0", batch.Context.ID)
	assert.Equal(t, "andr1alice", batch.Context.Origin)
	require.Len(t, batch.Context.Hops, 1)
	assert.Equal(t, types.Hop{Address: "andr1alice", FromChain: "andromeda", ToChain: "osmosis", Channel: "channel-1"}, batch.Context.Hops[0])
	assert.Equal(t, types.AddressRef("/home/bob/app"), batch.Messages[0].Recipient)

	counter, err := f.ids.Counter(f.kv)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counter)
}

func TestSend_ForwardKeepsTrailingSegment(t *testing.T) {
	f := newSenderFixture(t)
	parent := types.NewPacketContext("juno1origin")
	parent.ID = "juno.55.7"

	msg, err := f.sender.Send(context.Background(), f.kv, f.env, "andr1kernel",
		types.NewEnvelope("chain-ref://osmosis/osmo1bob", []byte(`{}`), nil), &parent)
	require.NoError(t, err)

	decoded, err := utils.ParsePacket(msg.Action.(types.IBCSendPacket).Data)
	require.NoError(t, err)
	assert.Equal(t, "andromeda.12.7", decoded.(types.SendMessage).Batch.Context.ID)

	counter, err := f.ids.Counter(f.kv)
	require.NoError(t, err)
	assert.Zero(t, counter)
}

func TestSend_FundedTransfer(t *testing.T) {
	f := newSenderFixture(t)
	e := types.NewEnvelope("chain-ref://osmosis/osmo1bob", []byte(`{"deposit":{}}`), sdk.NewCoins(sdk.NewInt64Coin("uandr", 100))).
		WithConfig(types.EnvelopeConfig{
			ReplyOn:    types.ReplyError,
			CrossChain: &types.CrossChainOptions{RefundAddress: "andr1refund", TimeoutSeconds: 60},
		})

	msg, err := f.sender.Send(context.Background(), f.kv, f.env, "andr1alice", e, nil)
	require.NoError(t, err)

	assert.Equal(t, types.ReplyTransferSequence, msg.ID)
	assert.Equal(t, types.ReplyAlways, msg.ReplyOn)
	transfer, ok := msg.Action.(types.IBCTransfer)
	require.True(t, ok)
	assert.Equal(t, "channel-2", transfer.ChannelID)
	assert.Equal(t, "osmo1kernel", transfer.ToAddress)
	assert.Equal(t, "100uandr", transfer.Amount.String())
	assert.Equal(t, f.env.Time.Add(time.Minute), transfer.Timeout)

	contract, inner, err := utils.ParseHookMemo(transfer.Memo)
	require.NoError(t, err)
	assert.Equal(t, "osmo1kernel", contract)
	funded := inner.(types.SendMessageWithFunds)
	assert.Equal(t, utils.IBCDenom(utils.TransferPort, "channel-40", "uandr"), funded.Funds.Denom)
	assert.Equal(t, "andr1alice", funded.OriginalSender)
	assert.Equal(t, "andromeda.12.0", funded.PacketID)
	assert.Equal(t, types.AddressRef("osmo1bob"), funded.Recipient)

	nonce, err := ledger.ParseTransferRef(msg.Payload)
	require.NoError(t, err)
	staged, found, err := f.ledger.TakeTransfer(f.kv, nonce)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "andr1refund", staged.RecoveryAddress)
	assert.Equal(t, "channel-2", staged.Channel)
}

func TestSend_FundedRules(t *testing.T) {
	f := newSenderFixture(t)
	ctx := context.Background()

	two := sdk.NewCoins(sdk.NewInt64Coin("uandr", 1), sdk.NewInt64Coin("uatom", 1))
	_, err := f.sender.Send(ctx, f.kv, f.env, "andr1alice", types.NewEnvelope("chain-ref://osmosis/osmo1bob", nil, two), nil)
	assert.ErrorIs(t, err, types.ErrInvalidPacket)

	zero := sdk.Coins{sdk.NewInt64Coin("uandr", 0)}
	_, err = f.sender.Send(ctx, f.kv, f.env, "andr1alice", types.NewEnvelope("chain-ref://osmosis/osmo1bob", nil, zero), nil)
	assert.ErrorIs(t, err, types.ErrInvalidZeroAmount)

	one := sdk.NewCoins(sdk.NewInt64Coin("ujuno", 1))
	_, err = f.sender.Send(ctx, f.kv, f.env, "andr1alice", types.NewEnvelope("chain-ref://juno/juno1bob", nil, one), nil)
	assert.ErrorIs(t, err, types.ErrUnauthorized, "juno has no asset channel")

	_, err = f.sender.Send(ctx, f.kv, f.env, "andr1alice", types.NewEnvelope("chain-ref://osmosis", nil, one), nil)
	assert.ErrorIs(t, err, types.ErrInvalidPacket)
}

func TestRefundOwner(t *testing.T) {
	pctx := types.PacketContext{Origin: "origin"}
	assert.Equal(t, "refund", refundOwner(types.EnvelopeConfig{CrossChain: &types.CrossChainOptions{RefundAddress: "refund"}}, pctx, "caller"))
	assert.Equal(t, "origin", refundOwner(types.EnvelopeConfig{}, pctx, "caller"))
	assert.Equal(t, "caller", refundOwner(types.EnvelopeConfig{}, types.PacketContext{}, "caller"))
}

func TestSendPacket(t *testing.T) {
	f := newSenderFixture(t)
	msg, id, err := f.sender.SendPacket(f.kv, f.env, "juno", types.RegisterUsername{Username: "alice", Address: "juno1alice"})
	require.NoError(t, err)
	pkt := msg.Action.(types.IBCSendPacket)
	assert.Equal(t, "channel-5", pkt.ChannelID)
	assert.Equal(t, "andromeda.12.0", id)

	_, id, err = f.sender.SendPacket(f.kv, f.env, "juno", types.CreateComponent{Owner: "juno1alice", ComponentType: "splitter@1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "andromeda.12.1", id)
	counter, err := f.ids.Counter(f.kv)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), counter)

	_, _, err = f.sender.SendPacket(f.kv, f.env, "stargaze", types.RegisterUsername{Username: "a", Address: "b"})
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	counter, err = f.ids.Counter(f.kv)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), counter, "an unroutable packet mints no id")
}
