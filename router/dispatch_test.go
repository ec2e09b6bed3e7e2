package router

import (
	"context"
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/ampkernel/types"
)

func TestDispatchAll_MixesLocalAndRemote(t *testing.T) {
	f := newSenderFixture(t)
	local, _ := newTestRouter()
	d := NewDispatcher(local, f.sender, nil)

	resp, err := d.DispatchAll(context.Background(), f.kv, f.env, "andr1alice", []types.Envelope{
		types.NewEnvelope("andr1user", nil, sdk.NewCoins(sdk.NewInt64Coin("uandr", 3))),
		types.NewEnvelope("chain-ref://osmosis/osmo1bob", []byte(`{}`), nil),
		types.NewEnvelope("chain-ref://andromeda/andr1splitter", []byte(`{}`), nil),
	}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Messages, 3)
	assert.IsType(t, types.BankSend{}, resp.Messages[0].Action)
	assert.IsType(t, types.IBCSendPacket{}, resp.Messages[1].Action)
	assert.IsType(t, types.WasmExecute{}, resp.Messages[2].Action)
	assert.Same(t, f.sender, d.Sender())
}

func TestDispatchAll_StopsAtFirstError(t *testing.T) {
	f := newSenderFixture(t)
	local, _ := newTestRouter()
	d := NewDispatcher(local, f.sender, nil)

	_, err := d.DispatchAll(context.Background(), f.kv, f.env, "andr1alice", []types.Envelope{
		types.NewEnvelope("andr1user", nil, nil),
		types.NewEnvelope("chain-ref://osmosis/osmo1bob", []byte(`{}`), nil),
	}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidPacket)
}
