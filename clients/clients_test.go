package clients

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/ampkernel/types"
	"github.com/vitwit/ampkernel/utils"
)

func TestMemoryChain_Resolution(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryChain().
		RegisterCode(1, "splitter@1.0.0").
		DeployContract("andr1splitter", 1).
		DeployContract("andr1foreign", 9).
		RegisterPath("/home/alice/splitter", "andr1splitter").
		RegisterUser("alice", "andr1alice")

	addr, err := m.ResolvePath(ctx, "~alice/splitter")
	require.NoError(t, err)
	assert.Equal(t, "andr1splitter", addr)

	addr, err = m.ResolvePath(ctx, "/home/alice/")
	require.NoError(t, err)
	assert.Equal(t, "andr1alice", addr)

	_, err = m.ResolvePath(ctx, "/home/bob")
	assert.Error(t, err)

	addr, ok, err := m.ResolveUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "andr1alice", addr)

	code, ok, err := m.ContractCodeID(ctx, "andr1foreign")
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = m.ComponentType(ctx, code)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = m.ContractCodeID(ctx, "andr1alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryChain_Create(t *testing.T) {
	m := NewMemoryChain().RegisterCode(4, "splitter@1.0.0")

	action, err := m.Create(context.Background(), "andr1owner", "splitter@1.0.0", []byte(`{}`))
	require.NoError(t, err)
	inst, ok := action.(types.WasmInstantiate)
	require.True(t, ok)
	assert.Equal(t, uint64(4), inst.CodeID)
	assert.Equal(t, "splitter", inst.Label)
	assert.Equal(t, "andr1owner", inst.Admin)

	_, err = m.Create(context.Background(), "andr1owner", "auction", nil)
	assert.ErrorIs(t, err, types.ErrInvalidPacket)
}

func TestCollaborators_Validate(t *testing.T) {
	m := NewMemoryChain()
	assert.NoError(t, m.Collaborators(NewPathDenomRegistry()).Validate())
	assert.Error(t, m.Collaborators(nil).Validate())
	assert.Error(t, Collaborators{}.Validate())
}

func TestPathDenomRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewPathDenomRegistry().AddChannel("channel-2", "channel-40")

	native, err := r.CounterpartyDenom(ctx, "uandr", "channel-2")
	require.NoError(t, err)
	assert.Equal(t, utils.IBCDenom(utils.TransferPort, "channel-40", "uandr"), native)

	voucher := r.AddTrace("channel-2", "uosmo")
	back, err := r.CounterpartyDenom(ctx, voucher, "channel-2")
	require.NoError(t, err)
	assert.Equal(t, "uosmo", back)

	r.AddChannel("channel-5", "channel-77")
	onward, err := r.CounterpartyDenom(ctx, voucher, "channel-5")
	require.NoError(t, err)
	assert.Equal(t, utils.IBCDenom(utils.TransferPort, "channel-77", "transfer/channel-2/uosmo"), onward)

	_, err = r.CounterpartyDenom(ctx, "uandr", "channel-9")
	assert.Error(t, err)
	_, err = r.CounterpartyDenom(ctx, utils.IBCDenom(utils.TransferPort, "channel-8", "x"), "channel-2")
	assert.Error(t, err)
}
