package clients

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vitwit/ampkernel/types"
)

// fakeWasm serves contract info and smart queries from maps.
type fakeWasm struct {
	wasmtypes.UnimplementedQueryServer
	codes   map[string]uint64
	answers map[string]map[string]any
}

func (f *fakeWasm) ContractInfo(_ context.Context, req *wasmtypes.QueryContractInfoRequest) (*wasmtypes.QueryContractInfoResponse, error) {
	code, ok := f.codes[req.Address]
	if !ok {
		return nil, status.Error(codes.NotFound, "no such contract")
	}
	return &wasmtypes.QueryContractInfoResponse{
		Address:      req.Address,
		ContractInfo: wasmtypes.ContractInfo{CodeID: code},
	}, nil
}

func (f *fakeWasm) SmartContractState(_ context.Context, req *wasmtypes.QuerySmartContractStateRequest) (*wasmtypes.QuerySmartContractStateResponse, error) {
	answers, ok := f.answers[req.Address]
	if !ok {
		return nil, status.Error(codes.NotFound, "no such contract")
	}
	key := string(req.QueryData)
	answer, ok := answers[key]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unexpected query %s", key)
	}
	bz, err := json.Marshal(answer)
	if err != nil {
		return nil, err
	}
	return &wasmtypes.QuerySmartContractStateResponse{Data: bz}, nil
}

func startFakeWasm(t *testing.T, f *fakeWasm) *CosmosClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	wasmtypes.RegisterQueryServer(srv, f)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	c := newCosmosClient(conn, "andr1vfs", "andr1adodb")
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCosmosClient_Queries(t *testing.T) {
	ctx := context.Background()
	c := startFakeWasm(t, &fakeWasm{
		codes: map[string]uint64{"andr1splitter": 7},
		answers: map[string]map[string]any{
			"andr1vfs": {
				`{"resolve_path":{"path":"/home/alice/splitter"}}`: "andr1splitter",
				`{"resolve_path":{"path":"~alice"}}`:               "andr1alice",
			},
			"andr1adodb": {
				`{"ado_type":{"code_id":7}}`:             "splitter@1.0.0",
				`{"ado_type":{"code_id":8}}`:             nil,
				`{"code_id":{"key":"splitter@1.0.0"}}`: 7,
			},
		},
	})

	code, ok, err := c.ContractCodeID(ctx, "andr1splitter")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), code)

	_, ok, err = c.ContractCodeID(ctx, "andr1alice")
	require.NoError(t, err)
	assert.False(t, ok)

	addr, err := c.ResolvePath(ctx, "/home/alice/splitter")
	require.NoError(t, err)
	assert.Equal(t, "andr1splitter", addr)

	_, err = c.ResolvePath(ctx, "/home/bob")
	assert.Error(t, err)

	addr, ok, err = c.ResolveUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "andr1alice", addr)

	_, ok, err = c.ResolveUsername(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ct, ok, err := c.ComponentType(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "splitter@1.0.0", ct)

	_, ok, err = c.ComponentType(ctx, 8)
	require.NoError(t, err)
	assert.False(t, ok)

	action, err := c.Create(ctx, "andr1owner", "splitter@1.0.0", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, types.WasmInstantiate{CodeID: 7, Msg: []byte(`{}`), Label: "splitter", Admin: "andr1owner"}, action)
}
