package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vitwit/ampkernel/types"
)

// CosmosClient answers collaborator queries against a wasm-enabled chain
// over gRPC: contract lookups go to x/wasm, names to the naming-service
// contract and component types to the type-registry contract.
type CosmosClient struct {
	conn          *grpc.ClientConn
	wasm          wasmtypes.QueryClient
	namingService string
	typeRegistry  string
}

var (
	_ types.NameService      = (*CosmosClient)(nil)
	_ types.TypeRegistry     = (*CosmosClient)(nil)
	_ types.ContractQuerier  = (*CosmosClient)(nil)
	_ types.ComponentFactory = (*CosmosClient)(nil)
)

// NewCosmosClient dials grpcURL without transport security.
func NewCosmosClient(grpcURL string, namingService string, typeRegistry string) (*CosmosClient, error) {
	conn, err := grpc.NewClient(grpcURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("gRPC connection failed: %v", err)
	}
	return newCosmosClient(conn, namingService, typeRegistry), nil
}

func newCosmosClient(conn *grpc.ClientConn, namingService string, typeRegistry string) *CosmosClient {
	return &CosmosClient{
		conn:          conn,
		wasm:          wasmtypes.NewQueryClient(conn),
		namingService: namingService,
		typeRegistry:  typeRegistry,
	}
}

// ContractCodeID reports the code id behind addr. Lookup failures other than
// transport errors mean addr is not a contract.
func (c *CosmosClient) ContractCodeID(ctx context.Context, addr string) (uint64, bool, error) {
	resp, err := c.wasm.ContractInfo(ctx, &wasmtypes.QueryContractInfoRequest{Address: addr})
	if err != nil {
		if isTransportError(err) {
			return 0, false, fmt.Errorf("contract info %s: %w", addr, err)
		}
		return 0, false, nil
	}
	if resp == nil || resp.ContractInfo.CodeID == 0 {
		return 0, false, nil
	}
	return resp.ContractInfo.CodeID, true, nil
}

func (c *CosmosClient) ResolvePath(ctx context.Context, path string) (string, error) {
	var addr string
	err := c.smartQuery(ctx, c.namingService, map[string]any{
		"resolve_path": map[string]string{"path": path},
	}, &addr)
	if err != nil {
		return "", err
	}
	if addr == "" {
		return "", fmt.Errorf("path %s resolved to an empty address", path)
	}
	return addr, nil
}

// ResolveUsername resolves the user's home directory. A username without a
// home is not an error.
func (c *CosmosClient) ResolveUsername(ctx context.Context, username string) (string, bool, error) {
	addr, err := c.ResolvePath(ctx, "~"+username)
	if err != nil {
		if isTransportError(err) {
			return "", false, err
		}
		return "", false, nil
	}
	return addr, true, nil
}

func (c *CosmosClient) ComponentType(ctx context.Context, codeID uint64) (string, bool, error) {
	var componentType *string
	err := c.smartQuery(ctx, c.typeRegistry, map[string]any{
		"ado_type": map[string]uint64{"code_id": codeID},
	}, &componentType)
	if err != nil {
		return "", false, err
	}
	if componentType == nil || *componentType == "" {
		return "", false, nil
	}
	return *componentType, true, nil
}

// Create looks up the code registered for componentType and instantiates it
// with owner as admin.
func (c *CosmosClient) Create(ctx context.Context, owner string, componentType string, msg []byte) (types.Action, error) {
	var codeID uint64
	err := c.smartQuery(ctx, c.typeRegistry, map[string]any{
		"code_id": map[string]string{"key": componentType},
	}, &codeID)
	if err != nil {
		return nil, err
	}
	if codeID == 0 {
		return nil, types.InvalidPacket(fmt.Sprintf("component type %s is not registered", componentType))
	}
	return types.WasmInstantiate{
		CodeID: codeID,
		Msg:    msg,
		Label:  componentLabel(componentType),
		Admin:  owner,
	}, nil
}

func (c *CosmosClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *CosmosClient) smartQuery(ctx context.Context, contract string, query any, out any) error {
	if contract == "" {
		return fmt.Errorf("no contract configured for query")
	}
	bz, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}
	resp, err := c.wasm.SmartContractState(ctx, &wasmtypes.QuerySmartContractStateRequest{
		Address:   contract,
		QueryData: wasmtypes.RawContractMessage(bz),
	})
	if err != nil {
		return fmt.Errorf("smart query %s: %w", contract, err)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode query response: %w", err)
	}
	return nil
}

func isTransportError(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return true
	}
	return false
}

// componentLabel strips the version from "type@version".
func componentLabel(componentType string) string {
	name, _, _ := strings.Cut(componentType, "@")
	return name
}
