package clients

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vitwit/ampkernel/types"
)

// MemoryChain is an in-process stand-in for the naming service, type
// registry and contract lookups of a chain. It is safe for concurrent use.
type MemoryChain struct {
	mu        sync.RWMutex
	paths     map[string]string
	usernames map[string]string
	contracts map[string]uint64
	codeTypes map[uint64]string
	typeCodes map[string]uint64
}

var (
	_ types.NameService      = (*MemoryChain)(nil)
	_ types.TypeRegistry     = (*MemoryChain)(nil)
	_ types.ContractQuerier  = (*MemoryChain)(nil)
	_ types.ComponentFactory = (*MemoryChain)(nil)
)

func NewMemoryChain() *MemoryChain {
	return &MemoryChain{
		paths:     make(map[string]string),
		usernames: make(map[string]string),
		contracts: make(map[string]uint64),
		codeTypes: make(map[uint64]string),
		typeCodes: make(map[string]uint64),
	}
}

// RegisterCode records a component type for codeID.
func (m *MemoryChain) RegisterCode(codeID uint64, componentType string) *MemoryChain {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codeTypes[codeID] = componentType
	m.typeCodes[componentType] = codeID
	return m
}

// DeployContract marks addr as a contract running codeID. Code without a
// registered type is outside the component ecosystem.
func (m *MemoryChain) DeployContract(addr string, codeID uint64) *MemoryChain {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[addr] = codeID
	return m
}

// RegisterPath binds a named path to addr.
func (m *MemoryChain) RegisterPath(path string, addr string) *MemoryChain {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[normalizePath(path)] = addr
	return m
}

// RegisterUser binds username to addr and gives it a home directory.
func (m *MemoryChain) RegisterUser(username string, addr string) *MemoryChain {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usernames[username] = addr
	m.paths["/home/"+username] = addr
	return m
}

func (m *MemoryChain) ResolvePath(_ context.Context, path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addr, ok := m.paths[normalizePath(path)]
	if !ok {
		return "", fmt.Errorf("path %s does not exist", path)
	}
	return addr, nil
}

func (m *MemoryChain) ResolveUsername(_ context.Context, username string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addr, ok := m.usernames[username]
	return addr, ok, nil
}

func (m *MemoryChain) ContractCodeID(_ context.Context, addr string) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	codeID, ok := m.contracts[addr]
	return codeID, ok, nil
}

func (m *MemoryChain) ComponentType(_ context.Context, codeID uint64) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.codeTypes[codeID]
	return t, ok, nil
}

func (m *MemoryChain) Create(_ context.Context, owner string, componentType string, msg []byte) (types.Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	codeID, ok := m.typeCodes[componentType]
	if !ok {
		return nil, types.InvalidPacket(fmt.Sprintf("component type %s is not registered", componentType))
	}
	return types.WasmInstantiate{
		CodeID: codeID,
		Msg:    append([]byte(nil), msg...),
		Label:  componentLabel(componentType),
		Admin:  owner,
	}, nil
}

// Collaborators wires m together with denoms.
func (m *MemoryChain) Collaborators(denoms types.DenomRegistry) Collaborators {
	return Collaborators{
		Names:     m,
		Types:     m,
		Contracts: m,
		Denoms:    denoms,
		Factory:   m,
	}
}

// normalizePath maps ~user/x to /home/user/x and drops trailing slashes.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "~") {
		path = "/home/" + strings.TrimPrefix(path, "~")
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
