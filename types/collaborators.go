package types

import "context"

// NameService resolves human-readable names to addresses.
type NameService interface {
	// ResolvePath resolves a named path to an address.
	ResolvePath(ctx context.Context, path string) (string, error)
	// ResolveUsername returns the address bound to username, if any.
	ResolveUsername(ctx context.Context, username string) (string, bool, error)
}

// TypeRegistry maps code ids to component types.
type TypeRegistry interface {
	// ComponentType reports the component type registered for codeID.
	// ok is false for code that is not part of the managed ecosystem.
	ComponentType(ctx context.Context, codeID uint64) (componentType string, ok bool, err error)
}

// ContractQuerier tells contracts apart from plain accounts.
type ContractQuerier interface {
	// ContractCodeID returns the code id of the contract at addr. ok is false
	// when addr is not a contract.
	ContractCodeID(ctx context.Context, addr string) (codeID uint64, ok bool, err error)
}

// DenomRegistry translates denominations across an asset channel.
type DenomRegistry interface {
	CounterpartyDenom(ctx context.Context, denom string, channel string) (string, error)
}

// ComponentFactory builds the sub-call that instantiates a component.
type ComponentFactory interface {
	Create(ctx context.Context, owner string, componentType string, msg []byte) (Action, error)
}
