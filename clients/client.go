package clients

import (
	"fmt"

	"github.com/vitwit/ampkernel/types"
)

// Collaborators bundles the external query contracts the kernel consumes.
type Collaborators struct {
	Names     types.NameService
	Types     types.TypeRegistry
	Contracts types.ContractQuerier
	Denoms    types.DenomRegistry
	Factory   types.ComponentFactory
}

// Validate reports the first missing collaborator.
func (c Collaborators) Validate() error {
	switch {
	case c.Names == nil:
		return fmt.Errorf("name service is required")
	case c.Types == nil:
		return fmt.Errorf("type registry is required")
	case c.Contracts == nil:
		return fmt.Errorf("contract querier is required")
	case c.Denoms == nil:
		return fmt.Errorf("denom registry is required")
	case c.Factory == nil:
		return fmt.Errorf("component factory is required")
	}
	return nil
}
