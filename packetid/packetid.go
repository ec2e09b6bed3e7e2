// Package packetid mints and relays the trace ids stamped on outbound
// packets. An id has the form chain-name.block-height.hop-index.
package packetid

import (
	"fmt"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vitwit/ampkernel/state"
	"github.com/vitwit/ampkernel/types"
)

// Generator stamps packet ids. The hop counter lives in state so every
// invocation sees the committed value.
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

// GenerateOrValidate mints a fresh id when existing is empty, consuming the
// counter. Otherwise existing must have three dot-separated segments; the
// returned id carries this chain's name and height and the third segment
// unchanged, and the counter is not touched.
func (g *Generator) GenerateOrValidate(kv state.KVStore, env types.Env, existing string) (string, error) {
	if existing != "" {
		_, _, hop, err := Parse(existing)
		if err != nil {
			return "", err
		}
		return format(env, hop), nil
	}

	counter, err := g.Counter(kv)
	if err != nil {
		return "", err
	}
	id := format(env, fmt.Sprintf("%d", counter))
	if err := kv.Set(state.PacketCounterKey, sdk.Uint64ToBigEndian(counter+1)); err != nil {
		return "", types.StateError("save packet counter", err)
	}
	return id, nil
}

// Counter returns the next hop index to be minted.
func (g *Generator) Counter(kv state.KVStore) (uint64, error) {
	bz, err := kv.Get(state.PacketCounterKey)
	if err != nil {
		return 0, types.StateError("load packet counter", err)
	}
	if len(bz) == 0 {
		return 0, nil
	}
	if len(bz) != 8 {
		return 0, types.StateError("load packet counter", fmt.Errorf("corrupt counter of %d bytes", len(bz)))
	}
	return sdk.BigEndianToUint64(bz), nil
}

// Parse splits an id into its chain, height and hop segments.
func Parse(id string) (chain string, height string, hop string, err error) {
	parts := strings.Split(id, ".")
	if len(parts) != 3 {
		return "", "", "", types.InvalidPacketID(id)
	}
	return parts[0], parts[1], parts[2], nil
}

func format(env types.Env, hop string) string {
	return fmt.Sprintf("%s.%d.%s", env.ChainName, env.Height, hop)
}

