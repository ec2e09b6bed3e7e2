// Package registry maintains the chain <-> channel mapping and gates channel
// establishment.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vitwit/ampkernel/state"
	"github.com/vitwit/ampkernel/types"
)

// Registry is the chain <-> channel bijection. Both directions are only ever
// written together through Assign.
type Registry struct{}

func New() *Registry {
	return &Registry{}
}

// Assign binds record.ChainName to its channels. Reverse entries of a previous
// record for the same chain are removed. A channel already bound to another
// chain is rejected.
func (r *Registry) Assign(kv state.KVStore, record types.ChannelRecord) error {
	if record.ChainName == "" || record.MessageChannelID == "" {
		return types.InvalidPacket("chain name and message channel are required")
	}
	if record.AssetChannelID != "" && record.AssetChannelID == record.MessageChannelID {
		return types.InvalidPacket("message and asset channels must differ")
	}

	for _, ch := range channelsOf(record) {
		owner, found, err := r.ChainForChannel(kv, ch)
		if err != nil {
			return err
		}
		if found && owner != record.ChainName {
			return types.Unauthorized("channel %s is already assigned to %s", ch, owner)
		}
	}

	prev, found, err := r.Channel(kv, record.ChainName)
	if err != nil {
		return err
	}
	if found {
		for _, ch := range channelsOf(prev) {
			if err := kv.Delete(state.ChannelToChainKey(ch)); err != nil {
				return types.StateError("delete reverse mapping", err)
			}
		}
	}

	if err := state.SetJSON(kv, state.ChainToChannelKey(record.ChainName), record); err != nil {
		return types.StateError("save channel record", err)
	}
	for _, ch := range channelsOf(record) {
		if err := kv.Set(state.ChannelToChainKey(ch), []byte(record.ChainName)); err != nil {
			return types.StateError("save reverse mapping", err)
		}
	}
	return nil
}

// Channel returns the record registered for chain.
func (r *Registry) Channel(kv state.KVStore, chain string) (types.ChannelRecord, bool, error) {
	var rec types.ChannelRecord
	found, err := state.GetJSON(kv, state.ChainToChannelKey(chain), &rec)
	if err != nil {
		return types.ChannelRecord{}, false, types.StateError("load channel record", err)
	}
	return rec, found, nil
}

// MustChannel is Channel with a missing record reported as Unauthorized.
func (r *Registry) MustChannel(kv state.KVStore, chain string) (types.ChannelRecord, error) {
	rec, found, err := r.Channel(kv, chain)
	if err != nil {
		return types.ChannelRecord{}, err
	}
	if !found {
		return types.ChannelRecord{}, types.Unauthorized("no channel registered for chain %s", chain)
	}
	return rec, nil
}

// ChainForChannel returns the chain a channel is bound to.
func (r *Registry) ChainForChannel(kv state.KVStore, channel string) (string, bool, error) {
	bz, err := kv.Get(state.ChannelToChainKey(channel))
	if err != nil {
		return "", false, types.StateError("load chain for channel", err)
	}
	if bz == nil {
		return "", false, nil
	}
	return string(bz), true, nil
}

// All lists every record ordered by chain name.
func (r *Registry) All(kv state.KVStore) ([]types.ChannelRecord, error) {
	var out []types.ChannelRecord
	err := kv.Iterate(state.ChainToChannelPrefix, func(key, value []byte) (bool, error) {
		var rec types.ChannelRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return true, fmt.Errorf("decode %s: %w", key, err)
		}
		out = append(out, rec)
		return false, nil
	})
	if err != nil {
		return nil, types.StateError("list channel records", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainName < out[j].ChainName })
	return out, nil
}

func channelsOf(rec types.ChannelRecord) []string {
	chs := []string{rec.MessageChannelID}
	if rec.AssetChannelID != "" {
		chs = append(chs, rec.AssetChannelID)
	}
	return chs
}
