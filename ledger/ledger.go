// Package ledger tracks funds in flight across chains: the outgoing-packet
// ledger of unresolved funded sends, the fund-recovery ledger of what each
// owner can reclaim, and the descriptors needed to refund inbound funds.
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vitwit/ampkernel/state"
	"github.com/vitwit/ampkernel/types"
)

// Ledger groups the ledger operations over one KVStore.
type Ledger struct{}

func New() *Ledger {
	return &Ledger{}
}

// RecordOutgoing stores a pending funded send under (channel, sequence).
// A key can hold at most one record.
func (l *Ledger) RecordOutgoing(kv state.KVStore, key types.PacketKey, pkt types.OutgoingPacket) error {
	if !pkt.Amount.IsValid() || pkt.Amount.IsZero() {
		return types.InvalidZeroAmount()
	}
	k := state.OutgoingPacketKey(key.Channel, key.Sequence)
	exists, err := kv.Has(k)
	if err != nil {
		return types.StateError("load outgoing packet", err)
	}
	if exists {
		return types.InvalidPacket(fmt.Sprintf("packet %s is already recorded", key))
	}
	if err := state.SetJSON(kv, k, pkt); err != nil {
		return types.StateError("save outgoing packet", err)
	}
	return nil
}

// TakeOutgoing removes and returns the record for key. found is false when
// no record exists, e.g. for a duplicate notification.
func (l *Ledger) TakeOutgoing(kv state.KVStore, key types.PacketKey) (types.OutgoingPacket, bool, error) {
	var pkt types.OutgoingPacket
	found, err := takeJSON(kv, state.OutgoingPacketKey(key.Channel, key.Sequence), &pkt)
	if err != nil {
		return types.OutgoingPacket{}, false, types.StateError("take outgoing packet", err)
	}
	return pkt, found, nil
}

// Outgoing lists every unresolved funded send.
func (l *Ledger) Outgoing(kv state.KVStore) ([]types.PendingPacket, error) {
	var out []types.PendingPacket
	err := kv.Iterate(state.OutgoingPacketPrefix, func(key, value []byte) (bool, error) {
		pk, err := parseOutgoingKey(key)
		if err != nil {
			return true, err
		}
		var pkt types.OutgoingPacket
		if err := json.Unmarshal(value, &pkt); err != nil {
			return true, fmt.Errorf("decode %s: %w", key, err)
		}
		out = append(out, types.PendingPacket{Key: pk, Packet: pkt})
		return false, nil
	})
	if err != nil {
		return nil, types.StateError("list outgoing packets", err)
	}
	return out, nil
}

// Credit appends coins to owner's recovery balance.
func (l *Ledger) Credit(kv state.KVStore, owner string, coins ...sdk.Coin) error {
	if owner == "" {
		return types.InvalidAddress(owner, fmt.Errorf("empty recovery address"))
	}
	current, err := l.Recoveries(kv, owner)
	if err != nil {
		return err
	}
	for _, c := range coins {
		if !c.IsValid() || c.IsZero() {
			continue
		}
		current = current.Add(c)
	}
	if err := state.SetJSON(kv, state.FundRecoveryKey(owner), current); err != nil {
		return types.StateError("save recovery", err)
	}
	return nil
}

// Recoveries returns what owner can reclaim.
func (l *Ledger) Recoveries(kv state.KVStore, owner string) (sdk.Coins, error) {
	var coins sdk.Coins
	if _, err := state.GetJSON(kv, state.FundRecoveryKey(owner), &coins); err != nil {
		return nil, types.StateError("load recovery", err)
	}
	return coins, nil
}

// StageTransfer holds a funded transfer until the platform reports its
// sequence and returns the nonce that identifies it. The nonce travels on the
// transfer sub-call and comes back on its reply.
func (l *Ledger) StageTransfer(kv state.KVStore, p types.PendingTransfer) (uint64, error) {
	var nonce uint64
	if _, err := state.GetJSON(kv, state.TransferNonceKey, &nonce); err != nil {
		return 0, types.StateError("load transfer nonce", err)
	}
	nonce++
	if err := state.SetJSON(kv, state.TransferNonceKey, nonce); err != nil {
		return 0, types.StateError("save transfer nonce", err)
	}
	if err := state.SetJSON(kv, state.PendingTransferKey(nonce), p); err != nil {
		return 0, types.StateError("save pending transfer", err)
	}
	return nonce, nil
}

// TakeTransfer removes and returns the transfer staged under nonce.
func (l *Ledger) TakeTransfer(kv state.KVStore, nonce uint64) (types.PendingTransfer, bool, error) {
	var p types.PendingTransfer
	found, err := takeJSON(kv, state.PendingTransferKey(nonce), &p)
	if err != nil {
		return types.PendingTransfer{}, false, types.StateError("take pending transfer", err)
	}
	return p, found, nil
}

// SaveRefund persists the descriptor for the inbound funded message carried
// by packet. A packet holds at most one descriptor.
func (l *Ledger) SaveRefund(kv state.KVStore, packet types.PacketKey, d types.RefundDescriptor) error {
	k := state.RefundDataKey(packet.Channel, packet.Sequence)
	exists, err := kv.Has(k)
	if err != nil {
		return types.StateError("load refund data", err)
	}
	if exists {
		return types.InvalidPacket(fmt.Sprintf("refund for packet %s is already pending", packet))
	}
	if err := state.SetJSON(kv, k, d); err != nil {
		return types.StateError("save refund data", err)
	}
	return nil
}

// TakeRefund removes and returns the descriptor saved for packet.
func (l *Ledger) TakeRefund(kv state.KVStore, packet types.PacketKey) (types.RefundDescriptor, bool, error) {
	var d types.RefundDescriptor
	found, err := takeJSON(kv, state.RefundDataKey(packet.Channel, packet.Sequence), &d)
	if err != nil {
		return types.RefundDescriptor{}, false, types.StateError("take refund data", err)
	}
	return d, found, nil
}

func takeJSON(kv state.KVStore, key []byte, v any) (bool, error) {
	found, err := state.GetJSON(kv, key, v)
	if err != nil || !found {
		return false, err
	}
	return true, kv.Delete(key)
}

func parseOutgoingKey(key []byte) (types.PacketKey, error) {
	rest := strings.TrimPrefix(string(key), string(state.OutgoingPacketPrefix))
	idx := strings.LastIndex(rest, "/")
	if idx < 0 {
		return types.PacketKey{}, fmt.Errorf("malformed outgoing packet key %q", key)
	}
	seq, err := strconv.ParseUint(rest[idx+1:], 10, 64)
	if err != nil {
		return types.PacketKey{}, fmt.Errorf("malformed sequence in %q: %w", key, err)
	}
	return types.PacketKey{Channel: rest[:idx], Sequence: seq}, nil
}
