package ledger

import (
	"encoding/json"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vitwit/ampkernel/types"
)

// TransferRef is the sub-call payload naming a staged transfer.
func TransferRef(nonce uint64) []byte {
	return sdk.Uint64ToBigEndian(nonce)
}

func ParseTransferRef(payload []byte) (uint64, error) {
	if len(payload) != 8 {
		return 0, fmt.Errorf("transfer reference must be 8 bytes, got %d", len(payload))
	}
	return sdk.BigEndianToUint64(payload), nil
}

// RefundRef is the sub-call payload naming the inbound packet whose funds a
// refund would return.
func RefundRef(packet types.PacketKey) []byte {
	bz, _ := json.Marshal(packet)
	return bz
}

func ParseRefundRef(payload []byte) (types.PacketKey, error) {
	var k types.PacketKey
	if err := json.Unmarshal(payload, &k); err != nil {
		return types.PacketKey{}, fmt.Errorf("decode refund reference: %w", err)
	}
	if k.Channel == "" {
		return types.PacketKey{}, fmt.Errorf("refund reference names no channel")
	}
	return k, nil
}
