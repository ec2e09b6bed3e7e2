package state

import "fmt"

// Key prefixes. Each ledger owns one prefix; nothing else writes under it.
var (
	ChainToChannelPrefix  = []byte("chain_to_channel/")
	ChannelToChainPrefix  = []byte("channel_to_chain/")
	OutgoingPacketPrefix  = []byte("outgoing_packet/")
	FundRecoveryPrefix    = []byte("fund_recovery/")
	PendingTransferPrefix = []byte("pending_transfer/")
	RefundDataPrefix      = []byte("refund_data/")

	TransferNonceKey = []byte("transfer_nonce")
	PacketCounterKey = []byte("packet_counter")
)

func ChainToChannelKey(chain string) []byte {
	return append(append([]byte(nil), ChainToChannelPrefix...), chain...)
}

func ChannelToChainKey(channel string) []byte {
	return append(append([]byte(nil), ChannelToChainPrefix...), channel...)
}

// OutgoingPacketKey zero-pads the sequence so iteration follows send order
// within a channel.
func OutgoingPacketKey(channel string, sequence uint64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", OutgoingPacketPrefix, channel, sequence))
}

func FundRecoveryKey(owner string) []byte {
	return append(append([]byte(nil), FundRecoveryPrefix...), owner...)
}

func PendingTransferKey(nonce uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", PendingTransferPrefix, nonce))
}

// RefundDataKey is keyed by the inbound packet that carried the funds.
func RefundDataKey(channel string, sequence uint64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", RefundDataPrefix, channel, sequence))
}
