package metrics

import "time"

// Event names recorded by the kernel.
const (
	RoutedLocal         = "routed_local"
	PacketSent          = "packet_sent"
	PacketReceived      = "packet_received"
	AckFailureSent      = "ack_failure_sent"
	AckSuccess          = "ack_success"
	AckFailure          = "ack_failure"
	Timeout             = "timeout"
	LifecycleUnexpected = "lifecycle_unexpected"
	RecoveryCredited    = "recovery_credited"
	RefundSent          = "refund_sent"

	PendingPackets = "pending_packets"
	RecvPacket     = "recv_packet"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	// AddAmount adds value base units to the running total of funds moved by
	// event name. labels carry "chain" and "denom".
	AddAmount(name string, value float64, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}
