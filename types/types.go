package types

import (
	"fmt"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Channel versions accepted during the handshake.
const (
	ProtocolVersion = "ampkernel-1"
	ICS20Version    = "ics20-1"
)

// Env describes the block an entry point executes in.
type Env struct {
	ChainName     string
	Height        uint64
	Time          time.Time
	KernelAddress string
}

// ReplyMode controls which sub-call results are surfaced to the caller.
type ReplyMode string

const (
	ReplyAlways  ReplyMode = "always"
	ReplyError   ReplyMode = "error"
	ReplySuccess ReplyMode = "success"
	ReplyNever   ReplyMode = "never"
)

// Wants reports whether a result with the given outcome is delivered.
func (m ReplyMode) Wants(failed bool) bool {
	switch m {
	case ReplyAlways:
		return true
	case ReplySuccess:
		return !failed
	case ReplyNever:
		return false
	default:
		return failed
	}
}

// CrossChainOptions tune remote sends.
type CrossChainOptions struct {
	// RefundAddress receives recovered funds if the transfer fails.
	RefundAddress string `json:"refund_address,omitempty"`
	// TimeoutSeconds overrides the configured packet timeout.
	TimeoutSeconds uint64 `json:"timeout_seconds,omitempty"`
}

// EnvelopeConfig is the delivery configuration of an Envelope.
type EnvelopeConfig struct {
	ReplyOn     ReplyMode          `json:"reply_on"`
	ExitOnError bool               `json:"exit_on_error"`
	GasLimit    *uint64            `json:"gas_limit,omitempty"`
	Direct      bool               `json:"direct"`
	CrossChain  *CrossChainOptions `json:"cross_chain,omitempty"`
}

// DefaultEnvelopeConfig replies on error only and exits on error.
func DefaultEnvelopeConfig() EnvelopeConfig {
	return EnvelopeConfig{ReplyOn: ReplyError, ExitOnError: true}
}

// Envelope is one addressed message with optional funds. Values are treated
// as immutable; the With* helpers return modified copies.
type Envelope struct {
	Recipient AddressRef     `json:"recipient" validate:"required"`
	Payload   []byte         `json:"message,omitempty"`
	Funds     sdk.Coins      `json:"funds,omitempty"`
	Config    EnvelopeConfig `json:"config"`
}

func NewEnvelope(recipient AddressRef, payload []byte, funds sdk.Coins) Envelope {
	return Envelope{
		Recipient: recipient,
		Payload:   append([]byte(nil), payload...),
		Funds:     funds,
		Config:    DefaultEnvelopeConfig(),
	}
}

func (e Envelope) WithRecipient(r AddressRef) Envelope {
	e.Recipient = r
	return e
}

func (e Envelope) WithConfig(cfg EnvelopeConfig) Envelope {
	e.Config = cfg
	return e
}

func (e Envelope) WithFunds(funds sdk.Coins) Envelope {
	e.Funds = funds
	return e
}

// Hop is one chain crossing in a packet's trace.
type Hop struct {
	Address   string `json:"address"`
	Username  string `json:"username,omitempty"`
	FromChain string `json:"from_chain"`
	ToChain   string `json:"to_chain"`
	Channel   string `json:"channel"`
}

// PacketContext carries provenance so a receiving chain knows the original
// caller and not only the last hop.
type PacketContext struct {
	ID             string `json:"id,omitempty"`
	Origin         string `json:"origin" validate:"required"`
	PreviousSender string `json:"previous_sender" validate:"required"`
	OriginUsername string `json:"origin_username,omitempty"`
	Hops           []Hop  `json:"previous_hops,omitempty"`
}

// NewPacketContext starts a context for a call originated by sender.
func NewPacketContext(sender string) PacketContext {
	return PacketContext{Origin: sender, PreviousSender: sender}
}

// Inherit derives the context of a sub-call made by sender. A nil parent
// starts a fresh context.
func Inherit(parent *PacketContext, sender string) PacketContext {
	if parent == nil {
		return NewPacketContext(sender)
	}
	ctx := *parent
	ctx.Hops = append([]Hop(nil), parent.Hops...)
	if ctx.Origin == "" {
		ctx.Origin = sender
	}
	ctx.PreviousSender = sender
	return ctx
}

// WithHop returns a copy with hop appended.
func (c PacketContext) WithHop(h Hop) PacketContext {
	c.Hops = append(append([]Hop(nil), c.Hops...), h)
	return c
}

// EnvelopeBatch groups envelopes sharing a provenance context.
type EnvelopeBatch struct {
	Context  PacketContext `json:"ctx"`
	Messages []Envelope    `json:"messages" validate:"required,min=1,dive"`
}

func NewEnvelopeBatch(ctx PacketContext, msgs ...Envelope) EnvelopeBatch {
	return EnvelopeBatch{Context: ctx, Messages: append([]Envelope(nil), msgs...)}
}

func (b EnvelopeBatch) AddMessage(msg Envelope) EnvelopeBatch {
	b.Messages = append(append([]Envelope(nil), b.Messages...), msg)
	return b
}

// Validate checks the batch is routable.
func (b EnvelopeBatch) Validate() error {
	if len(b.Messages) == 0 {
		return InvalidPacket("batch has no messages")
	}
	if b.Context.Origin == "" || b.Context.PreviousSender == "" {
		return InvalidPacket("batch context is missing origin or previous sender")
	}
	for i, m := range b.Messages {
		if m.Recipient == "" {
			return InvalidPacket(fmt.Sprintf("message %d has no recipient", i))
		}
	}
	return nil
}

// ChannelRecord is the registry entry for a counterparty chain.
type ChannelRecord struct {
	ChainName        string `json:"chain_name" validate:"required"`
	MessageChannelID string `json:"message_channel_id" validate:"required"`
	AssetChannelID   string `json:"asset_channel_id,omitempty"`
	KernelAddress    string `json:"kernel_address" validate:"required"`
}

// OutgoingPacket is a funded send awaiting its ack or timeout.
type OutgoingPacket struct {
	RecoveryAddress string   `json:"recovery_address"`
	Amount          sdk.Coin `json:"amount"`
}

// PendingTransfer is a funded transfer whose sequence is not yet known.
type PendingTransfer struct {
	Channel         string   `json:"channel"`
	RecoveryAddress string   `json:"recovery_address"`
	Amount          sdk.Coin `json:"amount"`
}

// RefundDescriptor allows an inbound funded message whose local execution
// fails to be refunded over the asset channel it arrived on.
type RefundDescriptor struct {
	OriginalSender string   `json:"original_sender"`
	Funds          sdk.Coin `json:"funds"`
	Channel        string   `json:"channel"`
}

// PacketKey identifies an outbound packet.
type PacketKey struct {
	Channel  string `json:"channel"`
	Sequence uint64 `json:"sequence"`
}

func (k PacketKey) String() string {
	return fmt.Sprintf("%s/%d", k.Channel, k.Sequence)
}

// PendingPacket pairs a ledger record with its key.
type PendingPacket struct {
	Key    PacketKey      `json:"key"`
	Packet OutgoingPacket `json:"packet"`
}
