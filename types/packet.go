package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Wire tags of the packet union.
const (
	TagSendMessage          = "send_message"
	TagSendMessageWithFunds = "send_message_with_funds"
	TagCreateComponent      = "create_component"
	TagRegisterUsername     = "register_username"
)

// PacketMsg is the closed set of operations carried between kernels.
type PacketMsg interface {
	PacketTag() string
}

// SendMessage forwards a batch to the counterparty kernel.
type SendMessage struct {
	Batch EnvelopeBatch `json:"amp_packet"`
}

// SendMessageWithFunds delivers a message together with transferred funds.
type SendMessageWithFunds struct {
	Recipient              AddressRef `json:"recipient" validate:"required"`
	Message                []byte     `json:"message,omitempty"`
	Funds                  sdk.Coin   `json:"funds"`
	OriginalSender         string     `json:"original_sender" validate:"required"`
	OriginalSenderUsername string     `json:"original_sender_username,omitempty"`
	PreviousHops           []Hop      `json:"previous_hops,omitempty"`
	PacketID               string     `json:"packet_id,omitempty"`
}

// CreateComponent asks the counterparty to instantiate a component.
type CreateComponent struct {
	InstantiateMsg []byte `json:"instantiation_msg"`
	Owner          string `json:"owner" validate:"required"`
	ComponentType  string `json:"ado_type" validate:"required"`
}

// RegisterUsername asks the counterparty naming service to bind a username.
type RegisterUsername struct {
	Username string `json:"username" validate:"required"`
	Address  string `json:"address" validate:"required"`
}

func (SendMessage) PacketTag() string          { return TagSendMessage }
func (SendMessageWithFunds) PacketTag() string { return TagSendMessageWithFunds }
func (CreateComponent) PacketTag() string      { return TagCreateComponent }
func (RegisterUsername) PacketTag() string     { return TagRegisterUsername }

// Acknowledgement follows the ICS-04 JSON envelope.
type Acknowledgement struct {
	Result []byte `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SuccessAck builds a success acknowledgement. An empty result is replaced
// by a single 0x01 byte so the JSON form is never empty.
func SuccessAck(result []byte) Acknowledgement {
	if len(result) == 0 {
		result = []byte{0x01}
	}
	return Acknowledgement{Result: result}
}

func ErrorAck(err error) Acknowledgement {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Acknowledgement{Error: msg}
}

func (a Acknowledgement) Success() bool {
	return a.Error == "" && len(a.Result) > 0
}

// Packet is an inbound packet delivered by the platform.
type Packet struct {
	Sequence      uint64 `json:"sequence"`
	SourcePort    string `json:"source_port"`
	SourceChannel string `json:"source_channel"`
	DestPort      string `json:"destination_port"`
	DestChannel   string `json:"destination_channel"`
	Data          []byte `json:"data"`
	Relayer       string `json:"relayer,omitempty"`
}

// AckReceived reports the fate of a packet this chain sent.
type AckReceived struct {
	Channel  string `json:"channel"`
	Sequence uint64 `json:"sequence"`
	Ack      []byte `json:"ack"`
	Success  bool   `json:"success"`
}

// TimeoutReceived reports that a packet this chain sent was never delivered.
type TimeoutReceived struct {
	Channel  string `json:"channel"`
	Sequence uint64 `json:"sequence"`
}

// ChannelOrder is the ordering of an IBC channel.
type ChannelOrder string

const (
	OrderOrdered   ChannelOrder = "ordered"
	OrderUnordered ChannelOrder = "unordered"
)

// ChannelHandshake is a proposed channel open or connect step.
type ChannelHandshake struct {
	ChannelID           string       `json:"channel_id"`
	PortID              string       `json:"port_id"`
	Order               ChannelOrder `json:"order"`
	Version             string       `json:"version"`
	CounterpartyVersion string       `json:"counterparty_version,omitempty"`
}

// OutcomeKind classifies how a lifecycle callback was resolved.
type OutcomeKind string

const (
	OutcomeResolved   OutcomeKind = "resolved"
	OutcomeUnexpected OutcomeKind = "unexpected"
)

// Outcome is the result of an ack or timeout callback. It is never an error.
type Outcome struct {
	Kind            OutcomeKind `json:"kind"`
	Key             PacketKey   `json:"key"`
	Success         bool        `json:"success"`
	RecoveryAddress string      `json:"recovery_address,omitempty"`
	Refunded        *sdk.Coin   `json:"refunded,omitempty"`
}

func (o Outcome) Unexpected() bool {
	return o.Kind == OutcomeUnexpected
}
