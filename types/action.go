package types

import (
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
)

// Reply identifiers attached to sub-calls emitted by the kernel.
const (
	ReplyAMPMessage uint64 = iota + 1
	ReplyTransferSequence
	ReplyRefund
	ReplyRegisterUsername
	ReplyCreateComponent
)

// Action is an outbound effect the host platform must execute. The set of
// implementations is closed.
type Action interface {
	actionType() string
}

// WasmExecute calls a contract.
type WasmExecute struct {
	Contract string    `json:"contract_addr"`
	Msg      []byte    `json:"msg"`
	Funds    sdk.Coins `json:"funds,omitempty"`
}

// WasmInstantiate creates a contract from stored code.
type WasmInstantiate struct {
	CodeID uint64    `json:"code_id"`
	Msg    []byte    `json:"msg"`
	Label  string    `json:"label"`
	Admin  string    `json:"admin,omitempty"`
	Funds  sdk.Coins `json:"funds,omitempty"`
}

// BankSend moves native funds to a non-contract account.
type BankSend struct {
	Msg *banktypes.MsgSend `json:"msg"`
}

// IBCSendPacket sends raw packet data over a message channel.
type IBCSendPacket struct {
	ChannelID string    `json:"channel_id"`
	Data      []byte    `json:"data"`
	Timeout   time.Time `json:"timeout"`
}

// IBCTransfer is an ICS-20 transfer over an asset channel.
type IBCTransfer struct {
	ChannelID string    `json:"channel_id"`
	ToAddress string    `json:"to_address"`
	Amount    sdk.Coin  `json:"amount"`
	Memo      string    `json:"memo,omitempty"`
	Timeout   time.Time `json:"timeout"`
}

func (WasmExecute) actionType() string     { return "wasm_execute" }
func (WasmInstantiate) actionType() string { return "wasm_instantiate" }
func (BankSend) actionType() string        { return "bank_send" }
func (IBCSendPacket) actionType() string   { return "ibc_send_packet" }
func (IBCTransfer) actionType() string     { return "ibc_transfer" }

// ActionType names an action for logs and events.
func ActionType(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionType()
}

// SubMsg wraps an action with its reply routing. When ExitOnError is set a
// failure of the action aborts the whole invocation; otherwise it is only
// reported through a reply, if ReplyOn asks for one.
type SubMsg struct {
	ID          uint64    `json:"id"`
	ReplyOn     ReplyMode `json:"reply_on"`
	GasLimit    *uint64   `json:"gas_limit,omitempty"`
	ExitOnError bool      `json:"exit_on_error"`
	// Payload is returned unchanged on the sub-call's Reply.
	Payload []byte `json:"payload,omitempty"`
	Action  Action `json:"action"`
}

// Attribute is a key/value event attribute.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is what every kernel entry point hands back to the host.
type Response struct {
	Messages   []SubMsg    `json:"messages,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Data       []byte      `json:"data,omitempty"`
}

func NewResponse() *Response {
	return &Response{}
}

func (r *Response) AddMessage(m SubMsg) *Response {
	r.Messages = append(r.Messages, m)
	return r
}

func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the first value stored under key.
func (r *Response) Attribute(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Reply is the result of an executed sub-call, fed back by the host.
type Reply struct {
	ID uint64 `json:"id"`
	// Sequence is set for ReplyTransferSequence successes.
	Sequence uint64 `json:"sequence,omitempty"`
	Err      string `json:"error,omitempty"`
	// Payload echoes SubMsg.Payload.
	Payload []byte `json:"payload,omitempty"`
}

func (r Reply) Failed() bool {
	return r.Err != ""
}
