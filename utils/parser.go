package utils

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/vitwit/ampkernel/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct runs the struct tag validation shared by packets and config.
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}

// SerializePacket encodes msg as an externally tagged JSON object,
// e.g. {"send_message":{...}}.
func SerializePacket(msg types.PacketMsg) ([]byte, error) {
	switch msg.(type) {
	case types.SendMessage, types.SendMessageWithFunds, types.CreateComponent, types.RegisterUsername:
	default:
		return nil, types.InvalidPacket(fmt.Sprintf("unsupported packet message %T", msg))
	}
	return json.Marshal(map[string]types.PacketMsg{msg.PacketTag(): msg})
}

// ParsePacket decodes and validates packet data. Exactly one known tag must
// be present.
func ParsePacket(data []byte) (types.PacketMsg, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, types.InvalidPacket(fmt.Sprintf("failed to parse packet: %v", err))
	}
	if len(raw) != 1 {
		return nil, types.InvalidPacket(fmt.Sprintf("packet must carry exactly one message, got %d", len(raw)))
	}

	for tag, body := range raw {
		switch tag {
		case types.TagSendMessage:
			var m types.SendMessage
			if err := decodeStrict(body, &m); err != nil {
				return nil, err
			}
			if err := m.Batch.Validate(); err != nil {
				return nil, err
			}
			return m, nil
		case types.TagSendMessageWithFunds:
			var m types.SendMessageWithFunds
			if err := decodeStrict(body, &m); err != nil {
				return nil, err
			}
			return m, nil
		case types.TagCreateComponent:
			var m types.CreateComponent
			if err := decodeStrict(body, &m); err != nil {
				return nil, err
			}
			return m, nil
		case types.TagRegisterUsername:
			var m types.RegisterUsername
			if err := decodeStrict(body, &m); err != nil {
				return nil, err
			}
			return m, nil
		default:
			return nil, types.InvalidPacket(fmt.Sprintf("unknown packet message %q", tag))
		}
	}
	return nil, types.InvalidPacket("empty packet")
}

func decodeStrict(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return types.InvalidPacket(fmt.Sprintf("failed to decode packet body: %v", err))
	}
	if err := validate.Struct(v); err != nil {
		return types.InvalidPacket(fmt.Sprintf("validation failed: %v", err))
	}
	return nil
}

// SerializeAck encodes an acknowledgement in the ICS-04 JSON form.
func SerializeAck(ack types.Acknowledgement) []byte {
	bz, err := json.Marshal(ack)
	if err != nil {
		// Acknowledgement only holds a byte slice and a string.
		panic(err)
	}
	return bz
}

func ParseAck(data []byte) (types.Acknowledgement, error) {
	var ack types.Acknowledgement
	if err := json.Unmarshal(data, &ack); err != nil {
		return types.Acknowledgement{}, fmt.Errorf("failed to parse acknowledgement: %w", err)
	}
	if ack.Error == "" && len(ack.Result) == 0 {
		return types.Acknowledgement{}, fmt.Errorf("acknowledgement has neither result nor error")
	}
	return ack, nil
}

type hookMemo struct {
	Wasm hookWasm `json:"wasm"`
}

type hookWasm struct {
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

// BuildHookMemo wraps msg in an ICS-20 memo that executes contract on the
// receiving chain once the transferred funds arrive.
func BuildHookMemo(contract string, msg types.PacketMsg) (string, error) {
	bz, err := SerializePacket(msg)
	if err != nil {
		return "", err
	}
	memo, err := json.Marshal(hookMemo{Wasm: hookWasm{Contract: contract, Msg: bz}})
	if err != nil {
		return "", fmt.Errorf("failed to encode hook memo: %w", err)
	}
	return string(memo), nil
}

// ParseHookMemo returns the contract and packet message carried by memo.
func ParseHookMemo(memo string) (string, types.PacketMsg, error) {
	var m hookMemo
	if err := json.Unmarshal([]byte(memo), &m); err != nil {
		return "", nil, types.InvalidPacket(fmt.Sprintf("failed to parse hook memo: %v", err))
	}
	if m.Wasm.Contract == "" || len(m.Wasm.Msg) == 0 {
		return "", nil, types.InvalidPacket("hook memo is missing contract or msg")
	}
	msg, err := ParsePacket(m.Wasm.Msg)
	if err != nil {
		return "", nil, err
	}
	return m.Wasm.Contract, msg, nil
}
