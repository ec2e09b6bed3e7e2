package types

import "fmt"

// KernelError is the typed error returned by every kernel operation.
type KernelError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *KernelError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target carries the same code, so sentinel values can be
// matched with errors.Is regardless of message.
func (e *KernelError) Is(target error) bool {
	t, ok := target.(*KernelError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Error codes
const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidPacket     = "INVALID_PACKET"
	CodeInvalidPathname   = "INVALID_PATHNAME"
	CodeInvalidVersion    = "INVALID_VERSION"
	CodeOrderedChannel    = "ORDERED_CHANNEL"
	CodeInvalidZeroAmount = "INVALID_ZERO_AMOUNT"
	CodeInvalidPacketID   = "INVALID_PACKET_ID"
	CodeInvalidAddress    = "INVALID_ADDRESS"
	CodeStateError        = "STATE_ERROR"
	CodeConfigError       = "CONFIG_ERROR"
)

// Sentinels for errors.Is.
var (
	ErrUnauthorized      = &KernelError{Code: CodeUnauthorized}
	ErrInvalidPacket     = &KernelError{Code: CodeInvalidPacket}
	ErrInvalidPathname   = &KernelError{Code: CodeInvalidPathname}
	ErrInvalidVersion    = &KernelError{Code: CodeInvalidVersion}
	ErrOrderedChannel    = &KernelError{Code: CodeOrderedChannel}
	ErrInvalidZeroAmount = &KernelError{Code: CodeInvalidZeroAmount}
	ErrInvalidPacketID   = &KernelError{Code: CodeInvalidPacketID}
	ErrInvalidAddress    = &KernelError{Code: CodeInvalidAddress}
	ErrStateError        = &KernelError{Code: CodeStateError}
	ErrConfigError       = &KernelError{Code: CodeConfigError}
)

func Unauthorized(format string, args ...interface{}) *KernelError {
	return &KernelError{Code: CodeUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// InvalidPacket reports a malformed recipient/funds combination.
func InvalidPacket(msg string) *KernelError {
	return &KernelError{Code: CodeInvalidPacket, Message: msg}
}

func InvalidPathname(path string, cause error) *KernelError {
	e := &KernelError{Code: CodeInvalidPathname, Message: fmt.Sprintf("cannot resolve %q", path)}
	if cause != nil {
		e.Data = cause.Error()
	}
	return e
}

func InvalidVersion(version string, expected ...string) *KernelError {
	return &KernelError{
		Code:    CodeInvalidVersion,
		Message: fmt.Sprintf("unsupported channel version %q", version),
		Data:    expected,
	}
}

func OrderedChannel() *KernelError {
	return &KernelError{Code: CodeOrderedChannel, Message: "only unordered channels are supported"}
}

func InvalidZeroAmount() *KernelError {
	return &KernelError{Code: CodeInvalidZeroAmount, Message: "funds amount must be non-zero"}
}

func InvalidPacketID(id string) *KernelError {
	return &KernelError{Code: CodeInvalidPacketID, Message: fmt.Sprintf("malformed packet id %q", id)}
}

func InvalidAddress(addr string, cause error) *KernelError {
	e := &KernelError{Code: CodeInvalidAddress, Message: fmt.Sprintf("invalid address %q", addr)}
	if cause != nil {
		e.Data = cause.Error()
	}
	return e
}

func StateError(op string, cause error) *KernelError {
	return &KernelError{Code: CodeStateError, Message: fmt.Sprintf("%s: %v", op, cause)}
}

func ConfigError(msg string, cause error) *KernelError {
	if cause == nil {
		return &KernelError{Code: CodeConfigError, Message: msg}
	}
	return &KernelError{Code: CodeConfigError, Message: fmt.Sprintf("%s: %v", msg, cause)}
}
