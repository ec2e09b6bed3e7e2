package utils

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// TransferPort is the ICS-20 port id.
const TransferPort = "transfer"

// IBCDenom returns the voucher denom minted on the receiving chain for denom
// arriving over port/channel: "ibc/" followed by the upper-case hex SHA-256
// of the trace path.
func IBCDenom(port, channel, denom string) string {
	hash := sha256.Sum256([]byte(port + "/" + channel + "/" + denom))
	return "ibc/" + strings.ToUpper(fmt.Sprintf("%x", hash))
}

// IsIBCDenom reports whether denom is a hashed voucher denom.
func IsIBCDenom(denom string) bool {
	return strings.HasPrefix(denom, "ibc/") && len(denom) == len("ibc/")+64
}
