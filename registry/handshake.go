package registry

import "github.com/vitwit/ampkernel/types"

// AcceptedVersions are the channel versions the kernel speaks.
var AcceptedVersions = []string{types.ProtocolVersion, types.ICS20Version}

// ValidateHandshake gates channel open and connect. Only unordered channels
// are accepted. Both the local and, when given, the counterparty version must
// be one of AcceptedVersions.
func ValidateHandshake(h types.ChannelHandshake) error {
	if h.Order != types.OrderUnordered {
		return types.OrderedChannel()
	}
	if !acceptedVersion(h.Version) {
		return types.InvalidVersion(h.Version, AcceptedVersions...)
	}
	if h.CounterpartyVersion != "" && !acceptedVersion(h.CounterpartyVersion) {
		return types.InvalidVersion(h.CounterpartyVersion, AcceptedVersions...)
	}
	return nil
}

func acceptedVersion(v string) bool {
	for _, a := range AcceptedVersions {
		if v == a {
			return true
		}
	}
	return false
}
