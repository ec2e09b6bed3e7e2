package lifecycle

import (
	"github.com/vitwit/ampkernel/registry"
	"github.com/vitwit/ampkernel/types"
)

// OnChannelOpen validates a proposed channel and returns the version to use.
func (h *Handler) OnChannelOpen(hs types.ChannelHandshake) (string, error) {
	if err := registry.ValidateHandshake(hs); err != nil {
		h.log.Warn("channel open rejected", map[string]any{"channel": hs.ChannelID, "error": err.Error()})
		return "", err
	}
	return hs.Version, nil
}

// OnChannelConnect applies the same checks as OnChannelOpen to the
// counterparty's answer.
func (h *Handler) OnChannelConnect(hs types.ChannelHandshake) error {
	if err := registry.ValidateHandshake(hs); err != nil {
		h.log.Warn("channel connect rejected", map[string]any{"channel": hs.ChannelID, "error": err.Error()})
		return err
	}
	h.log.Info("channel connected", map[string]any{"channel": hs.ChannelID, "version": hs.Version})
	return nil
}

// OnChannelClose leaves the registry untouched; in-flight callbacks on the
// channel still need the mapping.
func (h *Handler) OnChannelClose(channelID string) {
	h.log.Info("channel closed", map[string]any{"channel": channelID})
}
