package ampkernel

import (
	"time"

	"github.com/vitwit/ampkernel/logger"
	"github.com/vitwit/ampkernel/metrics"
)

type Option func(*Kernel)

func WithLogger(l logger.Logger) Option {
	return func(k *Kernel) {
		if l != nil {
			k.logger = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(k *Kernel) {
		if r != nil {
			k.metrics = r
		}
	}
}

// WithTimeout overrides the configured packet timeout.
func WithTimeout(t time.Duration) Option {
	return func(k *Kernel) {
		if t > 0 {
			k.timeout = t
		}
	}
}
