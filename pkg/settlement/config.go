package settlement

import (
	"time"

	"github.com/nimeshabuddhika/split-tender-processor/pkg/utils"
	"go.uber.org/zap"
)

// Config selects and tunes the processor behind the settlement gateways.
type Config struct {
	// ProcessorURL points at the external processor. Empty runs the simulated processor.
	ProcessorURL    string
	Timeout         time.Duration
	MaxThrottleWait time.Duration
	DeclineModulo   uint32
	MinLatency      time.Duration
	MaxLatency      time.Duration
}

// NewGateway builds the method router used by the capture engine. When limiter is non-nil every
// charge first waits for a settlement token.
func NewGateway(cfg Config, limiter Limiter, logger *zap.Logger) Gateway {
	var processor Processor
	if cfg.ProcessorURL != "" {
		opts := make([]utils.ClientOption, 0, 1)
		if cfg.Timeout > 0 {
			opts = append(opts, utils.WithClientTimeout(cfg.Timeout))
		}
		processor = NewHTTPProcessor(cfg.ProcessorURL, opts...)
		logger.Info("settlement_processor_configured", zap.String("url", cfg.ProcessorURL))
	} else {
		processor = SimulatedProcessor{
			MinLatency:    cfg.MinLatency,
			MaxLatency:    cfg.MaxLatency,
			DeclineModulo: cfg.DeclineModulo,
		}
		logger.Warn("settlement_processor_simulated", zap.Uint32("decline_modulo", cfg.DeclineModulo))
	}
	if limiter != nil {
		processor = NewThrottledProcessor(processor, limiter, cfg.MaxThrottleWait)
	}
	return NewMethodRouter(NewCardGateway(processor, logger), NewEBTGateway(processor, logger))
}
