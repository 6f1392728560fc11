package bus

import (
	"fmt"
	"strings"

	"github.com/docentsearch/docent-eval/internal/config"
	"github.com/docentsearch/docent-eval/internal/pkg/errors"
)

// New creates a Bus from configuration. Type "none" returns nil, which
// callers treat as event publishing disabled.
func New(cfg config.BusConfig) (Bus, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryBus(), nil

	case "kafka":
		brokers := cfg.KafkaBrokerList()
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}
		return NewKafkaBus(KafkaConfig{
			Brokers: brokers,
		})

	case "none":
		return nil, nil

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}
}
