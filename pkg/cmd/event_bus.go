package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/siteflow/pkg/channels/gochannel"
	"github.com/dukex/siteflow/pkg/channels/kafka"
	"github.com/dukex/siteflow/pkg/eventbus"
)

// ServiceName names the kafka consumer group shared by engine nodes.
const ServiceName = "siteflow"

// NewEventBus creates the event bus for provider: "gochannel" for a single
// in-process node, "kafka" for a multi node deployment.
//
// nolint:ireturn // callers only need the bus contract
func NewEventBus(logger *slog.Logger, provider, brokers string) (eventbus.EventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, kafka.Brokers(brokers), ServiceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
