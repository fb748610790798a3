package kafka_test

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/siteflow/pkg/channels/kafka"
	"github.com/dukex/siteflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		list string
		want []string
	}{
		{name: "empty", list: "", want: nil},
		{name: "single", list: "localhost:9092", want: []string{"localhost:9092"}},
		{name: "blanks dropped", list: " kafka-1:9092, ,kafka-2:9092 ", want: []string{"kafka-1:9092", "kafka-2:9092"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, kafka.Brokers(tt.list))
		})
	}
}

func TestCreateChannel_NoBrokers(t *testing.T) {
	t.Parallel()

	_, _, err := kafka.CreateChannel(watermill.NopLogger{}, nil, "siteflow")

	require.ErrorIs(t, err, kafka.ErrNoBrokers)
}

func TestPartitionKey(t *testing.T) {
	t.Parallel()

	msg := message.NewMessage("msg-1", []byte(`{}`))
	msg.Metadata.Set(events.EventMetadataKey, "instance-42")

	key, err := kafka.PartitionKey(events.Topic, msg)
	require.NoError(t, err)
	assert.Equal(t, "instance-42", key)
}
