package outbox

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKafkaBatchesGroupsByTopic(t *testing.T) {
	messages := []Message{
		{
			EventID:      1,
			AggregateID:  "act-1",
			EventType:    EventActivityRecorded,
			Topic:        "footprint_activity_events",
			PartitionKey: "u1",
			Payload:      json.RawMessage(`{"activity_id":"act-1"}`),
		},
		{
			EventID:      2,
			AggregateID:  "act-1",
			EventType:    EventFootprintUpdated,
			Topic:        "footprint_updates",
			PartitionKey: "u1",
			Payload:      json.RawMessage(`{"user_id":"u1"}`),
		},
		{
			EventID:      3,
			AggregateID:  "act-2",
			EventType:    EventActivityRecorded,
			Topic:        "footprint_activity_events",
			PartitionKey: "u2",
			Payload:      json.RawMessage(`{"activity_id":"act-2"}`),
		},
	}

	batches := kafkaBatches(messages)
	require.Len(t, batches, 2)
	require.Len(t, batches["footprint_activity_events"], 2)
	require.Len(t, batches["footprint_updates"], 1)

	first := batches["footprint_activity_events"][0]
	require.Equal(t, []byte("u1"), first.Key)
	require.JSONEq(t, `{"activity_id":"act-1"}`, string(first.Value))
	require.Equal(t, "event_type", first.Headers[0].Key)
	require.Equal(t, []byte(EventActivityRecorded), first.Headers[0].Value)
}

func TestTopicFor(t *testing.T) {
	require.Equal(t, "footprint_activity_events", TopicFor(EventActivityRecorded))
	require.Equal(t, "footprint_updates", TopicFor(EventFootprintUpdated))
	require.Empty(t, TopicFor("unknown.event"))
}
