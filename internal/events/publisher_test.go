package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medlink-api/internal/observability"
)

func TestNewPublisherWithoutTransportsIsNop(t *testing.T) {
	publisher := NewPublisher(nil, nil, "medlink", zerolog.Nop())
	require.IsType(t, NopPublisher{}, publisher)
	require.NoError(t, publisher.Publish(context.Background(), TypeOrderCreated, nil))
}

func TestPublisherWritesToRedisChannel(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "medlink:events")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewPublisher(nil, client, "medlink", zerolog.Nop())
	require.NoError(t, publisher.Publish(observability.WithCorrelationID(ctx, "req-7"), TypeResponseAccepted, map[string]interface{}{"order_id": 3}))

	select {
	case msg := <-sub.Channel():
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		require.Equal(t, TypeResponseAccepted, event.Type)
		require.NotEmpty(t, event.ID)
		require.Equal(t, "req-7", event.CorrelationID)
		require.EqualValues(t, 3, event.Payload["order_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
