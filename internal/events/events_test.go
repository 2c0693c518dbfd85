package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduwork-api/internal/observability"
)

func TestBusPublisherPublishesToRedisChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	publisher := NewBusPublisher(nil, client, "eduwork", zerolog.Nop())
	require.Equal(t, "eduwork:events", publisher.Channel())
	require.Equal(t, "eduwork.evaluation.corrected", publisher.Subject(EvaluationCorrected))

	ctx := observability.WithCorrelationID(context.Background(), "corr-1")
	sub := client.Subscribe(ctx, publisher.Channel())
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	grade := 16.0
	event := New(EvaluationCorrected, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	event.EvaluationID = 4
	event.StudentIDs = []uint{7, 8}
	event.Grade = &grade
	require.NoError(t, publisher.Publish(ctx, event))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
	require.Equal(t, event.ID, decoded.ID)
	require.Equal(t, EvaluationCorrected, decoded.Type)
	require.Equal(t, []uint{7, 8}, decoded.StudentIDs)
	require.Equal(t, 16.0, *decoded.Grade)
	require.Equal(t, "corr-1", decoded.CorrelationID)
}

func TestBusPublisherNormalisesPrefix(t *testing.T) {
	publisher := NewBusPublisher(nil, nil, " school:lifecycle. ", zerolog.Nop())
	require.Equal(t, "school.lifecycle.submission.submitted", publisher.Subject(SubmissionSubmitted))
	require.Equal(t, "school:lifecycle:events", publisher.Channel())
	require.NoError(t, publisher.Publish(context.Background(), Event{Type: SubmissionSubmitted}))
}

func TestNopPublisher(t *testing.T) {
	require.NoError(t, NopPublisher{}.Publish(context.Background(), New(EvaluationCreated, time.Now())))
}
