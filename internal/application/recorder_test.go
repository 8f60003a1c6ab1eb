package application

import (
	"context"
	"errors"
	"testing"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRecorder_PersistsAndPublishes(t *testing.T) {
	repo := &fakeEventRepo{}
	publisher := &fakePublisher{}
	ps := pubsub.NewEventPubSub(zerolog.Nop())

	recorder := NewEventRecorder(repo, publisher, ps, zerolog.Nop())

	conn := activeConn("a")
	event, err := recorder.Record(context.Background(), conn, "payment_intent.succeeded", "evt_1",
		map[string]any{"id": "evt_1"}, domain.EventStatusProcessed)
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, conn.ID, event.ConnectionID)
	assert.Equal(t, domain.ProviderStripe, event.ProviderCode)
	assert.Equal(t, "evt_1", event.ProviderEventID)
	assert.False(t, event.CreatedAt.IsZero())

	require.Len(t, repo.inserted, 1)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, event.ID, publisher.published[0].ID)
}

func TestEventRecorder_PublishFailureDoesNotFailRecording(t *testing.T) {
	repo := &fakeEventRepo{}
	publisher := &fakePublisher{err: errors.New("broker unreachable")}

	recorder := NewEventRecorder(repo, publisher, nil, zerolog.Nop())

	_, err := recorder.Record(context.Background(), activeConn("a"), "charge.succeeded", "evt_2",
		map[string]any{}, domain.EventStatusProcessed)
	require.NoError(t, err)
	assert.Len(t, repo.inserted, 1)
}

func TestEventRecorder_InsertFailureIsAnError(t *testing.T) {
	repo := &fakeEventRepo{err: errors.New("write concern failed")}

	recorder := NewEventRecorder(repo, nil, nil, zerolog.Nop())

	_, err := recorder.Record(context.Background(), activeConn("a"), "charge.succeeded", "evt_3",
		map[string]any{}, domain.EventStatusProcessed)
	assert.Error(t, err)
}

func TestEventRecorder_WorksWithoutPublisherOrPubSub(t *testing.T) {
	repo := &fakeEventRepo{}
	recorder := NewEventRecorder(repo, nil, nil, zerolog.Nop())

	_, err := recorder.Record(context.Background(), activeConn("a"), "payment.pending", "ref-1",
		map[string]any{"state_pol": "7"}, domain.EventStatusPending)
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, domain.EventStatusPending, repo.inserted[0].Status)
}
