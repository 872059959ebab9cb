package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/config"
	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
	"github.com/avermeer/teambase-backend/pkg/logger"
	"github.com/avermeer/teambase-backend/pkg/outbox"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	fetchErr  error
}

func (f *fakeRepo) FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeRepo) CountUnpublished(ctx context.Context) (int64, error) {
	return int64(len(f.events)), nil
}

func (f *fakeRepo) MarkPublished(ctx context.Context, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(ctx context.Context, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePubSub struct{}

func (fakePubSub) Ping(context.Context) error { return nil }

type fakePublishResult struct {
	err error
}

func (r fakePublishResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test"}),
		PubSub:     fakePubSub{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func envelopePayload(t *testing.T, eventID string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func outboxRow(t *testing.T, eventType enums.OutboxEventType) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateInvitation,
		AggregateID:   uuid.New(),
		Payload:       envelopePayload(t, uuid.NewString()),
		CreatedAt:     time.Now().UTC(),
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			outboxRow(t, enums.EventInvitationCreated),
			outboxRow(t, enums.EventInvitationAccepted),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows: %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("unexpected published rows: %v", repo.published)
	}
}

func TestProcessBatchSetsMessageAttributes(t *testing.T) {
	row := outboxRow(t, enums.EventSubscriptionSynced)
	row.AggregateType = enums.AggregateSubscription
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.messages))
	}

	attrs := pub.messages[0].Attributes
	if attrs["event_type"] != "subscription_synced" {
		t.Fatalf("unexpected event_type attribute %q", attrs["event_type"])
	}
	if attrs["aggregate_type"] != "subscription" {
		t.Fatalf("unexpected aggregate_type attribute %q", attrs["aggregate_type"])
	}
	if attrs["aggregate_id"] != row.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute %q", attrs["aggregate_id"])
	}
	if attrs["event_id"] == "" {
		t.Fatalf("expected event_id attribute from the payload envelope")
	}
}

func TestProcessBatchEmptyReportsIdle(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected idle batch")
	}
}

func TestProcessBatchPropagatesFetchError(t *testing.T) {
	repo := &fakeRepo{fetchErr: errors.New("db down")}
	service := newTestService(t, repo, &fakePublisher{})

	if _, err := service.processBatch(context.Background()); err == nil {
		t.Fatalf("expected fetch error to propagate")
	}
}
