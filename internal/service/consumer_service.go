package service

import (
	"context"
	"encoding/json"

	"solar-parcel-be/internal/entity"
	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/internal/repository/unitofwork"
	"solar-parcel-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// EventPublisher forwards events beyond the process, e.g. to NATS.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	// Consume starts processing in the background and returns once subscribed.
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber     message.Subscriber
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher EventPublisher
	logger         logger.ILogger
}

// NewConsumerService persists search events. eventPublisher may be nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher EventPublisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:     subscriber,
		topicName:      topicName,
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var ev events.SearchCompleted
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal search event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // malformed messages would never succeed
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	err := uow.SearchLogRepository().Create(ctx, &entity.SearchLog{
		Id:            uuid.New(),
		SessionId:     ev.SessionID,
		Query:         ev.Query,
		ExpandedQuery: ev.ExpandedQuery,
		Sql:           ev.SQL,
		Outcome:       ev.Outcome,
		Attempts:      ev.Attempts,
		ParcelCount:   ev.ParcelCount,
		Summary:       ev.Summary,
		Error:         ev.Error,
		DurationMs:    ev.DurationMs,
		Metadata:      ev.Metadata,
		CreatedAt:     ev.OccurredAt,
	})
	if err != nil {
		cs.logger.Error("CONSUMER", "Failed to save search log", map[string]interface{}{
			"session_id": ev.SessionID,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}

	if cs.eventPublisher != nil {
		if err := cs.eventPublisher.Publish(ctx, ev); err != nil {
			cs.logger.Warn("CONSUMER", "Failed to forward search event", map[string]interface{}{"error": err.Error()})
		}
	}

	msg.Ack()
}
