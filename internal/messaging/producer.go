package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

var producerTracer = otel.Tracer("messaging/producer")

// Message is one event to publish under a partition key.
type Message struct {
	Key   string
	Event domain.Event
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
			RequiredAcks:           kafka.RequireAll,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, key string, event domain.Event) error {
	return p.PublishBatch(ctx, []Message{{Key: key, Event: event}})
}

// PublishBatch writes every message in one WriteMessages call.
func (p *Producer) PublishBatch(ctx context.Context, batch []Message) error {
	if len(batch) == 0 {
		return nil
	}

	ctx, span := producerTracer.Start(ctx, "send "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingBatchMessageCount(len(batch)),
		),
	)
	defer span.End()

	msgs := make([]kafka.Message, 0, len(batch))
	for _, m := range batch {
		msg, err := encode(m)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		otel.GetTextMapPropagator().Inject(ctx, NewMessageCarrier(&msg))
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrap(err, "write messages")
	}

	span.SetAttributes(attribute.String("messaging.event_type", string(batch[0].Event.EventType())))
	return nil
}

func encode(m Message) (kafka.Message, error) {
	data, err := json.Marshal(m.Event)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, "marshal event")
	}

	correlationID := uuid.New().String()
	if env, err := domain.DecodeEnvelope(data); err == nil && env.CorrelationID != "" {
		correlationID = env.CorrelationID
	}

	msg := kafka.Message{Key: []byte(m.Key), Value: data}
	carrier := NewMessageCarrier(&msg)
	carrier.Set(HeaderEventType, string(m.Event.EventType()))
	carrier.Set(HeaderCorrelationID, correlationID)
	return msg, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
