package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicgrid/libs/db"
	"github.com/md-rashed-zaman/clinicgrid/libs/kafkax"
	otelx "github.com/md-rashed-zaman/clinicgrid/libs/otel"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/inbox"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Handler applies one message inside the transaction that also records it in the inbox.
type Handler func(ctx context.Context, tx pgx.Tx, msg kafka.Message) error

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  MessageReader
	db      db.Querier
	logger  *slog.Logger
	inbox   *inbox.Repository
	handler Handler

	retryMin time.Duration
	retryMax time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
}

func New(logger *slog.Logger, q db.Querier, inboxRepo *inbox.Repository, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return NewWithReader(logger, q, inboxRepo, reader, handler)
}

func NewWithReader(logger *slog.Logger, q db.Querier, inboxRepo *inbox.Repository, reader MessageReader, handler Handler) *Consumer {
	return &Consumer{
		reader:  reader,
		db:      q,
		logger:  logger,
		inbox:   inboxRepo,
		handler: handler,

		retryMin: time.Second,
		retryMax: 30 * time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if !c.processWithRetry(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err)
		}
	}
}

// processWithRetry keeps retrying msg with capped exponential backoff. The offset is only
// committed after a successful attempt; false means ctx ended first.
func (c *Consumer) processWithRetry(ctx context.Context, msg kafka.Message) bool {
	wait := c.retryMin
	for attempt := 1; ; attempt++ {
		err := c.Process(ctx, msg)
		if err == nil {
			return true
		}
		c.logger.Error("event processing failed", "err", err, "topic", msg.Topic,
			"partition", msg.Partition, "offset", msg.Offset, "attempt", attempt, "retry_in", wait)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
		if wait *= 2; wait > c.retryMax {
			wait = c.retryMax
		}
	}
}

// Process runs the inbox check and the handler in one transaction. Duplicates are skipped
// without error.
func (c *Consumer) Process(ctx context.Context, msg kafka.Message) error {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctx, span := otelx.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	err := c.apply(ctx, meta, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Consumer) apply(ctx context.Context, meta kafkax.EventMeta, msg kafka.Message) error {
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fresh, err := c.inbox.Record(ctx, tx, meta.EventID, meta.EventType)
	if err != nil {
		return err
	}
	if !fresh {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}
	if err := c.handler(ctx, tx, msg); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EventCounter records the outcome of each handled event.
type EventCounter interface {
	EventConsumed(eventType, result string)
}

// Counted wraps h so every invocation is reported to counter as "ok" or "error".
func Counted(h Handler, counter EventCounter) Handler {
	return func(ctx context.Context, tx pgx.Tx, msg kafka.Message) error {
		err := h(ctx, tx, msg)
		result := "ok"
		if err != nil {
			result = "error"
		}
		counter.EventConsumed(kafkax.ExtractEventMeta(msg).EventType, result)
		return err
	}
}
