package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/resolver"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Forgetter drops cached lookups for changed rows.
type Forgetter interface {
	Forget(ctx context.Context, kind resolver.Kind, ids ...string)
}

type FeedConfig struct {
	Brokers string
	// GroupPrefix is suffixed with a random id so every instance sees every change.
	GroupPrefix string
}

// Feed turns change events from Kafka into hub notifications.
type Feed struct {
	reader MessageReader
	group  string
	hub    *Hub
	cache  Forgetter
	logger *slog.Logger
}

func NewFeed(hub *Hub, cache Forgetter, logger *slog.Logger, cfg FeedConfig) *Feed {
	if cfg.GroupPrefix == "" {
		cfg.GroupPrefix = "salon-live"
	}
	group := cfg.GroupPrefix + "-" + uuid.NewString()
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     group,
		GroupTopics: outbox.ChangeTopics(),
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	f := NewFeedWithReader(reader, hub, cache, logger)
	f.group = group
	return f
}

func NewFeedWithReader(reader MessageReader, hub *Hub, cache Forgetter, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{reader: reader, hub: hub, cache: cache, logger: logger}
}

func (f *Feed) Run(ctx context.Context) {
	defer f.reader.Close()

	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Error("kafka read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		ctxSpan, span := kafkax.StartConsumeSpan(ctx, msg, f.group)
		if err := f.Handle(ctxSpan, msg); err != nil {
			f.logger.Warn("change event dropped", "err", err, "topic", msg.Topic)
			span.RecordError(err)
		}
		span.End()
	}
}

// Handle applies one change message.
func (f *Feed) Handle(ctx context.Context, msg kafka.Message) error {
	return applyChange(ctx, f.hub, f.cache, msg)
}

// LocalSink stands in for Kafka when no brokers are configured: the outbox
// publisher hands it each batch and change events go straight to the hub.
// Only sockets on this instance hear about them. Other topics are dropped.
type LocalSink struct {
	hub    *Hub
	cache  Forgetter
	logger *slog.Logger
	topics map[string]struct{}
}

func NewLocalSink(hub *Hub, cache Forgetter, logger *slog.Logger) *LocalSink {
	if logger == nil {
		logger = slog.Default()
	}
	topics := make(map[string]struct{}, len(outbox.ChangeTables))
	for _, t := range outbox.ChangeTopics() {
		topics[t] = struct{}{}
	}
	return &LocalSink{hub: hub, cache: cache, logger: logger, topics: topics}
}

// WriteMessages never fails: a malformed change is logged and skipped so it
// does not hold back the rest of the outbox.
func (s *LocalSink) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		if _, ok := s.topics[msg.Topic]; !ok {
			s.logger.Debug("outbox event has no local consumer", "topic", msg.Topic)
			continue
		}
		if err := applyChange(ctx, s.hub, s.cache, msg); err != nil {
			s.logger.Warn("change event dropped", "err", err, "topic", msg.Topic)
		}
	}
	return nil
}

func (s *LocalSink) Close() error { return nil }

func applyChange(ctx context.Context, hub *Hub, cache Forgetter, msg kafka.Message) error {
	var c outbox.Change
	if err := json.Unmarshal(msg.Value, &c); err != nil {
		return fmt.Errorf("decode change: %w", err)
	}
	if c.Table == "" {
		return fmt.Errorf("change without table on %s", msg.Topic)
	}

	if cache != nil && c.ID != "" {
		switch c.Table {
		case outbox.TableStaff:
			cache.Forget(ctx, resolver.KindStaff, c.ID)
		case outbox.TableServices:
			cache.Forget(ctx, resolver.KindService, c.ID)
		case outbox.TableClients:
			cache.Forget(ctx, resolver.KindClient, c.ID)
		}
	}
	hub.Publish(c)
	return nil
}
