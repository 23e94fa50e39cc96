package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	conn       db.DBTX
	repo       *Repository
	logger     *slog.Logger
	brokers    []string
	pollEvery  time.Duration
	batchSize  int
	retainFor  time.Duration
	local      MessageWriter
	newWriter  func(brokers []string) MessageWriter
	lastPurged time.Time
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
	// RetainFor keeps published rows this long before purging. Zero disables purging.
	RetainFor time.Duration
	// Local receives the events when Brokers is empty. Events it accepts are
	// marked published and purged like Kafka deliveries.
	Local MessageWriter
}

func NewPublisher(conn db.DBTX, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		conn:      conn,
		repo:      repo,
		logger:    logger,
		brokers:   kafkax.SplitBrokers(cfg.Brokers),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		retainFor: cfg.RetainFor,
		local:     cfg.Local,
		newWriter: func(brokers []string) MessageWriter {
			return &kafka.Writer{
				Addr:                   kafka.TCP(brokers...),
				Balancer:               &kafka.Hash{},
				AllowAutoTopicCreation: true,
			}
		},
	}
}

func (p *Publisher) Run(ctx context.Context) {
	writer := p.local
	switch {
	case len(p.brokers) > 0:
		writer = p.newWriter(p.brokers)
	case writer == nil:
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	default:
		p.logger.Info("outbox publisher delivering in-process (no kafka brokers configured)")
	}
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PublishBatch(ctx, writer)
			if err != nil {
				p.logger.Error("outbox publish failed", "err", err)
				continue
			}
			if n > 0 {
				p.logger.Debug("outbox batch published", "count", n)
			}
			p.maybePurge(ctx)
		}
	}
}

// PublishBatch sends one batch of unpublished events and marks them published
// in the same transaction. It returns the number of events sent.
func (p *Publisher) PublishBatch(ctx context.Context, writer MessageWriter) (int, error) {
	var sent int
	err := db.WithTx(ctx, p.conn, func(tx pgx.Tx) error {
		records, err := p.repo.Claim(ctx, tx, p.batchSize)
		if err != nil || len(records) == 0 {
			return err
		}

		msgs := make([]kafka.Message, 0, len(records))
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
			meta := kafkax.EventMeta{EventID: r.EventID, EventType: r.Event.EventType, AggregateType: r.Event.AggregateType}
			msgs = append(msgs, kafka.Message{
				Topic:   r.Event.EventType,
				Key:     []byte(r.Event.AggregateID),
				Value:   r.Event.Payload,
				Headers: kafkax.InjectTraceHeaders(msgCtx, meta.Headers()),
			})
			ids = append(ids, r.Seq)
		}
		if err := writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}
		if err := p.repo.MarkSent(ctx, tx, ids); err != nil {
			return err
		}
		sent = len(records)
		return nil
	})
	return sent, err
}

func (p *Publisher) maybePurge(ctx context.Context) {
	if p.retainFor <= 0 || time.Since(p.lastPurged) < time.Hour {
		return
	}
	p.lastPurged = time.Now()
	var purged int64
	err := db.WithTx(ctx, p.conn, func(tx pgx.Tx) error {
		var err error
		purged, err = p.repo.PurgeSent(ctx, tx, time.Now().Add(-p.retainFor))
		return err
	})
	if err != nil {
		p.logger.Warn("outbox purge failed", "err", err)
		return
	}
	if purged > 0 {
		p.logger.Info("outbox purged", "count", purged)
	}
}
