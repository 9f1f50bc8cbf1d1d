package channel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPollInterval is how often a blocked PGLog consumer re-checks its
// topic for new messages.
const DefaultPollInterval = 250 * time.Millisecond

// Schema creates the tables backing PGLog. channel_topics holds the next
// offset of each topic, channel_log the messages and channel_group_offsets
// the first offset each consumer group has not yet committed.
const Schema = `
CREATE TABLE IF NOT EXISTS channel_topics (
	topic TEXT PRIMARY KEY,
	next_offset BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS channel_log (
	topic TEXT NOT NULL,
	offset_id BIGINT NOT NULL,
	payload BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (topic, offset_id)
);
CREATE TABLE IF NOT EXISTS channel_group_offsets (
	consumer_group TEXT NOT NULL,
	topic TEXT NOT NULL,
	next_offset BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (consumer_group, topic)
);
`

// PGLog is a durable channel stored in PostgreSQL. Offsets are dense per
// topic and start at zero. An append holds its topic's counter row until it
// commits, so messages of a topic become visible in offset order.
type PGLog struct {
	db           *sql.DB
	tracer       trace.Tracer
	logger       *slog.Logger
	pollInterval time.Duration
	metrics      *channelMetrics
}

// PGLogOption configures a PGLog.
type PGLogOption func(*PGLog)

// WithPollInterval sets how often blocked consumers poll for new messages.
func WithPollInterval(d time.Duration) PGLogOption {
	return func(l *PGLog) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PGLogOption {
	return func(l *PGLog) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithPromRegistry registers the channel metrics with promRegistry.
func WithPromRegistry(promRegistry prometheus.Registerer) PGLogOption {
	return func(l *PGLog) {
		l.metrics = newChannelMetrics(promRegistry, "postgres")
	}
}

// NewPGLog creates a channel on db. The caller owns db.
func NewPGLog(db *sql.DB, opts ...PGLogOption) *PGLog {
	l := &PGLog{
		db:           db,
		tracer:       otel.Tracer("gymnexus/channel"),
		logger:       slog.New(slog.DiscardHandler),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// EnsureSchema creates the channel tables if they do not exist.
func (l *PGLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create channel schema: %w", err)
	}
	return nil
}

// Publish implements Publisher.
func (l *PGLog) Publish(ctx context.Context, topic string, payload []byte) (Ack, error) {
	ctx, span := l.tracer.Start(ctx, "channel.publish",
		trace.WithAttributes(
			attribute.String("channel.topic", topic),
			attribute.Int("payload.size", len(payload)),
		),
	)
	defer span.End()

	offset, err := l.append(ctx, topic, payload)
	if err != nil {
		span.RecordError(err)
		return Ack{}, err
	}

	span.SetAttributes(attribute.Int64("channel.offset", offset))
	l.metrics.incPublished(topic)
	return Ack{Topic: topic, Partition: 0, Offset: offset}, nil
}

func (l *PGLog) append(ctx context.Context, topic string, payload []byte) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback()

	// the upsert locks the topic row until commit
	var offset int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO channel_topics (topic, next_offset)
		VALUES ($1, 1)
		ON CONFLICT (topic) DO UPDATE
		SET next_offset = channel_topics.next_offset + 1
		RETURNING next_offset - 1
	`, topic).Scan(&offset)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate offset: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO channel_log (topic, offset_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, topic, offset, payload, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to append message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit append: %w", err)
	}
	return offset, nil
}

// Consumer returns a consumer for group.
func (l *PGLog) Consumer(group string) *PGLogConsumer {
	return &PGLogConsumer{
		log:     l,
		group:   group,
		cursors: make(map[string]*cursor),
	}
}

// PGLogConsumer consumes from a PGLog on behalf of a group. A consumer keeps
// its cursor in memory and starts each topic at the group's stored offset,
// so a restarted process sees every uncommitted message again.
type PGLogConsumer struct {
	log   *PGLog
	group string

	mu      sync.Mutex
	cursors map[string]*cursor
}

// Consume implements Consumer.
func (c *PGLogConsumer) Consume(ctx context.Context, topic string) (*Delivery, error) {
	ctx, span := c.log.tracer.Start(ctx, "channel.consume",
		trace.WithAttributes(
			attribute.String("channel.topic", topic),
			attribute.String("channel.group", c.group),
		),
	)
	defer span.End()

	ticker := time.NewTicker(c.log.pollInterval)
	defer ticker.Stop()

	for {
		d, err := c.next(ctx, topic)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if d != nil {
			span.SetAttributes(attribute.Int64("channel.offset", d.Offset))
			c.log.metrics.incConsumed(topic)
			return d, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// next hands out a released message or the one at the cursor, if any.
func (c *PGLogConsumer) next(ctx context.Context, topic string) (*Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.cursors[topic]
	if !ok {
		start, err := c.storedOffset(ctx, topic)
		if err != nil {
			return nil, err
		}
		cur = newCursor(start)
		c.cursors[topic] = cur
	}

	offset, redelivery := cur.peek()
	d := &Delivery{Topic: topic, Partition: 0, Offset: offset}
	err := c.log.db.QueryRowContext(ctx, `
		SELECT payload, created_at
		FROM channel_log
		WHERE topic = $1 AND offset_id = $2
	`, topic, offset).Scan(&d.Payload, &d.Published)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read channel: %w", err)
	}
	cur.handedOut(offset, redelivery)
	return d, nil
}

func (c *PGLogConsumer) storedOffset(ctx context.Context, topic string) (int64, error) {
	var offset int64
	err := c.log.db.QueryRowContext(ctx, `
		SELECT next_offset
		FROM channel_group_offsets
		WHERE consumer_group = $1 AND topic = $2
	`, c.group, topic).Scan(&offset)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load committed offset: %w", err)
	}
	return offset, nil
}

// Commit implements Consumer. The stored group offset advances up to the
// lowest delivery this consumer still holds uncommitted and never moves
// backwards.
func (c *PGLogConsumer) Commit(ctx context.Context, d *Delivery) error {
	if d == nil {
		return ErrUnknownDelivery
	}
	ctx, span := c.log.tracer.Start(ctx, "channel.commit",
		trace.WithAttributes(
			attribute.String("channel.topic", d.Topic),
			attribute.String("channel.group", c.group),
			attribute.Int64("channel.offset", d.Offset),
		),
	)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.cursors[d.Topic]
	if !ok || !cur.inFlight(d.Offset) {
		return ErrUnknownDelivery
	}
	watermark := cur.watermarkAfter(d.Offset)

	_, err := c.log.db.ExecContext(ctx, `
		INSERT INTO channel_group_offsets (consumer_group, topic, next_offset, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (consumer_group, topic) DO UPDATE
		SET next_offset = GREATEST(channel_group_offsets.next_offset, EXCLUDED.next_offset),
		    updated_at = EXCLUDED.updated_at
	`, c.group, d.Topic, watermark)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit offset: %w", err)
	}
	cur.commit(d.Offset)
	c.log.metrics.incCommitted(d.Topic)
	c.log.logger.Debug("committed delivery",
		"component", "channel",
		"topic", d.Topic,
		"group", c.group,
		"offset", d.Offset,
		"group_offset", watermark,
	)
	return nil
}

// Release implements Consumer.
func (c *PGLogConsumer) Release(_ context.Context, d *Delivery) error {
	if d == nil {
		return ErrUnknownDelivery
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.cursors[d.Topic]
	if !ok || !cur.release(d.Offset) {
		return ErrUnknownDelivery
	}
	c.log.logger.Debug("released delivery",
		"component", "channel",
		"topic", d.Topic,
		"group", c.group,
		"offset", d.Offset,
	)
	return nil
}
