package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type memoryMessage struct {
	payload   []byte
	published time.Time
}

// Memory is an in-process channel. Each topic is a single partition holding
// every message ever published; consumer groups track their own committed
// offsets, so a fresh consumer of a group resumes after the last commit.
type Memory struct {
	mu        sync.Mutex
	topics    map[string][]memoryMessage
	committed map[string]map[string]int64
	// notify is closed and replaced on every publish to wake blocked consumers
	notify  chan struct{}
	closed  bool
	metrics *channelMetrics
}

// NewMemory creates an empty in-process channel. promRegistry may be nil.
func NewMemory(promRegistry prometheus.Registerer) *Memory {
	return &Memory{
		topics:    make(map[string][]memoryMessage),
		committed: make(map[string]map[string]int64),
		notify:    make(chan struct{}),
		metrics:   newChannelMetrics(promRegistry, "memory"),
	}
}

// Publish implements Publisher.
func (m *Memory) Publish(ctx context.Context, topic string, payload []byte) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Ack{}, ErrClosed
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.topics[topic] = append(m.topics[topic], memoryMessage{
		payload:   buf,
		published: time.Now().UTC(),
	})
	offset := int64(len(m.topics[topic]) - 1)
	close(m.notify)
	m.notify = make(chan struct{})
	m.metrics.incPublished(topic)
	return Ack{Topic: topic, Partition: 0, Offset: offset}, nil
}

// Len returns the number of messages ever published to topic.
func (m *Memory) Len(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.topics[topic])
}

// Close wakes every blocked consumer and rejects further operations.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.notify)
	return nil
}

// Consumer returns a consumer for group. Its read position starts at the
// group's committed offset for each topic.
func (m *Memory) Consumer(group string) *MemoryConsumer {
	return &MemoryConsumer{
		broker:  m,
		group:   group,
		cursors: make(map[string]*cursor),
	}
}

// MemoryConsumer consumes from a Memory channel on behalf of a group.
type MemoryConsumer struct {
	broker *Memory
	group  string
	// cursors is guarded by broker.mu
	cursors map[string]*cursor
}

func (c *MemoryConsumer) cursorFor(topic string) *cursor {
	cur, ok := c.cursors[topic]
	if !ok {
		cur = newCursor(c.broker.committed[c.group][topic])
		c.cursors[topic] = cur
	}
	return cur
}

// Consume implements Consumer.
func (c *MemoryConsumer) Consume(ctx context.Context, topic string) (*Delivery, error) {
	m := c.broker
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrClosed
		}
		cur := c.cursorFor(topic)
		pos, redelivery := cur.peek()
		msgs := m.topics[topic]
		if pos < int64(len(msgs)) {
			msg := msgs[pos]
			cur.handedOut(pos, redelivery)
			m.mu.Unlock()
			m.metrics.incConsumed(topic)
			return &Delivery{
				Topic:     topic,
				Partition: 0,
				Offset:    pos,
				Payload:   msg.payload,
				Published: msg.published,
			}, nil
		}
		notify := m.notify
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-notify:
		}
	}
}

// Commit implements Consumer. The group offset advances up to the lowest
// delivery this consumer still holds uncommitted.
func (c *MemoryConsumer) Commit(ctx context.Context, d *Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if d == nil {
		return ErrUnknownDelivery
	}
	cur, ok := c.cursors[d.Topic]
	if !ok || !cur.inFlight(d.Offset) {
		return ErrUnknownDelivery
	}
	watermark := cur.watermarkAfter(d.Offset)
	cur.commit(d.Offset)

	groupOffsets, ok := m.committed[c.group]
	if !ok {
		groupOffsets = make(map[string]int64)
		m.committed[c.group] = groupOffsets
	}
	if watermark > groupOffsets[d.Topic] {
		groupOffsets[d.Topic] = watermark
	}
	m.metrics.incCommitted(d.Topic)
	return nil
}

// Release implements Consumer.
func (c *MemoryConsumer) Release(_ context.Context, d *Delivery) error {
	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	if d == nil {
		return ErrUnknownDelivery
	}
	cur, ok := c.cursors[d.Topic]
	if !ok || !cur.release(d.Offset) {
		return ErrUnknownDelivery
	}
	return nil
}

func (c *MemoryConsumer) String() string {
	return fmt.Sprintf("memory consumer %q", c.group)
}
