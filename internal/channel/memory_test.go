package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryPublishConsumeCommit(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	ack, err := m.Publish(ctx, "topic", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, Ack{Topic: "topic", Partition: 0, Offset: 0}, ack)
	ack, err = m.Publish(ctx, "topic", []byte("two"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), ack.Offset)

	c := m.Consumer("group")
	d, err := c.Consume(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, "one", string(d.Payload))
	require.NoError(t, c.Commit(ctx, d))

	d, err = c.Consume(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, "two", string(d.Payload))
	assert.Equal(t, int64(1), d.Offset)
}

func TestMemoryRedeliversUncommitted(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	_, err := m.Publish(ctx, "topic", []byte("one"))
	require.NoError(t, err)
	_, err = m.Publish(ctx, "topic", []byte("two"))
	require.NoError(t, err)

	first := m.Consumer("group")
	d, err := first.Consume(ctx, "topic")
	require.NoError(t, err)
	require.NoError(t, first.Commit(ctx, d))
	// received but never committed, as if the process crashed mid-processing
	_, err = first.Consume(ctx, "topic")
	require.NoError(t, err)

	restarted := m.Consumer("group")
	d, err = restarted.Consume(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, "two", string(d.Payload))

	other := m.Consumer("other-group")
	d, err = other.Consume(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, "one", string(d.Payload), "groups keep independent offsets")
}

func TestMemoryCommitUnknownDelivery(t *testing.T) {
	m := NewMemory(nil)
	c := m.Consumer("group")
	err := c.Commit(context.Background(), &Delivery{Topic: "topic", Offset: 3})
	assert.ErrorIs(t, err, ErrUnknownDelivery)
	assert.ErrorIs(t, c.Commit(context.Background(), nil), ErrUnknownDelivery)
}

func TestMemoryConsumeBlocksUntilPublish(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewMemory(nil)
	c := m.Consumer("group")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var got *Delivery
	var consumeErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, consumeErr = c.Consume(ctx, "topic")
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := m.Publish(ctx, "topic", []byte("late"))
	require.NoError(t, err)
	wg.Wait()

	require.NoError(t, consumeErr)
	assert.Equal(t, "late", string(got.Payload))
}

func TestMemoryConsumeCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewMemory(nil)
	c := m.Consumer("group")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := c.Consume(ctx, "topic")
		done <- err
	}()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestMemoryCloseWakesConsumers(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewMemory(nil)
	c := m.Consumer("group")
	done := make(chan error, 1)
	go func() {
		_, err := c.Consume(context.Background(), "topic")
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, m.Close())
	assert.ErrorIs(t, <-done, ErrClosed)

	_, err := m.Publish(context.Background(), "topic", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReceiveNoMessage(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewMemory(nil)
	_, err := Receive(context.Background(), m.Consumer("group"), "topic", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoMessage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Receive(ctx, m.Consumer("group"), "topic", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublishJSON(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	_, err := PublishJSON(ctx, m, "topic", map[string]string{"name": "gold"})
	require.NoError(t, err)

	d, err := Receive(ctx, m.Consumer("group"), "topic", time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"gold"}`, string(d.Payload))
}

func TestMemoryMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMemory(reg)
	ctx := context.Background()
	_, err := m.Publish(ctx, "topic", []byte("x"))
	require.NoError(t, err)
	c := m.Consumer("group")
	d, err := c.Consume(ctx, "topic")
	require.NoError(t, err)
	require.NoError(t, c.Commit(ctx, d))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.published.WithLabelValues("topic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.consumed.WithLabelValues("topic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.committed.WithLabelValues("topic")))
}

func TestMemoryReleaseRedeliversBeforeNewer(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	for _, p := range []string{"one", "two", "three"} {
		_, err := m.Publish(ctx, "topic", []byte(p))
		require.NoError(t, err)
	}

	c := m.Consumer("group")
	first, err := c.Consume(ctx, "topic")
	require.NoError(t, err)
	second, err := c.Consume(ctx, "topic")
	require.NoError(t, err)
	require.NoError(t, c.Release(ctx, first))
	assert.ErrorIs(t, c.Release(ctx, first), ErrUnknownDelivery, "already queued for redelivery")
	assert.ErrorIs(t, c.Commit(ctx, first), ErrUnknownDelivery, "released deliveries are not committable")
	require.NoError(t, c.Commit(ctx, second))

	again, err := c.Consume(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Offset)
	assert.Equal(t, "one", string(again.Payload))
	require.NoError(t, c.Commit(ctx, again))

	next, err := c.Consume(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, "three", string(next.Payload))
}

func TestMemoryCommitDoesNotPassOutstandingDelivery(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	_, err := m.Publish(ctx, "topic", []byte("one"))
	require.NoError(t, err)
	_, err = m.Publish(ctx, "topic", []byte("two"))
	require.NoError(t, err)

	c := m.Consumer("group")
	_, err = c.Consume(ctx, "topic")
	require.NoError(t, err)
	later, err := c.Consume(ctx, "topic")
	require.NoError(t, err)
	require.NoError(t, c.Commit(ctx, later))

	d, err := Receive(ctx, m.Consumer("group"), "topic", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "one", string(d.Payload), "the uncommitted delivery survives a later commit")
}
