package channel

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Text string `json:"text"`
}

func echo(_ context.Context, n note) (string, error) {
	return n.Text, nil
}

func TestProcessOneCommitsOnSuccess(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	_, err := PublishJSON(ctx, m, "notes", note{Text: "hello"})
	require.NoError(t, err)

	got, err := ProcessOne(ctx, m.Consumer("g"), "notes", time.Second, echo)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = Receive(ctx, m.Consumer("g"), "notes", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoMessage, "a committed message is not redelivered")
}

func TestProcessOneLeavesFailuresUncommitted(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	_, err := PublishJSON(ctx, m, "notes", note{Text: "retry me"})
	require.NoError(t, err)

	storeDown := errors.New("store down")
	_, err = ProcessOne(ctx, m.Consumer("g"), "notes", time.Second,
		func(context.Context, note) (string, error) { return "", storeDown })
	assert.ErrorIs(t, err, storeDown)

	got, err := ProcessOne(ctx, m.Consumer("g"), "notes", time.Second, echo)
	require.NoError(t, err)
	assert.Equal(t, "retry me", got)
}

func TestProcessOneCommitsMalformedPayload(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	_, err := m.Publish(ctx, "notes", []byte("{not json"))
	require.NoError(t, err)

	called := false
	_, err = ProcessOne(ctx, m.Consumer("g"), "notes", time.Second,
		func(context.Context, note) (string, error) { called = true; return "", nil })
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.False(t, called)

	_, err = Receive(ctx, m.Consumer("g"), "notes", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestProcessOneNoMessage(t *testing.T) {
	m := NewMemory(nil)
	_, err := ProcessOne(context.Background(), m.Consumer("g"), "notes", 10*time.Millisecond, echo)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestAckString(t *testing.T) {
	assert.Equal(t, "notes[0]@7", Ack{Topic: "notes", Offset: 7}.String())
}

func TestProcessOneCommitsRejectedPayload(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	_, err := PublishJSON(ctx, m, "notes", note{})
	require.NoError(t, err)

	_, err = ProcessOne(ctx, m.Consumer("g"), "notes", time.Second,
		func(context.Context, note) (string, error) {
			return "", fmt.Errorf("%w: text is required", ErrMalformedPayload)
		})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Receive(ctx, m.Consumer("g"), "notes", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestProcessOneRedeliversOnSameConsumer(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	c := m.Consumer("g")
	_, err := PublishJSON(ctx, m, "notes", note{Text: "first"})
	require.NoError(t, err)

	storeDown := errors.New("store down")
	_, err = ProcessOne(ctx, c, "notes", time.Second,
		func(context.Context, note) (string, error) { return "", storeDown })
	assert.ErrorIs(t, err, storeDown)

	_, err = PublishJSON(ctx, m, "notes", note{Text: "second"})
	require.NoError(t, err)
	for _, want := range []string{"first", "second"} {
		got, err := ProcessOne(ctx, c, "notes", time.Second, echo)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = Receive(ctx, m.Consumer("g"), "notes", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoMessage, "both messages are committed for the group")
}
