package messaging

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (m *Memory) consumers(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[topic])
}

type received struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *received) add(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *received) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *received) at(i int) Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[i]
}

func consume(t *testing.T, broker *Memory, topic string, handler Handler, opts ...ConsumeOption) (cancel func(), done <-chan error) {
	t.Helper()

	ctx, cancelFn := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	before := broker.consumers(topic)
	go func() { errCh <- broker.Consume(ctx, topic, handler, opts...) }()

	require.Eventually(t, func() bool { return broker.consumers(topic) == before+1 }, time.Second, 5*time.Millisecond)
	t.Cleanup(cancelFn)

	return cancelFn, errCh
}

func TestNewFromDriver(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		mq, err := NewFromDriver(" Memory ", FactoryOptions{})

		require.NoError(t, err)
		assert.IsType(t, &Memory{}, mq)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewFromDriver("nsq", FactoryOptions{})

		assert.ErrorIs(t, err, ErrUnknownDriver)
	})

	t.Run("kafka without brokers", func(t *testing.T) {
		_, err := NewFromDriver(DriverKafka, FactoryOptions{})

		assert.ErrorIs(t, err, ErrKafkaBrokersRequired)
	})

	t.Run("nats without url", func(t *testing.T) {
		_, err := NewFromDriver(DriverNATS, FactoryOptions{})

		assert.ErrorIs(t, err, ErrNATSURLRequired)
	})
}

func TestMemory_PublishConsume(t *testing.T) {
	// Arrange
	broker := NewMemory()
	got := &received{}
	consume(t, broker, "identity.verification_code.requested", func(_ context.Context, msg Message) error {
		got.add(msg)
		return nil
	}, WithAutoAck(true))

	// Act
	res, err := broker.Publish(context.Background(), "identity.verification_code.requested", OutgoingMessage{
		Body:    []byte(`{"user_id":"1"}`),
		Headers: []Header{{Key: "cID", Value: []byte("corr-1")}},
	})

	// Assert
	require.NoError(t, err)
	require.Eventually(t, func() bool { return got.len() == 1 }, time.Second, 5*time.Millisecond)

	msg := got.at(0)
	assert.Equal(t, res.MessageID, msg.ID())
	assert.Equal(t, "identity.verification_code.requested", msg.Topic())
	assert.JSONEq(t, `{"user_id":"1"}`, string(msg.Body()))
	assert.Equal(t, "corr-1", HeaderValue(msg.Headers(), "cID"))

	mem := msg.(*memoryMessage)
	assert.Eventually(t, mem.acked.Load, time.Second, 5*time.Millisecond)
}

func TestMemory_AutoAckNacksOnError(t *testing.T) {
	broker := NewMemory()
	got := &received{}
	consume(t, broker, "t", func(_ context.Context, msg Message) error {
		got.add(msg)
		return errors.New("boom")
	}, WithAutoAck(true))

	_, err := broker.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x")})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return got.len() == 1 }, time.Second, 5*time.Millisecond)
	mem := got.at(0).(*memoryMessage)
	assert.Eventually(t, mem.responded.Load, time.Second, 5*time.Millisecond)
	assert.False(t, mem.acked.Load())
}

func TestMemory_PanicIsRecovered(t *testing.T) {
	broker := NewMemory()
	calls := &received{}
	consume(t, broker, "t", func(_ context.Context, msg Message) error {
		calls.add(msg)
		if string(msg.Body()) == "poison" {
			panic("bad payload")
		}
		return nil
	}, WithAutoAck(true))

	_, err := broker.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("poison")})
	require.NoError(t, err)
	_, err = broker.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("ok")})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return calls.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, calls.at(1).(*memoryMessage).acked.Load, time.Second, 5*time.Millisecond)
	assert.False(t, calls.at(0).(*memoryMessage).acked.Load())
}

func TestMemory_QueueGroup(t *testing.T) {
	broker := NewMemory()
	groupA, groupB, solo := &received{}, &received{}, &received{}
	record := func(r *received) Handler {
		return func(_ context.Context, msg Message) error {
			r.add(msg)
			return nil
		}
	}
	consume(t, broker, "t", record(groupA), WithQueueGroup("workers"))
	consume(t, broker, "t", record(groupB), WithQueueGroup("workers"))
	consume(t, broker, "t", record(solo))

	for range 4 {
		_, err := broker.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x")})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return solo.len() == 4 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return groupA.len()+groupB.len() == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, groupA.len())
	assert.Equal(t, 2, groupB.len())
}

func TestMemory_ConsumeStops(t *testing.T) {
	t.Run("on context cancel", func(t *testing.T) {
		broker := NewMemory()
		cancel, done := consume(t, broker, "t", func(context.Context, Message) error { return nil })

		cancel()

		assert.ErrorIs(t, <-done, context.Canceled)
		assert.Zero(t, broker.consumers("t"))
	})

	t.Run("on close", func(t *testing.T) {
		broker := NewMemory()
		_, done := consume(t, broker, "t", func(context.Context, Message) error { return nil })

		require.NoError(t, broker.Close())

		assert.ErrorIs(t, <-done, io.ErrClosedPipe)
		_, err := broker.Publish(context.Background(), "t", OutgoingMessage{})
		assert.ErrorIs(t, err, io.ErrClosedPipe)
	})
}

func TestMemory_Validation(t *testing.T) {
	broker := NewMemory()
	ctx := context.Background()

	_, err := broker.Publish(ctx, "", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrMemoryTopicRequired)

	_, err = broker.Publish(ctx, "t", OutgoingMessage{Delay: time.Second})
	assert.ErrorIs(t, err, ErrUnsupported)

	assert.ErrorIs(t, broker.Consume(ctx, "t", nil), ErrHandlerRequired)

	res, err := broker.Publish(ctx, "nobody-listens", OutgoingMessage{Body: []byte("x")})
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)
}
