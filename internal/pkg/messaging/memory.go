package messaging

import (
	"context"
	"errors"
	"io"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// ErrMemoryTopicRequired is returned when the topic is empty.
var ErrMemoryTopicRequired = errors.New("messaging: memory topic is required")

const memoryBuffer = 64

// Memory is an in-process broker with NATS-like delivery: messages
// published with no live consumer are dropped, every consumer without a
// queue group receives each message, and one member per queue group does.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySub
	closed bool
	done   chan struct{}

	seq atomic.Uint64
}

type memorySub struct {
	group string
	ch    chan *memoryMessage
	done  chan struct{}
}

// NewMemory returns an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{
		subs: map[string][]*memorySub{},
		done: make(chan struct{}),
	}
}

// Close stops every running Consume call.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Publish delivers msg to the current consumers of destination.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrMemoryTopicRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	seq := m.seq.Inc()
	targets, err := m.targets(destination, seq)
	if err != nil {
		return PublishResult{}, err
	}

	now := time.Now()
	id := strconv.FormatUint(seq, 10)
	for _, sub := range targets {
		delivery := &memoryMessage{
			id:        id,
			topic:     destination,
			body:      slices.Clone(msg.Body),
			key:       slices.Clone(msg.Key),
			headers:   slices.Clone(msg.Headers),
			timestamp: now,
		}
		select {
		case sub.ch <- delivery:
		case <-sub.done:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		}
	}

	return PublishResult{MessageID: id, Topic: destination, Timestamp: now}, nil
}

func (m *Memory) targets(topic string, seq uint64) ([]*memorySub, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, io.ErrClosedPipe
	}

	var out []*memorySub
	groups := map[string][]*memorySub{}
	for _, sub := range m.subs[topic] {
		if sub.group == "" {
			out = append(out, sub)
			continue
		}
		groups[sub.group] = append(groups[sub.group], sub)
	}
	for _, members := range groups {
		out = append(out, members[seq%uint64(len(members))])
	}
	return out, nil
}

// Consume receives messages from source until ctx is done or the broker is closed.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrMemoryTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	sub := &memorySub{
		group: co.queueGroup,
		ch:    make(chan *memoryMessage, memoryBuffer),
		done:  make(chan struct{}),
	}
	if err := m.subscribe(source, sub); err != nil {
		return err
	}
	defer m.unsubscribe(source, sub)

	var wg sync.WaitGroup
	for range concurrencyOrDefault(co.concurrency, 1) {
		wg.Go(func() {
			for {
				select {
				case msg := <-sub.ch:
					herr := callHandler(ctx, DriverMemory, func() error { return handler(ctx, msg) })
					_ = settle(ctx, msg, co.autoAck, herr)
				case <-ctx.Done():
					return
				case <-m.done:
					return
				}
			}
		})
	}

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-m.done:
		err = io.ErrClosedPipe
	}
	close(sub.done)
	wg.Wait()
	return err
}

func (m *Memory) subscribe(topic string, sub *memorySub) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	m.subs[topic] = append(m.subs[topic], sub)
	return nil
}

func (m *Memory) unsubscribe(topic string, sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs[topic] = slices.DeleteFunc(m.subs[topic], func(s *memorySub) bool { return s == sub })
}

type memoryMessage struct {
	id        string
	topic     string
	body      []byte
	key       []byte
	headers   []Header
	timestamp time.Time

	responded atomic.Bool
	acked     atomic.Bool
}

func (m *memoryMessage) hasResponded() bool { return m.responded.Load() }

func (m *memoryMessage) Body() []byte         { return m.body }
func (m *memoryMessage) Key() []byte          { return m.key }
func (m *memoryMessage) Headers() []Header    { return m.headers }
func (m *memoryMessage) ID() string           { return m.id }
func (m *memoryMessage) Topic() string        { return m.topic }
func (m *memoryMessage) Timestamp() time.Time { return m.timestamp }

func (m *memoryMessage) Ack(context.Context) error {
	if !m.responded.Swap(true) {
		m.acked.Store(true)
	}
	return nil
}

// Nack marks the message as rejected. There is no redelivery.
func (m *memoryMessage) Nack(context.Context) error {
	m.responded.Store(true)
	return nil
}

func (m *memoryMessage) Metadata() map[string]any {
	return map[string]any{"acked": m.acked.Load(), "responded": m.responded.Load()}
}
