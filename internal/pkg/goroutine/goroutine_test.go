package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager(t *testing.T) {
	t.Run("collects errors", func(t *testing.T) {
		m := NewManager(4)
		boom := errors.New("boom")

		assert.True(t, m.Go(context.Background(), func(context.Context) error { return boom }))
		assert.True(t, m.Go(context.Background(), func(context.Context) error { return nil }))

		assert.ErrorIs(t, m.Wait(), boom)
	})

	t.Run("recovers panics", func(t *testing.T) {
		m := NewManager(1)

		m.Go(context.Background(), func(context.Context) error { panic("bad") })

		assert.NoError(t, m.Wait())
	})

	t.Run("refuses at limit", func(t *testing.T) {
		m := NewManager(1)
		block := make(chan struct{})
		var ran atomic.Int32

		assert.True(t, m.Go(context.Background(), func(context.Context) error { <-block; ran.Add(1); return nil }))
		assert.False(t, m.Go(context.Background(), func(context.Context) error { ran.Add(1); return nil }))
		close(block)

		assert.NoError(t, m.Wait())
		assert.Equal(t, int32(1), ran.Load())
	})

	t.Run("refuses after wait", func(t *testing.T) {
		m := NewManager(1)
		assert.NoError(t, m.Wait())
		assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))
	})

	t.Run("skips canceled context", func(t *testing.T) {
		m := NewManager(1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var ran atomic.Bool

		m.Go(ctx, func(context.Context) error { ran.Store(true); return nil })

		assert.NoError(t, m.Wait())
		assert.False(t, ran.Load())
	})
}
