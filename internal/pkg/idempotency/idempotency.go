// Package idempotency guards operations with Redis SETNX locks and
// remembers their outcome for a while.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrAlreadyCompleted  = errors.New("operation already completed")
	ErrAlreadyFailed     = errors.New("operation already failed")
	ErrInvalidState      = errors.New("invalid state")
)

type State string

const (
	StateNone       State = "none"        // operation can proceed
	StateInProgress State = "in_progress" // operation already in progress
	StateCompleted  State = "completed"   // operation already completed
	StateFailed     State = "failed"      // previously operation failed
	StateError      State = "error"       // this operation error
)

func (s State) String() string {
	return string(s)
}

// Idempotency is implemented by StateTracker.
type Idempotency interface {
	Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error)
	Release(ctx context.Context, key string) error
	Guard(ctx context.Context, key string, lockDuration time.Duration, fn func(context.Context) error) error
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
	Remember(ctx context.Context, key string, fn func(context.Context) ([]byte, error), opts ...Option) ([]byte, error)
}

type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient) *StateTracker {
	return &StateTracker{
		client: client,
		prefix: "idempotency:",
	}
}

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = 24 * time.Hour
)

type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
	retryable    func(error) bool
}

func WithLockDuration(lockDuration time.Duration) Option {
	return func(o *execOptions) {
		o.lockDuration = lockDuration
	}
}

func WithStateTTL(stateTTL time.Duration) Option {
	return func(o *execOptions) {
		o.stateTTL = stateTTL
	}
}

// WithRetryable releases the key instead of marking it failed when fn
// returns an error for which retryable reports true.
func WithRetryable(retryable func(error) bool) Option {
	return func(o *execOptions) {
		o.retryable = retryable
	}
}

// Acquire tries to take key. StateNone means the caller now holds it.
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	fk := s.prefix + key

	acquired, err := s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
	if err != nil {
		return StateError, err
	}
	if acquired {
		return StateNone, nil
	}

	result, err := s.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		acquired, err = s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
		if err != nil {
			return StateError, err
		}
		if acquired {
			return StateNone, nil
		}
		return StateInProgress, nil
	}
	if err != nil {
		return StateError, err
	}

	switch State(result) {
	case StateInProgress, StateCompleted, StateFailed:
		return State(result), nil
	default:
		return StateError, ErrInvalidState
	}
}

// Release drops key so the operation can run again.
func (s *StateTracker) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Guard runs fn while holding key and releases it afterwards, whatever the
// outcome. A concurrent caller gets ErrAlreadyInProgress.
func (s *StateTracker) Guard(ctx context.Context, key string, lockDuration time.Duration, fn func(context.Context) error) error {
	if lockDuration <= 0 {
		lockDuration = defaultLockDuration
	}

	state, err := s.Acquire(ctx, key, lockDuration)
	if err != nil {
		return err
	}
	if state != StateNone {
		return ErrAlreadyInProgress
	}

	defer func() {
		// the caller's context may already be canceled
		_ = s.Release(context.WithoutCancel(ctx), key)
	}()

	return fn(ctx)
}

func (s *StateTracker) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateCompleted.String(), ttl).Err()
}

func (s *StateTracker) MarkFailed(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateFailed.String(), ttl).Err()
}

// Retryable reports whether opts release the key when an operation fails
// with err.
func Retryable(err error, opts ...Option) bool {
	o := newExecOptions(opts)
	return o.retryable != nil && o.retryable(err)
}

func newExecOptions(opts []Option) *execOptions {
	execOpt := &execOptions{
		lockDuration: defaultLockDuration,
		stateTTL:     defaultStateTTL,
	}
	for _, opt := range opts {
		opt(execOpt)
	}
	if execOpt.lockDuration <= 0 {
		execOpt.lockDuration = defaultLockDuration
	}
	if execOpt.stateTTL <= 0 {
		execOpt.stateTTL = defaultStateTTL
	}
	return execOpt
}

// Exec runs fn once per key. Replays within the state TTL return
// ErrAlreadyCompleted or ErrAlreadyFailed without calling fn.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	return s.exec(ctx, key, fn, newExecOptions(opts))
}

func (s *StateTracker) exec(ctx context.Context, key string, fn func(context.Context) error, execOpt *execOptions) error {
	state, err := s.Acquire(ctx, key, execOpt.lockDuration)
	if err != nil {
		return err
	}

	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateFailed:
		return ErrAlreadyFailed
	}

	if err := fn(ctx); err != nil {
		if execOpt.retryable != nil && execOpt.retryable(err) {
			if relErr := s.Release(context.WithoutCancel(ctx), key); relErr != nil {
				return errors.Join(err, relErr)
			}
			return err
		}
		if markErr := s.MarkFailed(ctx, key, execOpt.stateTTL); markErr != nil {
			return errors.Join(err, markErr)
		}
		return err
	}

	return s.MarkCompleted(ctx, key, execOpt.stateTTL)
}

// Remember is Exec for operations with a result. The result is kept as
// long as the completed state, and a replay returns it without calling fn.
// ErrAlreadyCompleted means the result is gone.
func (s *StateTracker) Remember(ctx context.Context, key string, fn func(context.Context) ([]byte, error), opts ...Option) ([]byte, error) {
	execOpt := newExecOptions(opts)
	rk := s.prefix + key + ":result"

	var out []byte
	err := s.exec(ctx, key, func(ctx context.Context) error {
		res, err := fn(ctx)
		if err != nil {
			return err
		}
		out = res
		return s.client.Set(ctx, rk, res, execOpt.stateTTL).Err()
	}, execOpt)
	if errors.Is(err, ErrAlreadyCompleted) {
		stored, gErr := s.client.Get(ctx, rk).Bytes()
		if errors.Is(gErr, redis.Nil) {
			return nil, ErrAlreadyCompleted
		}
		if gErr != nil {
			return nil, gErr
		}
		return stored, nil
	}
	if err != nil {
		return nil, err
	}

	return out, nil
}
