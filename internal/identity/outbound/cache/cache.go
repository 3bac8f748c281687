package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	prefixPending = "identity:pending:"
	prefixSetup   = "identity:setup:"
	prefixAccount = "identity:account:"
)

// Cache keeps short-lived login state in Redis as JSON. Keys passed in are
// already derived from the client's secret.
type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ins: ins}
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("identity.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Cache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *Cache) get(ctx context.Context, key string, v any) error {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return goerror.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (c *Cache) SavePendingLogin(ctx context.Context, key string, p entity.PendingLogin, ttl time.Duration) (err error) {
	ctx, span := c.startSpan(ctx, "SavePendingLogin")
	defer func() { c.endSpan(span, err) }()

	return c.set(ctx, prefixPending+key, p, ttl)
}

func (c *Cache) GetPendingLogin(ctx context.Context, key string) (_ *entity.PendingLogin, err error) {
	ctx, span := c.startSpan(ctx, "GetPendingLogin")
	defer func() { c.endSpan(span, err) }()

	var p entity.PendingLogin
	if err = c.get(ctx, prefixPending+key, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePendingLogin overwrites the record and keeps its remaining TTL.
// A record that vanished in the meantime stays gone.
func (c *Cache) UpdatePendingLogin(ctx context.Context, key string, p entity.PendingLogin) (err error) {
	ctx, span := c.startSpan(ctx, "UpdatePendingLogin")
	defer func() { c.endSpan(span, err) }()

	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	err = c.client.SetArgs(ctx, prefixPending+key, raw, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return goerror.ErrNotFound
	}
	return err
}

func (c *Cache) DeletePendingLogin(ctx context.Context, key string) (err error) {
	ctx, span := c.startSpan(ctx, "DeletePendingLogin")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, prefixPending+key).Err()
}

func (c *Cache) SaveSetupSession(ctx context.Context, key string, s entity.SetupSession, ttl time.Duration) (err error) {
	ctx, span := c.startSpan(ctx, "SaveSetupSession")
	defer func() { c.endSpan(span, err) }()

	return c.set(ctx, prefixSetup+key, s, ttl)
}

func (c *Cache) GetSetupSession(ctx context.Context, key string) (_ *entity.SetupSession, err error) {
	ctx, span := c.startSpan(ctx, "GetSetupSession")
	defer func() { c.endSpan(span, err) }()

	var s entity.SetupSession
	if err = c.get(ctx, prefixSetup+key, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Cache) DeleteSetupSession(ctx context.Context, key string) (err error) {
	ctx, span := c.startSpan(ctx, "DeleteSetupSession")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, prefixSetup+key).Err()
}

// SaveAccountSetup parks the authenticator secret offered on the account
// page of userID. There is one per user.
func (c *Cache) SaveAccountSetup(ctx context.Context, userID int64, s entity.SetupSession, ttl time.Duration) (err error) {
	ctx, span := c.startSpan(ctx, "SaveAccountSetup")
	defer func() { c.endSpan(span, err) }()

	return c.set(ctx, prefixAccount+strconv.FormatInt(userID, 10), s, ttl)
}

func (c *Cache) GetAccountSetup(ctx context.Context, userID int64) (_ *entity.SetupSession, err error) {
	ctx, span := c.startSpan(ctx, "GetAccountSetup")
	defer func() { c.endSpan(span, err) }()

	var s entity.SetupSession
	if err = c.get(ctx, prefixAccount+strconv.FormatInt(userID, 10), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Cache) DeleteAccountSetup(ctx context.Context, userID int64) (err error) {
	ctx, span := c.startSpan(ctx, "DeleteAccountSetup")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, prefixAccount+strconv.FormatInt(userID, 10)).Err()
}
