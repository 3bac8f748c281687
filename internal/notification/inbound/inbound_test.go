package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/notification/entity"
	"github.com/shandysiswandi/taskdeck/internal/notification/usecase"
	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goroutine"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
	"github.com/shandysiswandi/taskdeck/internal/pkg/messaging"
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
	"github.com/shandysiswandi/taskdeck/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUUID struct{}

func (stubUUID) Generate() string { return "cid-generated" }

type consumed struct {
	in  usecase.ConsumeVerificationCodeInput
	cID string
}

type fakeUsecase struct {
	mu       sync.Mutex
	consumed []consumed
	listIn   usecase.ListDeliveriesInput
}

func (f *fakeUsecase) ConsumeVerificationCode(ctx context.Context, in usecase.ConsumeVerificationCodeInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed = append(f.consumed, consumed{in: in, cID: instrument.GetCorrelationID(ctx)})
	return nil
}

func (f *fakeUsecase) ListDeliveries(_ context.Context, in usecase.ListDeliveriesInput) ([]entity.Delivery, error) {
	f.listIn = in
	return []entity.Delivery{{ID: 5, UserID: 9, Channel: entity.ChannelCall, Status: entity.DeliveryStatusSent, Attempts: 2}}, nil
}

func (f *fakeUsecase) snapshot() []consumed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]consumed(nil), f.consumed...)
}

func TestRegisterMQConsumer(t *testing.T) {
	// Arrange
	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  notification:\n    concurrency: 2\n"))
	require.NoError(t, err)

	broker := messaging.NewMemory()
	t.Cleanup(func() { _ = broker.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	routine := goroutine.NewManager(4)
	t.Cleanup(func() {
		cancel()
		_ = routine.Wait()
	})

	uc := &fakeUsecase{}
	RegisterMQConsumer(ctx, cfg, routine, broker, stubUUID{}, uc, instrument.NewNoop())

	body, err := json.Marshal(event.VerificationCodeRequestedMessage{
		UserID: 9, PhoneNumber: "5551234567", CountryCode: "1", PhoneHint: "+1…4567", Code: "123456", Channel: event.ChannelSMS,
	})
	require.NoError(t, err)

	publish := func(msg messaging.OutgoingMessage) {
		_, err := broker.Publish(context.Background(), event.VerificationCodeRequestedDestination, msg)
		assert.NoError(t, err)
	}
	hasCorrelation := func(cID string) bool {
		for _, c := range uc.snapshot() {
			if c.cID == cID {
				return true
			}
		}
		return false
	}

	// Act
	// the consumer subscribes asynchronously, so publish until it answers
	require.Eventually(t, func() bool {
		publish(messaging.OutgoingMessage{Body: body, Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte("cid-1")}}})
		return hasCorrelation("cid-1")
	}, 2*time.Second, 20*time.Millisecond)
	publish(messaging.OutgoingMessage{Body: []byte("not json")})
	publish(messaging.OutgoingMessage{Body: body})

	// Assert
	require.Eventually(t, func() bool { return hasCorrelation("cid-generated") }, time.Second, 5*time.Millisecond)
	got := uc.snapshot()
	assert.Equal(t, usecase.ConsumeVerificationCodeInput{
		UserID: 9, PhoneNumber: "5551234567", CountryCode: "1", PhoneHint: "+1…4567", Code: "123456", Channel: "sms",
	}, got[0].in)
	for _, c := range got {
		assert.Equal(t, int64(9), c.in.UserID)
	}
}

type stubJWT struct{}

func (stubJWT) Generate(int64, string) (string, error) { return "session", nil }
func (stubJWT) TTL() time.Duration                     { return time.Hour }

func (stubJWT) Verify(token string) (jwt.Claims, error) {
	if token != "session" {
		return jwt.Claims{}, jwt.ErrInvalidToken
	}
	return jwt.Claims{UserID: 1, Username: "admin"}, nil
}

type stubEnforcer struct {
	allow bool
	err   error
}

func (s stubEnforcer) Enforce(...any) (bool, error) { return s.allow, s.err }

func serveDeliveries(t *testing.T, uc *fakeUsecase, enf stubEnforcer, target string) *httptest.ResponseRecorder {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  name: taskdeck\n"))
	require.NoError(t, err)

	ro := router.NewRouter(router.Config{Config: cfg, UUID: stubUUID{}, JWT: stubJWT{}, Instrument: instrument.NewNoop()})
	RegisterHTTPEndpoint(ro, uc, enf)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.AddCookie(&http.Cookie{Name: router.SessionCookie, Value: "session"})
	rec := httptest.NewRecorder()
	ro.ServeHTTP(rec, req)
	return rec
}

func TestHTTPEndpoint_ListDeliveries(t *testing.T) {
	t.Run("admin lists deliveries", func(t *testing.T) {
		uc := &fakeUsecase{}

		rec := serveDeliveries(t, uc, stubEnforcer{allow: true}, "/api/notifications/deliveries?user_id=9&limit=5&offset=10")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, usecase.ListDeliveriesInput{UserID: 9, Limit: 5, Offset: 10}, uc.listIn)

		var body struct {
			Data ListDeliveriesResponse `json:"data"`
			Meta map[string]any         `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data.Items, 1)
		assert.Equal(t, "call", body.Data.Items[0].Channel)
		assert.Equal(t, "sent", body.Data.Items[0].Status)
		assert.InDelta(t, 1, body.Meta["count"], 0)
	})

	t.Run("forbidden without the permission", func(t *testing.T) {
		rec := serveDeliveries(t, &fakeUsecase{}, stubEnforcer{}, "/api/notifications/deliveries")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("enforcer failure", func(t *testing.T) {
		rec := serveDeliveries(t, &fakeUsecase{}, stubEnforcer{err: errors.New("down")}, "/api/notifications/deliveries")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("bad user id", func(t *testing.T) {
		rec := serveDeliveries(t, &fakeUsecase{}, stubEnforcer{allow: true}, "/api/notifications/deliveries?user_id=x")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type rawMessage struct{ body []byte }

func (m rawMessage) Body() []byte                { return m.body }
func (m rawMessage) Key() []byte                 { return nil }
func (m rawMessage) Headers() []messaging.Header { return nil }
func (m rawMessage) ID() string                  { return "m-1" }
func (m rawMessage) Topic() string               { return event.VerificationCodeRequestedDestination }
func (m rawMessage) Timestamp() time.Time        { return time.Time{} }
func (m rawMessage) Ack(context.Context) error   { return nil }

func TestMQHandler_VerificationCodeRequested(t *testing.T) {
	t.Run("unparsable body is acknowledged without a delivery", func(t *testing.T) {
		uc := &fakeUsecase{}
		h := &MQHandler{uc: uc, uuid: stubUUID{}, ins: instrument.NewNoop()}

		err := h.VerificationCodeRequested(context.Background(), rawMessage{body: []byte("{not json")})

		require.NoError(t, err)
		assert.Empty(t, uc.snapshot())
	})
}
