package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/notification/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/sms"
	"github.com/shandysiswandi/taskdeck/internal/pkg/uid"
	"github.com/shandysiswandi/taskdeck/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 200 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
)

type repoDB interface {
	CreateDelivery(ctx context.Context, d entity.CreateDelivery) error
	UpdateDelivery(ctx context.Context, u entity.UpdateDelivery) error
	ListDeliveries(ctx context.Context, userID int64, limit, offset int32) ([]entity.Delivery, error)
}

type repoSender interface {
	Message(ctx context.Context, msg sms.Message) (sms.Receipt, error)
	Call(ctx context.Context, call sms.Call) (sms.Receipt, error)
}

type Usecase struct {
	repoDB     repoDB
	repoSender repoSender
	cfg        config.Config
	uid        uid.NumberID
	validator  validator.Validator
	ins        instrument.Instrumentation
}

type Dependency struct {
	RepoDB     repoDB
	RepoSender repoSender
	Config     config.Config
	UID        uid.NumberID
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:     dep.RepoDB,
		repoSender: dep.RepoSender,
		cfg:        dep.Config,
		uid:        dep.UID,
		validator:  dep.Validator,
		ins:        dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

func (s *Usecase) retryPolicy() (attempts int, base, maxDelay time.Duration) {
	attempts = s.cfg.GetInt("modules.notification.retry.max_attempts")
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	base = time.Duration(s.cfg.GetInt64("modules.notification.retry.base_delay_ms")) * time.Millisecond
	if base <= 0 {
		base = defaultBaseDelay
	}

	maxDelay = s.cfg.GetSecond("modules.notification.retry.max_delay_seconds")
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	return attempts, base, maxDelay
}
