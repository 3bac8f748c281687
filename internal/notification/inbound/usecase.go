package inbound

import (
	"context"

	"github.com/shandysiswandi/taskdeck/internal/notification/entity"
	"github.com/shandysiswandi/taskdeck/internal/notification/usecase"
)

type ucConsumer interface {
	ConsumeVerificationCode(ctx context.Context, in usecase.ConsumeVerificationCodeInput) error
}

type uc interface {
	ucConsumer

	ListDeliveries(ctx context.Context, in usecase.ListDeliveriesInput) ([]entity.Delivery, error)
}
