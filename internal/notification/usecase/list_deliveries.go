package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/taskdeck/internal/notification/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
)

type ListDeliveriesInput struct {
	UserID int64 `validate:"gte=0"`
	Limit  int32 `validate:"gte=0,lte=100"`
	Offset int32 `validate:"gte=0"`
}

// ListDeliveries returns recent code deliveries, newest first.
func (s *Usecase) ListDeliveries(ctx context.Context, in ListDeliveriesInput) ([]entity.Delivery, error) {
	ctx, span := s.startSpan(ctx, "ListDeliveries")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if in.Limit == 0 {
		in.Limit = 20
	}

	items, err := s.repoDB.ListDeliveries(ctx, in.UserID, in.Limit, in.Offset)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list deliveries", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}
