package inbound

import (
	"strconv"

	"github.com/samber/lo"
	"github.com/shandysiswandi/taskdeck/internal/notification/entity"
	"github.com/shandysiswandi/taskdeck/internal/notification/usecase"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// ListDeliveries supports ?user_id=&limit=&offset=.
func (h *HTTPEndpoint) ListDeliveries(r *router.Request) (any, error) {
	var userID int64
	if raw := r.GetQuery("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, goerror.NewInvalidFormat("Invalid query user_id")
		}
		userID = id
	}

	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}

	offset, err := r.GetQueryInt32("offset")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListDeliveries(r.Context(), usecase.ListDeliveriesInput{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	return ListDeliveriesResponse{
		Items: lo.Map(items, func(d entity.Delivery, _ int) DeliveryResponse {
			return DeliveryResponse{
				ID:          d.ID,
				UserID:      d.UserID,
				Channel:     d.Channel.String(),
				PhoneHint:   d.PhoneHint,
				Status:      d.Status.String(),
				Attempts:    d.Attempts,
				ProviderRef: d.ProviderRef,
				CreatedAt:   d.CreatedAt,
				UpdatedAt:   d.UpdatedAt,
			}
		}),
		limit:  limit,
		offset: offset,
	}, nil
}
