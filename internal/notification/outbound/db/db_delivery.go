package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/taskdeck/internal/notification/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/valueobject"
)

func (s *DB) CreateDelivery(ctx context.Context, d entity.CreateDelivery) (err error) {
	ctx, span := s.startSpan(ctx, "CreateDelivery")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO notification_deliveries (id, user_id, channel, phone_hint, status, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.UserID, d.Channel.String(), d.PhoneHint, entity.DeliveryStatusProcessing.String(), d.CorrelationID)
	return s.mapError(err)
}

func (s *DB) UpdateDelivery(ctx context.Context, u entity.UpdateDelivery) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateDelivery")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`UPDATE notification_deliveries
		SET status = $2, attempts = $3, provider_ref = $4, provider_response = $5, updated_at = now()
		WHERE id = $1`,
		u.ID, u.Status.String(), u.Attempts, u.ProviderRef, u.ProviderResponse)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

// ListDeliveries returns the newest deliveries first. A zero userID lists
// every user.
func (s *DB) ListDeliveries(ctx context.Context, userID int64, limit, offset int32) (_ []entity.Delivery, err error) {
	ctx, span := s.startSpan(ctx, "ListDeliveries")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx,
		`SELECT id, user_id, channel, phone_hint, status, attempts, provider_ref, provider_response,
			correlation_id, created_at, updated_at
		FROM notification_deliveries
		WHERE $1::bigint = 0 OR user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, s.mapError(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Delivery, error) {
		var (
			d               entity.Delivery
			channel, status string
			resp            valueobject.JSONMap
		)
		if err := row.Scan(&d.ID, &d.UserID, &channel, &d.PhoneHint, &status, &d.Attempts, &d.ProviderRef,
			&resp, &d.CorrelationID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return d, err
		}
		d.Channel = entity.ChannelFromString(channel)
		d.Status = entity.DeliveryStatusFromString(status)
		d.ProviderResponse = resp
		return d, nil
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return out, nil
}
