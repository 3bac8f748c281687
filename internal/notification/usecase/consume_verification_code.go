package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/taskdeck/internal/notification/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/sms"
	"github.com/shandysiswandi/taskdeck/internal/pkg/valueobject"
)

const textTemplate = "Your Taskdeck verification code is %s"

type ConsumeVerificationCodeInput struct {
	UserID      int64  `validate:"required,gt=0"`
	PhoneNumber string `validate:"required"`
	CountryCode string
	PhoneHint   string
	Code        string `validate:"required,numeric"`
	Channel     string
}

// ConsumeVerificationCode delivers a sign-in code by SMS or voice call.
// Transient provider failures are retried with exponential backoff. An
// undeliverable code is logged and dropped: the user can ask for a new one.
func (s *Usecase) ConsumeVerificationCode(ctx context.Context, in ConsumeVerificationCodeInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeVerificationCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "user_id", in.UserID, "error", err)
		return nil
	}

	to := entity.E164(in.CountryCode, in.PhoneNumber)
	if to == "" {
		slog.ErrorContext(ctx, "phone number has no digits", "user_id", in.UserID)
		return nil
	}

	ch := entity.ChannelFromString(in.Channel)
	if ch == entity.ChannelUnknown {
		ch = entity.ChannelSMS
	}

	deliveryID := s.uid.Generate()
	if err := s.repoDB.CreateDelivery(ctx, entity.CreateDelivery{
		ID:            deliveryID,
		UserID:        in.UserID,
		Channel:       ch,
		PhoneHint:     in.PhoneHint,
		CorrelationID: instrument.GetCorrelationID(ctx),
	}); err != nil {
		slog.WarnContext(ctx, "failed to repo create delivery", "user_id", in.UserID, "error", err)
		deliveryID = 0
	}

	maxAttempts, base, maxDelay := s.retryPolicy()
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(maxDelay, b)
	b = retry.WithMaxRetries(uint64(maxAttempts-1), b)

	var (
		attempts int
		receipt  sms.Receipt
	)
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++

		var sErr error
		receipt, sErr = s.send(ctx, ch, to, in.Code)
		if sErr == nil {
			return nil
		}

		if sms.IsTransient(sErr) {
			slog.WarnContext(ctx, "transient delivery failure", "user_id", in.UserID, "attempt", attempts, "error", sErr)
			return retry.RetryableError(sErr)
		}
		return sErr
	})

	update := entity.UpdateDelivery{ID: deliveryID, Attempts: attempts}
	if err != nil {
		update.Status = entity.DeliveryStatusFailed
		update.ProviderResponse = valueobject.JSONMap{"error": err.Error()}
		slog.ErrorContext(ctx, "failed to deliver verification code",
			"user_id", in.UserID, "channel", ch.String(), "attempts", attempts, "error", err)
	} else {
		update.Status = entity.DeliveryStatusSent
		update.ProviderRef = receipt.ID
		update.ProviderResponse = valueobject.JSONMap{"status": receipt.Status}
		slog.InfoContext(ctx, "verification code delivered",
			"user_id", in.UserID, "channel", ch.String(), "attempts", attempts, "provider_ref", receipt.ID)
	}

	if deliveryID != 0 {
		if uErr := s.repoDB.UpdateDelivery(ctx, update); uErr != nil {
			slog.WarnContext(ctx, "failed to repo update delivery", "delivery_id", deliveryID, "error", uErr)
		}
	}

	// a shutdown interrupted the delivery, let the broker hand it out again
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return nil
}

func (s *Usecase) send(ctx context.Context, ch entity.Channel, to, code string) (sms.Receipt, error) {
	if ch == entity.ChannelCall {
		spoken := entity.SpokenDigits(code)
		return s.repoSender.Call(ctx, sms.Call{
			To:  to,
			Say: fmt.Sprintf(textTemplate+". Again, %s.", spoken, spoken),
		})
	}

	return s.repoSender.Message(ctx, sms.Message{To: to, Body: fmt.Sprintf(textTemplate, code)})
}
