package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/idempotency"
)

type VerifyInput struct {
	Token string `validate:"required"`
	Code  string `validate:"required"`
}

type VerifyOutput struct {
	Redirect string
	Session  entity.Session
}

func errVerificationExpired() error {
	return goerror.NewBusinessReason("Verification expired. Start again.", goerror.CodeGone, entity.ReasonVerificationExpired)
}

// Verify exchanges a pending token and its code for a session. Concurrent
// submissions for one token are rejected while the first is running.
func (s *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	in.Code = normalizeCode(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	key, err := s.lookupKey(in.Token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash pending token", "error", err)
		return nil, goerror.NewServer(err)
	}

	var out *VerifyOutput
	lock := s.cfg.GetSecond("modules.identity.verify_lock_seconds")
	err = s.idemp.Guard(ctx, "identity:verify:"+key, lock, func(ctx context.Context) error {
		var gErr error
		out, gErr = s.verify(ctx, key, in.Code)
		return gErr
	})
	if errors.Is(err, idempotency.ErrAlreadyInProgress) {
		slog.WarnContext(ctx, "verification already in progress")
		return nil, goerror.NewBusiness("Verification already in progress", goerror.CodeConflict)
	}
	if err != nil {
		return nil, passThrough(err)
	}

	return out, nil
}

func (s *Usecase) verify(ctx context.Context, key, code string) (*VerifyOutput, error) {
	pending, err := s.repoCache.GetPendingLogin(ctx, key)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "pending login not found")
		return nil, errVerificationExpired()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get pending login", "error", err)
		return nil, goerror.NewServer(err)
	}

	maxAttempts := s.cfg.GetInt("modules.identity.max_verify_attempts")
	if pending.Expired(s.clock.Now(), maxAttempts) {
		slog.WarnContext(ctx, "pending login expired", "user_id", pending.UserID, "attempts", pending.Attempts)
		s.consumePending(ctx, key, pending.UserID)
		return nil, errVerificationExpired()
	}

	if !s.argon2id.Verify(pending.CodeHash, code) {
		pending.Attempts++
		slog.WarnContext(ctx, "verification code not match", "user_id", pending.UserID, "attempts", pending.Attempts)

		if maxAttempts > 0 && pending.Attempts >= maxAttempts {
			s.consumePending(ctx, key, pending.UserID)
		} else if err := s.repoCache.UpdatePendingLogin(ctx, key, *pending); err != nil {
			slog.ErrorContext(ctx, "failed to repo update pending login", "user_id", pending.UserID, "error", err)
			return nil, goerror.NewServer(err)
		}

		return nil, goerror.NewBusiness("Invalid code", goerror.CodeUnauthorized)
	}

	if err := s.repoCache.DeletePendingLogin(ctx, key); err != nil {
		slog.ErrorContext(ctx, "failed to repo delete pending login", "user_id", pending.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	user, err := s.repoDB.GetUserByID(ctx, pending.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "user_id", pending.UserID)
		return nil, errVerificationExpired()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", pending.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	sess, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	return &VerifyOutput{Redirect: user.Redirect(), Session: *sess}, nil
}

func (s *Usecase) consumePending(ctx context.Context, key string, userID int64) {
	if err := s.repoCache.DeletePendingLogin(ctx, key); err != nil {
		slog.ErrorContext(ctx, "failed to repo delete pending login", "user_id", userID, "error", err)
	}
}
