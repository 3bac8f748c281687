package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
)

type StartInput struct {
	Identifier string `validate:"required"`
	Password   string `validate:"required"`
}

type StartOutput struct {
	Token     string
	PhoneHint string
}

// Start checks credentials and sends a one-time code to the user's phone.
// The returned token identifies the pending login.
func (s *Usecase) Start(ctx context.Context, in StartInput) (*StartOutput, error) {
	ctx, span := s.startSpan(ctx, "Start")
	defer span.End()

	if !s.cfg.GetBool("modules.identity.password_login.enabled") {
		return nil, goerror.NewBusiness("Password login is disabled. Use TOTP-only login.", goerror.CodeInvalidFormat)
	}

	in.Identifier = strings.TrimSpace(in.Identifier)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoDB.GetUserByIdentifier(ctx, in.Identifier)
	if errors.Is(err, goerror.ErrNotFound) {
		s.bcrypt.Verify(s.dummyPasswordHash(), in.Password)
		slog.WarnContext(ctx, "user account not found", "identifier", in.Identifier)
		return nil, goerror.NewBusiness("Invalid credentials", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by identifier", "identifier", in.Identifier, "error", err)
		return nil, goerror.NewServer(err)
	}

	hashed := user.PasswordHash
	if hashed == "" {
		hashed = s.dummyPasswordHash()
	}
	if !s.bcrypt.Verify(hashed, in.Password) || user.PasswordHash == "" {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return nil, goerror.NewBusiness("Invalid credentials", goerror.CodeUnauthorized)
	}

	if !user.HasPhone() {
		slog.WarnContext(ctx, "user account has no phone number", "user_id", user.ID)
		return nil, goerror.NewBusiness("No phone number on file for this account.", goerror.CodeConflict)
	}

	code, err := s.totp.RandomCode()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate verification code", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.argon2id.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash verification code", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	token := s.oid.Generate()
	key, err := s.lookupKey(token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash pending token", "error", err)
		return nil, goerror.NewServer(err)
	}

	ttl := s.cfg.GetMinute("modules.identity.verification_ttl_minutes")
	pending := entity.PendingLogin{
		UserID:    user.ID,
		CodeHash:  string(codeHash),
		PhoneHint: entity.PhoneHint(user.CountryCode, user.PhoneNumber),
		Channel:   entity.ChannelFromString(s.cfg.GetString("modules.identity.delivery_channel")),
		ExpiresAt: s.clock.Now().Add(ttl),
	}

	// kept past expires_at so a late verify still reports expiry
	if err := s.repoCache.SavePendingLogin(ctx, key, pending, 2*ttl); err != nil {
		slog.ErrorContext(ctx, "failed to repo save pending login", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoMessaging.PublishVerificationCodeRequested(ctx, VerificationCodeRequestedEvent{
		UserID:      user.ID,
		PhoneNumber: user.PhoneNumber,
		CountryCode: user.CountryCode,
		PhoneHint:   pending.PhoneHint,
		Code:        code,
		Channel:     pending.Channel,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish verification code", "user_id", user.ID, "error", err)
		if dErr := s.repoCache.DeletePendingLogin(ctx, key); dErr != nil {
			slog.ErrorContext(ctx, "failed to repo delete pending login", "user_id", user.ID, "error", dErr)
		}
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "verification code requested", "user_id", user.ID, "channel", pending.Channel.String())

	return &StartOutput{Token: token, PhoneHint: pending.PhoneHint}, nil
}
