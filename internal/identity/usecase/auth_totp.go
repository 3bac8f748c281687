package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/mfa"
)

type TOTPLoginInput struct {
	Code string
}

// TOTPLogin signs in the single configured user with an authenticator code.
func (s *Usecase) TOTPLogin(ctx context.Context, in TOTPLoginInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "TOTPLogin")
	defer span.End()

	code := normalizeCode(in.Code)
	if code == "" {
		return nil, goerror.NewBusiness("Authenticator code is required.", goerror.CodeInvalidFormat)
	}

	if s.demoEnabled() {
		return s.demoLogin(ctx, code)
	}

	user, err := s.repoDB.GetFirstUser(ctx)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "no user configured")
		return nil, goerror.NewBusinessReason("No user configured. Set up the authenticator first.", goerror.CodeNotFound, entity.ReasonAccountNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get first user", "error", err)
		return nil, goerror.NewServer(err)
	}

	if !user.HasTOTP() {
		slog.WarnContext(ctx, "authenticator not configured", "user_id", user.ID)
		return nil, goerror.NewBusinessReason("Authenticator not configured. Open the account page to set it up.", goerror.CodeConflict, entity.ReasonTOTPNotConfigured)
	}

	secret, err := s.mfaEncryptor.Decrypt(user.TOTPSecret, mfa.Scope{UserID: user.ID, Purpose: mfa.PurposeTOTPSecret})
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt totp secret", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.totp.Validate(code, string(secret), s.clock.Now()) {
		slog.WarnContext(ctx, "authenticator code not match", "user_id", user.ID)
		return nil, goerror.NewBusiness("Invalid authenticator code.", goerror.CodeUnauthorized)
	}

	sess, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	return &VerifyOutput{Redirect: user.Redirect(), Session: *sess}, nil
}

func (s *Usecase) demoEnabled() bool {
	return s.cfg.GetBool("modules.identity.demo.enabled")
}

// demoLogin accepts the configured demo code and creates the admin user on
// first use.
func (s *Usecase) demoLogin(ctx context.Context, code string) (*VerifyOutput, error) {
	if code != strings.TrimSpace(s.cfg.GetString("modules.identity.demo.code")) {
		slog.WarnContext(ctx, "demo code not match")
		return nil, goerror.NewBusiness("Invalid demo code.", goerror.CodeUnauthorized)
	}

	user, err := s.repoDB.GetFirstUser(ctx)
	if errors.Is(err, goerror.ErrNotFound) {
		user, err = s.createAdmin(ctx, nil)
		if errors.Is(err, goerror.ErrConflict) {
			user, err = s.repoDB.GetFirstUser(ctx)
		}
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to resolve demo user", "error", err)
		return nil, goerror.NewServer(err)
	}

	sess, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	return &VerifyOutput{Redirect: entity.RedirectApp, Session: *sess}, nil
}

// createAdmin inserts the setup admin with an optional plaintext secret
// that is sealed to the new user's ID.
func (s *Usecase) createAdmin(ctx context.Context, secret []byte) (*entity.User, error) {
	id := s.uid.Generate()

	var sealed []byte
	if len(secret) > 0 {
		var err error
		sealed, err = s.mfaEncryptor.Encrypt(secret, mfa.Scope{UserID: id, Purpose: mfa.PurposeTOTPSecret})
		if err != nil {
			return nil, err
		}
	}

	nu := entity.NewUser{
		ID:         id,
		Username:   s.cfg.GetString("modules.identity.default_admin_username"),
		IsAdmin:    true,
		TOTPSecret: sealed,
	}
	if err := s.repoDB.CreateUser(ctx, nu); err != nil {
		return nil, err
	}

	s.grantAdmin(ctx, id)
	slog.InfoContext(ctx, "admin user created", "user_id", id)

	return &entity.User{ID: id, Username: nu.Username, IsAdmin: true, TOTPSecret: sealed}, nil
}
