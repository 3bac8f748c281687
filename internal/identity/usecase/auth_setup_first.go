package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/mfa"
)

type SetupFirstBeginOutput struct {
	SetupID         string
	Secret          string
	ProvisioningURI string
	ExpiresAt       time.Time
}

type SetupFirstInput struct {
	SetupID string
	Code    string
}

func errUserExists() error {
	return goerror.NewBusiness("User already exists.", goerror.CodeConflict)
}

func (s *Usecase) ensureNoUser(ctx context.Context) error {
	count, err := s.repoDB.CountUsers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count users", "error", err)
		return goerror.NewServer(err)
	}
	if count > 0 {
		slog.WarnContext(ctx, "setup requested but a user exists", "count", count)
		return errUserExists()
	}
	return nil
}

// SetupFirstBegin generates the authenticator secret of the first user and
// parks it until SetupFirst confirms a code. SetupID binds the two calls.
func (s *Usecase) SetupFirstBegin(ctx context.Context) (*SetupFirstBeginOutput, error) {
	ctx, span := s.startSpan(ctx, "SetupFirstBegin")
	defer span.End()

	if err := s.ensureNoUser(ctx); err != nil {
		return nil, err
	}

	secret, uri, err := s.totp.Generate(s.cfg.GetString("modules.identity.default_admin_username"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate totp secret", "error", err)
		return nil, goerror.NewServer(err)
	}

	sealed, err := s.mfaEncryptor.Encrypt([]byte(secret), mfa.Scope{Purpose: mfa.PurposeSetupSecret})
	if err != nil {
		slog.ErrorContext(ctx, "failed to encrypt setup secret", "error", err)
		return nil, goerror.NewServer(err)
	}

	setupID := s.oid.Generate()
	key, err := s.lookupKey(setupID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash setup id", "error", err)
		return nil, goerror.NewServer(err)
	}

	ttl := s.cfg.GetMinute("modules.identity.setup_ttl_minutes")
	expiresAt := s.clock.Now().Add(ttl)
	if err := s.repoCache.SaveSetupSession(ctx, key, entity.SetupSession{Secret: sealed, ExpiresAt: expiresAt}, ttl); err != nil {
		slog.ErrorContext(ctx, "failed to repo save setup session", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &SetupFirstBeginOutput{
		SetupID:         setupID,
		Secret:          secret,
		ProvisioningURI: uri,
		ExpiresAt:       expiresAt,
	}, nil
}

// SetupFirst creates the admin user once the pending secret is confirmed
// and signs it in.
func (s *Usecase) SetupFirst(ctx context.Context, in SetupFirstInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "SetupFirst")
	defer span.End()

	code := normalizeCode(in.Code)

	if s.demoEnabled() {
		return s.demoLogin(ctx, code)
	}

	if err := s.ensureNoUser(ctx); err != nil {
		return nil, err
	}

	errNotStarted := goerror.NewBusinessReason("Setup not started. Fetch a setup secret first.", goerror.CodeConflict, entity.ReasonSetupNotStarted)
	if in.SetupID == "" {
		return nil, errNotStarted
	}

	key, err := s.lookupKey(in.SetupID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash setup id", "error", err)
		return nil, goerror.NewServer(err)
	}

	setup, err := s.repoCache.GetSetupSession(ctx, key)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "setup session not found")
		return nil, errNotStarted
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get setup session", "error", err)
		return nil, goerror.NewServer(err)
	}

	if code == "" {
		return nil, goerror.NewBusiness("Enter the authenticator code from your app.", goerror.CodeInvalidFormat)
	}

	secret, err := s.mfaEncryptor.Decrypt(setup.Secret, mfa.Scope{Purpose: mfa.PurposeSetupSecret})
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt setup secret", "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.totp.Validate(code, string(secret), s.clock.Now()) {
		slog.WarnContext(ctx, "authenticator code not match during setup")
		return nil, goerror.NewBusiness("Invalid authenticator code.", goerror.CodeUnauthorized)
	}

	user, err := s.createAdmin(ctx, secret)
	if errors.Is(err, goerror.ErrConflict) {
		return nil, errUserExists()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to create admin user", "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoCache.DeleteSetupSession(ctx, key); err != nil {
		slog.ErrorContext(ctx, "failed to repo delete setup session", "user_id", user.ID, "error", err)
	}

	sess, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	return &VerifyOutput{Redirect: entity.RedirectApp, Session: *sess}, nil
}
