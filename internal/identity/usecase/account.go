package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
	"github.com/shandysiswandi/taskdeck/internal/pkg/mfa"
)

type AccountOutput struct {
	ID                    int64
	Username              string
	Email                 string
	PhoneHint             string
	MustUpdateCredentials bool
	// TOTPSetupRequired is set while the user has no authenticator. Secret
	// and ProvisioningURI then carry the one to enroll.
	TOTPSetupRequired bool
	Secret            string
	ProvisioningURI   string
}

type AccountUpdateInput struct {
	Username        string `validate:"required,username"`
	Email           string `validate:"omitempty,email"`
	Password        string `validate:"omitempty,min=8,max=72"`
	ConfirmPassword string
	TOTPCode        string
}

// sessionUser loads the user behind the session. A session whose user is
// gone counts as no session.
func (s *Usecase) sessionUser(ctx context.Context) (*entity.User, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	user, err := s.repoDB.GetUserByID(ctx, clm.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "session user not found", "user_id", clm.UserID)
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return user, nil
}

func (s *Usecase) totpSetupRequired(user *entity.User) bool {
	return !s.demoEnabled() && !user.HasTOTP()
}

// Account shows the signed-in user's credentials. A user without an
// authenticator is offered a secret, the same one until it expires.
func (s *Usecase) Account(ctx context.Context) (*AccountOutput, error) {
	ctx, span := s.startSpan(ctx, "Account")
	defer span.End()

	user, err := s.sessionUser(ctx)
	if err != nil {
		return nil, err
	}

	out := &AccountOutput{
		ID:                    user.ID,
		Username:              user.Username,
		Email:                 user.Email,
		PhoneHint:             entity.PhoneHint(user.CountryCode, user.PhoneNumber),
		MustUpdateCredentials: user.MustUpdateCredentials,
		TOTPSetupRequired:     s.totpSetupRequired(user),
	}

	if !out.TOTPSetupRequired {
		if err := s.repoCache.DeleteAccountSetup(ctx, user.ID); err != nil {
			slog.WarnContext(ctx, "failed to repo delete account setup", "user_id", user.ID, "error", err)
		}
		return out, nil
	}

	setup, secret, err := s.accountSetup(ctx, user)
	if err != nil {
		return nil, err
	}

	out.Secret = secret
	out.ProvisioningURI = setup.ProvisioningURI

	return out, nil
}

// accountSetup returns the pending authenticator secret of user, creating
// one when none is parked.
func (s *Usecase) accountSetup(ctx context.Context, user *entity.User) (*entity.SetupSession, string, error) {
	scope := mfa.Scope{UserID: user.ID, Purpose: mfa.PurposeSetupSecret}

	setup, err := s.repoCache.GetAccountSetup(ctx, user.ID)
	if err == nil {
		secret, dErr := s.mfaEncryptor.Decrypt(setup.Secret, scope)
		if dErr != nil {
			slog.ErrorContext(ctx, "failed to decrypt account setup secret", "user_id", user.ID, "error", dErr)
			return nil, "", goerror.NewServer(dErr)
		}
		return setup, string(secret), nil
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get account setup", "user_id", user.ID, "error", err)
		return nil, "", goerror.NewServer(err)
	}

	label := user.Email
	if label == "" {
		label = user.Username
	}

	secret, uri, err := s.totp.Generate(label)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate totp secret", "user_id", user.ID, "error", err)
		return nil, "", goerror.NewServer(err)
	}

	sealed, err := s.mfaEncryptor.Encrypt([]byte(secret), scope)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encrypt account setup secret", "user_id", user.ID, "error", err)
		return nil, "", goerror.NewServer(err)
	}

	ttl := s.cfg.GetMinute("modules.identity.setup_ttl_minutes")
	setup = &entity.SetupSession{Secret: sealed, ProvisioningURI: uri, ExpiresAt: s.clock.Now().Add(ttl)}
	if err := s.repoCache.SaveAccountSetup(ctx, user.ID, *setup, ttl); err != nil {
		slog.ErrorContext(ctx, "failed to repo save account setup", "user_id", user.ID, "error", err)
		return nil, "", goerror.NewServer(err)
	}

	return setup, secret, nil
}

// AccountUpdate changes the signed-in user's credentials and clears the
// forced update. A user without an authenticator must confirm the offered
// secret with a code in the same request. The session is reissued because
// it carries the username.
func (s *Usecase) AccountUpdate(ctx context.Context, in AccountUpdateInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "AccountUpdate")
	defer span.End()

	user, err := s.sessionUser(ctx)
	if err != nil {
		return nil, err
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if in.Password != "" && in.Password != in.ConfirmPassword {
		return nil, goerror.NewInvalidInput(nil, "confirm_password", "Passwords do not match.")
	}

	if user.MustUpdateCredentials && strings.EqualFold(in.Username, user.Username) && in.Password == "" {
		return nil, goerror.NewBusiness("You must change the username or password before continuing.", goerror.CodeInvalidFormat)
	}

	upd := entity.AccountUpdate{ID: user.ID, Username: in.Username, Email: in.Email}

	if s.totpSetupRequired(user) {
		upd.TOTPSecret, err = s.confirmAccountSetup(ctx, user, normalizeCode(in.TOTPCode))
		if err != nil {
			return nil, err
		}
	}

	if in.Password != "" {
		passHash, err := s.bcrypt.Hash(in.Password)
		if err != nil {
			slog.ErrorContext(ctx, "failed to hash password", "user_id", user.ID, "error", err)
			return nil, goerror.NewServer(err)
		}
		upd.PasswordHash = string(passHash)
	}

	err = s.repoDB.UpdateAccount(ctx, upd)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "account username or email taken", "user_id", user.ID)
		return nil, goerror.NewBusiness("That username or email is already in use.", goerror.CodeConflict)
	}
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo update account", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoCache.DeleteAccountSetup(ctx, user.ID); err != nil {
		slog.WarnContext(ctx, "failed to repo delete account setup", "user_id", user.ID, "error", err)
	}

	slog.InfoContext(ctx, "account updated", "user_id", user.ID,
		"password_changed", upd.PasswordHash != "", "totp_enrolled", upd.TOTPSecret != nil)

	user.Username = upd.Username
	sess, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	return &VerifyOutput{Redirect: entity.RedirectApp, Session: *sess}, nil
}

// confirmAccountSetup checks code against the pending secret and returns
// the secret sealed for storage.
func (s *Usecase) confirmAccountSetup(ctx context.Context, user *entity.User, code string) ([]byte, error) {
	setup, err := s.repoCache.GetAccountSetup(ctx, user.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusinessReason("Authenticator setup not started. Reload the account page.", goerror.CodeConflict, entity.ReasonSetupNotStarted)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account setup", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if code == "" {
		return nil, goerror.NewBusiness("Enter the authenticator code from your authenticator app.", goerror.CodeInvalidFormat)
	}

	secret, err := s.mfaEncryptor.Decrypt(setup.Secret, mfa.Scope{UserID: user.ID, Purpose: mfa.PurposeSetupSecret})
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt account setup secret", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.totp.Validate(code, string(secret), s.clock.Now()) {
		slog.WarnContext(ctx, "authenticator code not match on account page", "user_id", user.ID)
		return nil, goerror.NewBusiness("Invalid authenticator code.", goerror.CodeUnauthorized)
	}

	sealed, err := s.mfaEncryptor.Encrypt(secret, mfa.Scope{UserID: user.ID, Purpose: mfa.PurposeTOTPSecret})
	if err != nil {
		slog.ErrorContext(ctx, "failed to encrypt totp secret", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return sealed, nil
}
