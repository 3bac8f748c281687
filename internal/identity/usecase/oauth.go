package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
)

// OAuthProvider is an external OpenID Connect sign-in provider.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*entity.OAuthProfile, error)
}

type OAuthBeginOutput struct {
	URL   string
	State string
}

type OAuthCallbackInput struct {
	Provider string
	Code     string
	State    string
	// ExpectedState is the state handed out by OAuthBegin.
	ExpectedState string
	// Error is the error parameter a provider returns on refusal.
	Error string
}

const maxUsernameSuffix = 1000

func (s *Usecase) oauthProvider(name string) (OAuthProvider, error) {
	p, ok := s.oauth[name]
	if !ok {
		return nil, goerror.NewBusiness("Unknown sign-in provider.", goerror.CodeNotFound)
	}
	return p, nil
}

// OAuthProviders lists the configured provider names in order.
func (s *Usecase) OAuthProviders() []string {
	return slices.Sorted(maps.Keys(s.oauth))
}

// OAuthBegin returns the provider login URL and the state the callback must
// carry back.
func (s *Usecase) OAuthBegin(ctx context.Context, provider string) (*OAuthBeginOutput, error) {
	_, span := s.startSpan(ctx, "OAuthBegin")
	defer span.End()

	p, err := s.oauthProvider(provider)
	if err != nil {
		return nil, err
	}

	state := s.oid.Generate()
	return &OAuthBeginOutput{URL: p.AuthCodeURL(state), State: state}, nil
}

// OAuthCallback finishes an external sign-in. The account is matched by
// email and created on first sign-in with a username derived from the
// profile.
func (s *Usecase) OAuthCallback(ctx context.Context, in OAuthCallbackInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "OAuthCallback")
	defer span.End()

	p, err := s.oauthProvider(in.Provider)
	if err != nil {
		return nil, err
	}

	errFlow := goerror.NewBusiness("Unable to complete the external authentication flow.", goerror.CodeUnauthorized)

	if in.Error != "" {
		slog.WarnContext(ctx, "oauth provider refused sign-in", "provider", in.Provider, "error", in.Error)
		return nil, errFlow
	}

	if in.State == "" || in.ExpectedState == "" ||
		subtle.ConstantTimeCompare([]byte(in.State), []byte(in.ExpectedState)) != 1 {
		slog.WarnContext(ctx, "oauth state not match", "provider", in.Provider)
		return nil, errFlow
	}

	if strings.TrimSpace(in.Code) == "" {
		return nil, errFlow
	}

	profile, err := p.Exchange(ctx, in.Code)
	if err != nil {
		slog.WarnContext(ctx, "failed to exchange oauth code", "provider", in.Provider, "error", err)
		return nil, errFlow
	}

	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		slog.WarnContext(ctx, "oauth profile has no email", "provider", in.Provider)
		return nil, goerror.NewBusiness("External provider did not supply an email address.", goerror.CodeUnauthorized)
	}

	user, err := s.repoDB.GetUserByIdentifier(ctx, email)
	if errors.Is(err, goerror.ErrNotFound) {
		user, err = s.createOAuthUser(ctx, email, profile)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to resolve oauth user", "provider", in.Provider, "error", err)
		return nil, passThrough(err)
	}

	sess, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user signed in with oauth", "user_id", user.ID, "provider", in.Provider)

	return &VerifyOutput{Redirect: user.Redirect(), Session: *sess}, nil
}

// createOAuthUser adds a user without password or phone. A concurrent
// sign-in that created the same email first wins.
func (s *Usecase) createOAuthUser(ctx context.Context, email string, profile *entity.OAuthProfile) (*entity.User, error) {
	display := profile.Name
	if display == "" {
		display = profile.PreferredUsername
	}
	if display == "" {
		display, _, _ = strings.Cut(email, "@")
	}

	username, err := s.uniqueUsername(ctx, entity.UsernameBase(display))
	if err != nil {
		return nil, err
	}

	nu := entity.NewUser{ID: s.uid.Generate(), Username: username, Email: email}
	err = s.repoDB.CreateUser(ctx, nu)
	if errors.Is(err, goerror.ErrConflict) {
		return s.repoDB.GetUserByIdentifier(ctx, email)
	}
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user created from oauth profile", "user_id", nu.ID, "username", username)

	return &entity.User{ID: nu.ID, Username: nu.Username, Email: nu.Email}, nil
}

// uniqueUsername returns base, or base followed by the first free number.
func (s *Usecase) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for suffix := 1; suffix <= maxUsernameSuffix; suffix++ {
		taken, err := s.repoDB.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(suffix)
	}
	return "", goerror.NewBusiness("Unable to create or load a user account.", goerror.CodeConflict)
}
