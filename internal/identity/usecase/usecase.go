package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/clock"
	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/hash"
	"github.com/shandysiswandi/taskdeck/internal/pkg/idempotency"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
	"github.com/shandysiswandi/taskdeck/internal/pkg/mfa"
	"github.com/shandysiswandi/taskdeck/internal/pkg/otp"
	"github.com/shandysiswandi/taskdeck/internal/pkg/uid"
	"github.com/shandysiswandi/taskdeck/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

// RoleAdmin is the casbin role granted to the first user.
const RoleAdmin = "admin"

type VerificationCodeRequestedEvent struct {
	UserID      int64
	PhoneNumber string
	CountryCode string
	PhoneHint   string
	Code        string
	Channel     entity.Channel
}

type repoMessaging interface {
	PublishVerificationCodeRequested(ctx context.Context, msg VerificationCodeRequestedEvent) error
}

type repoDB interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (*entity.User, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	GetFirstUser(ctx context.Context) (*entity.User, error)
	CountUsers(ctx context.Context) (int64, error)
	ListAdminIDs(ctx context.Context) ([]int64, error)

	UsernameTaken(ctx context.Context, username string) (bool, error)

	CreateUser(ctx context.Context, user entity.NewUser) error
	UpdateAccount(ctx context.Context, upd entity.AccountUpdate) error
}

type repoCache interface {
	SavePendingLogin(ctx context.Context, key string, p entity.PendingLogin, ttl time.Duration) error
	GetPendingLogin(ctx context.Context, key string) (*entity.PendingLogin, error)
	UpdatePendingLogin(ctx context.Context, key string, p entity.PendingLogin) error
	DeletePendingLogin(ctx context.Context, key string) error

	SaveSetupSession(ctx context.Context, key string, s entity.SetupSession, ttl time.Duration) error
	GetSetupSession(ctx context.Context, key string) (*entity.SetupSession, error)
	DeleteSetupSession(ctx context.Context, key string) error

	SaveAccountSetup(ctx context.Context, userID int64, s entity.SetupSession, ttl time.Duration) error
	GetAccountSetup(ctx context.Context, userID int64) (*entity.SetupSession, error)
	DeleteAccountSetup(ctx context.Context, userID int64) error
}

type enforcer interface {
	Enforce(rvals ...any) (bool, error)
	AddRoleForUser(user string, role string, domain ...string) (bool, error)
}

type Usecase struct {
	repoDB        repoDB
	repoCache     repoCache
	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	bcrypt        hash.Hash
	argon2id      hash.Hash
	mfaEncryptor  mfa.Encryptor
	uid           uid.NumberID
	oid           uid.StringID
	totp          otp.OTP
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	enforcer      enforcer
	oauth         map[string]OAuthProvider

	dummyOnce sync.Once
	dummyHash string
}

type Dependency struct {
	RepoDB        repoDB
	RepoCache     repoCache
	RepoMessaging repoMessaging
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	Bcrypt        hash.Hash
	Argon2ID      hash.Hash
	MFAEncryptor  mfa.Encryptor
	UID           uid.NumberID
	OID           uid.StringID
	Totp          otp.OTP
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Enforcer      enforcer
	OAuth         map[string]OAuthProvider
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoCache:     dep.RepoCache,
		repoMessaging: dep.RepoMessaging,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		bcrypt:        dep.Bcrypt,
		argon2id:      dep.Argon2ID,
		mfaEncryptor:  dep.MFAEncryptor,
		uid:           dep.UID,
		oid:           dep.OID,
		totp:          dep.Totp,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
		oauth:         dep.OAuth,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

// lookupKey derives the cache key of a bearer secret handed to a client.
func (s *Usecase) lookupKey(secret string) (string, error) {
	h, err := s.hmac.Hash(secret)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// dummyPasswordHash is checked when no password can match, so a missing
// account costs as much as a wrong password.
func (s *Usecase) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.bcrypt.Hash("taskdeck-no-such-account")
		if err == nil {
			s.dummyHash = string(h)
		}
	})
	return s.dummyHash
}

func (s *Usecase) issueSession(ctx context.Context, user *entity.User) (*entity.Session, error) {
	token, err := s.jwt.Generate(user.ID, user.Username)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate session token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &entity.Session{Token: token, ExpiresAt: s.clock.Now().Add(s.jwt.TTL())}, nil
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	sub := strconv.FormatInt(clm.UserID, 10)
	ok, err := s.enforcer.Enforce(sub, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		return nil, goerror.NewBusiness("You are not allowed to perform this action", goerror.CodeForbidden)
	}

	return clm, nil
}

func (s *Usecase) grantAdmin(ctx context.Context, userID int64) {
	if _, err := s.enforcer.AddRoleForUser(strconv.FormatInt(userID, 10), RoleAdmin); err != nil {
		slog.ErrorContext(ctx, "failed to grant admin role", "user_id", userID, "error", err)
	}
}

// SyncRoles grants the admin role to every admin user. Roles granted at
// creation can be lost when the policy store was unavailable.
func (s *Usecase) SyncRoles(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "SyncRoles")
	defer span.End()

	ids, err := s.repoDB.ListAdminIDs(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list admin ids", "error", err)
		return err
	}

	for _, id := range ids {
		s.grantAdmin(ctx, id)
	}

	return nil
}

// passThrough keeps typed errors from an inner step and hides the rest.
func passThrough(err error) error {
	var gerr *goerror.Error
	if errors.As(err, &gerr) {
		return err
	}
	return goerror.NewServer(err)
}

func normalizeCode(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), " ", "")
}
