package identity

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/taskdeck/internal/identity/inbound"
	"github.com/shandysiswandi/taskdeck/internal/identity/outbound/cache"
	"github.com/shandysiswandi/taskdeck/internal/identity/outbound/db"
	"github.com/shandysiswandi/taskdeck/internal/identity/outbound/mq"
	"github.com/shandysiswandi/taskdeck/internal/identity/outbound/oauth"
	"github.com/shandysiswandi/taskdeck/internal/identity/usecase"
	"github.com/shandysiswandi/taskdeck/internal/pkg/clock"
	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/hash"
	"github.com/shandysiswandi/taskdeck/internal/pkg/idempotency"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
	"github.com/shandysiswandi/taskdeck/internal/pkg/messaging"
	"github.com/shandysiswandi/taskdeck/internal/pkg/mfa"
	"github.com/shandysiswandi/taskdeck/internal/pkg/otp"
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
	"github.com/shandysiswandi/taskdeck/internal/pkg/uid"
	"github.com/shandysiswandi/taskdeck/internal/pkg/validator"
)

// PublicRoutes must be handed to router.NewRouter so sign-in works without
// a session.
var PublicRoutes = inbound.PublicRoutes

// Enforcer is the subset of *casbin.SyncedEnforcer the module needs.
type Enforcer interface {
	Enforce(rvals ...any) (bool, error)
	AddRoleForUser(user string, role string, domain ...string) (bool, error)
}

type Dependency struct {
	Ctx          context.Context            `validate:"required"`
	DBConn       *pgxpool.Pool              `validate:"required"`
	CacheConn    redis.UniversalClient      `validate:"required"`
	Enforcer     Enforcer                   `validate:"required"`
	Router       *router.Router             `validate:"required"`
	Idempotency  idempotency.Idempotency    `validate:"required"`
	Messaging    messaging.Publisher        `validate:"required"`
	Config       config.Config              `validate:"required"`
	Instrument   instrument.Instrumentation `validate:"required"`
	UID          uid.NumberID               `validate:"required"`
	OID          uid.StringID               `validate:"required"`
	HMAC         hash.Hash                  `validate:"required"`
	Bcrypt       hash.Hash                  `validate:"required"`
	Argon2ID     hash.Hash                  `validate:"required"`
	MFAEncryptor mfa.Encryptor              `validate:"required"`
	Clock        clock.Clocker              `validate:"required"`
	Totp         otp.OTP                    `validate:"required"`
	Validator    validator.Validator        `validate:"required"`
	JWT          jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	providers := make(map[string]usecase.OAuthProvider)
	for name, p := range oauth.NewProviders(dep.Config, dep.Instrument) {
		providers[name] = p
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:        db.NewDB(dep.DBConn, dep.Instrument),
		RepoCache:     cache.NewCache(dep.CacheConn, dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		Bcrypt:        dep.Bcrypt,
		Argon2ID:      dep.Argon2ID,
		MFAEncryptor:  dep.MFAEncryptor,
		UID:           dep.UID,
		OID:           dep.OID,
		Totp:          dep.Totp,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
		Enforcer:      dep.Enforcer,
		OAuth:         providers,
	})

	if len(providers) > 0 {
		slog.InfoContext(dep.Ctx, "external sign-in enabled", "providers", uc.OAuthProviders())
	}

	if err := uc.SyncRoles(dep.Ctx); err != nil {
		slog.WarnContext(dep.Ctx, "failed to sync admin roles", "error", err)
	}

	inbound.RegisterHTTPEndpoint(dep.Router, uc, inbound.Options{
		SecureCookies: dep.Config.GetBool("modules.identity.secure_cookies"),
	})

	return nil
}
