package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/taskdeck/internal/identity"
	"github.com/shandysiswandi/taskdeck/internal/notification"
	"github.com/shandysiswandi/taskdeck/internal/project"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.identity.enabled") {
		if err := identity.New(identity.Dependency{
			Ctx:          a.ctx,
			Config:       a.config,
			Instrument:   a.ins,
			UID:          a.uid,
			OID:          a.oid,
			Bcrypt:       a.bcrypt,
			HMAC:         a.hmac,
			Argon2ID:     a.argon2id,
			MFAEncryptor: a.mfaEncryptor,
			Clock:        a.clock,
			Validator:    a.validator,
			Router:       a.router,
			Totp:         a.totp,
			DBConn:       a.dbConn,
			CacheConn:    a.cacheConn,
			Idempotency:  a.idemp,
			Messaging:    a.messaging,
			JWT:          a.jwt,
			Enforcer:     a.casbin,
		}); err != nil {
			slog.Error("failed to init module identity", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			Messaging:  a.messaging,
			SMS:        a.sms,
			Enforcer:   a.casbin,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			UUID:       a.uuid,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Router:     a.router,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.project.enabled") {
		if err := project.New(project.Dependency{
			DBConn:      a.dbConn,
			Idempotency: a.idemp,
			Enforcer:    a.casbin,
			Instrument:  a.ins,
			UID:         a.uid,
			Clock:       a.clock,
			Validator:   a.validator,
			Router:      a.router,
		}); err != nil {
			slog.Error("failed to init module project", "error", err)
			os.Exit(1)
		}
	}
}
