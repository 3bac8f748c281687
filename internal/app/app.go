package app

import (
	"context"
	"net/http"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/taskdeck/internal/pkg/clock"
	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goroutine"
	"github.com/shandysiswandi/taskdeck/internal/pkg/hash"
	"github.com/shandysiswandi/taskdeck/internal/pkg/idempotency"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
	"github.com/shandysiswandi/taskdeck/internal/pkg/messaging"
	"github.com/shandysiswandi/taskdeck/internal/pkg/mfa"
	"github.com/shandysiswandi/taskdeck/internal/pkg/otp"
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
	"github.com/shandysiswandi/taskdeck/internal/pkg/sms"
	"github.com/shandysiswandi/taskdeck/internal/pkg/uid"
	"github.com/shandysiswandi/taskdeck/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine    *goroutine.Manager
	validator    validator.Validator
	clock        clock.Clocker
	hmac         hash.Hash
	argon2id     hash.Hash
	bcrypt       hash.Hash
	uid          uid.NumberID
	oid          uid.StringID
	uuid         uid.StringID
	totp         otp.OTP
	jwt          jwt.JWT
	mfaEncryptor mfa.Encryptor

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	messaging messaging.Messaging
	sms       sms.Sender
	casbin    *casbin.SyncedEnforcer

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMessaging()
	app.initSMS()
	app.initCasbin()
	app.initHTTPServer()
	app.initModules()
	app.initDemoReset()
	app.initClosers()

	return app
}
