package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/taskdeck/internal/identity/usecase"
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
)

const (
	// SetupCookie binds GET and POST /api/auth/setup-first.
	SetupCookie = "taskdeck_setup"
	// OAuthStateCookie binds an external sign-in to its callback.
	OAuthStateCookie = "taskdeck_oauth_state"
)

type uc interface {
	Start(ctx context.Context, in usecase.StartInput) (*usecase.StartOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyOutput, error)
	TOTPLogin(ctx context.Context, in usecase.TOTPLoginInput) (*usecase.VerifyOutput, error)
	SetupFirstBegin(ctx context.Context) (*usecase.SetupFirstBeginOutput, error)
	SetupFirst(ctx context.Context, in usecase.SetupFirstInput) (*usecase.VerifyOutput, error)

	OAuthProviders() []string
	OAuthBegin(ctx context.Context, provider string) (*usecase.OAuthBeginOutput, error)
	OAuthCallback(ctx context.Context, in usecase.OAuthCallbackInput) (*usecase.VerifyOutput, error)

	Me(ctx context.Context) (*usecase.MeOutput, error)
	Logout(ctx context.Context) error

	Account(ctx context.Context) (*usecase.AccountOutput, error)
	AccountUpdate(ctx context.Context, in usecase.AccountUpdateInput) (*usecase.VerifyOutput, error)

	UserCreate(ctx context.Context, in usecase.UserCreateInput) (*usecase.UserCreateOutput, error)
}

// PublicRoutes lists the routes reachable without a session. POST /api/users
// is public because the first user is created anonymously; the usecase
// demands a session once a user exists.
var PublicRoutes = map[string][]string{
	http.MethodGet: {
		"/api/auth/setup-first",
		"/api/auth/oauth",
		"/api/auth/oauth/:provider",
		"/api/auth/oauth/:provider/callback",
	},
	http.MethodPost: {
		"/api/auth/start",
		"/api/auth/verify",
		"/api/auth/totp-login",
		"/api/auth/setup-first",
		"/api/users",
	},
}

// Options tune the cookies set by the endpoints.
type Options struct {
	SecureCookies bool
}

func RegisterHTTPEndpoint(r *router.Router, uc uc, opts Options) {
	end := &HTTPEndpoint{uc: uc, secure: opts.SecureCookies}

	// Two-step login
	r.POST("/api/auth/start", end.Start)
	r.POST("/api/auth/verify", end.Verify)

	// Authenticator
	r.POST("/api/auth/totp-login", end.TOTPLogin)
	r.GET("/api/auth/setup-first", end.SetupFirstBegin)
	r.POST("/api/auth/setup-first", end.SetupFirst)

	// External providers
	r.GET("/api/auth/oauth", end.OAuthProviders)
	r.GET("/api/auth/oauth/:provider", end.OAuthBegin)
	r.GET("/api/auth/oauth/:provider/callback", end.OAuthCallback)

	// Session (need authenticated)
	r.GET("/api/auth/me", end.Me)
	r.POST("/api/auth/logout", end.Logout)

	// Account page (need authenticated)
	r.GET("/api/account", end.Account)
	r.POST("/api/account", end.AccountUpdate)

	// Users
	r.POST("/api/users", end.UserCreate)
}
