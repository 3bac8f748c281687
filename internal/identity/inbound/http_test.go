package inbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/identity/usecase"
	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/jwt"
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJWT struct{}

func (stubJWT) Generate(int64, string) (string, error) { return "session", nil }
func (stubJWT) TTL() time.Duration                     { return time.Hour }

func (stubJWT) Verify(token string) (jwt.Claims, error) {
	if token != "session" {
		return jwt.Claims{}, jwt.ErrInvalidToken
	}
	return jwt.Claims{UserID: 1, Username: "admin"}, nil
}

type stubUUID struct{}

func (stubUUID) Generate() string { return "cid" }

type fakeUsecase struct {
	startIn   usecase.StartInput
	setupIn   usecase.SetupFirstInput
	createIn  usecase.UserCreateInput
	meCalled  bool
	oauthIn   usecase.OAuthCallbackInput
	accountIn usecase.AccountUpdateInput
	err       error
	expiresAt time.Time
}

func (f *fakeUsecase) session() *usecase.VerifyOutput {
	return &usecase.VerifyOutput{
		Redirect: entity.RedirectApp,
		Session:  entity.Session{Token: "session", ExpiresAt: f.expiresAt},
	}
}

func (f *fakeUsecase) Start(_ context.Context, in usecase.StartInput) (*usecase.StartOutput, error) {
	f.startIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.StartOutput{Token: "pending", PhoneHint: "+1…1234"}, nil
}

func (f *fakeUsecase) Verify(context.Context, usecase.VerifyInput) (*usecase.VerifyOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session(), nil
}

func (f *fakeUsecase) TOTPLogin(context.Context, usecase.TOTPLoginInput) (*usecase.VerifyOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session(), nil
}

func (f *fakeUsecase) SetupFirstBegin(context.Context) (*usecase.SetupFirstBeginOutput, error) {
	return &usecase.SetupFirstBeginOutput{
		SetupID:         "setup-1",
		Secret:          "JBSWY3DPEHPK3PXP",
		ProvisioningURI: "otpauth://totp/Taskdeck:admin?secret=JBSWY3DPEHPK3PXP",
		ExpiresAt:       f.expiresAt,
	}, nil
}

func (f *fakeUsecase) SetupFirst(_ context.Context, in usecase.SetupFirstInput) (*usecase.VerifyOutput, error) {
	f.setupIn = in
	return f.session(), nil
}

func (f *fakeUsecase) Me(context.Context) (*usecase.MeOutput, error) {
	f.meCalled = true
	return &usecase.MeOutput{ID: 1, Username: "admin", IsAdmin: true}, nil
}

func (f *fakeUsecase) Logout(context.Context) error { return nil }

func (f *fakeUsecase) UserCreate(_ context.Context, in usecase.UserCreateInput) (*usecase.UserCreateOutput, error) {
	f.createIn = in
	return &usecase.UserCreateOutput{ID: 42, Username: in.Username, Email: in.Email}, nil
}

func (f *fakeUsecase) OAuthProviders() []string { return []string{"google"} }

func (f *fakeUsecase) OAuthBegin(_ context.Context, provider string) (*usecase.OAuthBeginOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.OAuthBeginOutput{URL: "https://idp.example.com/" + provider + "?state=st-1", State: "st-1"}, nil
}

func (f *fakeUsecase) OAuthCallback(_ context.Context, in usecase.OAuthCallbackInput) (*usecase.VerifyOutput, error) {
	f.oauthIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.session(), nil
}

func (f *fakeUsecase) Account(context.Context) (*usecase.AccountOutput, error) {
	return &usecase.AccountOutput{
		ID:                7,
		Username:          "alice",
		TOTPSetupRequired: true,
		Secret:            "JBSWY3DPEHPK3PXP",
		ProvisioningURI:   "otpauth://totp/Taskdeck:alice?secret=JBSWY3DPEHPK3PXP",
	}, nil
}

func (f *fakeUsecase) AccountUpdate(_ context.Context, in usecase.AccountUpdateInput) (*usecase.VerifyOutput, error) {
	f.accountIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.session(), nil
}

func newTestServer(t *testing.T, uc *fakeUsecase) *router.Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  name: taskdeck\n"))
	require.NoError(t, err)

	ro := router.NewRouter(router.Config{
		Config:     cfg,
		UUID:       stubUUID{},
		JWT:        stubJWT{},
		Instrument: instrument.NewNoop(),
		Public:     PublicRoutes,
	})
	RegisterHTTPEndpoint(ro, uc, Options{SecureCookies: true})

	return ro
}

func do(ro http.Handler, method, target, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	ro.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHTTPEndpoint_Start(t *testing.T) {
	t.Run("returns token and hint as top-level json", func(t *testing.T) {
		// Arrange
		uc := &fakeUsecase{}
		ro := newTestServer(t, uc)

		// Act
		rec := do(ro, http.MethodPost, "/api/auth/start", `{"identifier":"admin","password":"secret"}`)

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"token":"pending","phone_hint":"+1…1234"}`, rec.Body.String())
		assert.Equal(t, usecase.StartInput{Identifier: "admin", Password: "secret"}, uc.startIn)
	})

	t.Run("usecase error keeps its status", func(t *testing.T) {
		uc := &fakeUsecase{err: goerror.NewBusiness("Invalid credentials", goerror.CodeUnauthorized)}
		ro := newTestServer(t, uc)

		rec := do(ro, http.MethodPost, "/api/auth/start", `{"identifier":"admin","password":"bad"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Invalid credentials"}`, rec.Body.String())
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		ro := newTestServer(t, &fakeUsecase{})

		rec := do(ro, http.MethodPost, "/api/auth/start", `{"identifier":"admin","pin":"1"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHTTPEndpoint_Verify_SetsSessionCookie(t *testing.T) {
	// Arrange
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ro := newTestServer(t, &fakeUsecase{expiresAt: expires})

	// Act
	rec := do(ro, http.MethodPost, "/api/auth/verify", `{"token":"pending","code":"123456"}`)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"redirect":"/app"}`, rec.Body.String())

	c := cookieNamed(rec, router.SessionCookie)
	require.NotNil(t, c)
	assert.Equal(t, "session", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.True(t, expires.Equal(c.Expires))
}

func TestHTTPEndpoint_VerifyExpired(t *testing.T) {
	err := goerror.NewBusinessReason("Verification expired. Start again.", goerror.CodeGone, entity.ReasonVerificationExpired)
	ro := newTestServer(t, &fakeUsecase{err: err})

	rec := do(ro, http.MethodPost, "/api/auth/verify", `{"token":"pending","code":"123456"}`)

	assert.Equal(t, http.StatusGone, rec.Code)
	assert.JSONEq(t, `{"message":"Verification expired. Start again.","code":"VERIFICATION_EXPIRED"}`, rec.Body.String())
	assert.Nil(t, cookieNamed(rec, router.SessionCookie))
}

func TestHTTPEndpoint_SetupFirst(t *testing.T) {
	// Arrange
	uc := &fakeUsecase{expiresAt: time.Now().Add(10 * time.Minute)}
	ro := newTestServer(t, uc)

	// Act
	begin := do(ro, http.MethodGet, "/api/auth/setup-first", "")
	setupCookie := cookieNamed(begin, SetupCookie)
	require.NotNil(t, setupCookie)

	rec := do(ro, http.MethodPost, "/api/auth/setup-first", `{"totp_code":"123456"}`, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: SetupCookie, Value: setupCookie.Value})
	})

	// Assert
	require.Equal(t, http.StatusOK, begin.Code)
	assert.JSONEq(t, `{"secret":"JBSWY3DPEHPK3PXP","provisioning_uri":"otpauth://totp/Taskdeck:admin?secret=JBSWY3DPEHPK3PXP"}`, begin.Body.String())
	assert.Equal(t, "setup-1", setupCookie.Value)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.SetupFirstInput{SetupID: "setup-1", Code: "123456"}, uc.setupIn)
	require.NotNil(t, cookieNamed(rec, router.SessionCookie))

	cleared := cookieNamed(rec, SetupCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestHTTPEndpoint_Me(t *testing.T) {
	t.Run("anonymous request is rejected before the usecase", func(t *testing.T) {
		uc := &fakeUsecase{}
		ro := newTestServer(t, uc)

		rec := do(ro, http.MethodGet, "/api/auth/me", "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, uc.meCalled)
	})

	t.Run("session cookie reaches the usecase", func(t *testing.T) {
		uc := &fakeUsecase{}
		ro := newTestServer(t, uc)

		rec := do(ro, http.MethodGet, "/api/auth/me", "", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: router.SessionCookie, Value: "session"})
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data MeResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "admin", body.Data.Username)
		assert.True(t, body.Data.IsAdmin)
	})
}

func TestHTTPEndpoint_Logout_ExpiresCookie(t *testing.T) {
	ro := newTestServer(t, &fakeUsecase{})

	rec := do(ro, http.MethodPost, "/api/auth/logout", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: router.SessionCookie, Value: "session"})
	})

	require.Equal(t, http.StatusOK, rec.Code)
	c := cookieNamed(rec, router.SessionCookie)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
}

func TestHTTPEndpoint_UserCreate(t *testing.T) {
	// Arrange
	uc := &fakeUsecase{}
	ro := newTestServer(t, uc)
	body := `{"username":"alice","email":"alice@example.com","password":"password1","force_update":true}`

	// Act
	rec := do(ro, http.MethodPost, "/api/users", body, func(r *http.Request) {
		r.Header.Set("Idempotency-Key", " key-1 ")
	})

	// Assert
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"42","username":"alice","email":"alice@example.com"}`, rec.Body.String())
	assert.Equal(t, "key-1", uc.createIn.IdempotencyKey)
	assert.True(t, uc.createIn.ForcePasswordChange)
}

func TestHTTPEndpoint_OAuth(t *testing.T) {
	t.Run("providers are public", func(t *testing.T) {
		rec := do(newTestServer(t, &fakeUsecase{}), http.MethodGet, "/api/auth/oauth", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":{"providers":["google"]}}`, rec.Body.String())
	})

	t.Run("begin redirects with a state cookie", func(t *testing.T) {
		rec := do(newTestServer(t, &fakeUsecase{}), http.MethodGet, "/api/auth/oauth/google", "")

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://idp.example.com/google?state=st-1", rec.Header().Get("Location"))

		c := cookieNamed(rec, OAuthStateCookie)
		require.NotNil(t, c)
		assert.Equal(t, "st-1", c.Value)
		assert.True(t, c.HttpOnly)
	})

	t.Run("callback signs in and clears the state", func(t *testing.T) {
		// Arrange
		uc := &fakeUsecase{}
		ro := newTestServer(t, uc)

		// Act
		rec := do(ro, http.MethodGet, "/api/auth/oauth/google/callback?code=abc&state=st-1", "", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: OAuthStateCookie, Value: "st-1"})
		})

		// Assert
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, entity.RedirectApp, rec.Header().Get("Location"))
		assert.Equal(t, usecase.OAuthCallbackInput{
			Provider:      "google",
			Code:          "abc",
			State:         "st-1",
			ExpectedState: "st-1",
		}, uc.oauthIn)

		session := cookieNamed(rec, router.SessionCookie)
		require.NotNil(t, session)
		assert.Equal(t, "session", session.Value)

		state := cookieNamed(rec, OAuthStateCookie)
		require.NotNil(t, state)
		assert.Empty(t, state.Value)
		assert.Negative(t, state.MaxAge)
	})

	t.Run("refused callback goes back to the login page", func(t *testing.T) {
		uc := &fakeUsecase{err: goerror.NewBusiness("Unable to complete the external authentication flow.", goerror.CodeUnauthorized)}
		ro := newTestServer(t, uc)

		rec := do(ro, http.MethodGet, "/api/auth/oauth/google/callback?error=access_denied", "")

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login?oauth_error=Unable+to+complete+the+external+authentication+flow.", rec.Header().Get("Location"))
		assert.Equal(t, "access_denied", uc.oauthIn.Error)
		assert.Nil(t, cookieNamed(rec, router.SessionCookie))
	})

	t.Run("unknown provider is not found", func(t *testing.T) {
		uc := &fakeUsecase{err: goerror.NewBusiness("Unknown sign-in provider.", goerror.CodeNotFound)}

		rec := do(newTestServer(t, uc), http.MethodGet, "/api/auth/oauth/github", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHTTPEndpoint_Account(t *testing.T) {
	withSession := func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: router.SessionCookie, Value: "session"})
	}

	t.Run("anonymous request is rejected", func(t *testing.T) {
		rec := do(newTestServer(t, &fakeUsecase{}), http.MethodGet, "/api/account", "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("page offers the authenticator", func(t *testing.T) {
		rec := do(newTestServer(t, &fakeUsecase{}), http.MethodGet, "/api/account", "", withSession)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":{
			"id":"7",
			"username":"alice",
			"must_update_credentials":false,
			"totp_setup_required":true,
			"totp_secret":"JBSWY3DPEHPK3PXP",
			"provisioning_uri":"otpauth://totp/Taskdeck:alice?secret=JBSWY3DPEHPK3PXP"
		}}`, rec.Body.String())
	})

	t.Run("update renews the session", func(t *testing.T) {
		// Arrange
		uc := &fakeUsecase{}
		ro := newTestServer(t, uc)
		body := `{"username":"alice2","email":"a@example.com","password":"newpassword","confirm_password":"newpassword","totp_code":"123456"}`

		// Act
		rec := do(ro, http.MethodPost, "/api/account", body, withSession)

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"redirect":"/app"}`, rec.Body.String())
		assert.Equal(t, usecase.AccountUpdateInput{
			Username:        "alice2",
			Email:           "a@example.com",
			Password:        "newpassword",
			ConfirmPassword: "newpassword",
			TOTPCode:        "123456",
		}, uc.accountIn)
		require.NotNil(t, cookieNamed(rec, router.SessionCookie))
	})

	t.Run("conflict keeps the session", func(t *testing.T) {
		uc := &fakeUsecase{err: goerror.NewBusiness("That username or email is already in use.", goerror.CodeConflict)}

		rec := do(newTestServer(t, uc), http.MethodPost, "/api/account", `{"username":"bob"}`, withSession)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Nil(t, cookieNamed(rec, router.SessionCookie))
	})
}
