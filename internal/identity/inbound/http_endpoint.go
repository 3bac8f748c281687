package inbound

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/identity/usecase"
	"github.com/shandysiswandi/taskdeck/internal/pkg/goerror"
	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
)

// loginPage receives failed external sign-ins in its oauth_error query.
const loginPage = "/login"

const oauthStateTTL = 10 * time.Minute

// HTTPEndpoint exposes HTTP handlers for the sign-in flows and users.
type HTTPEndpoint struct {
	uc     uc
	secure bool
}

func (h *HTTPEndpoint) cookie(name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if expires.IsZero() {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.Expires = expires
	}
	return c
}

func (h *HTTPEndpoint) sessionCookie(s entity.Session) *http.Cookie {
	return h.cookie(router.SessionCookie, s.Token, s.ExpiresAt)
}

func (h *HTTPEndpoint) signedIn(out *usecase.VerifyOutput, extra ...*http.Cookie) RedirectResponse {
	return RedirectResponse{
		Redirect: out.Redirect,
		cookies:  append([]*http.Cookie{h.sessionCookie(out.Session)}, extra...),
	}
}

// Start checks credentials and sends a verification code.
func (h *HTTPEndpoint) Start(r *router.Request) (any, error) {
	var req StartRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Start(r.Context(), usecase.StartInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		return nil, err
	}

	return StartResponse{Token: resp.Token, PhoneHint: resp.PhoneHint}, nil
}

// Verify completes a two-step login and sets the session cookie.
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Verify(r.Context(), usecase.VerifyInput{Token: req.Token, Code: req.Code})
	if err != nil {
		return nil, err
	}

	return h.signedIn(resp), nil
}

func (h *HTTPEndpoint) TOTPLogin(r *router.Request) (any, error) {
	var req TOTPCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.TOTPLogin(r.Context(), usecase.TOTPLoginInput{Code: req.TOTPCode})
	if err != nil {
		return nil, err
	}

	return h.signedIn(resp), nil
}

// SetupFirstBegin hands out the authenticator secret for first-time setup.
func (h *HTTPEndpoint) SetupFirstBegin(r *router.Request) (any, error) {
	resp, err := h.uc.SetupFirstBegin(r.Context())
	if err != nil {
		return nil, err
	}

	return SetupFirstBeginResponse{
		Secret:          resp.Secret,
		ProvisioningURI: resp.ProvisioningURI,
		cookies:         []*http.Cookie{h.cookie(SetupCookie, resp.SetupID, resp.ExpiresAt)},
	}, nil
}

func (h *HTTPEndpoint) SetupFirst(r *router.Request) (any, error) {
	var req TOTPCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.SetupFirst(r.Context(), usecase.SetupFirstInput{
		SetupID: r.CookieValue(SetupCookie),
		Code:    req.TOTPCode,
	})
	if err != nil {
		return nil, err
	}

	return h.signedIn(resp, h.cookie(SetupCookie, "", time.Time{})), nil
}

func (h *HTTPEndpoint) OAuthProviders(*router.Request) (any, error) {
	return OAuthProvidersResponse{Providers: h.uc.OAuthProviders()}, nil
}

// OAuthBegin sends the browser to the provider's login page.
func (h *HTTPEndpoint) OAuthBegin(r *router.Request) (any, error) {
	resp, err := h.uc.OAuthBegin(r.Context(), r.GetParam("provider"))
	if err != nil {
		return nil, err
	}

	return router.Redirect{
		URL:        resp.URL,
		SetCookies: []*http.Cookie{h.cookie(OAuthStateCookie, resp.State, time.Now().Add(oauthStateTTL))},
	}, nil
}

// OAuthCallback signs the user in and redirects to the app. A refused
// sign-in goes back to the login page with the reason.
func (h *HTTPEndpoint) OAuthCallback(r *router.Request) (any, error) {
	clearState := h.cookie(OAuthStateCookie, "", time.Time{})

	resp, err := h.uc.OAuthCallback(r.Context(), usecase.OAuthCallbackInput{
		Provider:      r.GetParam("provider"),
		Code:          r.GetQuery("code"),
		State:         r.GetQuery("state"),
		ExpectedState: r.CookieValue(OAuthStateCookie),
		Error:         r.GetQuery("error"),
	})

	var gerr *goerror.Error
	if errors.As(err, &gerr) && gerr.StatusCode() == http.StatusUnauthorized {
		return router.Redirect{
			URL:        loginPage + "?oauth_error=" + url.QueryEscape(gerr.Msg()),
			SetCookies: []*http.Cookie{clearState},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return router.Redirect{
		URL:        resp.Redirect,
		SetCookies: []*http.Cookie{h.sessionCookie(resp.Session), clearState},
	}, nil
}

func (h *HTTPEndpoint) Me(r *router.Request) (any, error) {
	resp, err := h.uc.Me(r.Context())
	if err != nil {
		return nil, err
	}

	return MeResponse{
		ID:                    resp.ID,
		Username:              resp.Username,
		Email:                 resp.Email,
		PhoneHint:             resp.PhoneHint,
		IsAdmin:               resp.IsAdmin,
		MustUpdateCredentials: resp.MustUpdateCredentials,
		HasTOTP:               resp.HasTOTP,
	}, nil
}

// Logout expires the session cookie.
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	if err := h.uc.Logout(r.Context()); err != nil {
		return nil, err
	}

	return LogoutResponse{cookies: []*http.Cookie{h.cookie(router.SessionCookie, "", time.Time{})}}, nil
}

// UserCreate honours an Idempotency-Key header.
func (h *HTTPEndpoint) UserCreate(r *router.Request) (any, error) {
	var req UserCreateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.UserCreate(r.Context(), usecase.UserCreateInput{
		IdempotencyKey:      strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		Username:            req.Username,
		Email:               req.Email,
		Password:            req.Password,
		PhoneNumber:         req.PhoneNumber,
		CountryCode:         req.CountryCode,
		ForcePasswordChange: req.ForcePasswordChange || req.ForceUpdate,
	})
	if err != nil {
		return nil, err
	}

	return UserCreateResponse{ID: resp.ID, Username: resp.Username, Email: resp.Email}, nil
}

func (h *HTTPEndpoint) Account(r *router.Request) (any, error) {
	resp, err := h.uc.Account(r.Context())
	if err != nil {
		return nil, err
	}

	return AccountResponse{
		ID:                    resp.ID,
		Username:              resp.Username,
		Email:                 resp.Email,
		PhoneHint:             resp.PhoneHint,
		MustUpdateCredentials: resp.MustUpdateCredentials,
		TOTPSetupRequired:     resp.TOTPSetupRequired,
		TOTPSecret:            resp.Secret,
		ProvisioningURI:       resp.ProvisioningURI,
	}, nil
}

// AccountUpdate saves the account page and renews the session cookie.
func (h *HTTPEndpoint) AccountUpdate(r *router.Request) (any, error) {
	var req AccountRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.AccountUpdate(r.Context(), usecase.AccountUpdateInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		TOTPCode:        req.TOTPCode,
	})
	if err != nil {
		return nil, err
	}

	return h.signedIn(resp), nil
}
