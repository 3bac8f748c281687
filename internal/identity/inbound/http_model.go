package inbound

import (
	"net/http"

	"github.com/shandysiswandi/taskdeck/internal/pkg/router"
)

type StartRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type StartResponse struct {
	Token     string `json:"token"`
	PhoneHint string `json:"phone_hint,omitempty"`
}

func (StartResponse) Bare() {}

type VerifyRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

type TOTPCodeRequest struct {
	TOTPCode string `json:"totp_code"`
}

// RedirectResponse is sent when a session has been established.
type RedirectResponse struct {
	Redirect string         `json:"redirect"`
	cookies  []*http.Cookie `json:"-"`
}

func (RedirectResponse) Bare() {}

func (r RedirectResponse) Cookies() []*http.Cookie { return r.cookies }

type SetupFirstBeginResponse struct {
	Secret          string         `json:"secret"`
	ProvisioningURI string         `json:"provisioning_uri"`
	cookies         []*http.Cookie `json:"-"`
}

func (SetupFirstBeginResponse) Bare() {}

func (r SetupFirstBeginResponse) Cookies() []*http.Cookie { return r.cookies }

type MeResponse struct {
	ID                    int64  `json:"id,string"`
	Username              string `json:"username"`
	Email                 string `json:"email,omitempty"`
	PhoneHint             string `json:"phone_hint,omitempty"`
	IsAdmin               bool   `json:"is_admin"`
	MustUpdateCredentials bool   `json:"must_update_credentials"`
	HasTOTP               bool   `json:"has_totp"`
}

type LogoutResponse struct {
	cookies []*http.Cookie
}

func (r LogoutResponse) Cookies() []*http.Cookie { return r.cookies }

func (LogoutResponse) Message() string { return "Signed out" }

type UserCreateRequest struct {
	Username            string `json:"username"`
	Email               string `json:"email"`
	Password            string `json:"password"`
	PhoneNumber         string `json:"phone_number"`
	CountryCode         string `json:"country_code"`
	ForcePasswordChange bool   `json:"force_password_change"`
	ForceUpdate         bool   `json:"force_update"`
}

type UserCreateResponse struct {
	router.Created
	ID       int64  `json:"id,string"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (UserCreateResponse) Bare() {}

type OAuthProvidersResponse struct {
	Providers []string `json:"providers"`
}

type AccountResponse struct {
	ID                    int64  `json:"id,string"`
	Username              string `json:"username"`
	Email                 string `json:"email,omitempty"`
	PhoneHint             string `json:"phone_hint,omitempty"`
	MustUpdateCredentials bool   `json:"must_update_credentials"`
	TOTPSetupRequired     bool   `json:"totp_setup_required"`
	TOTPSecret            string `json:"totp_secret,omitempty"`
	ProvisioningURI       string `json:"provisioning_uri,omitempty"`
}

type AccountRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	TOTPCode        string `json:"totp_code"`
}
