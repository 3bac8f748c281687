// Package oauth signs users in through external OpenID Connect providers
// using the authorization code flow.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shandysiswandi/taskdeck/internal/identity/entity"
	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Provider names.
const (
	Google    = "google"
	Microsoft = "microsoft"
	Authentik = "authentik"
)

// ErrUserInfo is returned when the userinfo endpoint does not answer with
// a profile.
var ErrUserInfo = errors.New("oauth: userinfo request failed")

// CallbackPath is where a provider sends the browser back to.
func CallbackPath(name string) string {
	return "/api/auth/oauth/" + name + "/callback"
}

// Config describes one provider.
type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// Provider runs the code exchange and reads the profile from the userinfo
// endpoint.
type Provider struct {
	name        string
	cfg         *oauth2.Config
	userInfoURL string
	client      *http.Client
	ins         instrument.Instrumentation
}

func New(c Config, ins instrument.Instrumentation) *Provider {
	return &Provider{
		name: c.Name,
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint:     c.Endpoint,
			RedirectURL:  c.RedirectURL,
			Scopes:       c.Scopes,
		},
		userInfoURL: c.UserInfoURL,
		client:      &http.Client{Timeout: 15 * time.Second},
		ins:         ins,
	}
}

// AuthCodeURL is the provider login page the browser is sent to.
func (p *Provider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the user's profile.
func (p *Provider) Exchange(ctx context.Context, code string) (_ *entity.OAuthProfile, err error) {
	ctx, span := p.ins.Tracer("identity.outbound.oauth").Start(ctx, "Exchange")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth: %s exchange: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth: %s userinfo: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("oauth: %s userinfo: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s answered %d", ErrUserInfo, p.name, resp.StatusCode)
	}

	var info struct {
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUserInfo, p.name, err)
	}

	return &entity.OAuthProfile{
		Email:             info.Email,
		Name:              info.Name,
		PreferredUsername: info.PreferredUsername,
	}, nil
}

// NewProviders builds the providers that have credentials configured under
// modules.identity.oauth. Authentik also needs its base_url.
func NewProviders(cfg config.Config, ins instrument.Instrumentation) map[string]*Provider {
	base := strings.TrimRight(cfg.GetString("modules.identity.oauth.redirect_base_url"), "/")
	scopes := []string{"openid", "email", "profile"}

	known := []Config{
		{
			Name:        Google,
			Endpoint:    endpoints.Google,
			UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
			Scopes:      scopes,
		},
		{
			Name:        Microsoft,
			Endpoint:    endpoints.AzureAD(tenant(cfg.GetString("modules.identity.oauth.microsoft.tenant"))),
			UserInfoURL: "https://graph.microsoft.com/oidc/userinfo",
			Scopes:      append(scopes, "User.Read"),
		},
	}

	if authentik := strings.TrimRight(cfg.GetString("modules.identity.oauth.authentik.base_url"), "/"); authentik != "" {
		known = append(known, Config{
			Name: Authentik,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authentik + "/application/o/authorize/",
				TokenURL: authentik + "/application/o/token/",
			},
			UserInfoURL: authentik + "/application/o/userinfo/",
			Scopes:      scopes,
		})
	}

	out := make(map[string]*Provider, len(known))
	for _, c := range known {
		prefix := "modules.identity.oauth." + c.Name + "."
		c.ClientID = cfg.GetString(prefix + "client_id")
		c.ClientSecret = cfg.GetString(prefix + "client_secret")
		if c.ClientID == "" || c.ClientSecret == "" {
			continue
		}
		c.RedirectURL = base + CallbackPath(c.Name)
		out[c.Name] = New(c, ins)
	}

	return out
}

func tenant(t string) string {
	if t = strings.TrimSpace(t); t == "" {
		return "common"
	}
	return t
}
