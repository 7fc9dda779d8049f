package identity

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// OIDCAuthenticator resolves an access token through an OpenID Connect userinfo endpoint.
type OIDCAuthenticator struct {
	provider   *oidc.Provider
	httpClient *http.Client
	nowTime    func() time.Time
}

// OIDCOption defines a function type to modify the OIDCAuthenticator instance.
type OIDCOption func(*OIDCAuthenticator)

func WithHTTPClient(hc *http.Client) OIDCOption {
	return func(a *OIDCAuthenticator) {
		a.httpClient = hc
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) OIDCOption {
	return func(a *OIDCAuthenticator) {
		a.nowTime = nowFunc
	}
}

// NewOIDCAuthenticator needs only the userinfo endpoint; no discovery document is fetched.
func NewOIDCAuthenticator(ctx context.Context, userInfoURL string, options ...OIDCOption) (*OIDCAuthenticator, error) {
	if strings.TrimSpace(userInfoURL) == "" {
		return nil, errors.New("[NewOIDCAuthenticator] userInfoURL is required")
	}
	provider := (&oidc.ProviderConfig{UserInfoURL: userInfoURL}).NewProvider(ctx)

	a := &OIDCAuthenticator{
		provider: provider,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

var _ Authenticator = (*OIDCAuthenticator)(nil)

func (a *OIDCAuthenticator) Authenticate(ctx context.Context, token *oauth2.Token) (Identity, error) {
	if token == nil || strings.TrimSpace(token.AccessToken) == "" {
		return Identity{}, apperrors.Mark(errors.New("invalid response from identity provider, no access token"), apperrors.ErrAuth)
	}
	if a.httpClient != nil {
		ctx = oidc.ClientContext(ctx, a.httpClient)
	}

	info, err := a.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return Identity{}, apperrors.Mark(errors.Wrap(err, "could not fetch user information"), apperrors.ErrAuth)
	}

	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := info.Claims(&claims); err != nil {
		return Identity{}, apperrors.Mark(errors.Wrap(err, "could not decode user information"), apperrors.ErrAuth)
	}

	id := Identity{
		ID:        info.Subject,
		Name:      claims.Name,
		Email:     info.Email,
		Picture:   claims.Picture,
		LoginTime: a.nowTime(),
	}
	if !id.Complete() {
		return Identity{}, apperrors.Mark(errors.New("identity provider returned incomplete user information"), apperrors.ErrAuth)
	}
	return id, nil
}
