package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-session/internal/config"
	errs "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Pair is the token pair returned by the token endpoint
type Pair struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Agent exchanges credentials and refresh tokens at the backend token endpoint
type Agent struct {
	config     *oauth2.Config
	revokeURL  string
	httpClient *http.Client
	logger     zerolog.Logger
}

type Option func(*Agent)

func WithHTTPClient(client *http.Client) Option {
	return func(a *Agent) {
		a.httpClient = client
	}
}

func WithRevokeURL(revokeURL string) Option {
	return func(a *Agent) {
		a.revokeURL = revokeURL
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New creates an Agent for the given OAuth2 client configuration.
// Credentials are always sent in the request body so every exchange is a single round trip.
func New(cfg *oauth2.Config, options ...Option) *Agent {
	a := &Agent{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.config.Endpoint.AuthStyle == oauth2.AuthStyleAutoDetect {
		a.config.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	return a
}

// NewFromConfig builds an Agent from application config. When an OIDC issuer is configured
// the token and revocation endpoints are discovered from it, otherwise the configured URLs are used.
func NewFromConfig(ctx context.Context, c config.OAuthConfig, options ...Option) (*Agent, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		Endpoint:     oauth2.Endpoint{TokenURL: c.GetTokenURL()},
		Scopes:       c.GetScopes(),
	}
	revokeURL := c.GetRevokeURL()

	a := New(oauthConfig, options...)

	if issuer := c.GetOIDCIssuer(); issuer != "" {
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, a.httpClient), issuer)
		if err != nil {
			return nil, fmt.Errorf("[refresh NewFromConfig] failed to discover OIDC provider: %w", err)
		}
		oauthConfig.Endpoint = provider.Endpoint()
		oauthConfig.Endpoint.AuthStyle = oauth2.AuthStyleInParams

		var claims struct {
			RevocationEndpoint string `json:"revocation_endpoint"`
		}
		if err := provider.Claims(&claims); err == nil && claims.RevocationEndpoint != "" && revokeURL == "" {
			revokeURL = claims.RevocationEndpoint
		}
	}
	a.revokeURL = revokeURL
	return a, nil
}

// Refresh performs exactly one refresh_token grant. If the server does not rotate the
// refresh token the current one is kept in the returned pair.
func (a *Agent) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	if refreshToken == "" {
		return Pair{}, &RefreshError{Kind: Terminal, Err: errs.ErrNoRefreshToken}
	}

	tok, err := a.config.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		refreshErr := classify(err)
		a.logger.Debug().Err(err).Stringer("kind", refreshErr.Kind).Msg("Token refresh failed")
		return Pair{}, refreshErr
	}

	pair := pairFromToken(tok)
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

// PasswordLogin exchanges user credentials for a token pair
func (a *Agent) PasswordLogin(ctx context.Context, username, password string) (Pair, error) {
	if username == "" || password == "" {
		return Pair{}, errs.Wrapf(errs.ErrInvalidRequest, "[Agent PasswordLogin] username and password required")
	}
	tok, err := a.config.PasswordCredentialsToken(a.clientContext(ctx), username, password)
	if err != nil {
		return Pair{}, fmt.Errorf("[Agent PasswordLogin] token exchange failed: %w", err)
	}
	return pairFromToken(tok), nil
}

// Revoke asks the backend to revoke a token (RFC 7009). No-op when no revocation endpoint is known.
func (a *Agent) Revoke(ctx context.Context, token, tokenTypeHint string) error {
	if a.revokeURL == "" || token == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", tokenTypeHint)
	form.Set("client_id", a.config.ClientID)
	if a.config.ClientSecret != "" {
		form.Set("client_secret", a.config.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("[Agent Revoke] create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("[Agent Revoke] do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("[Agent Revoke] unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (a *Agent) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func pairFromToken(tok *oauth2.Token) Pair {
	return Pair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
}

// terminalErrorCodes are RFC 6749 error codes that mean the grant itself will never succeed
var terminalErrorCodes = map[string]struct{}{
	"invalid_grant":       {},
	"invalid_client":      {},
	"unauthorized_client": {},
}

func classify(err error) *RefreshError {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		// Network failures, timeouts and malformed responses
		return &RefreshError{Kind: Transient, Err: err}
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return &RefreshError{Kind: Transient, Err: err}
	}
	if _, ok := terminalErrorCodes[re.ErrorCode]; ok {
		return &RefreshError{Kind: Terminal, Err: err}
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &RefreshError{Kind: Terminal, Err: err}
	}
	return &RefreshError{Kind: Transient, Err: err}
}
