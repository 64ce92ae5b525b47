package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
)

const (
	meResource     = "/Me"
	defaultTimeout = 5 * time.Second
	scimMediaType  = "application/scim+json"
)

type accessTokenKey struct{}

// WithAccessToken кладёт bearer-токен текущего пользователя в контекст запроса.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, strings.TrimSpace(token))
}

// AccessToken достаёт bearer-токен из контекста.
func AccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey{}).(string)
	return token, ok && token != ""
}

// SCIMClient читает профиль вошедшего пользователя из SCIM-совместимого
// identity-провайдера (GET {base}/Me).
type SCIMClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// NewSCIMClient создаёт клиент. httpClient может быть nil.
func NewSCIMClient(baseURL string, httpClient *http.Client, logger *log.Entry) (*SCIMClient, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse identity url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("identity url must be absolute: %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = log.WithField("component", "scim-client")
	}
	return &SCIMClient{
		baseURL:    strings.TrimRight(parsed.String(), "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// IsLoggedIn сообщает, есть ли в контексте токен пользователя.
func (c *SCIMClient) IsLoggedIn(ctx context.Context) bool {
	_, ok := AccessToken(ctx)
	return ok
}

// CurrentUser загружает профиль пользователя, которому принадлежит токен.
func (c *SCIMClient) CurrentUser(ctx context.Context) (domain.User, error) {
	token, ok := AccessToken(ctx)
	if !ok {
		return domain.User{}, domain.ErrNotLoggedIn
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+meResource, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", scimMediaType+", application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.User{}, domain.ErrNotLoggedIn
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		c.logger.WithField("status", resp.StatusCode).Warn("identity provider returned unexpected status")
		return domain.User{}, fmt.Errorf("identity provider: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var user domain.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return domain.User{}, fmt.Errorf("decode identity profile: %w", err)
	}
	return user, nil
}

// Static — IdentityContext с фиксированным пользователем (nil означает гостя).
type Static struct {
	User *domain.User
}

// IsLoggedIn реализует domain.IdentityContext.
func (s Static) IsLoggedIn(context.Context) bool { return s.User != nil }

// CurrentUser реализует domain.IdentityContext.
func (s Static) CurrentUser(context.Context) (domain.User, error) {
	if s.User == nil {
		return domain.User{}, domain.ErrNotLoggedIn
	}
	return *s.User, nil
}

var (
	_ domain.IdentityContext = (*SCIMClient)(nil)
	_ domain.IdentityContext = Static{}
)
