// Package supabase resolves bearer tokens and organization roles against a
// Supabase project (GoTrue for users, PostgREST for membership rows).
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/application/service"
	"ada-engine/internal/domain/entity"
)

var _ output.IdentityProvider = (*Client)(nil)

type Config struct {
	ProjectURL string
	ProjectKey string
	// JWTSecret enables local HS256 validation. Without it every token is
	// checked with GoTrue.
	JWTSecret string
	Timeout   time.Duration
}

type Client struct {
	baseURL    string
	projectKey string
	jwtSecret  []byte
	http       *http.Client
	logger     output.LoggerPort
}

// Claims are the parts of a Supabase access token the backend reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

func New(cfg Config, httpClient *http.Client, logger output.LoggerPort) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = service.NopLogger{}
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.ProjectURL, "/"),
		projectKey: cfg.ProjectKey,
		http:       httpClient,
		logger:     logger,
	}
	if cfg.JWTSecret != "" {
		c.jwtSecret = []byte(cfg.JWTSecret)
	}
	return c
}

func (c *Client) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, entity.ErrUnauthenticated
	}

	var (
		user *entity.User
		err  error
	)
	if c.jwtSecret != nil {
		user, err = c.verifyLocally(token)
	} else {
		user, err = c.fetchUser(ctx, token)
	}
	if err != nil {
		c.logger.Debug("Token rejected", "error", err)
		return nil, err
	}

	user.Token = token
	return user, nil
}

func (c *Client) verifyLocally(token string) (*entity.User, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", entity.ErrUnauthenticated)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", entity.ErrUnauthenticated)
	}
	return &entity.User{ID: id, Email: claims.Email}, nil
}

type goTrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (c *Client) fetchUser(ctx context.Context, token string) (*entity.User, error) {
	var u goTrueUser
	if err := c.get(ctx, "/auth/v1/user", token, &u); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: user has no id", entity.ErrUnauthenticated)
	}
	return &entity.User{ID: id, Email: u.Email}, nil
}

type membership struct {
	Role entity.Role `json:"role"`
}

func (c *Client) OrganizationRole(ctx context.Context, user *entity.User, orgID uuid.UUID) (entity.Role, error) {
	q := url.Values{}
	q.Set("select", "role")
	q.Set("organization_id", "eq."+orgID.String())
	q.Set("user_id", "eq."+user.ID.String())

	var rows []membership
	if err := c.get(ctx, "/rest/v1/organization_members?"+q.Encode(), user.Token, &rows); err != nil {
		if errors.Is(err, entity.ErrUnauthenticated) {
			return "", err
		}
		return "", fmt.Errorf("lookup organization membership: %w", err)
	}
	if len(rows) == 0 || rows[0].Role == "" {
		return "", entity.ErrNoOrganizationAccess
	}
	return rows[0].Role, nil
}

type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase responded %d: %s", e.Status, e.Body)
}

func (c *Client) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.projectKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("supabase request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read supabase response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %v", entity.ErrUnauthenticated, &statusError{Status: resp.StatusCode, Body: string(body)})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &statusError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode supabase response: %w", err)
	}
	return nil
}
