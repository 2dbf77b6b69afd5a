// Package httpbackend implements the authstate backend interfaces over
// the marketplace HTTP API.
package httpbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/authstate"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

type Client struct {
	baseURL string
	http    *http.Client

	// tokenSource supplies the bearer token for role endpoints. Wired
	// to SessionStore.Token by the composition root.
	tokenSource func() string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) SetTokenSource(source func() string) {
	c.tokenSource = source
}

type sessionPayload struct {
	Session  models.Session  `json:"session"`
	Identity models.Identity `json:"identity"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) SignUp(ctx context.Context, email, password, fullName string) error {
	body := map[string]string{"email": email, "password": password, "full_name": fullName}
	return c.do(ctx, http.MethodPost, "/api/auth/signup", "", body, nil)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (models.Session, models.Identity, error) {
	body := map[string]string{"email": email, "password": password}
	var payload sessionPayload
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", "", body, &payload); err != nil {
		return models.Session{}, models.Identity{}, err
	}
	return payload.Session, payload.Identity, nil
}

func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signout", token, nil, nil)
}

func (c *Client) CurrentSession(ctx context.Context, token string) (models.Session, models.Identity, error) {
	var payload sessionPayload
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", token, nil, &payload); err != nil {
		return models.Session{}, models.Identity{}, err
	}
	return payload.Session, payload.Identity, nil
}

func (c *Client) RoleAssignment(ctx context.Context, userID string) (models.RoleAssignment, error) {
	var payload struct {
		Role  string `json:"role"`
		Found bool   `json:"found"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/"+userID+"/role", c.token(), nil, &payload); err != nil {
		return models.RoleAssignment{}, err
	}
	return models.RoleAssignment{Role: models.Role(payload.Role), Found: payload.Found}, nil
}

func (c *Client) UpsertRole(ctx context.Context, userID string, role models.Role) error {
	body := map[string]string{"role": string(role)}
	return c.do(ctx, http.MethodPut, "/api/admin/users/"+userID+"/role", c.token(), body, nil)
}

func (c *Client) token() string {
	if c.tokenSource == nil {
		return ""
	}
	return c.tokenSource()
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var envelope errorEnvelope
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(data, &envelope)

	switch envelope.Error.Code {
	case "invalid_credentials":
		return authstate.ErrInvalidCredentials
	case "email_taken":
		return authstate.ErrEmailTaken
	case "weak_password":
		return authstate.ErrWeakPassword
	case "unauthorized":
		return authstate.ErrSessionExpired
	}
	if envelope.Error.Message != "" {
		return fmt.Errorf("backend: %s (%s)", envelope.Error.Message, envelope.Error.Code)
	}
	return fmt.Errorf("backend: unexpected status %d", resp.StatusCode)
}
