package api

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Login exchanges credentials for a bearer token and profile.
func (c *Client) Login(ctx context.Context, loginName, password string) (LoginResult, error) {
	in := map[string]string{
		"userloginname": loginName,
		"password":      password,
	}
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return LoginResult{}, err
	}
	if out.AccessToken == "" {
		return LoginResult{}, fmt.Errorf("api: login returned no access token")
	}
	return out, nil
}

// Logout tells the server to invalidate the token. Best effort: the caller
// clears local credentials whether or not this succeeds.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// CheckToken probes token liveness with a HEAD request. Any non-200 answer is
// an error; ErrUnauthorized specifically means the token is dead.
func (c *Client) CheckToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.BaseURL+"/auth/check", nil)
	if err != nil {
		return err
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("api: token check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("token check rejected", zap.Int("status", resp.StatusCode))
		return ErrUnauthorized
	}
	return nil
}
