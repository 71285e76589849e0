package api

import (
	"context"
	"net/url"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

// LoginResponse is the body of a successful login. Servers name the token
// either access_token or token.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	Token       string      `json:"token"`
	TokenType   string      `json:"token_type,omitempty"`
	User        domain.User `json:"user"`
}

// BearerToken returns whichever token field was populated.
func (r LoginResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// Login exchanges credentials for a token using a form-encoded body. The
// token is not installed on the client; the caller decides when the
// session starts.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	var resp LoginResponse
	if err := c.sendForm(ctx, "login", "/login", form, &resp); err != nil {
		return nil, err
	}
	if resp.BearerToken() == "" {
		return nil, &DecodeError{Op: "login", Err: errMissingToken}
	}
	return &resp, nil
}
