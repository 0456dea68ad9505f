package gateway

import (
	"context"
	"encoding/json"
	"net/http"
)

// API paths.
const (
	PathOTPRequest  = "/api/auth/otp/request"
	PathOTPVerify   = "/api/auth/otp/verify"
	PathMe          = "/api/auth/me"
	PathHealth      = "/api/health"
	PathStores      = "/api/stores"
	PathProducts    = "/api/products"
	PathOrders      = "/api/orders"
	PathPublicStore = "/api/public/store"
	PathPublicItems = "/api/public/products"
	PathShipping    = "/api/public/shipping-classes"
)

// Challenge is the response to a one-time code request. Development
// backends echo the code itself in OTP.
type Challenge struct {
	Message string `json:"message,omitempty"`
	OTP     string `json:"otp,omitempty"`
}

// Grant is the response to a successful code verification.
type Grant struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type,omitempty"`
	User        json.RawMessage `json:"user,omitempty"`
}

// RequestOTP asks the backend to send a one-time code to phone.
func (c *Client) RequestOTP(ctx context.Context, phone string) (*Challenge, error) {
	var out Challenge
	err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      PathOTPRequest,
		Body:      map[string]string{"phone": phone},
		Anonymous: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP exchanges phone and code for a bearer token.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*Grant, error) {
	var out Grant
	err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      PathOTPVerify,
		Body:      map[string]string{"phone": phone, "otp": code},
		Anonymous: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the profile of the principal owning token into out. An empty
// token falls back to the TokenSource.
func (c *Client) Me(ctx context.Context, token string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: PathMe, Token: token}, out)
}

// HealthStatus is the backend health payload.
type HealthStatus struct {
	Status string `json:"status"`
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: PathHealth, Anonymous: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
