package session

import (
	"context"

	"github.com/joeycumines/storefront/internal/catalog"
	"github.com/joeycumines/storefront/internal/gateway"
)

type gatewayBackend struct {
	gw *gateway.Client
}

// NewGatewayBackend adapts a gateway client to Backend.
func NewGatewayBackend(gw *gateway.Client) Backend {
	return gatewayBackend{gw: gw}
}

func (b gatewayBackend) RequestOTP(ctx context.Context, phone string) (*gateway.Challenge, error) {
	return b.gw.RequestOTP(ctx, phone)
}

func (b gatewayBackend) VerifyOTP(ctx context.Context, phone, code string) (*gateway.Grant, error) {
	return b.gw.VerifyOTP(ctx, phone, code)
}

func (b gatewayBackend) FetchProfile(ctx context.Context, token string) (*catalog.User, error) {
	var u catalog.User
	if err := b.gw.Me(ctx, token, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
