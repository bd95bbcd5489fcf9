package service

import (
	"context"

	"github.com/target/mmk-admin-console/internal/apiclient"
)

// Backend is the subset of the API client the services call.
type Backend interface {
	Request(ctx context.Context, endpoint string, opts apiclient.RequestOptions, out any) error
	AuthRequest(ctx context.Context, endpoint string, opts apiclient.RequestOptions, out any) error
	Get(ctx context.Context, endpoint string, out any) error
	Post(ctx context.Context, endpoint string, body, out any) error
	Put(ctx context.Context, endpoint string, body, out any) error
	Delete(ctx context.Context, endpoint string, out any) error
	AuthPost(ctx context.Context, endpoint string, body, out any) error
}

// TokenHolder stores the bearer token used by Backend.
type TokenHolder interface {
	SetToken(token string)
	ClearToken()
	Token() string
}

// SessionBackend is what the session store needs from the API client.
type SessionBackend interface {
	Backend
	TokenHolder
}

var _ SessionBackend = (*apiclient.Client)(nil)

// dataEnvelope is the uniform {data} response shape.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}
