package social

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"google.golang.org/api/idtoken"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/pkg/config"
)

// Google signs users in with Google OpenID Connect id_tokens.
type Google struct {
	oauth    *oauth2.Config
	client   *http.Client
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogle(cfg config.OAuthClient) *Google {
	return newGoogle(cfg, endpoints.Google)
}

func newGoogle(cfg config.OAuthClient, endpoint oauth2.Endpoint) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		client:   defaultHTTPClient(),
		validate: idtoken.Validate,
	}
}

func (g *Google) Platform() string { return models.PlatformGoogle }

func (g *Google) AuthorizationURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

func (g *Google) ExchangeCode(ctx context.Context, code, _ string) (*Profile, error) {
	tok, err := exchange(ctx, g.oauth, g.client, code)
	if err != nil {
		return nil, fmt.Errorf("google token request: %w", err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, fmt.Errorf("%w: no id_token in google response", ErrInvalidCredential)
	}
	return g.VerifyToken(ctx, idToken)
}

// VerifyToken validates an id_token issued for this client.
func (g *Google) VerifyToken(ctx context.Context, token string) (*Profile, error) {
	payload, err := g.validate(ctx, token, g.oauth.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	claim := func(k string) string {
		s, _ := payload.Claims[k].(string)
		return s
	}
	return &Profile{
		Platform:     models.PlatformGoogle,
		SnsID:        payload.Subject,
		Name:         claim("name"),
		Email:        claim("email"),
		ProfileImage: claim("picture"),
	}, nil
}
