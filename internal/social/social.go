// Package social verifies users against the supported social login
// providers and returns a normalised profile.
package social

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrUnsupported is returned for a platform that is not configured.
	ErrUnsupported = errors.New("unsupported login platform")
	// ErrInvalidCredential is returned when the provider rejects a code or token.
	ErrInvalidCredential = errors.New("invalid social credential")
)

// Profile is what the application keeps from a provider account.
type Profile struct {
	Platform     string
	SnsID        string
	Name         string
	Email        string
	ProfileImage string
}

// Provider authenticates users of one platform.
type Provider interface {
	Platform() string
	// AuthorizationURL is where the browser is sent to start a web login.
	AuthorizationURL(state string) string
	// ExchangeCode completes a web login from the callback code.
	ExchangeCode(ctx context.Context, code, state string) (*Profile, error)
	// VerifyToken validates a token obtained by a mobile SDK.
	VerifyToken(ctx context.Context, token string) (*Profile, error)
}

// Registry looks providers up by platform name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Platform()] = p
	}
	return r
}

func (r *Registry) Get(platform string) (Provider, error) {
	p, ok := r.providers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, platform)
	}
	return p, nil
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// exchange trades an authorization code for a token over client. A token
// endpoint that answers with an OAuth error means the code was rejected.
func exchange(ctx context.Context, cfg *oauth2.Config, client *http.Client, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	tok, err := cfg.Exchange(ctx, code, opts...)
	if err == nil {
		return tok, nil
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && (re.ErrorCode != "" || re.Response == nil || re.Response.StatusCode < 500) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return nil, err
}

// bearerClient sends token as the Authorization header on every request.
func bearerClient(ctx context.Context, base *http.Client, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	c.Timeout = base.Timeout
	return c
}

// readBody returns the response body, or ErrInvalidCredential for a 4xx.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidCredential, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return body, nil
}
