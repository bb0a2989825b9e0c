package social

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"github.com/bluerally/buooy-backend/internal/models"
)

// IDTokenVerifier is the part of the Firebase auth client used here.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Firebase accepts ID tokens minted by Firebase Authentication on mobile.
// It has no browser redirect flow.
type Firebase struct {
	verifier IDTokenVerifier
}

func NewFirebase(verifier IDTokenVerifier) *Firebase {
	return &Firebase{verifier: verifier}
}

func (f *Firebase) Platform() string { return models.PlatformFirebase }

func (f *Firebase) AuthorizationURL(string) string { return "" }

func (f *Firebase) ExchangeCode(context.Context, string, string) (*Profile, error) {
	return nil, fmt.Errorf("%w: firebase has no web login", ErrUnsupported)
}

func (f *Firebase) VerifyToken(ctx context.Context, token string) (*Profile, error) {
	t, err := f.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	claim := func(k string) string {
		s, _ := t.Claims[k].(string)
		return s
	}
	return &Profile{
		Platform:     models.PlatformFirebase,
		SnsID:        t.UID,
		Name:         claim("name"),
		Email:        claim("email"),
		ProfileImage: claim("picture"),
	}, nil
}
