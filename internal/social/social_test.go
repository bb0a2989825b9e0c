package social

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/pkg/config"
)

var testClient = config.OAuthClient{ClientID: "client", ClientSecret: "secret", RedirectURI: "http://localhost/callback"}

func testEndpoint(base, prefix string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   base + prefix + "/authorize",
		TokenURL:  base + prefix + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestKakao(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client", r.PostForm.Get("client_id"))
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			if r.PostForm.Get("code") != "good-code" {
				writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"access_token":"kakao-token","token_type":"bearer"}`)
		case "/v2/user/me":
			if r.Header.Get("Authorization") != "Bearer kakao-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, `{"id":12345,"kakao_account":{"email":"k@example.com","profile":{"nickname":"kim","profile_image_url":"http://img/k.png"}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	k := newKakao(testClient, testEndpoint(srv.URL, "/oauth"), srv.URL)

	p, err := k.ExchangeCode(context.Background(), "good-code", "")
	require.NoError(t, err)
	assert.Equal(t, &Profile{
		Platform:     models.PlatformKakao,
		SnsID:        "12345",
		Name:         "kim",
		Email:        "k@example.com",
		ProfileImage: "http://img/k.png",
	}, p)

	_, err = k.ExchangeCode(context.Background(), "bad-code", "")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = k.VerifyToken(context.Background(), "stolen")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	u, err := url.Parse(k.AuthorizationURL("xyz"))
	require.NoError(t, err)
	assert.Equal(t, "/oauth/authorize", u.Path)
	assert.Equal(t, "client", u.Query().Get("client_id"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, "http://localhost/callback", u.Query().Get("redirect_uri"))
	assert.Equal(t, "xyz", u.Query().Get("state"))
}

func TestKakaoEndpoint(t *testing.T) {
	u, err := url.Parse(NewKakao(testClient).AuthorizationURL("s"))
	require.NoError(t, err)
	assert.Equal(t, "kauth.kakao.com", u.Host)
}

func TestNaver(t *testing.T) {
	resultCode := "00"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2.0/token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "st", r.PostForm.Get("state"))
			assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
			if r.PostForm.Get("code") == "used" {
				// Naver reports token errors with a 200 status.
				writeJSON(w, http.StatusOK, `{"error":"invalid_request","error_description":"no valid data in session"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"access_token":"naver-token","token_type":"bearer"}`)
		case "/v1/nid/me":
			assert.Equal(t, "Bearer naver-token", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"resultcode":"`+resultCode+`","response":{"id":"n-1","nickname":"park","email":"p@example.com"}}`)
		}
	}))
	defer srv.Close()

	n := newNaver(testClient, testEndpoint(srv.URL, "/oauth2.0"), srv.URL)

	p, err := n.ExchangeCode(context.Background(), "code", "st")
	require.NoError(t, err)
	assert.Equal(t, "n-1", p.SnsID)
	assert.Equal(t, "park", p.Name)

	_, err = n.ExchangeCode(context.Background(), "used", "st")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	resultCode = "024"
	_, err = n.VerifyToken(context.Background(), "naver-token")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGoogleExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.PostForm.Get("code") {
		case "good-code":
			writeJSON(w, http.StatusOK, `{"access_token":"at","token_type":"Bearer","id_token":"good"}`)
		case "no-id-token":
			writeJSON(w, http.StatusOK, `{"access_token":"at","token_type":"Bearer"}`)
		case "outage":
			writeJSON(w, http.StatusServiceUnavailable, `{}`)
		default:
			writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant"}`)
		}
	}))
	defer srv.Close()

	g := newGoogle(testClient, testEndpoint(srv.URL, "/o/oauth2"))
	g.validate = func(_ context.Context, token, _ string) (*idtoken.Payload, error) {
		if token != "good" {
			return nil, errors.New("idtoken: invalid token")
		}
		return &idtoken.Payload{Subject: "g-1", Claims: map[string]interface{}{"email": "g@example.com"}}, nil
	}

	p, err := g.ExchangeCode(context.Background(), "good-code", "")
	require.NoError(t, err)
	assert.Equal(t, "g-1", p.SnsID)

	_, err = g.ExchangeCode(context.Background(), "no-id-token", "")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = g.ExchangeCode(context.Background(), "bad-code", "")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = g.ExchangeCode(context.Background(), "outage", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredential)

	u, err := url.Parse(g.AuthorizationURL("st"))
	require.NoError(t, err)
	assert.Equal(t, "openid email profile", u.Query().Get("scope"))
	assert.Equal(t, "st", u.Query().Get("state"))
}

func TestGoogleVerifyToken(t *testing.T) {
	g := NewGoogle(testClient)
	g.validate = func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		assert.Equal(t, "client", audience)
		if token != "good" {
			return nil, errors.New("idtoken: invalid token")
		}
		return &idtoken.Payload{Subject: "g-1", Claims: map[string]interface{}{"email": "g@example.com", "name": "lee"}}, nil
	}

	p, err := g.VerifyToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "g-1", p.SnsID)
	assert.Equal(t, "lee", p.Name)
	assert.Empty(t, p.ProfileImage)

	_, err = g.VerifyToken(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

type fakeVerifier struct{}

func (fakeVerifier) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	if token != "fb" {
		return nil, errors.New("expired")
	}
	return &auth.Token{UID: "uid-1", Claims: map[string]interface{}{"email": "f@example.com"}}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewFirebase(fakeVerifier{}), NewKakao(testClient))

	p, err := r.Get(models.PlatformFirebase)
	require.NoError(t, err)
	profile, err := p.VerifyToken(context.Background(), "fb")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", profile.SnsID)

	_, err = p.ExchangeCode(context.Background(), "c", "")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = r.Get("myspace")
	assert.ErrorIs(t, err, ErrUnsupported)
}
