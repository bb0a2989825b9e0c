package social

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/pkg/config"
)

// Kakao signs users in through Kakao Login.
type Kakao struct {
	oauth  *oauth2.Config
	client *http.Client
	apiURL string
}

func NewKakao(cfg config.OAuthClient) *Kakao {
	endpoint := endpoints.KaKao
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return newKakao(cfg, endpoint, "https://kapi.kakao.com")
}

func newKakao(cfg config.OAuthClient, endpoint oauth2.Endpoint, apiURL string) *Kakao {
	return &Kakao{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     endpoint,
		},
		client: defaultHTTPClient(),
		apiURL: apiURL,
	}
}

func (k *Kakao) Platform() string { return models.PlatformKakao }

func (k *Kakao) AuthorizationURL(state string) string {
	return k.oauth.AuthCodeURL(state)
}

func (k *Kakao) ExchangeCode(ctx context.Context, code, _ string) (*Profile, error) {
	tok, err := exchange(ctx, k.oauth, k.client, code)
	if err != nil {
		return nil, fmt.Errorf("kakao token request: %w", err)
	}
	return k.VerifyToken(ctx, tok.AccessToken)
}

// VerifyToken loads the account behind a Kakao access token.
func (k *Kakao) VerifyToken(ctx context.Context, token string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.apiURL+"/v2/user/me", nil)
	if err != nil {
		return nil, err
	}
	resp, err := bearerClient(ctx, k.client, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("kakao profile request: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	id := gjson.GetBytes(body, "id")
	if !id.Exists() {
		return nil, fmt.Errorf("%w: kakao profile without id", ErrInvalidCredential)
	}
	account := gjson.GetBytes(body, "kakao_account")
	return &Profile{
		Platform:     models.PlatformKakao,
		SnsID:        id.String(),
		Name:         account.Get("profile.nickname").String(),
		Email:        account.Get("email").String(),
		ProfileImage: account.Get("profile.profile_image_url").String(),
	}, nil
}
