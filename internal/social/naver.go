package social

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/pkg/config"
)

var naverEndpoint = oauth2.Endpoint{
	AuthURL:   "https://nid.naver.com/oauth2.0/authorize",
	TokenURL:  "https://nid.naver.com/oauth2.0/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Naver signs users in through Naver Login. Naver wraps every profile
// response in a resultcode envelope where "00" means success.
type Naver struct {
	oauth  *oauth2.Config
	client *http.Client
	apiURL string
}

func NewNaver(cfg config.OAuthClient) *Naver {
	return newNaver(cfg, naverEndpoint, "https://openapi.naver.com")
}

func newNaver(cfg config.OAuthClient, endpoint oauth2.Endpoint, apiURL string) *Naver {
	return &Naver{
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

func (n *Naver) Platform() string { return models.PlatformNaver }

func (n *Naver) AuthorizationURL(state string) string {
	return n.oauth.AuthCodeURL(state)
}

// ExchangeCode sends the callback state back with the code, which Naver
// requires on the token request.
func (n *Naver) ExchangeCode(ctx context.Context, code, state string) (*Profile, error) {
	tok, err := exchange(ctx, n.oauth, n.client, code, oauth2.SetAuthURLParam("state", state))
	if err != nil {
		return nil, fmt.Errorf("naver token request: %w", err)
	}
	return n.VerifyToken(ctx, tok.AccessToken)
}

func (n *Naver) VerifyToken(ctx context.Context, token string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.apiURL+"/v1/nid/me", nil)
	if err != nil {
		return nil, err
	}
	resp, err := bearerClient(ctx, n.client, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("naver profile request: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if code := gjson.GetBytes(body, "resultcode").String(); code != "00" {
		return nil, fmt.Errorf("%w: naver resultcode %s", ErrInvalidCredential, code)
	}
	r := gjson.GetBytes(body, "response")
	name := r.Get("name").String()
	if name == "" {
		name = r.Get("nickname").String()
	}
	return &Profile{
		Platform:     models.PlatformNaver,
		SnsID:        r.Get("id").String(),
		Name:         name,
		Email:        r.Get("email").String(),
		ProfileImage: r.Get("profile_image").String(),
	}, nil
}
