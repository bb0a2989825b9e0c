package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/handlers"
	"github.com/bluerally/buooy-backend/internal/middleware"
	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/services"
	"github.com/bluerally/buooy-backend/internal/social"
	"github.com/bluerally/buooy-backend/internal/testutil"
	"github.com/bluerally/buooy-backend/pkg/cache"
	"github.com/bluerally/buooy-backend/pkg/config"
	"github.com/bluerally/buooy-backend/pkg/metrics"
	"github.com/bluerally/buooy-backend/pkg/storage"
)

const jwtSecret = "router-test-secret"

type stubProvider struct{ platform string }

func (p stubProvider) Platform() string { return p.platform }

func (p stubProvider) AuthorizationURL(state string) string {
	return "https://auth.example.com/?state=" + state
}

func (p stubProvider) ExchangeCode(ctx context.Context, code, _ string) (*social.Profile, error) {
	return p.VerifyToken(ctx, code)
}

func (p stubProvider) VerifyToken(_ context.Context, token string) (*social.Profile, error) {
	return &social.Profile{Platform: p.platform, SnsID: "sns-" + token, Name: token}, nil
}

type testServer struct {
	e   *echo.Echo
	svc *Services
	db  *gorm.DB
}

func newTestServer(t *testing.T, health map[string]handlers.Pinger) *testServer {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	cfg := &config.Config{
		App: config.AppConfig{
			Name:      "buooy-backend",
			Env:       "test",
			ClientURL: "http://client.example.com/login",
			TimeZone:  "UTC",
		},
		JWT: config.JWTConfig{
			Secret:          jwtSecret,
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
			HandoffTTL:      time.Minute,
		},
		Admin: config.AdminConfig{SessionSecret: "admin-secret", SessionTTL: time.Hour},
	}
	e, svc, err := NewServer(Dependencies{
		Config:    cfg,
		DB:        db,
		Cache:     cache.NewMemoryStore(),
		Storage:   storage.NewMemoryStorage("https://cdn.example.com"),
		Providers: social.NewRegistry(stubProvider{models.PlatformKakao}),
		Metrics:   metrics.New(),
		Health:    health,
		Log:       zap.NewNop(),
	})
	require.NoError(t, err)
	return &testServer{e: e, svc: svc, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, userID uint) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != 0 {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, userID))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, userID uint) string {
	t.Helper()
	tok, err := services.NewAccessToken(jwtSecret, userID, time.Now(), time.Hour)
	require.NoError(t, err)
	return tok
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, map[string]handlers.Pinger{
		"postgres": handlers.PingFunc(func(context.Context) error { return nil }),
	})
	rec := s.do(t, http.MethodGet, "/health", nil, 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	s = newTestServer(t, map[string]handlers.Pinger{
		"redis": handlers.PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec = s.do(t, http.MethodGet, "/health", nil, 0)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode(t, rec)["status"])
}

func TestMobileLogin(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/user/auth/mobile/token", echo.Map{"platform": "kakao", "id_token": "alice"}, 0)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pair := decode(t, rec)
	assert.Equal(t, true, pair["is_new_user"])
	access, _ := pair["access_token"].(string)
	require.NotEmpty(t, access)

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
	me := httptest.NewRecorder()
	s.e.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "alice", decode(t, me)["name"])

	rec = s.do(t, http.MethodPost, "/api/user/auth/mobile/token", echo.Map{"platform": "myspace", "id_token": "x"}, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/user/me", nil, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPartyRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	organizer := testutil.CreateUser(t, s.db, "organizer")
	guest := testutil.CreateUser(t, s.db, "guest")
	sport := testutil.CreateSport(t, s.db, "freediving")

	gather := time.Now().UTC().Add(72 * time.Hour)
	create := echo.Map{
		"title":             "Sunrise dive",
		"body":              "meet at the pier",
		"gather_date":       gather.Format("2006-01-02"),
		"gather_time":       "07:30",
		"participant_limit": 4,
		"sport_id":          sport.ID,
	}

	rec := s.do(t, http.MethodPost, "/api/party", create, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/party", create, organizer.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	partyID := uint(decode(t, rec)["party_id"].(float64))

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/party/details/%d", partyID), nil, 0)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/party/%d/participate", partyID), nil, guest.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/party/%d/participate", partyID), nil, guest.ID)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/notifications/count", nil, organizer.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["count"])

	rec = s.do(t, http.MethodGet, "/api/notifications", nil, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/party/list?page=1", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	meta := body["meta"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["totalItems"])
	assert.Equal(t, false, meta["hasNextPage"])

	rec = s.do(t, http.MethodGet, "/api/party/details/abc", nil, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/party/details/999", nil, 0)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommunityRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	author := testutil.CreateUser(t, s.db, "author")
	reader := testutil.CreateUser(t, s.db, "reader")
	sport := testutil.CreateSport(t, s.db, "surfing")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Best breaks"))
	require.NoError(t, w.WriteField("content", "Where to surf in October"))
	require.NoError(t, w.WriteField("sport_id", fmt.Sprint(sport.ID)))
	require.NoError(t, w.WriteField("tags", "#Yangyang"))
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="images"; filename="wave.png"`)
	header.Set("Content-Type", "image/png")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/community/post", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, author.ID))
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode(t, rec)
	postID := uint(post["id"].(float64))
	assert.Len(t, post["images"], 1)
	assert.Equal(t, []interface{}{"yangyang"}, post["tags"])

	rec = s.do(t, http.MethodGet, "/api/community/post?tag=yangyang", nil, reader.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	meta := decode(t, rec)["meta"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["totalItems"])

	likePath := fmt.Sprintf("/api/community/post/%d/like", postID)
	rec = s.do(t, http.MethodPost, likePath, nil, reader.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["liked"])
	rec = s.do(t, http.MethodPost, likePath, nil, reader.ID)
	assert.Equal(t, false, decode(t, rec)["liked"])

	commentPath := fmt.Sprintf("/api/community/post/%d/comment", postID)
	rec = s.do(t, http.MethodPost, commentPath, echo.Map{"content": "Thanks!"}, reader.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	commentID := uint(decode(t, rec)["id"].(float64))

	rec = s.do(t, http.MethodPost, fmt.Sprintf("%s/%d/reply", commentPath, commentID), echo.Map{"content": "Anytime"}, author.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, fmt.Sprintf("%s/%d", commentPath, commentID), echo.Map{"content": "edited"}, author.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/community/post/%d", postID), nil, reader.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/community/post/%d", postID), nil, author.ID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestFeedbackAndAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	user := testutil.CreateUser(t, s.db, "member")

	rec := s.do(t, http.MethodPost, "/api/feedback", echo.Map{"content": "Please add kayaking"}, 0)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/feedback", echo.Map{"content": ""}, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/feedback", nil, 0)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get(echo.HeaderLocation))

	rec = s.do(t, http.MethodGet, "/admin/login", nil, 0)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := s.svc.Admin.CreateAdmin(context.Background(), "root", "correct-horse")
	require.NoError(t, err)

	login := func(password string) *httptest.ResponseRecorder {
		form := url.Values{"username": {"root"}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusUnauthorized, login("wrong-password").Code)

	rec = login("correct-horse")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	session := cookies[0]
	assert.Equal(t, middleware.AdminCookieName, session.Name)

	adminGet := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.AddCookie(session)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec
	}

	rec = adminGet(http.MethodGet, "/admin/feedback")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please add kayaking")

	rec = adminGet(http.MethodGet, fmt.Sprintf("/admin/users/%d", user.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Deactivate")

	rec = adminGet(http.MethodGet, "/admin/requests")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")

	rec = adminGet(http.MethodPost, fmt.Sprintf("/admin/users/%d/toggle-active", user.ID))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	var reloaded models.User
	require.NoError(t, s.db.First(&reloaded, user.ID).Error)
	assert.False(t, reloaded.IsActive)

	announce := func(message string) *httptest.ResponseRecorder {
		form := url.Values{"message": {message}}
		req := httptest.NewRequest(http.MethodPost, "/admin/announcements", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.AddCookie(session)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec
	}
	rec = announce(" ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Message is required")

	rec = announce("Pool closed on Monday")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/announcements?sent=1", rec.Header().Get(echo.HeaderLocation))

	rec = adminGet(http.MethodGet, "/admin/announcements?sent=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Announcement sent.")

	var notice models.Notification
	require.NoError(t, s.db.Where("is_global = ?", true).First(&notice).Error)
	assert.Equal(t, models.ClassifyAnnouncement, notice.Classification)
	assert.Equal(t, "Pool closed on Monday", notice.Message)
}
