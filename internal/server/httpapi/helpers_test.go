package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/users"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingMedia struct {
	mu       sync.Mutex
	n        int
	contents map[string]string
	deleted  []string
}

func (m *recordingMedia) Upload(ctx context.Context, localPath string) (*media.UploadResult, error) {
	b, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	key := fmt.Sprintf("avatars/%d", m.n)
	m.contents[key] = string(b)
	return &media.UploadResult{SecureURL: "http://cdn/" + key, Key: key}, nil
}

func (m *recordingMedia) Delete(ctx context.Context, url string) (*media.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return &media.DeleteResult{Result: media.ResultOK}, nil
}

type stubChannels struct {
	lastQuery models.ChannelProfileQuery
}

func (s *stubChannels) ChannelProfile(ctx context.Context, q models.ChannelProfileQuery) (*models.ChannelProfile, error) {
	s.lastQuery = q
	return &models.ChannelProfile{ID: "c-1", Username: q.Username, SubscriberCount: 4}, nil
}

func (s *stubChannels) WatchHistory(ctx context.Context, q models.WatchHistoryQuery) ([]models.WatchedVideo, error) {
	return []models.WatchedVideo{{ID: "v2", Owner: models.VideoOwner{Username: "bob"}}, {ID: "v1"}}, nil
}

type env struct {
	t        *testing.T
	cfg      *config.Config
	router   http.Handler
	tempDir  string
	media    *recordingMedia
	channels *stubChannels
	users    *users.MemoryRepository
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PasswordHashCost = bcrypt.MinCost
	cfg.AccessTokenValidityDuration = time.Hour
	cfg.RefreshTokenValidityDuration = 2 * time.Hour
	cfg.AuthRateLimit = 0
	return cfg
}

func newEnv(t *testing.T, mutate ...func(*config.Config)) *env {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	e := &env{
		t:        t,
		cfg:      cfg,
		tempDir:  t.TempDir(),
		media:    &recordingMedia{contents: map[string]string{}},
		channels: &stubChannels{},
		users:    users.NewMemoryRepository(),
	}

	logger := logging.NopLogger{}
	svc := services.NewUserService(nil, repomanager.NewInMemoryRepositoryManager(e.users, e.channels), e.media, cfg, logger)
	h := NewHandler(svc, cfg, e.tempDir, logger)
	e.router = NewRouter(h, cfg, logger, nil)
	return e
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type upload struct {
	field, filename, content string
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type result struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	var r result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r), rec.Body.String())
	return r
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func aliceFields() map[string]string {
	return map[string]string{
		"fullname": "Alice A",
		"email":    "alice@x.com",
		"username": "alice",
		"password": "s3cret",
	}
}

// registerAndLogin creates alice and returns her login cookies.
func (e *env) registerAndLogin() (access, refresh string) {
	t := e.t
	t.Helper()

	rec := e.do(multipartRequest(t, http.MethodPost, APIPrefix+"/register", aliceFields(),
		upload{"avatar", "a.png", "PNG"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(jsonRequest(t, http.MethodPost, APIPrefix+"/login", map[string]string{"email": "alice@x.com", "password": "s3cret"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return cookieByName(rec, "accessToken").Value, cookieByName(rec, "refreshToken").Value
}

func authed(req *http.Request, access string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	return req
}

var errBoom = errors.New("boom")

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func containsKey(raw json.RawMessage, key string) bool {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}
