package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/minisocial/internal/config"
	"github.com/joshua-takyi/minisocial/internal/container"
	"github.com/joshua-takyi/minisocial/internal/models/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type captureMailer struct {
	mu   sync.Mutex
	otps map[string]string
}

func (m *captureMailer) SendOTP(ctx context.Context, to, otp, subject string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps[to] = otp
	return nil
}

func (m *captureMailer) otp(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otps[to]
}

type testServer struct {
	router *gin.Engine
	mailer *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Environment:    "test",
		SessionSecret:  "test-session-secret",
		JWTSecret:      "test-jwt-secret",
		AllowedOrigin:  "http://localhost:3000",
		TokenTTL:       time.Hour,
		SessionTTL:     time.Hour,
		OTPTTL:         5 * time.Minute,
		OTPMaxAttempts: 5,
	}
	store := memstore.New()
	mailer := &captureMailer{otps: map[string]string{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c := container.NewContainer(cfg, logger, container.Repos{
		Users:    store,
		Posts:    store,
		Sessions: store,
		Attempts: store,
	}, mailer)

	return &testServer{router: SetupRoutes(c), mailer: mailer}
}

type reqOpt func(*http.Request)

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(cookie *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(cookie) }
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, opts ...reqOpt) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

type account struct {
	id     string
	token  string
	cookie *http.Cookie
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == container.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", container.SessionCookieName)
	return nil
}

func (s *testServer) register(t *testing.T, email, username, password string) account {
	t.Helper()

	rec, _ := s.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"email": email, "username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body := s.do(t, http.MethodPost, "/api/auth/verify-otp", gin.H{
		"email": email, "otp": s.mailer.otp(email),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	user := body["user"].(map[string]interface{})
	return account{
		id:     user["id"].(string),
		token:  body["token"].(string),
		cookie: sessionCookie(t, rec),
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"email": "A@x.com", "username": "alice", "password": "pw1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "a@x.com", body["email"])

	rec, body = s.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"email": "a@x.com", "username": "other", "password": "pw1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", body["error"])

	rec, body = s.do(t, http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": "12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Incorrect OTP", body["error"])

	otp := s.mailer.otp("a@x.com")
	rec, body = s.do(t, http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": otp})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["token"])
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, user, "otp")

	rec, _ = s.do(t, http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": otp})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "otp is single use")

	rec, body = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "a@x.com", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No user found or incorrect password", body["error"])

	rec, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "a@x.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/feed", nil, withCookie(cookie))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/logout", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/feed", nil, withCookie(cookie))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", body["error"])
}

func TestForgotPasswordFlow(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "a@x.com", "alice", "old")

	rec, body := s.do(t, http.MethodPost, "/api/auth/forgot", gin.H{"emailOrUsername": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No user found with that email or username", body["error"])

	rec, body = s.do(t, http.MethodPost, "/api/auth/forgot", gin.H{"emailOrUsername": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", body["email"])

	otp := s.mailer.otp("a@x.com")
	rec, _ = s.do(t, http.MethodPost, "/api/auth/forgot/verify-otp", gin.H{"email": "a@x.com", "otp": otp})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{
		"email": "a@x.com", "otp": otp, "newPassword": "new",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "a@x.com", "password": "new"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupAcceptsForm(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"email": {"f@x.com"}, "username": {"formy"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, s.mailer.otp("f@x.com"))
}

func TestSocialFlow(t *testing.T) {
	s := newTestServer(t)

	alice := s.register(t, "a@x.com", "alice", "pw1")
	bob := s.register(t, "b@x.com", "bob", "pw2")

	rec, body := s.do(t, http.MethodPost, "/api/feed/create", gin.H{"content": "hi"}, withBearer(bob.token))
	require.Equal(t, http.StatusCreated, rec.Code)
	postID := body["post"].(map[string]interface{})["id"].(string)

	rec, _ = s.do(t, http.MethodPost, "/api/feed/create", gin.H{"content": "   "}, withBearer(bob.token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/feed", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/feed", nil, withCookie(alice.cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["posts"])

	rec, body = s.do(t, http.MethodPost, "/api/people/"+bob.id+"/follow", nil, withCookie(alice.cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Followed", body["message"])
	assert.Equal(t, float64(1), body["followersCount"])

	rec, body = s.do(t, http.MethodPost, "/api/people/"+bob.id+"/follow", nil, withBearer(alice.token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Already following", body["message"])
	assert.Equal(t, float64(1), body["followersCount"])

	rec, body = s.do(t, http.MethodPost, "/api/people/"+alice.id+"/follow", nil, withBearer(alice.token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You cannot follow yourself", body["error"])

	rec, body = s.do(t, http.MethodGet, "/api/feed", nil, withCookie(alice.cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	posts := body["posts"].([]interface{})
	require.Len(t, posts, 1)
	post := posts[0].(map[string]interface{})
	assert.Equal(t, "hi", post["content"])
	assert.Equal(t, "bob", post["author"].(map[string]interface{})["username"])

	rec, body = s.do(t, http.MethodPost, "/api/feed/"+postID+"/like", nil, withBearer(alice.token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["liked"])
	assert.Equal(t, float64(1), body["likesCount"])

	rec, body = s.do(t, http.MethodPut, "/api/feed/posts/"+postID, gin.H{"content": "mine"}, withBearer(alice.token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not own this post", body["error"])

	rec, _ = s.do(t, http.MethodDelete, "/api/feed/posts/"+postID, nil, withBearer(alice.token))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = s.do(t, http.MethodPut, "/api/feed/posts/"+postID, gin.H{"content": "hello"}, withBearer(bob.token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["post"].(map[string]interface{})["edited"])

	rec, _ = s.do(t, http.MethodPost, "/api/feed/not-an-id/like", nil, withBearer(alice.token))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/people", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["users"], 2)
	assert.Nil(t, body["currentUser"])

	rec, body = s.do(t, http.MethodGet, "/api/people?page=1&perPage=1", nil, withBearer(alice.token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["users"], 1)
	assert.Equal(t, float64(2), body["totalPages"])
	assert.Equal(t, alice.id, body["currentUser"])

	rec, body = s.do(t, http.MethodGet, "/api/people/"+bob.id, nil, withCookie(alice.cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["isFollowing"])
	assert.NotContains(t, body["user"], "email")
	assert.Len(t, body["posts"], 1)

	rec, _ = s.do(t, http.MethodGet, "/api/people/not-an-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/feed/posts/"+postID, nil, withBearer(bob.token))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteAccountFlow(t *testing.T) {
	s := newTestServer(t)

	alice := s.register(t, "a@x.com", "alice", "pw1")
	bob := s.register(t, "b@x.com", "bob", "pw2")

	rec, _ := s.do(t, http.MethodPost, "/api/people/"+bob.id+"/follow", nil, withBearer(alice.token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/delete-account", gin.H{"password": "pw1", "confirmText": "DELETE"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/auth/delete-account", gin.H{"password": "pw1", "confirmText": "yes"}, withCookie(alice.cookie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `You must type "DELETE" exactly to confirm account deletion`, body["error"])

	rec, _ = s.do(t, http.MethodPost, "/api/auth/delete-account", gin.H{"password": "pw1", "confirmText": "DELETE"}, withCookie(alice.cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/feed", nil, withBearer(alice.token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/people/"+bob.id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["user"].(map[string]interface{})["followersCount"])
}
