package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/joshua-takyi/minisocial/internal/models"
	"github.com/joshua-takyi/minisocial/internal/models/memstore"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testJWTSecret = "test-jwt-secret"

type sentMail struct {
	to      string
	otp     string
	subject string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendOTP(ctx context.Context, to, otp, subject string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, otp: otp, subject: subject})
	return m.err
}

func (m *fakeMailer) last(to string) sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].to == to {
			return m.sent[i]
		}
	}
	return sentMail{}
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store    *memstore.Store
	mailer   *fakeMailer
	clock    *testClock
	identity *IdentityService
	guard    *Guard
	social   *SocialService
	feed     *FeedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := memstore.New()
	store.Now = clock.Now
	mailer := &fakeMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	identity := NewIdentityService(store, store, store, store, mailer, logger, IdentityConfig{
		JWTSecret:      testJWTSecret,
		TokenTTL:       7 * 24 * time.Hour,
		SessionTTL:     7 * 24 * time.Hour,
		OTPTTL:         5 * time.Minute,
		OTPMaxAttempts: 5,
	})
	identity.now = clock.Now

	guard := NewGuard(store, store, testJWTSecret)
	guard.now = clock.Now

	feed := NewFeedService(store, store)
	feed.now = clock.Now

	return &fixture{
		store:    store,
		mailer:   mailer,
		clock:    clock,
		identity: identity,
		guard:    guard,
		social:   NewSocialService(store, store),
		feed:     feed,
	}
}

// signupVerified runs signup and OTP verification for a new account.
func (f *fixture) signupVerified(t *testing.T, email, username, password string) *AuthResult {
	t.Helper()
	ctx := context.Background()

	_, err := f.identity.Signup(ctx, email, username, password)
	require.NoError(t, err)

	res, err := f.identity.VerifyOTP(ctx, email, f.mailer.last(email).otp)
	require.NoError(t, err)
	return res
}

// addUser inserts a user directly, skipping password hashing.
func (f *fixture) addUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	user.BeforeCreate(f.clock.Now())
	require.NoError(t, f.store.CreateUser(context.Background(), user))
	f.clock.Advance(time.Second)
	return user
}

func (f *fixture) post(t *testing.T, author primitive.ObjectID, content string) *models.Post {
	t.Helper()
	p, err := f.feed.CreatePost(context.Background(), author, content)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return p
}

func (f *fixture) user(t *testing.T, id primitive.ObjectID) *models.User {
	t.Helper()
	u, err := f.store.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// requireMutualFollows checks that every following edge has its matching
// followers edge and the other way round.
func requireMutualFollows(t *testing.T, users ...*models.User) {
	t.Helper()
	byID := make(map[primitive.ObjectID]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, u := range users {
		for _, target := range u.Following {
			if other, ok := byID[target]; ok {
				require.Truef(t, other.HasFollower(u.ID), "%s follows %s but is not in their followers", u.Username, other.Username)
			}
		}
		for _, follower := range u.Followers {
			if other, ok := byID[follower]; ok {
				require.Truef(t, other.IsFollowing(u.ID), "%s is a follower of %s but does not follow them", other.Username, u.Username)
			}
		}
	}
}
