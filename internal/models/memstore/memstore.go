// Package memstore is an in-memory implementation of the storage
// interfaces in models. It backs the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joshua-takyi/minisocial/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type session struct {
	userID    primitive.ObjectID
	expiresAt time.Time
}

type attempt struct {
	count     int64
	expiresAt time.Time
}

type Store struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]*models.User
	posts    map[primitive.ObjectID]*models.Post
	sessions map[string]session
	attempts map[string]attempt

	// Now is used for session and attempt expiry.
	Now func() time.Time
}

var (
	_ models.UserRepo       = (*Store)(nil)
	_ models.PostRepo       = (*Store)(nil)
	_ models.SessionStore   = (*Store)(nil)
	_ models.AttemptLimiter = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]*models.User),
		posts:    make(map[primitive.ObjectID]*models.Post),
		sessions: make(map[string]session),
		attempts: make(map[string]attempt),
		Now:      time.Now,
	}
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Followers = cloneIDs(u.Followers)
	c.Following = cloneIDs(u.Following)
	if u.OTPExpiry != nil {
		t := *u.OTPExpiry
		c.OTPExpiry = &t
	}
	return &c
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Likes = cloneIDs(p.Likes)
	return &c
}

func addID(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	for _, v := range ids {
		if v == id {
			return ids, false
		}
	}
	return append(ids, id), true
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return &models.DuplicateError{Field: "username"}
		}
		if u.Email == user.Email {
			return &models.DuplicateError{Field: "email"}
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.findUser(func(u *models.User) bool { return u.Email == email })
}

func (s *Store) GetUserByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	lower := strings.ToLower(identifier)
	return s.findUser(func(u *models.User) bool {
		return u.Email == lower || u.Username == identifier
	})
}

func (s *Store) findUser(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *Store) ListUsers(ctx context.Context, offset, limit int64) ([]*models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID.Hex() < all[j].ID.Hex()
	})

	total := int64(len(all))
	out := []*models.User{}
	for i := offset; i < total && i < offset+limit; i++ {
		out = append(out, cloneUser(all[i]))
	}
	return out, total, nil
}

func (s *Store) SetOTP(ctx context.Context, id primitive.ObjectID, otp string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.OTP = otp
	u.OTPExpiry = &expiry
	return nil
}

func (s *Store) ConsumeOTP(ctx context.Context, id primitive.ObjectID, otp string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.OTP == "" || u.OTP != otp {
		return false, nil
	}
	u.OTPVerified = true
	u.OTP = ""
	u.OTPExpiry = nil
	return true, nil
}

func (s *Store) ResetPassword(ctx context.Context, id primitive.ObjectID, otp, passwordHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.OTP == "" || u.OTP != otp {
		return false, nil
	}
	u.PasswordHash = passwordHash
	u.OTP = ""
	u.OTPExpiry = nil
	return true, nil
}

func (s *Store) AddFollow(ctx context.Context, followerID, targetID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	follower, ok := s.users[followerID]
	if !ok {
		return false, models.ErrUserNotFound
	}
	target, ok := s.users[targetID]
	if !ok {
		return false, models.ErrUserNotFound
	}

	now := s.Now()
	var added, repaired bool
	if follower.Following, added = addID(follower.Following, targetID); added {
		follower.UpdatedAt = now
	}
	if target.Followers, repaired = addID(target.Followers, followerID); repaired {
		target.UpdatedAt = now
	}
	return added, nil
}

func (s *Store) RemoveFromFollowGraph(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		u.Followers = removeID(u.Followers, id)
		u.Following = removeID(u.Following, id)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return models.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

// posts

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *Store) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, models.ErrPostNotFound
	}
	return clonePost(p), nil
}

func (s *Store) ListPostsByAuthors(ctx context.Context, authorIDs []primitive.ObjectID) ([]*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	authors := make(map[primitive.ObjectID]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}

	out := []*models.Post{}
	for _, p := range s.posts {
		if authors[p.AuthorID] {
			out = append(out, clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (s *Store) UpdatePostContent(ctx context.Context, id primitive.ObjectID, content string, now time.Time) (*models.Post, error) {
	return s.updatePost(id, func(p *models.Post) {
		p.Content = content
		p.Edited = true
		p.UpdatedAt = now
	})
}

func (s *Store) AddLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	return s.updatePost(postID, func(p *models.Post) {
		p.Likes, _ = addID(p.Likes, userID)
	})
}

func (s *Store) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	return s.updatePost(postID, func(p *models.Post) {
		p.Likes = removeID(p.Likes, userID)
	})
}

func (s *Store) updatePost(id primitive.ObjectID, apply func(*models.Post)) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, models.ErrPostNotFound
	}
	apply(p)
	return clonePost(p), nil
}

func (s *Store) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return models.ErrPostNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) DeletePostsByAuthor(ctx context.Context, authorID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, p := range s.posts {
		if p.AuthorID == authorID {
			delete(s.posts, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) PullLikesByUser(ctx context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.posts {
		p.Likes = removeID(p.Likes, userID)
	}
	return nil
}

// sessions

func (s *Store) CreateSession(ctx context.Context, sessionID string, userID primitive.ObjectID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = session{userID: userID, expiresAt: s.Now().Add(ttl)}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || !s.Now().Before(sess.expiresAt) {
		return primitive.NilObjectID, models.ErrSessionNotFound
	}
	return sess.userID, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.userID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

// SessionCount returns the number of live sessions for userID.
func (s *Store) SessionCount(userID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, sess := range s.sessions {
		if sess.userID == userID && s.Now().Before(sess.expiresAt) {
			n++
		}
	}
	return n
}

// attempts

func (s *Store) RegisterAttempt(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	a, ok := s.attempts[key]
	if !ok || !now.Before(a.expiresAt) {
		a = attempt{expiresAt: now.Add(window)}
	}
	a.count++
	s.attempts[key] = a
	return a.count, nil
}

func (s *Store) ResetAttempts(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.attempts, key)
	return nil
}
