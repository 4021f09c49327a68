package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joshua-takyi/minisocial/internal/helpers"
	"github.com/joshua-takyi/minisocial/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Credential is something a caller presented to prove who they are.
type Credential interface {
	kind() string
}

// SessionCredential references a server-side session.
type SessionCredential struct {
	ID string
}

// BearerCredential is a signed token carrying the user id.
type BearerCredential struct {
	Token string
}

func (SessionCredential) kind() string { return "session" }
func (BearerCredential) kind() string  { return "bearer" }

type Guard struct {
	userRepo  models.UserRepo
	sessions  models.SessionStore
	jwtSecret string
	now       func() time.Time
}

func NewGuard(userRepo models.UserRepo, sessions models.SessionStore, jwtSecret string) *Guard {
	return &Guard{
		userRepo:  userRepo,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

// Resolve returns the user behind the first credential that checks out.
// Bearer credentials are tried before sessions regardless of argument
// order. An invalid bearer falls through to the session.
func (g *Guard) Resolve(ctx context.Context, creds ...Credential) (*models.User, error) {
	ordered := make([]Credential, 0, len(creds))
	for _, c := range creds {
		if c.kind() == "bearer" {
			ordered = append(ordered, c)
		}
	}
	for _, c := range creds {
		if c.kind() != "bearer" {
			ordered = append(ordered, c)
		}
	}

	for _, cred := range ordered {
		userID, err := g.identify(ctx, cred)
		if err != nil {
			if errors.Is(err, models.ErrUnauthenticated) {
				continue
			}
			return nil, err
		}

		user, err := g.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		return user, nil
	}
	return nil, models.ErrUnauthenticated
}

func (g *Guard) identify(ctx context.Context, cred Credential) (primitive.ObjectID, error) {
	switch c := cred.(type) {
	case BearerCredential:
		if c.Token == "" {
			return primitive.NilObjectID, models.ErrUnauthenticated
		}
		claims, err := helpers.ParseToken(c.Token, g.jwtSecret, g.now())
		if err != nil {
			return primitive.NilObjectID, models.ErrUnauthenticated
		}
		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return primitive.NilObjectID, models.ErrUnauthenticated
		}
		return id, nil

	case SessionCredential:
		if c.ID == "" {
			return primitive.NilObjectID, models.ErrUnauthenticated
		}
		id, err := g.sessions.GetSession(ctx, c.ID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return primitive.NilObjectID, models.ErrUnauthenticated
			}
			return primitive.NilObjectID, fmt.Errorf("failed to read session: %w", err)
		}
		return id, nil
	}
	return primitive.NilObjectID, models.ErrUnauthenticated
}
