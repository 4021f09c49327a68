package services

import (
	"context"
	"testing"
	"time"

	"github.com/joshua-takyi/minisocial/internal/helpers"
	"github.com/joshua-takyi/minisocial/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGuard_Resolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.signupVerified(t, "a@x.com", "alice", "pw")
	bob := f.signupVerified(t, "b@x.com", "bob", "pw")

	forged, err := helpers.IssueToken(alice.User.ID.Hex(), "other-secret", time.Hour, f.clock.Now())
	require.NoError(t, err)
	ghost, err := helpers.IssueToken(primitive.NewObjectID().Hex(), testJWTSecret, time.Hour, f.clock.Now())
	require.NoError(t, err)

	tests := []struct {
		name  string
		creds []Credential
		want  primitive.ObjectID
	}{
		{"bearer only", []Credential{BearerCredential{Token: alice.Token}}, alice.User.ID},
		{"session only", []Credential{SessionCredential{ID: bob.SessionID}}, bob.User.ID},
		{"bearer wins over session", []Credential{SessionCredential{ID: bob.SessionID}, BearerCredential{Token: alice.Token}}, alice.User.ID},
		{"bad bearer falls back to session", []Credential{BearerCredential{Token: "garbage"}, SessionCredential{ID: bob.SessionID}}, bob.User.ID},
		{"wrong secret falls back to session", []Credential{BearerCredential{Token: forged}, SessionCredential{ID: bob.SessionID}}, bob.User.ID},
		{"unknown user falls back to session", []Credential{BearerCredential{Token: ghost}, SessionCredential{ID: bob.SessionID}}, bob.User.ID},
		{"empty bearer is skipped", []Credential{BearerCredential{}, SessionCredential{ID: alice.SessionID}}, alice.User.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.guard.Resolve(ctx, tt.creds...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, user.ID)
		})
	}
}

func TestGuard_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.signupVerified(t, "a@x.com", "alice", "pw")

	_, err := f.guard.Resolve(ctx)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = f.guard.Resolve(ctx, SessionCredential{ID: "no-such-session"}, BearerCredential{Token: "garbage"})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	f.clock.Advance(7*24*time.Hour + time.Second)

	_, err = f.guard.Resolve(ctx, BearerCredential{Token: alice.Token})
	assert.ErrorIs(t, err, models.ErrUnauthenticated, "expired bearer")
	_, err = f.guard.Resolve(ctx, SessionCredential{ID: alice.SessionID})
	assert.ErrorIs(t, err, models.ErrUnauthenticated, "expired session")
}

func TestGuard_DeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.signupVerified(t, "a@x.com", "alice", "pw")
	require.NoError(t, f.store.DeleteUser(ctx, alice.User.ID))

	_, err := f.guard.Resolve(ctx, BearerCredential{Token: alice.Token}, SessionCredential{ID: alice.SessionID})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}
