package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestUserBeforeCreate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &User{Username: " alice ", Email: " Alice@Example.COM ", PasswordHash: "h"}
	u.BeforeCreate(now)

	assert.False(t, u.ID.IsZero())
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotNil(t, u.Followers)
	assert.NotNil(t, u.Following)
	assert.Equal(t, now, u.CreatedAt)
	assert.Equal(t, now, u.UpdatedAt)
	require.NoError(t, Validate.Struct(u))
}

func TestUserPublic(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	u := &User{
		ID:        primitive.NewObjectID(),
		Username:  "alice",
		Email:     "a@x.com",
		Followers: []primitive.ObjectID{a, b},
		Following: []primitive.ObjectID{a},
	}

	card := u.Public()
	assert.Equal(t, u.ID.Hex(), card.ID)
	assert.Equal(t, 2, card.FollowersCount)
	assert.Equal(t, 1, card.FollowingCount)

	assert.True(t, u.HasFollower(b))
	assert.True(t, u.IsFollowing(a))
	assert.False(t, u.IsFollowing(b))
}

func TestPostLikes(t *testing.T) {
	p := &Post{AuthorID: primitive.NewObjectID(), Content: "  hi  "}
	p.BeforeCreate(time.Now())

	assert.Equal(t, "hi", p.Content)
	assert.NotNil(t, p.Likes)
	assert.Empty(t, p.LikeIDs())

	liker := primitive.NewObjectID()
	p.Likes = append(p.Likes, liker)
	assert.True(t, p.LikedBy(liker))
	assert.Equal(t, []string{liker.Hex()}, p.LikeIDs())
}

func TestDuplicateFromMongo(t *testing.T) {
	keyValue, err := bson.Marshal(bson.M{
		"code":     11000,
		"keyValue": bson.M{"email": "username@x.com"},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		err   error
		field string
	}{
		{
			"username index",
			errors.New(`E11000 duplicate key error collection: minisocial.users index: username_unique dup key: { username: "alice" }`),
			"username",
		},
		{
			"email index",
			errors.New(`E11000 duplicate key error collection: minisocial.users index: email_unique dup key: { email: "a@x.com" }`),
			"email",
		},
		{
			"email value containing username",
			errors.New(`E11000 duplicate key error collection: minisocial.users index: email_unique dup key: { email: "username@x.com" }`),
			"email",
		},
		{
			"database named after a field",
			errors.New(`E11000 duplicate key error collection: username.users index: email_unique dup key: { email: "a@x.com" }`),
			"email",
		},
		{
			"write exception message",
			mongo.WriteException{WriteErrors: []mongo.WriteError{{
				Code:    11000,
				Message: `E11000 duplicate key error collection: minisocial.users index: email_unique dup key: { email: "myusername@gmail.com" }`,
			}}},
			"email",
		},
		{
			"write exception key value",
			mongo.WriteException{WriteErrors: []mongo.WriteError{{
				Code:    11000,
				Message: "E11000 duplicate key error",
				Raw:     bson.Raw(keyValue),
			}}},
			"email",
		},
		{"unknown index", errors.New(`E11000 duplicate key error`), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dup *DuplicateError
			require.True(t, errors.As(duplicateFromMongo(tt.err), &dup))
			assert.Equal(t, tt.field, dup.Field)
		})
	}
}

func TestFollowWritesAreGuarded(t *testing.T) {
	follower, target := primitive.NewObjectID(), primitive.NewObjectID()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	following, followers := followWrites(follower, target, now)

	assert.Equal(t, bson.M{"_id": follower, "following": bson.M{"$ne": target}}, following.filter)
	assert.Equal(t, bson.M{"_id": target, "followers": bson.M{"$ne": follower}}, followers.filter)
	assert.Equal(t, bson.M{"followers": follower}, followers.update["$addToSet"])
	assert.Equal(t, bson.M{"updatedAt": now}, followers.update["$set"])
}
