package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique user indexes and the feed lookup index.
// Signup relies on the unique indexes to report duplicates.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	users, err := mdb.GetCollection(ctx, UsersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_unique"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		// people listing order
		{
			Keys: bson.D{
				{Key: "createdAt", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("joined_idx"),
		},
	}
	if _, err := users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("error creating user indexes: %w", err)
	}

	posts, err := mdb.GetCollection(ctx, PostsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	postIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "authorId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("author_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "likes", Value: 1}},
			Options: options.Index().SetName("likes_idx"),
		},
	}
	if _, err := posts.Indexes().CreateMany(ctx, postIndexes); err != nil {
		return fmt.Errorf("error creating post indexes: %w", err)
	}

	return nil
}
