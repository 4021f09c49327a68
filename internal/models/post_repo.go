package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrPostNotFound = fmt.Errorf("Post not found: %w", ErrNotFound)

type PostRepo interface {
	CreatePost(ctx context.Context, post *Post) error
	GetPostByID(ctx context.Context, id primitive.ObjectID) (*Post, error)
	// ListPostsByAuthors returns posts newest first.
	ListPostsByAuthors(ctx context.Context, authorIDs []primitive.ObjectID) ([]*Post, error)
	UpdatePostContent(ctx context.Context, id primitive.ObjectID, content string, now time.Time) (*Post, error)
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	AddLike(ctx context.Context, postID, userID primitive.ObjectID) (*Post, error)
	RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (*Post, error)
	DeletePostsByAuthor(ctx context.Context, authorID primitive.ObjectID) (int64, error)
	PullLikesByUser(ctx context.Context, userID primitive.ObjectID) error
}

func (mdb *MongodbRepo) CreatePost(ctx context.Context, post *Post) error {
	col, err := mdb.GetCollection(ctx, PostsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	if _, err := col.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("error inserting post: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) GetPostByID(ctx context.Context, id primitive.ObjectID) (*Post, error) {
	col, err := mdb.GetCollection(ctx, PostsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var post Post
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("error finding post: %w", err)
	}
	return &post, nil
}

func (mdb *MongodbRepo) ListPostsByAuthors(ctx context.Context, authorIDs []primitive.ObjectID) ([]*Post, error) {
	if len(authorIDs) == 0 {
		return []*Post{}, nil
	}
	col, err := mdb.GetCollection(ctx, PostsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := col.Find(ctx, bson.M{"authorId": bson.M{"$in": authorIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []*Post{}
	for cursor.Next(ctx) {
		var post Post
		if err := cursor.Decode(&post); err != nil {
			return nil, fmt.Errorf("error decoding post: %w", err)
		}
		posts = append(posts, &post)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return posts, nil
}

func (mdb *MongodbRepo) updatePost(ctx context.Context, id primitive.ObjectID, update bson.M) (*Post, error) {
	col, err := mdb.GetCollection(ctx, PostsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var post Post
	if err := col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("error updating post: %w", err)
	}
	return &post, nil
}

func (mdb *MongodbRepo) UpdatePostContent(ctx context.Context, id primitive.ObjectID, content string, now time.Time) (*Post, error) {
	return mdb.updatePost(ctx, id, bson.M{
		"$set": bson.M{"content": content, "edited": true, "updatedAt": now},
	})
}

func (mdb *MongodbRepo) AddLike(ctx context.Context, postID, userID primitive.ObjectID) (*Post, error) {
	return mdb.updatePost(ctx, postID, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (mdb *MongodbRepo) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (*Post, error) {
	return mdb.updatePost(ctx, postID, bson.M{"$pull": bson.M{"likes": userID}})
}

func (mdb *MongodbRepo) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(ctx, PostsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (mdb *MongodbRepo) DeletePostsByAuthor(ctx context.Context, authorID primitive.ObjectID) (int64, error) {
	col, err := mdb.GetCollection(ctx, PostsColName)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.DeleteMany(ctx, bson.M{"authorId": authorID})
	if err != nil {
		return 0, fmt.Errorf("error deleting posts: %w", err)
	}
	return res.DeletedCount, nil
}

func (mdb *MongodbRepo) PullLikesByUser(ctx context.Context, userID primitive.ObjectID) error {
	col, err := mdb.GetCollection(ctx, PostsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	if _, err := col.UpdateMany(ctx, bson.M{"likes": userID}, bson.M{"$pull": bson.M{"likes": userID}}); err != nil {
		return fmt.Errorf("error pulling likes: %w", err)
	}
	return nil
}
