package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joshua-takyi/minisocial/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LikeResult struct {
	Liked      bool
	LikesCount int
	Likes      []string
}

type FeedService struct {
	userRepo models.UserRepo
	postRepo models.PostRepo
	now      func() time.Time
}

func NewFeedService(userRepo models.UserRepo, postRepo models.PostRepo) *FeedService {
	return &FeedService{
		userRepo: userRepo,
		postRepo: postRepo,
		now:      time.Now,
	}
}

var errEmptyContent = fmt.Errorf("Post content cannot be empty: %w", models.ErrValidation)

// GetFeed returns posts by the users userID follows, newest first, each
// joined with its author. Posts whose author is gone are skipped. The
// loaded user is returned alongside.
func (fs *FeedService) GetFeed(ctx context.Context, userID primitive.ObjectID) ([]*models.FeedPost, *models.User, error) {
	user, err := fs.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	feed := []*models.FeedPost{}
	if len(user.Following) == 0 {
		return feed, user, nil
	}

	posts, err := fs.postRepo.ListPostsByAuthors(ctx, user.Following)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load feed: %w", err)
	}

	authors, err := fs.userRepo.GetUsersByIDs(ctx, user.Following)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load authors: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.User, len(authors))
	for _, a := range authors {
		byID[a.ID] = a
	}

	for _, p := range posts {
		author, ok := byID[p.AuthorID]
		if !ok {
			continue
		}
		feed = append(feed, &models.FeedPost{
			Post:   p,
			Author: models.PostAuthor{ID: author.ID.Hex(), Username: author.Username},
		})
	}
	return feed, user, nil
}

func (fs *FeedService) CreatePost(ctx context.Context, authorID primitive.ObjectID, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errEmptyContent
	}

	if _, err := fs.userRepo.GetUserByID(ctx, authorID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load author: %w", err)
	}

	post := &models.Post{AuthorID: authorID, Content: content}
	post.BeforeCreate(fs.now())
	if err := models.Validate.Struct(post); err != nil {
		return nil, fmt.Errorf("Invalid post: %w", models.ErrValidation)
	}

	if err := fs.postRepo.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

// ownedPost loads postID and checks that callerID wrote it.
func (fs *FeedService) ownedPost(ctx context.Context, callerID, postID primitive.ObjectID) (*models.Post, error) {
	post, err := fs.postRepo.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if post.AuthorID != callerID {
		return nil, models.ErrForbidden
	}
	return post, nil
}

// EditPost replaces the content of the caller's post and marks it edited.
// Unchanged content leaves the post untouched.
func (fs *FeedService) EditPost(ctx context.Context, callerID, postID primitive.ObjectID, content string) (*models.Post, error) {
	post, err := fs.ownedPost(ctx, callerID, postID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errEmptyContent
	}
	if content == post.Content {
		return post, nil
	}

	updated, err := fs.postRepo.UpdatePostContent(ctx, postID, content, fs.now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return updated, nil
}

func (fs *FeedService) DeletePost(ctx context.Context, callerID, postID primitive.ObjectID) error {
	if _, err := fs.ownedPost(ctx, callerID, postID); err != nil {
		return err
	}
	if err := fs.postRepo.DeletePost(ctx, postID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// ToggleLike flips callerID's like on postID. Any authenticated user may
// like any post.
func (fs *FeedService) ToggleLike(ctx context.Context, callerID, postID primitive.ObjectID) (*LikeResult, error) {
	post, err := fs.postRepo.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load post: %w", err)
	}

	if post.LikedBy(callerID) {
		post, err = fs.postRepo.RemoveLike(ctx, postID, callerID)
	} else {
		post, err = fs.postRepo.AddLike(ctx, postID, callerID)
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update like: %w", err)
	}

	return &LikeResult{
		Liked:      post.LikedBy(callerID),
		LikesCount: len(post.Likes),
		Likes:      post.LikeIDs(),
	}, nil
}
