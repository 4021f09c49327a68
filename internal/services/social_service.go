package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/joshua-takyi/minisocial/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

type FollowResult struct {
	AlreadyFollowing bool
	FollowersCount   int
}

type SocialService struct {
	userRepo models.UserRepo
	postRepo models.PostRepo
}

func NewSocialService(userRepo models.UserRepo, postRepo models.PostRepo) *SocialService {
	return &SocialService{
		userRepo: userRepo,
		postRepo: postRepo,
	}
}

// Follow makes followerID follow targetID. Following twice is a no-op.
func (ss *SocialService) Follow(ctx context.Context, followerID, targetID primitive.ObjectID) (*FollowResult, error) {
	if followerID == targetID {
		return nil, models.ErrSelfFollow
	}

	if _, err := ss.userRepo.GetUserByID(ctx, targetID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("User to follow not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	added, err := ss.userRepo.AddFollow(ctx, followerID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to follow user: %w", err)
	}

	target, err := ss.userRepo.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	return &FollowResult{
		AlreadyFollowing: !added,
		FollowersCount:   len(target.Followers),
	}, nil
}

// ListPeople returns one page of users ordered by join date. page is
// clamped to at least 1 and perPage to [1, MaxPerPage], 0 meaning the
// default.
func (ss *SocialService) ListPeople(ctx context.Context, page, perPage int) (*models.PeoplePage, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page < 1 {
		page = 1
	}

	offset := int64(page-1) * int64(perPage)
	users, total, err := ss.userRepo.ListUsers(ctx, offset, int64(perPage))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	rows := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		rows = append(rows, u.Public())
	}

	return &models.PeoplePage{
		Users:       rows,
		CurrentPage: page,
		TotalPages:  int((total + int64(perPage) - 1) / int64(perPage)),
		PerPage:     perPage,
	}, nil
}

// GetProfile loads targetID's public card and posts. callerID may be the
// zero id for an anonymous caller.
func (ss *SocialService) GetProfile(ctx context.Context, targetID, callerID primitive.ObjectID) (*models.Profile, error) {
	user, err := ss.userRepo.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	posts, err := ss.postRepo.ListPostsByAuthors(ctx, []primitive.ObjectID{user.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	card := user.Public()
	card.Email = ""

	return &models.Profile{
		User:        card,
		Posts:       posts,
		IsFollowing: !callerID.IsZero() && user.HasFollower(callerID),
	}, nil
}
