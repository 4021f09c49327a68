package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username     string               `bson:"username" json:"username" validate:"required"`
	Email        string               `bson:"email" json:"email" validate:"required,email"`
	PasswordHash string               `bson:"passwordHash" json:"-" validate:"required"`
	Followers    []primitive.ObjectID `bson:"followers" json:"-"`
	Following    []primitive.ObjectID `bson:"following" json:"-"`
	OTP          string               `bson:"otp,omitempty" json:"-"`
	OTPExpiry    *time.Time           `bson:"otpExpiry,omitempty" json:"-"`
	OTPVerified  bool                 `bson:"otpVerified" json:"otpVerified"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the shape of a user returned to clients.
type PublicUser struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
}

func (u *User) BeforeCreate(now time.Time) {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Followers == nil {
		u.Followers = []primitive.ObjectID{}
	}
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}
	u.CreatedAt = now
	u.UpdatedAt = now
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID.Hex(),
		Username:       u.Username,
		Email:          u.Email,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
	}
}

func (u *User) IsFollowing(id primitive.ObjectID) bool {
	return containsID(u.Following, id)
}

func (u *User) HasFollower(id primitive.ObjectID) bool {
	return containsID(u.Followers, id)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
