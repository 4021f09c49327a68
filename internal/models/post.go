package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	AuthorID  primitive.ObjectID   `bson:"authorId" json:"authorId" validate:"required"`
	Content   string               `bson:"content" json:"content" validate:"required"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	Edited    bool                 `bson:"edited" json:"edited"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

type PostAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// FeedPost is a post joined with its author.
type FeedPost struct {
	*Post
	Author PostAuthor `json:"author"`
}

func (p *Post) BeforeCreate(now time.Time) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Content = strings.TrimSpace(p.Content)
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now
}

func (p *Post) LikedBy(id primitive.ObjectID) bool {
	return containsID(p.Likes, id)
}

// LikeIDs returns the likes as hex strings.
func (p *Post) LikeIDs() []string {
	out := make([]string, 0, len(p.Likes))
	for _, id := range p.Likes {
		out = append(out, id.Hex())
	}
	return out
}
