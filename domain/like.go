package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Like represents a many-to-many relationship between a User and a Post.
// A (post, user) pair is its primary key, so a user can like a post at most once.
// It's destroyed when the user unlikes the post, or when either side gets deleted.
type Like struct {
	PostID  uuid.UUID `json:"post_id" gorm:"type:uuid;primaryKey"`
	UserID  uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey;index"`
	LikedAt time.Time `json:"liked_at" gorm:"not null;autoCreateTime"`

	Post *Post `json:"-"`
}

// LikeService is a set of methods to manipulate and work with the Like model.
type LikeService interface {
	Like(ctx context.Context, postID, userID uuid.UUID) (*Like, error)
	Unlike(ctx context.Context, postID, userID uuid.UUID) error
}
