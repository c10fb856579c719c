package crud

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"miniFeed/domain"
	"miniFeed/errs"
)

// LikeService manages Likes.
// It implements the domain.LikeService interface.
type LikeService struct {
	likeValidator
}

// likeValidator runs validations on incoming Like data.
// On success, it passes the data on to likeGorm.
// Otherwise, it returns the error of the validation that has failed.
type likeValidator struct {
	likeGorm
}

// likeGorm runs CRUD operations on the database using incoming Like data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type likeGorm struct {
	db *gorm.DB
}

// NewLikeService returns an instance of LikeService.
func NewLikeService(db *gorm.DB) *LikeService {
	return &LikeService{
		likeValidator{
			likeGorm{
				db: db,
			},
		},
	}
}

// Ensure the LikeService struct properly implements the domain.LikeService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.LikeService = &LikeService{}

// Like runs validations needed for liking a post. Liking a post twice is not an
// error, the existing Like is returned instead.
func (lv *likeValidator) Like(ctx context.Context, postID, userID uuid.UUID) (*domain.Like, error) {
	like := domain.Like{PostID: postID, UserID: userID}
	err := runLikeValFns(ctx, &like,
		lv.userExists,
		lv.likedPostExists)
	if err != nil {
		return nil, err
	}
	return lv.likeGorm.Like(ctx, postID, userID)
}

// Unlike runs validations needed for unliking a post.
func (lv *likeValidator) Unlike(ctx context.Context, postID, userID uuid.UUID) error {
	like := domain.Like{PostID: postID, UserID: userID}
	err := runLikeValFns(ctx, &like,
		lv.userExists,
		lv.likedPostExists)
	if err != nil {
		return err
	}
	return lv.likeGorm.Unlike(ctx, postID, userID)
}

// runLikeValFns runs any number of functions of type likeValFn on the passed in Like object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runLikeValFns(ctx context.Context, like *domain.Like, fns ...likeValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, like); err != nil {
			return err
		}
	}
	return nil
}

// A likeValFn is any function that takes in a pointer to a domain.Like object and returns an error.
type likeValFn func(ctx context.Context, like *domain.Like) error

// userExists makes sure that the liking user actually exists.
func (lv *likeValidator) userExists(ctx context.Context, like *domain.Like) error {
	err := lv.db.WithContext(ctx).Select("id").Where("id = ?", like.UserID).First(&domain.User{}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.UserNotFound
		}
		return errs.Internal(err)
	}
	return nil
}

// likedPostExists makes sure that the post to be liked actually exists.
func (lv *likeValidator) likedPostExists(ctx context.Context, like *domain.Like) error {
	err := lv.db.WithContext(ctx).Select("id").Where("id = ?", like.PostID).First(&domain.Post{}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.PostsNotFound
		}
		return errs.Internal(err)
	}
	return nil
}

// Like stores a new Like unless the user already likes the post, and returns
// the stored Like either way. Concurrent likes of the same post by the same
// user collapse into a single row.
func (lg *likeGorm) Like(ctx context.Context, postID, userID uuid.UUID) (*domain.Like, error) {
	var like domain.Like
	err := lg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.Like{PostID: postID, UserID: userID}).Error
		if err != nil {
			return err
		}
		return tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&like).Error
	})
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &like, nil
}

// Unlike removes a Like. Removing a Like that doesn't exist is a no-op.
func (lg *likeGorm) Unlike(ctx context.Context, postID, userID uuid.UUID) error {
	err := lg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&domain.Like{}).Error
	})
	return errs.Internal(err)
}
