package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a piece of content owned by a User. ContentSearch is a generated tsvector
// column maintained by Postgres (see database.Migrate); it is read-only, skipped by
// AutoMigrate and never serialized. ImageURLs and LikeCount are not stored in the
// posts table, they are filled in when a Post is loaded for a response.
type Post struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Title         string    `json:"title" gorm:"type:varchar(50);not null;index"`
	Content       string    `json:"content" gorm:"type:text;not null"`
	ContentSearch string    `json:"-" gorm:"->;-:migration"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null"`

	Images []Image `json:"-" gorm:"many2many:post_images;constraint:OnDelete:CASCADE"`
	Likes  []Like  `json:"-" gorm:"constraint:OnDelete:CASCADE"`

	ImageURLs []string `json:"images" gorm:"-"`
	LikeCount int      `json:"likes" gorm:"-"`
}

// BeforeCreate assigns a new UUID to posts that don't have one yet.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PostService is a set of methods to manipulate and work with the Post model
// and the images attached to posts.
type PostService interface {
	Feed(ctx context.Context, page Page) ([]Post, error)
	Search(ctx context.Context, q string, page Page) ([]Post, error)
	ByID(ctx context.Context, id uuid.UUID) (*Post, error)
	LoadImage(ctx context.Context, postID uuid.UUID, imageURL string) (string, error)
	Create(ctx context.Context, create PostCreate) (*Post, error)
	UploadImages(uploads []*Upload) ([]string, error)
	Update(ctx context.Context, id uuid.UUID, upd PostUpdate) (*Post, error)
	DeleteImage(ctx context.Context, postID uuid.UUID, imageName string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostCreate is the input for creating a Post. The post is owned by the User with
// the given Username. Images holds filenames returned by a previous upload.
type PostCreate struct {
	Username string   `json:"username"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Images   []string `json:"images"`
}

// PostUpdate holds the fields of a partial post update. Nil fields are left untouched.
type PostUpdate struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}
