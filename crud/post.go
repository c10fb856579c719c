package crud

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"miniFeed/domain"
	"miniFeed/errs"
)

// PostService manages Posts and the Images attached to them.
// It implements the domain.PostService interface.
type PostService struct {
	postValidator
}

// postValidator runs validations on incoming Post data.
// On success, it passes the data on to postGorm.
// Otherwise, it returns the error of the validation that has failed.
type postValidator struct {
	validate *validator.Validate
	postGorm
}

// postGorm runs CRUD operations on the database using incoming Post data.
// Image files are handed to store. It assumes that data has been validated.
type postGorm struct {
	db    *gorm.DB
	store domain.ImageStore
}

// NewPostService returns an instance of PostService.
func NewPostService(db *gorm.DB, store domain.ImageStore) *PostService {
	return &PostService{
		postValidator{
			validate: validator.New(),
			postGorm: postGorm{
				db:    db,
				store: store,
			},
		},
	}
}

// Ensure the PostService struct properly implements the domain.PostService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.PostService = &PostService{}

// Search makes sure there is something to search for before running the full-text search.
func (pv *postValidator) Search(ctx context.Context, q string, page domain.Page) ([]domain.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, errs.Errorf(errs.EINVALID, "A search query is required.")
	}
	return pv.postGorm.Search(ctx, q, page)
}

// Create runs validations needed for creating new Post database records.
func (pv *postValidator) Create(ctx context.Context, create domain.PostCreate) (*domain.Post, error) {
	create.Username = strings.TrimSpace(create.Username)
	if create.Username == "" {
		return nil, errs.Errorf(errs.EINVALID, "A username is required.")
	}
	create.Title = strings.TrimSpace(create.Title)
	if err := pv.titleValid(create.Title); err != nil {
		return nil, err
	}
	if err := pv.contentValid(create.Content); err != nil {
		return nil, err
	}
	urls, err := pv.imageURLsValid(create.Images)
	if err != nil {
		return nil, err
	}
	create.Images = urls
	return pv.postGorm.Create(ctx, create)
}

// UploadImages makes sure there is at least one file before handing them to the image store.
func (pv *postValidator) UploadImages(uploads []*domain.Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, errs.Errorf(errs.EINVALID, "At least one image is required.")
	}
	return pv.store.Write(uploads)
}

// Update runs validations on the fields that are part of a partial update.
func (pv *postValidator) Update(ctx context.Context, id uuid.UUID, upd domain.PostUpdate) (*domain.Post, error) {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if err := pv.titleValid(title); err != nil {
			return nil, err
		}
		upd.Title = &title
	}
	if upd.Content != nil {
		if err := pv.contentValid(*upd.Content); err != nil {
			return nil, err
		}
	}
	return pv.postGorm.Update(ctx, id, upd)
}

// titleValid makes sure a title is present and fits its column.
func (pv *postValidator) titleValid(title string) error {
	if err := pv.validate.Var(title, "required,max=50"); err != nil {
		return errs.Errorf(errs.EINVALID, "A title of at most 50 characters is required.")
	}
	return nil
}

// contentValid makes sure that the post's content is not blank.
func (pv *postValidator) contentValid(content string) error {
	if strings.TrimSpace(content) == "" {
		return errs.Errorf(errs.EINVALID, "Post content must not be empty.")
	}
	return nil
}

// imageURLsValid drops duplicate image names and makes sure each of them is a name
// the image store accepts.
func (pv *postValidator) imageURLsValid(urls []string) ([]string, error) {
	seen := make(map[string]bool, len(urls))
	ret := make([]string, 0, len(urls))
	for _, url := range urls {
		if seen[url] {
			continue
		}
		seen[url] = true
		if _, err := pv.store.ResolvePath(url); err != nil {
			return nil, err
		}
		ret = append(ret, url)
	}
	return ret, nil
}

// Feed retrieves a page of posts.
func (pg *postGorm) Feed(ctx context.Context, page domain.Page) ([]domain.Post, error) {
	db := pg.db.WithContext(ctx)
	q, err := postFeedQuery(db, page)
	if err != nil {
		return nil, err
	}
	return findPosts(db, q)
}

// Search retrieves a page of posts whose content matches q.
func (pg *postGorm) Search(ctx context.Context, q string, page domain.Page) ([]domain.Post, error) {
	db := pg.db.WithContext(ctx)
	query, err := postSearchQuery(db, q, page)
	if err != nil {
		return nil, err
	}
	return findPosts(db, query)
}

// findPosts runs a listing query and enriches its results.
// An empty result is reported as PostsNotFound.
func findPosts(db, q *gorm.DB) ([]domain.Post, error) {
	var posts []domain.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, errs.Internal(err)
	}
	if len(posts) == 0 {
		return nil, errs.PostsNotFound
	}
	if err := enrichPosts(db, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ByID retrieves a Post database record by ID, along with its image URLs and like count.
func (pg *postGorm) ByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	db := pg.db.WithContext(ctx)
	post, err := postByID(db, id, errs.PostNotFound)
	if err != nil {
		return nil, err
	}
	return enrichPost(db, post)
}

// LoadImage returns the path of an image file, provided the image is attached to the post.
func (pg *postGorm) LoadImage(ctx context.Context, postID uuid.UUID, imageURL string) (string, error) {
	db := pg.db.WithContext(ctx)
	if _, err := postByID(db, postID, errs.PostNotFound); err != nil {
		return "", err
	}
	images, err := attachedImages(db, postID, imageURL)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", errs.InvalidImageUrl
	}
	return pg.store.ResolvePath(imageURL)
}

// Create stores a new post owned by the user with the given username. Each image URL
// gets its own Image record, attached to the post through the post_images table.
func (pg *postGorm) Create(ctx context.Context, create domain.PostCreate) (*domain.Post, error) {
	db := pg.db.WithContext(ctx)
	var post domain.Post
	err := db.Transaction(func(tx *gorm.DB) error {
		var user domain.User
		err := tx.Select("id").Where("username = ?", create.Username).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.UserNotSignedUp
			}
			return err
		}
		post = domain.Post{
			UserID:    user.ID,
			Title:     create.Title,
			Content:   create.Content,
			CreatedAt: time.Now().UTC(),
			Images:    make([]domain.Image, len(create.Images)),
		}
		for i, url := range create.Images {
			post.Images[i] = domain.Image{ImageURL: url}
		}
		return tx.Create(&post).Error
	})
	if err != nil {
		return nil, errs.Internal(err)
	}
	return enrichPost(db, &post)
}

// UploadImages stores uploaded image files and returns their names.
func (pg *postGorm) UploadImages(uploads []*domain.Upload) ([]string, error) {
	return pg.store.Write(uploads)
}

// Update applies a partial update to a post and returns the updated post.
func (pg *postGorm) Update(ctx context.Context, id uuid.UUID, upd domain.PostUpdate) (*domain.Post, error) {
	db := pg.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		post, err := postByID(tx, id, errs.PostsNotFound)
		if err != nil {
			return err
		}
		fields := map[string]interface{}{}
		if upd.Title != nil {
			fields["title"] = *upd.Title
		}
		if upd.Content != nil {
			fields["content"] = *upd.Content
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Model(post).Updates(fields).Error
	})
	if err != nil {
		return nil, errs.Internal(err)
	}
	return pg.ByID(ctx, id)
}

// DeleteImage detaches the image with the given name from a post. The file is removed
// once no post refers to it anymore. The Image record itself is kept.
func (pg *postGorm) DeleteImage(ctx context.Context, postID uuid.UUID, imageName string) error {
	err := pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := postByID(tx, postID, errs.PostsNotFound)
		if err != nil {
			return err
		}
		images, err := attachedImages(tx, postID, imageName)
		if err != nil {
			return err
		}
		if len(images) == 0 {
			return errs.InvalidImageUrl
		}
		if err := tx.Model(post).Association("Images").Delete(images); err != nil {
			return err
		}
		var refs int64
		err = tx.Table("post_images").
			Joins("JOIN images ON images.id = post_images.image_id").
			Where("images.image_url = ?", imageName).
			Count(&refs).Error
		if err != nil {
			return err
		}
		if refs > 0 {
			return nil
		}
		return pg.store.Delete(imageName)
	})
	return errs.Internal(err)
}

// Delete removes a post. Its likes and image attachments go with it.
func (pg *postGorm) Delete(ctx context.Context, id uuid.UUID) error {
	err := pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Post{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.PostsNotFound
		}
		return nil
	})
	return errs.Internal(err)
}

// postByID looks up a post, reporting a missing one as notFound.
// Get-by-id and mutations report different kinds of not found errors.
func postByID(db *gorm.DB, id uuid.UUID, notFound *errs.Error) (*domain.Post, error) {
	var post domain.Post
	err := db.Where("id = ?", id).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, errs.Internal(err)
	}
	return &post, nil
}

// attachedImages returns the images named imageURL that are attached to the post.
func attachedImages(db *gorm.DB, postID uuid.UUID, imageURL string) ([]domain.Image, error) {
	var images []domain.Image
	err := db.
		Joins("JOIN post_images ON post_images.image_id = images.id").
		Where("post_images.post_id = ? AND images.image_url = ?", postID, imageURL).
		Find(&images).Error
	if err != nil {
		return nil, errs.Internal(err)
	}
	return images, nil
}

// postImageRow and likeCountRow receive the results of the enrichment queries.
type postImageRow struct {
	PostID   uuid.UUID
	ImageURL string
}

type likeCountRow struct {
	PostID uuid.UUID
	Count  int
}

// enrichPosts fills in ImageURLs and LikeCount on each post, using one query for
// the images and one for the likes of all posts.
func enrichPosts(db *gorm.DB, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}

	var images []postImageRow
	err := db.Table("post_images").
		Select("post_images.post_id, images.image_url").
		Joins("JOIN images ON images.id = post_images.image_id").
		Where("post_images.post_id IN ?", ids).
		Order("images.image_url").
		Scan(&images).Error
	if err != nil {
		return errs.Internal(err)
	}

	var counts []likeCountRow
	err = db.Model(&domain.Like{}).
		Select("post_id, count(*) AS count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&counts).Error
	if err != nil {
		return errs.Internal(err)
	}

	urls := make(map[uuid.UUID][]string, len(posts))
	for _, row := range images {
		urls[row.PostID] = append(urls[row.PostID], row.ImageURL)
	}
	likes := make(map[uuid.UUID]int, len(counts))
	for _, row := range counts {
		likes[row.PostID] = row.Count
	}
	for i := range posts {
		posts[i].ImageURLs = urls[posts[i].ID]
		if posts[i].ImageURLs == nil {
			posts[i].ImageURLs = []string{}
		}
		posts[i].LikeCount = likes[posts[i].ID]
	}
	return nil
}

// enrichPost is enrichPosts for a single post.
func enrichPost(db *gorm.DB, post *domain.Post) (*domain.Post, error) {
	posts := []domain.Post{*post}
	if err := enrichPosts(db, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}
