package domain

import (
	"io"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// ImagesBaseDir is the default storage location of uploaded images.
	ImagesBaseDir = "uploads/images"
	// MaxUploadSize determines the maximum filesize of an image to be uploaded.
	MaxUploadSize int64 = 5 << 20 // 5 Megabyte
)

// Image is the database record of an uploaded image file. ImageURL is the name of
// the file inside the images directory. Images are attached to Posts through the
// post_images join table, and an Image may be attached to more than one Post.
type Image struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ImageURL string    `json:"image_url" gorm:"type:text;not null;index"`
}

// BeforeCreate assigns a new UUID to images that don't have one yet.
func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Upload is an image file on its way into the ImageStore. File contains the actual
// file data, Filename the name it was uploaded with. Extension and ContentType are
// filled in during validation.
type Upload struct {
	File        io.ReadSeeker
	Filename    string
	Extension   string
	ContentType string
}

// ImageStore manages image files on disk. Filenames are plain names relative to
// the store's base directory.
type ImageStore interface {
	Write(uploads []*Upload) ([]string, error)
	Read(name string) ([]byte, error)
	Delete(name string) error
	ResolvePath(name string) (string, error)
}
