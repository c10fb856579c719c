package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"miniFeed/domain"
	"miniFeed/errs"
)

// contentTypes maps every accepted filename extension to the content type
// the file's data has to sniff as.
var contentTypes = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageStore keeps image files in a single directory on the local filesystem.
// It implements the domain.ImageStore interface.
type ImageStore struct {
	imageValidator
}

// imageValidator runs validations on incoming image uploads.
// On success, it passes the data on to imageDisk.
// Otherwise, it returns the error of the validation that has failed.
type imageValidator struct {
	imageDisk
}

// imageDisk reads and writes image files below dir.
// It assumes that data has been validated.
type imageDisk struct {
	dir string
}

// NewImageStore returns an instance of ImageStore keeping its files in dir.
// An empty dir means domain.ImagesBaseDir.
func NewImageStore(dir string) *ImageStore {
	if dir == "" {
		dir = domain.ImagesBaseDir
	}
	return &ImageStore{
		imageValidator{
			imageDisk{
				dir: dir,
			},
		},
	}
}

// Ensure the ImageStore struct properly implements the domain.ImageStore interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.ImageStore = &ImageStore{}

// Write validates all uploads and, if every one of them passes, stores them.
// It returns the names the files were stored under.
func (iv *imageValidator) Write(uploads []*domain.Upload) ([]string, error) {
	for _, upload := range uploads {
		err := runImageValFns(upload,
			iv.nameBase,
			iv.extensionValid,
			iv.contentTypeValid,
			iv.belowMaxSize)
		if err != nil {
			return nil, err
		}
	}
	return iv.imageDisk.Write(uploads)
}

// Read makes sure name is a plain filename before reading the file.
func (iv *imageValidator) Read(name string) ([]byte, error) {
	if err := nameValid(name); err != nil {
		return nil, err
	}
	return iv.imageDisk.Read(name)
}

// Delete makes sure name is a plain filename before removing the file.
func (iv *imageValidator) Delete(name string) error {
	if err := nameValid(name); err != nil {
		return err
	}
	return iv.imageDisk.Delete(name)
}

// ResolvePath makes sure name is a plain filename and returns its path inside the store.
// It doesn't check whether the file exists.
func (iv *imageValidator) ResolvePath(name string) (string, error) {
	if err := nameValid(name); err != nil {
		return "", err
	}
	return iv.imageDisk.path(name), nil
}

// runImageValFns runs any number of functions of type imageValFn on the passed in Upload object.
func runImageValFns(upload *domain.Upload, fns ...imageValFn) error {
	for _, fn := range fns {
		if err := fn(upload); err != nil {
			return err
		}
	}
	return nil
}

// A imageValFn is any function that takes in a pointer to a domain.Upload object and returns an error.
type imageValFn func(upload *domain.Upload) error

// nameBase strips any directories off the upload's filename, since some clients send
// full paths. What remains has to be a usable filename.
func (iv *imageValidator) nameBase(upload *domain.Upload) error {
	name := strings.ReplaceAll(upload.Filename, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if err := nameValid(name); err != nil {
		return err
	}
	upload.Filename = name
	return nil
}

// extensionValid makes sure that the image to be uploaded has one of the accepted extensions.
func (iv *imageValidator) extensionValid(upload *domain.Upload) error {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if _, ok := contentTypes[ext]; !ok {
		return errs.Errorf(errs.EINVALID,
			"Image %s invalid extension, must be .jpeg, .jpg, .png, .gif or .webp.", upload.Filename)
	}
	upload.Extension = ext
	return nil
}

// contentTypeValid makes sure that the file data is an image of the kind its extension promises.
func (iv *imageValidator) contentTypeValid(upload *domain.Upload) error {
	buffer := make([]byte, 512)
	n, err := upload.File.Read(buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return errs.Internal(err)
	}
	if err = resetFilePointer(upload); err != nil {
		return err
	}
	contentType := http.DetectContentType(buffer[:n])
	if !strings.HasPrefix(contentType, "image/") {
		return errs.Errorf(errs.EINVALID,
			"Image %s invalid content-type %s, must be an image.", upload.Filename, contentType)
	}
	if contentType != contentTypes[upload.Extension] {
		return errs.Errorf(errs.EINVALID,
			"Image %s content-type %s does not match extension %s.", upload.Filename, contentType, upload.Extension)
	}
	upload.ContentType = contentType
	return nil
}

// belowMaxSize makes sure that the image to be uploaded does not exceed MaxUploadSize.
func (iv *imageValidator) belowMaxSize(upload *domain.Upload) error {
	size, err := upload.File.Seek(0, io.SeekEnd)
	if err != nil {
		return errs.Internal(err)
	}
	if err = resetFilePointer(upload); err != nil {
		return err
	}
	if size > domain.MaxUploadSize {
		return errs.Errorf(errs.EINVALID,
			"Image %s exceeds upload size limit of %dMB.", upload.Filename, domain.MaxUploadSize>>20)
	}
	return nil
}

// resetFilePointer sets the file pointer back to beginning of the file,
// so that subsequent reads can properly read from the beginning again.
func resetFilePointer(upload *domain.Upload) error {
	if _, err := upload.File.Seek(0, io.SeekStart); err != nil {
		return errs.Internal(err)
	}
	return nil
}

// nameValid makes sure name can't point anywhere outside the store's directory.
func nameValid(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errs.Errorf(errs.EINVALID, "Invalid image name %q.", name)
	}
	return nil
}

// Write copies the uploads into the store's directory, creating it if necessary.
// A file with the same name is replaced.
func (d *imageDisk) Write(uploads []*domain.Upload) ([]string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return nil, errs.Internal(err)
	}
	names := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		if err := d.writeFile(upload); err != nil {
			return nil, errs.Internal(err)
		}
		names = append(names, upload.Filename)
	}
	return names, nil
}

func (d *imageDisk) writeFile(upload *domain.Upload) error {
	dst, err := os.Create(d.path(upload.Filename))
	if err != nil {
		return err
	}
	if _, err = io.Copy(dst, upload.File); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// Read returns the contents of an image file.
func (d *imageDisk) Read(name string) ([]byte, error) {
	b, err := os.ReadFile(d.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Errorf(errs.ENOTFOUND, "Image %s does not exist.", name)
		}
		return nil, errs.Internal(err)
	}
	return b, nil
}

// Delete removes an image file. Removing a file that doesn't exist is not an error.
func (d *imageDisk) Delete(name string) error {
	err := os.Remove(d.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.Internal(fmt.Errorf("removing image %s: %w", name, err))
	}
	return nil
}

// path builds the path of a file inside the store's directory.
func (d *imageDisk) path(name string) string {
	return filepath.Join(d.dir, name)
}
