// Package media validates and uploads service images.
package media

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/juju/errors"

	"home-services-server/config"
)

// MaxImageSize is the largest accepted upload
const MaxImageSize = 5 * 1024 * 1024

// Uploader stores an image and returns its public URL
type Uploader interface {
	UploadImage(ctx context.Context, file io.Reader, folder, name string) (string, error)
}

// ValidateImage checks extension and size (<= 5MB)
func ValidateImage(h *multipart.FileHeader) error {
	if h == nil {
		return errors.NotValidf("missing image")
	}
	if h.Size <= 0 || h.Size > MaxImageSize {
		return errors.NotValidf("image size %d bytes", h.Size)
	}
	ext := strings.ToLower(filepath.Ext(h.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return nil
	default:
		return errors.NotValidf("image type %q", ext)
	}
}

// ServiceFolder is where a service's images live
func ServiceFolder(serviceID uint) string {
	return fmt.Sprintf("services/%d", serviceID)
}

// NewUploader returns a Cloudinary uploader, or a disabled one when no
// credentials are configured.
func NewUploader(cfg config.CloudinaryConfig) (Uploader, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		log.Println("⚠️ Cloudinary not configured, image uploads are disabled")
		return Disabled{}, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, errors.Annotate(err, "failed to initialize Cloudinary")
	}
	return &CloudinaryUploader{cld: cld}, nil
}

// CloudinaryUploader uploads to Cloudinary
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func (u *CloudinaryUploader) UploadImage(ctx context.Context, file io.Reader, folder, name string) (string, error) {
	overwrite := true
	unique := true
	result, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         folder,
		PublicID:       strings.TrimSuffix(name, filepath.Ext(name)),
		Overwrite:      &overwrite,
		UniqueFilename: &unique,
		ResourceType:   "image",
	})
	if err != nil {
		return "", errors.Annotate(err, "uploading image")
	}
	if result.Error.Message != "" {
		return "", errors.Errorf("uploading image: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}

// Disabled rejects every upload
type Disabled struct{}

func (Disabled) UploadImage(context.Context, io.Reader, string, string) (string, error) {
	return "", errors.NotSupportedf("image uploads without Cloudinary credentials")
}
