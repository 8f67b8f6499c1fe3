package media

import (
	"context"
	"mime/multipart"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"

	"home-services-server/config"
)

func TestValidateImage(t *testing.T) {
	c := qt.New(t)

	c.Assert(ValidateImage(&multipart.FileHeader{Filename: "sink.JPG", Size: 1024}), qt.IsNil)
	c.Assert(ValidateImage(&multipart.FileHeader{Filename: "a.webp", Size: MaxImageSize}), qt.IsNil)

	for _, h := range []*multipart.FileHeader{
		nil,
		{Filename: "a.png", Size: 0},
		{Filename: "a.png", Size: MaxImageSize + 1},
		{Filename: "a.gif", Size: 10},
		{Filename: "noext", Size: 10},
	} {
		err := ValidateImage(h)
		c.Check(errors.Is(err, errors.NotValid), qt.IsTrue, qt.Commentf("%+v", h))
	}
}

func TestNewUploaderWithoutCredentials(t *testing.T) {
	c := qt.New(t)
	up, err := NewUploader(config.CloudinaryConfig{})
	c.Assert(err, qt.IsNil)
	_, err = up.UploadImage(context.Background(), strings.NewReader("x"), ServiceFolder(1), "a.png")
	c.Assert(errors.Is(err, errors.NotSupported), qt.IsTrue)
}

func TestServiceFolder(t *testing.T) {
	qt.Assert(t, ServiceFolder(12), qt.Equals, "services/12")
}
