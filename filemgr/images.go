// Package filemgr stores uploaded product pictures together with a thumbnail.
package filemgr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type PictureType string

const (
	PicPhoto PictureType = "photo"
	PicThumb PictureType = "thumb"
)

const (
	MaxUploadSize = 10 << 20
	MaxDimension  = 3000
	ThumbWidth    = 300
)

var (
	AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}
	AllowedMIMEs      = []string{"image/jpeg", "image/png", "image/gif"}

	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidMIME      = errors.New("invalid MIME type")
	ErrFileTooLarge     = errors.New("file size exceeds limit")
)

// Saved holds the public paths of a stored picture.
type Saved struct {
	Image string `json:"image"`
	Thumb string `json:"thumb"`
}

// Manager writes files below Root, which is served at URLPrefix.
type Manager struct {
	Root      string
	URLPrefix string
}

func New(root string) *Manager {
	return &Manager{Root: root, URLPrefix: "/static"}
}

// ResolvePath is the directory for pictures of picType belonging to entity.
func (m *Manager) ResolvePath(entity string, picType PictureType) string {
	return filepath.Join(m.Root, "uploads", strings.ToLower(entity), string(picType))
}

// SaveImage validates an upload, re-encodes it as JPEG (dropping EXIF) and writes a
// ThumbWidth-wide thumbnail next to it.
func (m *Manager) SaveImage(r io.Reader, filename, entity string) (Saved, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(AllowedExtensions, ext) {
		return Saved{}, errors.Wrap(ErrInvalidExtension, ext)
	}

	buf, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return Saved{}, errors.Wrap(err, "read upload")
	}
	if len(buf) > MaxUploadSize {
		return Saved{}, ErrFileTooLarge
	}
	if mimeType := http.DetectContentType(buf); !slices.Contains(AllowedMIMEs, mimeType) {
		return Saved{}, errors.Wrap(ErrInvalidMIME, mimeType)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return Saved{}, errors.Wrapf(err, "decode image %q", filename)
	}
	if err := ValidateImageDimensions(img, MaxDimension, MaxDimension); err != nil {
		return Saved{}, err
	}

	name := uuid.New().String() + ".jpg"
	if err := m.writeJPEG(img, entity, PicPhoto, name, 90); err != nil {
		return Saved{}, err
	}
	thumb := imaging.Resize(img, ThumbWidth, 0, imaging.Lanczos)
	if err := m.writeJPEG(thumb, entity, PicThumb, name, 85); err != nil {
		return Saved{}, err
	}

	b := img.Bounds()
	log.WithFields(log.Fields{
		"entity": entity,
		"file":   name,
		"width":  b.Dx(),
		"height": b.Dy(),
		"bytes":  len(buf),
	}).Info("image stored")

	return Saved{
		Image: m.url(entity, PicPhoto, name),
		Thumb: m.url(entity, PicThumb, name),
	}, nil
}

func ValidateImageDimensions(img image.Image, maxWidth, maxHeight int) error {
	b := img.Bounds()
	if b.Dx() > maxWidth || b.Dy() > maxHeight {
		return fmt.Errorf("image dimensions %dx%d exceed allowed maximum %dx%d", b.Dx(), b.Dy(), maxWidth, maxHeight)
	}
	return nil
}

func (m *Manager) writeJPEG(img image.Image, entity string, picType PictureType, name string, quality int) error {
	dir := m.ResolvePath(entity, picType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", dir)
	}
	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	defer out.Close()

	return errors.Wrap(jpeg.Encode(out, img, &jpeg.Options{Quality: quality}), "encode jpeg")
}

func (m *Manager) url(entity string, picType PictureType, name string) string {
	return path.Join(m.URLPrefix, "uploads", strings.ToLower(entity), string(picType), name)
}
