package mockapi

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/session"
)

// ThumbnailMaxSize bounds the longest side of a photo thumbnail.
const ThumbnailMaxSize = 320

var (
	errUploadType   = errors.New("file type not allowed")
	errUploadImage  = errors.New("photo could not be decoded")
	errThumbMissing = errors.New("thumbnail not found")
)

type storedUpload struct {
	meta  core.Upload
	thumb []byte
}

// mediaStore keeps upload metadata and photo thumbnails. When dir is set the
// original and thumbnail are also written there.
type mediaStore struct {
	mu      sync.RWMutex
	uploads map[string]storedUpload
	dir     string
}

func newMediaStore(dir string) *mediaStore {
	return &mediaStore{uploads: make(map[string]storedUpload), dir: dir}
}

// detectMIME prefers the declared part type and sniffs the content when the
// part did not declare a useful one.
func detectMIME(declared string, data []byte) string {
	base, _, _ := strings.Cut(declared, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if base != "" && base != "application/octet-stream" {
		return base
	}
	sniffed, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return sniffed
}

// save validates data against category, computes a thumbnail for photos and
// records the upload.
func (m *mediaStore) save(id, name, declared string, category core.UploadCategory, data []byte) (core.Upload, error) {
	mimeType := detectMIME(declared, data)
	if !session.Allowed(category, mimeType) {
		return core.Upload{}, fmt.Errorf("%w: %s for %s uploads", errUploadType, mimeType, category)
	}

	upload := core.Upload{
		ID:   id,
		Name: filepath.Base(name),
		Type: category,
		MIME: mimeType,
		Size: int64(len(data)),
	}

	var thumb []byte
	if category == core.UploadPhoto {
		src, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return core.Upload{}, fmt.Errorf("%w: %v", errUploadImage, err)
		}
		scaled := thumbnail(src, ThumbnailMaxSize)
		upload.Width, upload.Height = src.Bounds().Dx(), src.Bounds().Dy()
		upload.ThumbWidth, upload.ThumbHeight = scaled.Bounds().Dx(), scaled.Bounds().Dy()

		var buf bytes.Buffer
		if err := png.Encode(&buf, scaled); err != nil {
			return core.Upload{}, fmt.Errorf("encode thumbnail: %w", err)
		}
		thumb = buf.Bytes()
	}

	if err := m.persist(upload, data, thumb); err != nil {
		return core.Upload{}, err
	}

	m.mu.Lock()
	m.uploads[id] = storedUpload{meta: upload, thumb: thumb}
	m.mu.Unlock()
	return upload, nil
}

func (m *mediaStore) persist(upload core.Upload, data, thumb []byte) error {
	if m.dir == "" {
		return nil
	}
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, upload.ID+filepath.Ext(upload.Name)), data, 0o600); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	if thumb != nil {
		if err := os.WriteFile(filepath.Join(m.dir, upload.ID+".thumb.png"), thumb, 0o600); err != nil {
			return fmt.Errorf("write thumbnail: %w", err)
		}
	}
	return nil
}

func (m *mediaStore) thumbnail(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.uploads[id]
	if !ok || stored.thumb == nil {
		return nil, errThumbMissing
	}
	return stored.thumb, nil
}

// thumbnail scales src so its longest side is at most maxSize. Smaller
// images keep their size.
func thumbnail(src image.Image, maxSize int) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scale := float64(maxSize) / float64(max(width, height))
	if scale > 1 {
		scale = 1
	}
	newW := max(int(float64(width)*scale), 1)
	newH := max(int(float64(height)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
