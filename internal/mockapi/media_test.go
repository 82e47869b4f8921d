package mockapi

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainboard/brainboard/internal/core"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, height/2, color.RGBA{R: 200, G: 30, B: 90, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestThumbnailScalesLongestSide(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 400))
	thumb := thumbnail(src, ThumbnailMaxSize)
	assert.Equal(t, 320, thumb.Bounds().Dx())
	assert.Equal(t, 160, thumb.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 40, 30))
	assert.Equal(t, small.Bounds().Size(), thumbnail(small, ThumbnailMaxSize).Bounds().Size())
}

func TestDetectMIME(t *testing.T) {
	data := pngBytes(t, 4, 4)
	assert.Equal(t, "image/jpeg", detectMIME("image/JPEG; q=1", data))
	assert.Equal(t, "image/png", detectMIME("application/octet-stream", data))
	assert.Equal(t, "image/png", detectMIME("", data))
	assert.Equal(t, "text/plain", detectMIME("", []byte("plain notes")))
}

func TestMediaStoreSavesPhotoWithThumbnail(t *testing.T) {
	dir := t.TempDir()
	store := newMediaStore(dir)

	upload, err := store.save("up1", "../../board.png", "image/png", core.UploadPhoto, pngBytes(t, 640, 480))
	require.NoError(t, err)
	assert.Equal(t, "board.png", upload.Name)
	assert.Equal(t, 640, upload.Width)
	assert.Equal(t, 320, upload.ThumbWidth)
	assert.Equal(t, 240, upload.ThumbHeight)

	thumb, err := store.thumbnail("up1")
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 320, decoded.Bounds().Dx())

	assert.FileExists(t, filepath.Join(dir, "up1.png"))
	assert.FileExists(t, filepath.Join(dir, "up1.thumb.png"))
}

func TestMediaStoreRejects(t *testing.T) {
	store := newMediaStore("")

	_, err := store.save("up1", "notes.txt", "text/plain", core.UploadPhoto, []byte("hello"))
	assert.ErrorIs(t, err, errUploadType)

	_, err = store.save("up2", "fake.png", "image/png", core.UploadPhoto, []byte("not an image"))
	assert.ErrorIs(t, err, errUploadImage)

	doc, err := store.save("up3", "notes.txt", "text/plain", core.UploadDocument, []byte("hello"))
	require.NoError(t, err)
	assert.Zero(t, doc.ThumbWidth)
	_, err = store.thumbnail("up3")
	assert.ErrorIs(t, err, errThumbMissing)
}
