package processor

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/storage/file"
)

func newProcessor() *Processor {
	return New(file.NewStorage(), Options{})
}

func TestDetectFormat(t *testing.T) {
	dir := t.TempDir()
	p := newProcessor()

	pngPath := filepath.Join(dir, "a.png")
	writePNG(t, pngPath, false)
	got, err := p.DetectFormat(context.Background(), pngPath)
	require.NoError(t, err)
	assert.Equal(t, "png", got)

	// Detection goes by content, not by extension.
	disguised := filepath.Join(dir, "b.png")
	writeJPG(t, disguised)
	got, err = p.DetectFormat(context.Background(), disguised)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", got)
}

func TestDetectFormat_Unreadable(t *testing.T) {
	dir := t.TempDir()
	p := newProcessor()

	corrupt := filepath.Join(dir, "corrupt.png")
	require.NoError(t, os.WriteFile(corrupt, []byte("definitely not an image"), 0o644))

	_, err := p.DetectFormat(context.Background(), corrupt)
	assert.ErrorIs(t, err, model.ErrUnreadableImage)

	_, err = p.DetectFormat(context.Background(), filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, model.ErrUnreadableImage)
}

func TestConvert_CancelledContextIsNotUnreadable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writePNG(t, src, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newProcessor().Convert(ctx, src, filepath.Join(dir, "a.jpg"), model.FormatJPG)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, model.ErrUnreadableImage)
}

func TestConvert_PNGWithAlphaToJPG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "alpha.png")
	dst := filepath.Join(dir, "alpha.jpg")
	writePNG(t, src, true)

	require.NoError(t, newProcessor().Convert(context.Background(), src, dst, model.FormatJPG))

	img, format := decodeFile(t, dst)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 8, img.Bounds().Dx())

	// Fully transparent pixels end up on the white background.
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestConvert_CustomBackground(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "alpha.png")
	dst := filepath.Join(dir, "alpha.jpg")
	writePNG(t, src, true)

	p := New(file.NewStorage(), Options{Background: "#000000", JPEGQuality: 90})
	require.NoError(t, p.Convert(context.Background(), src, dst, model.FormatJPG))

	img, _ := decodeFile(t, dst)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Less(t, r>>8, uint32(16))
	assert.Less(t, g>>8, uint32(16))
	assert.Less(t, b>>8, uint32(16))
}

func TestConvert_JPGToPNG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	dst := filepath.Join(dir, "photo.png")
	writeJPG(t, src)

	require.NoError(t, newProcessor().Convert(context.Background(), src, dst, model.FormatPNG))

	img, format := decodeFile(t, dst)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 8, 8), img.Bounds())
}

func TestConvert_PNGKeepsAlpha(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "alpha.png")
	dst := filepath.Join(dir, "copy.png")
	writePNG(t, src, true)

	require.NoError(t, newProcessor().Convert(context.Background(), src, dst, model.FormatPNG))

	img, _ := decodeFile(t, dst)
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a)
}

func TestConvert_Unreadable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "corrupt.png")
	dst := filepath.Join(dir, "corrupt.jpg")
	require.NoError(t, os.WriteFile(src, []byte{0x89, 'P', 'N', 'G', 0, 0}, 0o644))

	err := newProcessor().Convert(context.Background(), src, dst, model.FormatJPG)
	require.ErrorIs(t, err, model.ErrUnreadableImage)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvert_WriteError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	dst := filepath.Join(dir, "no", "such", "dir", "a.jpg")
	writePNG(t, src, false)

	err := newProcessor().Convert(context.Background(), src, dst, model.FormatJPG)
	assert.ErrorIs(t, err, model.ErrWriteError)
}

func writePNG(t *testing.T, path string, alpha bool) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := color.NRGBA{R: 200, G: 30, B: 30, A: 255}
			if alpha && x < 4 {
				c.A = 0
			}
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeJPG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func decodeFile(t *testing.T, path string) (image.Image, string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, format, err := image.Decode(f)
	require.NoError(t, err)
	return img, format
}
