package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	_ "golang.org/x/image/webp" // registers the webp decoder

	"github.com/aliskhannn/image-converter/internal/model"
)

const (
	// DefaultJPEGQuality is used when Options.JPEGQuality is out of range.
	DefaultJPEGQuality = 100
	// DefaultBackground is the colour transparent pixels are flattened onto
	// for JPG output when Options.Background is empty.
	DefaultBackground = "#ffffff"
)

// fileStorage defines the interface for the local storage images are read
// from and written to.
type fileStorage interface {
	Save(ctx context.Context, dstPath string, src io.Reader) (string, error)
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// Options tunes the encoders.
type Options struct {
	JPEGQuality int    // 1..100
	Background  string // hex colour transparent pixels are flattened onto for JPG
}

// Processor decodes one image and re-encodes it in the target format.
// It holds no mutable state and is safe for concurrent use.
type Processor struct {
	fileStorage fileStorage
	quality     int
	background  string
}

// New creates a new Processor with the given file storage backend.
func New(fs fileStorage, opts Options) *Processor {
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if opts.Background == "" {
		opts.Background = DefaultBackground
	}

	return &Processor{
		fileStorage: fs,
		quality:     opts.JPEGQuality,
		background:  opts.Background,
	}
}

// DetectFormat reads just the image header of path and returns the codec
// name ("jpeg", "png", "gif", "bmp", "tiff", "webp").
func (p *Processor) DetectFormat(ctx context.Context, path string) (string, error) {
	r, err := p.fileStorage.Load(ctx, path)
	if err != nil {
		return "", openError(path, err)
	}
	defer r.Close()

	_, format, err := image.DecodeConfig(r)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", model.ErrUnreadableImage, path, err)
	}

	return format, nil
}

// Convert decodes srcPath and writes it to dstPath in the target format.
func (p *Processor) Convert(ctx context.Context, srcPath, dstPath string, format model.Format) error {
	img, err := p.decode(ctx, srcPath)
	if err != nil {
		return err
	}

	buf := bytes.NewBuffer(nil)
	switch format {
	case model.FormatJPG:
		err = p.encodeJPG(buf, img)
	case model.FormatPNG:
		err = p.encodePNG(buf, img)
	default:
		return fmt.Errorf("%w: unknown target format: %s", model.ErrInvalidConfig, format)
	}
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", model.ErrWriteError, dstPath, err)
	}

	if _, err := p.fileStorage.Save(ctx, dstPath, buf); err != nil {
		return fmt.Errorf("failed to save converted image: %w", err)
	}

	return nil
}

// decode loads the source image into memory.
func (p *Processor) decode(ctx context.Context, path string) (image.Image, error) {
	r, err := p.fileStorage.Load(ctx, path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer r.Close()

	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", model.ErrUnreadableImage, path, err)
	}

	return img, nil
}

// openError classifies a failure to open a source. A cancelled context is
// reported as such rather than as an unreadable image.
func openError(path string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return fmt.Errorf("%w: open %s: %v", model.ErrUnreadableImage, path, err)
}

// encodeJPG writes img as a maximum-fidelity JPEG, converting it to plain
// RGB first.
func (p *Processor) encodeJPG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, p.toRGB(img), imaging.JPEG, imaging.JPEGQuality(p.quality))
}

// encodePNG writes img as PNG in its native channel layout.
func (p *Processor) encodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

type opaquer interface {
	Opaque() bool
}

// toRGB returns img unchanged when it is already an opaque RGB image.
// Other colour models are normalised to NRGBA and, when they carry
// transparency, flattened onto the configured background.
func (p *Processor) toRGB(img image.Image) image.Image {
	switch img.(type) {
	case *image.RGBA, *image.YCbCr:
		if o, ok := img.(opaquer); ok && o.Opaque() {
			return img
		}
	}

	src := imaging.Clone(img)
	if src.Opaque() {
		return src
	}

	dc := gg.NewContext(src.Bounds().Dx(), src.Bounds().Dy())
	dc.SetHexColor(p.background)
	dc.Clear()
	dc.DrawImage(src, 0, 0)

	return dc.Image()
}
