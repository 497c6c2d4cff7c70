package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"sync"

	_ "image/gif"
	_ "image/png"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

const (
	placeholderSize    = 200
	jpegQuality        = 85
	placeholderGray    = 0xb0
	maxRasterPageIndex = 0 // only the first page of a PDF receipt is rendered
)

// ImageStore reads the raw bytes of a previously uploaded receipt image.
type ImageStore interface {
	ReadImage(ref string) ([]byte, error)
}

// ResolvedImage is the outcome of resolving one receipt's image reference.
// Either the decoded receipt photo re-encoded as JPEG, or the fixed
// placeholder when the source is missing or unreadable. The variant is
// explicit so the layout step can treat both uniformly while tests can still
// observe which one they got.
type ResolvedImage struct {
	JPEG        []byte
	Width       int // native pixel width
	Height      int // native pixel height
	Unavailable bool
	Reason      string
}

// ImageResolver loads receipt images from the store. It never fails outward:
// a single corrupt photo must not abort an entire month's report, so any read
// or decode error degrades to the placeholder. The receipt's metadata text is
// still rendered either way.
type ImageResolver struct {
	store  ImageStore
	logger *zap.Logger
}

// NewImageResolver creates a new image resolver.
func NewImageResolver(store ImageStore, logger *zap.Logger) *ImageResolver {
	return &ImageResolver{
		store:  store,
		logger: logger,
	}
}

// Resolve loads and decodes the image behind ref. JPEG, PNG and GIF uploads
// are decoded directly; PDF receipts have their first page rasterized. On any
// failure the fixed flat-gray placeholder is returned instead.
func (r *ImageResolver) Resolve(ref string) ResolvedImage {
	raw, err := r.store.ReadImage(ref)
	if err != nil {
		r.logger.Warn("Receipt image unreadable, substituting placeholder",
			zap.String("image_ref", ref),
			zap.Error(err))
		return placeholderImage(fmt.Sprintf("read: %v", err))
	}

	var img image.Image
	if strings.HasSuffix(strings.ToLower(ref), ".pdf") {
		img, err = rasterizePDF(raw)
	} else {
		img, _, err = image.Decode(bytes.NewReader(raw))
	}
	if err != nil {
		r.logger.Warn("Receipt image undecodable, substituting placeholder",
			zap.String("image_ref", ref),
			zap.Error(err))
		return placeholderImage(fmt.Sprintf("decode: %v", err))
	}

	encoded, err := encodeJPEG(img)
	if err != nil {
		r.logger.Warn("Receipt image re-encode failed, substituting placeholder",
			zap.String("image_ref", ref),
			zap.Error(err))
		return placeholderImage(fmt.Sprintf("encode: %v", err))
	}

	bounds := img.Bounds()
	return ResolvedImage{
		JPEG:   encoded,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
}

// rasterizePDF renders the first page of a PDF receipt to an image.
func rasterizePDF(raw []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	img, err := doc.Image(maxRasterPageIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize PDF page: %w", err)
	}
	return img, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	placeholderOnce sync.Once
	placeholderJPEG []byte
)

// placeholderImage returns the fixed neutral substitute: a flat gray square.
func placeholderImage(reason string) ResolvedImage {
	placeholderOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
		gray := color.RGBA{R: placeholderGray, G: placeholderGray, B: placeholderGray, A: 0xff}
		for y := 0; y < placeholderSize; y++ {
			for x := 0; x < placeholderSize; x++ {
				img.SetRGBA(x, y, gray)
			}
		}
		// Encoding a flat in-memory image cannot fail.
		placeholderJPEG, _ = encodeJPEG(img)
	})

	return ResolvedImage{
		JPEG:        placeholderJPEG,
		Width:       placeholderSize,
		Height:      placeholderSize,
		Unavailable: true,
		Reason:      reason,
	}
}
