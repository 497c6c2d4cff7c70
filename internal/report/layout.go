package report

import (
	"fmt"
	"math"

	"receiptvault/internal/models"
)

// Fixed page geometry, in points at 72 DPI. The page matches the proportions
// of an A4 sheet; the image bounding box sits below the metadata text block.
const (
	PageWidth  = 595.0
	PageHeight = 842.0

	TextX = 20.0
	TextY = 20.0

	ImageX         = 20.0
	ImageY         = 150.0
	MaxImageWidth  = 555.0
	MaxImageHeight = 600.0

	emptyMessageY = 400.0
	emptyMessage  = "No bills found for this month."
)

// TextBlock is a block of text lines anchored at a fixed top-left position.
type TextBlock struct {
	X, Y  float64
	Lines []string
}

// PlacedImage is a scaled image placement within a page.
type PlacedImage struct {
	X, Y          float64
	Width, Height float64 // display size after aspect-preserving fit
	JPEG          []byte
	Placeholder   bool
}

// Page is one fixed-size canvas in the output document. Exactly one receipt
// maps to one page; the synthetic empty-month page carries no image.
type Page struct {
	Text  TextBlock
	Image *PlacedImage
}

// ReportDocument is the ordered page sequence for one owner's month.
type ReportDocument struct {
	OwnerID int64
	Month   MonthKey
	Pages   []Page
}

// PageLayoutEngine lays one receipt out on a fixed-size page.
type PageLayoutEngine struct{}

// NewPageLayoutEngine creates a new layout engine.
func NewPageLayoutEngine() *PageLayoutEngine {
	return &PageLayoutEngine{}
}

// Layout produces the page for one receipt: shop, amount and "date time" on
// their own lines at the top-left anchor, then the resolved image scaled to
// fit the bounding box. Odd amounts (negative, NaN) are laid out verbatim;
// validation belongs to the upload path, not here.
func (e *PageLayoutEngine) Layout(rec models.Receipt, img ResolvedImage) Page {
	width, height := fitWithin(img.Width, img.Height, MaxImageWidth, MaxImageHeight)
	return Page{
		Text: TextBlock{
			X: TextX,
			Y: TextY,
			Lines: []string{
				fmt.Sprintf("Shop: %s", rec.Shop),
				fmt.Sprintf("Amount: %.2f", rec.Amount),
				fmt.Sprintf("Date: %s %s", rec.BillDate, rec.BillTime),
			},
		},
		Image: &PlacedImage{
			X:           ImageX,
			Y:           ImageY,
			Width:       width,
			Height:      height,
			JPEG:        img.JPEG,
			Placeholder: img.Unavailable,
		},
	}
}

// EmptyPage produces the single synthetic page used when a month has no
// receipts: the fixed message on an otherwise blank page, no image region.
func (e *PageLayoutEngine) EmptyPage() Page {
	return Page{
		Text: TextBlock{
			X:     TextX,
			Y:     emptyMessageY,
			Lines: []string{emptyMessage},
		},
	}
}

// fitWithin scales pixel dimensions to fit inside a bounding box while
// preserving the aspect ratio. An image that already fits is never upscaled.
func fitWithin(w, h int, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	fw, fh := float64(w), float64(h)
	if fw <= maxW && fh <= maxH {
		return fw, fh
	}
	scale := math.Min(maxW/fw, maxH/fh)
	return fw * scale, fh * scale
}
