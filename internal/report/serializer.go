package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"
)

const (
	fontFamily = "Courier"
	fontSize   = 12.0
	lineHeight = 16.0
)

// ReportHandle identifies a published report artifact. Filename is the
// download-facing name suggested to the client; it carries the month but not
// the owner id, so a saved file never leaks who generated it.
type ReportHandle struct {
	Path        string
	Filename    string
	ContentType string
}

// DocumentSerializer encodes a composed report into a single multi-page PDF
// and publishes it under the (owner, month) artifact key. Repeated requests
// for the same key overwrite the same artifact.
type DocumentSerializer struct {
	outputDir string
	logger    *zap.Logger
}

// NewDocumentSerializer creates a serializer writing into outputDir.
func NewDocumentSerializer(outputDir string, logger *zap.Logger) (*DocumentSerializer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report output directory: %w", err)
	}
	return &DocumentSerializer{
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// Publish encodes the document's pages, in order, and atomically installs the
// result at the artifact key for (owner, month). The PDF is written to a
// temporary file in the output directory and renamed into place, so a
// concurrent reader of the same key sees either the previous complete
// artifact or the new one, never a torn hybrid. On failure nothing is left
// at the published key.
func (s *DocumentSerializer) Publish(doc ReportDocument) (ReportHandle, error) {
	encoded, err := encodePDF(doc)
	if err != nil {
		return ReportHandle{}, fmt.Errorf("failed to encode report: %w", err)
	}

	finalPath := filepath.Join(s.outputDir, artifactKey(doc.OwnerID, doc.Month))
	tmp, err := os.CreateTemp(s.outputDir, ".report-*.pdf.tmp")
	if err != nil {
		return ReportHandle{}, fmt.Errorf("failed to create temporary report file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ReportHandle{}, fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ReportHandle{}, fmt.Errorf("failed to sync report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ReportHandle{}, fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return ReportHandle{}, fmt.Errorf("failed to publish report: %w", err)
	}

	s.logger.Info("Report published",
		zap.Int64("owner_id", doc.OwnerID),
		zap.String("month", doc.Month.String()),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("bytes", len(encoded)))

	return ReportHandle{
		Path:        finalPath,
		Filename:    fmt.Sprintf("report_%s.pdf", doc.Month),
		ContentType: "application/pdf",
	}, nil
}

// artifactKey derives the owner-scoped storage key. Keys never collide across
// owners, so concurrent requests only ever race within one (owner, month).
func artifactKey(ownerID int64, month MonthKey) string {
	return fmt.Sprintf("report_%d_%s.pdf", ownerID, month)
}

// encodePDF renders the page sequence into PDF bytes. Page N+1 of the output
// follows page N of the document; the order is load-bearing for consumers.
func encodePDF(doc ReportDocument) ([]byte, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont(fontFamily, "", fontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, page := range doc.Pages {
		pdf.AddPage()

		y := page.Text.Y + fontSize // Text() positions the baseline
		for _, line := range page.Text.Lines {
			pdf.Text(page.Text.X, y, tr(line))
			y += lineHeight
		}

		if img := page.Image; img != nil && len(img.JPEG) > 0 {
			name := fmt.Sprintf("receipt-%d", i)
			opts := gofpdf.ImageOptions{ImageType: "JPG"}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.JPEG))
			pdf.ImageOptions(name, img.X, img.Y, img.Width, img.Height, false, opts, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
