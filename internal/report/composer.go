package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"receiptvault/internal/models"
)

const defaultRenderWorkers = 4

// RecordSource fetches the stored receipts of one owner for one month, in a
// stable order (date, then record id).
type RecordSource interface {
	ListForMonth(ownerID int64, month MonthKey) ([]models.Receipt, error)
}

// Composer orchestrates report generation: fetch the month's records, resolve
// each image, lay out each page, and assemble the ordered page sequence. It
// never touches durable report storage; that belongs to the serializer.
type Composer struct {
	records  RecordSource
	resolver *ImageResolver
	layout   *PageLayoutEngine
	workers  int
	logger   *zap.Logger
}

// NewComposer creates a new report composer. workers bounds how many pages
// render concurrently; values below 1 fall back to the default.
func NewComposer(records RecordSource, resolver *ImageResolver, layout *PageLayoutEngine, workers int, logger *zap.Logger) *Composer {
	if workers < 1 {
		workers = defaultRenderWorkers
	}
	return &Composer{
		records:  records,
		resolver: resolver,
		layout:   layout,
		workers:  workers,
		logger:   logger,
	}
}

// Compose builds the report document for (owner, month). An unknown owner or
// a month with no receipts is not an error: it yields the single synthetic
// "no receipts" page. Pages render in parallel but are joined back in
// chronological order regardless of completion order.
func (c *Composer) Compose(ctx context.Context, ownerID int64, month MonthKey) (ReportDocument, error) {
	records, err := c.records.ListForMonth(ownerID, month)
	if err != nil {
		return ReportDocument{}, fmt.Errorf("failed to fetch receipts: %w", err)
	}

	doc := ReportDocument{OwnerID: ownerID, Month: month}
	if len(records) == 0 {
		c.logger.Info("No receipts for month, composing empty report",
			zap.Int64("owner_id", ownerID),
			zap.String("month", month.String()))
		doc.Pages = []Page{c.layout.EmptyPage()}
		return doc, nil
	}

	sortReceipts(records)

	// Each slot is written by exactly one goroutine; the slice order is the
	// chronological order established above.
	pages := make([]Page, len(records))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, rec := range records {
		g.Go(func() error {
			img := c.resolver.Resolve(rec.ImageRef)
			pages[i] = c.layout.Layout(rec, img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ReportDocument{}, fmt.Errorf("failed to render pages: %w", err)
	}

	c.logger.Debug("Report composed",
		zap.Int64("owner_id", ownerID),
		zap.String("month", month.String()),
		zap.Int("pages", len(pages)))

	doc.Pages = pages
	return doc, nil
}

// sortReceipts orders records ascending by bill date with the record id as
// tie-break. The date is compared as a parsed calendar date, not as text, so
// chronological order is an invariant of the comparator rather than an
// accident of the YYYY-MM-DD string convention. Unparseable dates sort first.
func sortReceipts(records []models.Receipt) {
	sort.SliceStable(records, func(i, j int) bool {
		di, ei := time.Parse("2006-01-02", records[i].BillDate)
		dj, ej := time.Parse("2006-01-02", records[j].BillDate)
		switch {
		case ei != nil && ej != nil:
			return records[i].ID < records[j].ID
		case ei != nil:
			return true
		case ej != nil:
			return false
		case !di.Equal(dj):
			return di.Before(dj)
		default:
			return records[i].ID < records[j].ID
		}
	})
}
