package gallery

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domimage "github.com/kailas-cloud/flagdeck/internal/domain/image"
	"github.com/kailas-cloud/flagdeck/internal/domain/record"
	logpkg "github.com/kailas-cloud/flagdeck/internal/logger"
	"github.com/kailas-cloud/flagdeck/internal/usecase/session"
)

// Tile is one renderable gallery cell: a record whose image was fetched.
type Tile struct {
	Record record.Record
	Image  domimage.Image
}

// Page is a slice of the filtered view with images resolved.
type Page struct {
	Tiles      []Tile
	Examined   int  // records of the view covered by this page
	Skipped    int  // records dropped because their image was unavailable
	ViewSize   int  // size of the whole filtered view
	NextCursor *int // row id to continue from, nil at the end
}

// Service renders gallery pages of a session's filtered view.
type Service struct {
	views       ViewReader
	images      ImageFetcher
	concurrency int
}

// New creates a gallery service. concurrency <= 1 fetches images one at a time.
func New(views ViewReader, images ImageFetcher, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{views: views, images: images, concurrency: concurrency}
}

// Render fetches images for up to limit records after cursor.
// Records whose image cannot be fetched are skipped silently; tiles keep view order.
func (s *Service) Render(ctx context.Context, sessionID string, cursor *int, limit int) (Page, error) {
	v, err := s.views.View(ctx, sessionID)
	if err != nil {
		return Page{}, fmt.Errorf("read view: %w", err)
	}

	batch, next := session.Paginate(v.Records, cursor, limit)
	fetched := make([]*domimage.Image, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, r := range batch {
		g.Go(func() error {
			img, err := s.images.Fetch(gctx, r.URL())
			if err != nil {
				return nil //nolint:nilerr // unavailable images are skipped, not failures
			}
			fetched[i] = &img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Page{}, fmt.Errorf("fetch images: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Page{}, fmt.Errorf("render gallery: %w", err)
	}

	page := Page{
		Tiles:      make([]Tile, 0, len(batch)),
		Examined:   len(batch),
		ViewSize:   len(v.Records),
		NextCursor: next,
	}
	for i, r := range batch {
		if fetched[i] == nil {
			page.Skipped++
			continue
		}
		page.Tiles = append(page.Tiles, Tile{Record: r, Image: *fetched[i]})
	}

	logpkg.FromContext(ctx).Debug("gallery rendered",
		zap.Int("tiles", len(page.Tiles)),
		zap.Int("skipped", page.Skipped),
	)
	return page, nil
}

// Image fetches the image of one dataset record.
func (s *Service) Image(ctx context.Context, sessionID string, rowID int) (domimage.Image, error) {
	r, err := s.views.Record(ctx, sessionID, rowID)
	if err != nil {
		return domimage.Image{}, err
	}
	img, err := s.images.Fetch(ctx, r.URL())
	if err != nil {
		return domimage.Image{}, fmt.Errorf("row %d: %w", rowID, err)
	}
	return img, nil
}
