package gallery

import (
	"context"

	domimage "github.com/kailas-cloud/flagdeck/internal/domain/image"
	"github.com/kailas-cloud/flagdeck/internal/domain/record"
	"github.com/kailas-cloud/flagdeck/internal/usecase/session"
)

// ViewReader reads a session's current filtered view.
type ViewReader interface {
	View(ctx context.Context, id string) (session.View, error)
	Record(ctx context.Context, id string, rowID int) (record.Record, error)
}

// ImageFetcher loads a remote image. Any failure means "unavailable".
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (domimage.Image, error)
}
