package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/flagdeck/internal/domain"
)

// PageParams holds cursor pagination query parameters.
type PageParams struct {
	Cursor *int
	Limit  *int
}

// sessionParam binds and validates the {session} path parameter.
// A malformed id can never name a live session, so it maps to ErrSessionNotFound.
func sessionParam(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "session", chi.URLParam(r, "session"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSessionNotFound, err)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return id, nil
}

// rowIDParam binds the {row_id} path parameter.
func rowIDParam(r *http.Request) (int, error) {
	var rowID int
	err := runtime.BindStyledParameterWithOptions("simple", "row_id", chi.URLParam(r, "row_id"), &rowID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return 0, fmt.Errorf("invalid row_id: %w", err)
	}
	return rowID, nil
}

// pageParams binds ?cursor= and ?limit= and clamps limit to [1, maxLimit].
func pageParams(r *http.Request, defaultLimit, maxLimit int) (PageParams, int, error) {
	var p PageParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "cursor", q, &p.Cursor); err != nil {
		return PageParams{}, 0, fmt.Errorf("invalid cursor: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &p.Limit); err != nil {
		return PageParams{}, 0, fmt.Errorf("invalid limit: %w", err)
	}

	limit := defaultLimit
	if p.Limit != nil {
		limit = *p.Limit
	}
	if limit < 1 {
		return PageParams{}, 0, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return p, limit, nil
}
