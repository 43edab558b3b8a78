package flagdeck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Session is a handle to one server-side review session.
type Session struct {
	id     string
	client *Client
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

func (s *Session) path(suffix string) string {
	return "/sessions/" + url.PathEscape(s.id) + suffix
}

// Info returns the session state.
func (s *Session) Info(ctx context.Context) (info SessionInfo, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("get_session", start, err) }()

	var w wireSession
	if err := s.client.doJSON(ctx, http.MethodGet, s.path(""), nil, &w); err != nil {
		return SessionInfo{}, err
	}
	return sessionFromWire(w), nil
}

// Delete ends the session.
func (s *Session) Delete(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("delete_session", start, err) }()

	return s.client.doJSON(ctx, http.MethodDelete, s.path(""), nil, nil)
}

// Options lists the values selectable for each criteria field.
func (s *Session) Options(ctx context.Context) (opts Options, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("options", start, err) }()

	var w wireOptions
	if err := s.client.doJSON(ctx, http.MethodGet, s.path("/options"), nil, &w); err != nil {
		return Options{}, err
	}
	return Options(w), nil
}

// ApplyCriteria replaces the session criteria and returns the first page of the new view.
func (s *Session) ApplyCriteria(ctx context.Context, c Criteria) (page RecordPage, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("apply_criteria", start, err) }()

	var w wireRecordPage
	if err := s.client.doJSON(ctx, http.MethodPut, s.path("/criteria"), criteriaToWire(c), &w); err != nil {
		return RecordPage{}, err
	}
	return pageFromWire(w), nil
}

// Records returns a page of the current view. cursor nil starts at the beginning; limit 0 uses the server default.
func (s *Session) Records(ctx context.Context, cursor *int, limit int) (page RecordPage, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("records", start, err) }()

	var w wireRecordPage
	if err := s.client.doJSON(ctx, http.MethodGet, s.path("/records")+pageQuery(cursor, limit), nil, &w); err != nil {
		return RecordPage{}, err
	}
	return pageFromWire(w), nil
}

// Gallery returns a page of tiles whose images are reachable.
func (s *Session) Gallery(ctx context.Context, cursor *int, limit int) (page GalleryPage, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("gallery", start, err) }()

	var w wireGalleryPage
	if err := s.client.doJSON(ctx, http.MethodGet, s.path("/gallery")+pageQuery(cursor, limit), nil, &w); err != nil {
		return GalleryPage{}, err
	}

	page = GalleryPage{
		Tiles:      make([]GalleryTile, len(w.Tiles)),
		Examined:   w.Examined,
		Skipped:    w.Skipped,
		Total:      w.Total,
		NextCursor: w.NextCursor,
	}
	for i, t := range w.Tiles {
		page.Tiles[i] = GalleryTile{
			Record:      recordFromWire(t.Record),
			ImageURL:    t.ImageURL,
			ContentType: t.ContentType,
			Width:       t.Width,
			Height:      t.Height,
		}
	}
	return page, nil
}

// Image downloads the image bytes of a record.
func (s *Session) Image(ctx context.Context, rowID int) (data []byte, contentType string, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("image", start, err) }()

	resp, err := s.client.send(ctx, http.MethodGet, s.path(fmt.Sprintf("/records/%d/image", rowID)), nil)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("flagdeck: read image: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Flag adds a record to the flagged set. Flagging twice is not an error.
func (s *Session) Flag(ctx context.Context, rowID int) (res FlagResult, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("flag", start, err) }()

	var w wireFlagResponse
	if err := s.client.doJSON(ctx, http.MethodPost, s.path("/flags"), wireFlagRequest{RowID: rowID}, &w); err != nil {
		return FlagResult{}, err
	}
	return FlagResult{
		Added:   w.Status == "added",
		Message: w.Message,
		Record:  recordFromWire(w.Record),
		Flagged: w.Flagged,
	}, nil
}

// Flags returns the flagged records in flag order.
func (s *Session) Flags(ctx context.Context) (records []Record, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("flags", start, err) }()

	var w wireFlagList
	if err := s.client.doJSON(ctx, http.MethodGet, s.path("/flags"), nil, &w); err != nil {
		return nil, err
	}
	return recordsFromWire(w.Items), nil
}

// Export downloads the flagged set as CSV.
// Returns ErrNothingFlagged when nothing has been flagged.
func (s *Session) Export(ctx context.Context) (data []byte, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("export", start, err) }()

	resp, err := s.client.send(ctx, http.MethodGet, s.path("/flags/export"), nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("flagdeck: read export: %w", err)
	}
	return data, nil
}

// SetTheme stores the display preference.
func (s *Session) SetTheme(ctx context.Context, t Theme) (info SessionInfo, err error) {
	start := time.Now()
	defer func() { s.client.obs.observe("set_theme", start, err) }()

	var w wireSession
	if err := s.client.doJSON(ctx, http.MethodPut, s.path("/preferences"), wirePreferences{Theme: string(t)}, &w); err != nil {
		return SessionInfo{}, err
	}
	return sessionFromWire(w), nil
}

func pageQuery(cursor *int, limit int) string {
	q := url.Values{}
	if cursor != nil {
		q.Set("cursor", strconv.Itoa(*cursor))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
