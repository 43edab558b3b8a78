package chi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flagdeck/internal/db/memory"
	"github.com/kailas-cloud/flagdeck/internal/domain"
	domimage "github.com/kailas-cloud/flagdeck/internal/domain/image"
	"github.com/kailas-cloud/flagdeck/internal/domain/record"
	galleryuc "github.com/kailas-cloud/flagdeck/internal/usecase/gallery"
	healthuc "github.com/kailas-cloud/flagdeck/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/flagdeck/internal/usecase/session"
)

type stubFetcher struct {
	broken      map[string]bool
	contentType map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (domimage.Image, error) {
	if f.broken[url] {
		return domimage.Image{}, domain.NewFetchError(domain.FetchStageStatus, url, fmt.Errorf("status 404"))
	}
	ct := "image/png"
	if v, ok := f.contentType[url]; ok {
		ct = v
	}
	return domimage.Image{
		URL:         url,
		ContentType: ct,
		Format:      "png",
		Width:       2,
		Height:      2,
		Data:        []byte("png:" + url),
	}, nil
}

func testDataset() record.Dataset {
	return record.NewDataset([]record.Record{
		record.Reconstruct(0, "a", "color", "X", "red", 0.9),
		record.Reconstruct(1, "b", "color", "Y", "blue", 0.2),
		record.Reconstruct(2, "c", "shape", "X", "round", 0.7),
	})
}

func newTestRouter(t *testing.T, fetcher *stubFetcher) http.Handler {
	t.Helper()
	if fetcher == nil {
		fetcher = &stubFetcher{}
	}
	ds := testDataset()
	store := memory.NewStore(0)
	t.Cleanup(store.Close)

	sessions := sessionuc.New(ds, sessionuc.Config{})
	srv := NewServer(
		sessions,
		galleryuc.New(sessions, fetcher, 2),
		healthuc.New(store, ds, sessions),
		Paging{DefaultLimit: 2, MaxLimit: 10},
		"",
		zap.NewNop(),
	)
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[SessionResponse](t, rec)
	if rec.Header().Get("Location") != "/sessions/"+resp.ID {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}
	return resp.ID
}

func ptr[T any](v T) *T { return &v }

func TestCreateSession_Defaults(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/sessions/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[SessionResponse](t, rec)
	if resp.Theme != "light" {
		t.Errorf("theme = %q, want light", resp.Theme)
	}
	if resp.ViewSize != 3 {
		t.Errorf("view_size = %d, want 3", resp.ViewSize)
	}
	if resp.Flagged != 0 {
		t.Errorf("flagged = %d, want 0", resp.Flagged)
	}
	if *resp.Criteria.Attribute != "All" || *resp.Criteria.ConfidenceMin != 0 || *resp.Criteria.ConfidenceMax != 1 {
		t.Errorf("unexpected default criteria: %+v", resp.Criteria)
	}
}

func TestUnknownSession(t *testing.T) {
	h := newTestRouter(t, nil)

	for _, path := range []string{
		"/sessions/not-a-uuid",
		"/sessions/6f1c9a52-3b8e-4d3a-9a51-0c1d2e3f4a5b",
		"/sessions/6f1c9a52-3b8e-4d3a-9a51-0c1d2e3f4a5b/records",
	} {
		rec := do(t, h, http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
			continue
		}
		if resp := decode[ErrorResponse](t, rec); resp.Code != ErrorCodeSessionNotFound {
			t.Errorf("%s: code = %q", path, resp.Code)
		}
	}
}

func TestDeleteSession(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	if rec := do(t, h, http.MethodDelete, "/sessions/"+id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/sessions/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestGetOptions(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/sessions/"+id+"/options", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[OptionsResponse](t, rec)
	want := []string{"All", "color", "shape"}
	if strings.Join(resp.Attributes, ",") != strings.Join(want, ",") {
		t.Errorf("attributes = %v, want %v", resp.Attributes, want)
	}
	if strings.Join(resp.Entities, ",") != "All,X,Y" {
		t.Errorf("entities = %v", resp.Entities)
	}
}

func TestApplyCriteria_FiltersView(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPut, "/sessions/"+id+"/criteria", CriteriaBody{
		Attribute:     ptr("color"),
		ConfidenceMin: ptr(0.5),
		ConfidenceMax: ptr(1.0),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[RecordListResponse](t, rec)
	if resp.Total != 1 || len(resp.Items) != 1 || resp.Items[0].URL != "a" {
		t.Fatalf("unexpected view: %+v", resp)
	}

	// The view persists for subsequent reads.
	list := decode[RecordListResponse](t, do(t, h, http.MethodGet, "/sessions/"+id+"/records", nil))
	if list.Total != 1 || list.Items[0].URL != "a" {
		t.Errorf("persisted view = %+v", list)
	}
}

func TestApplyCriteria_AllIsUnconstrained(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPut, "/sessions/"+id+"/criteria", CriteriaBody{
		Attribute: ptr("All"),
		Entity:    ptr("X"),
	})
	resp := decode[RecordListResponse](t, rec)
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}

func TestApplyCriteria_EmptyView(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPut, "/sessions/"+id+"/criteria", CriteriaBody{Prediction: ptr("green")})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[RecordListResponse](t, rec)
	if !resp.Empty || resp.Total != 0 || len(resp.Items) != 0 {
		t.Errorf("expected empty view, got %+v", resp)
	}
}

func TestApplyCriteria_Invalid(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	tests := []struct {
		name string
		body any
		code ErrorCode
	}{
		{"min above max", CriteriaBody{ConfidenceMin: ptr(0.8), ConfidenceMax: ptr(0.2)}, ErrorCodeValidationFailed},
		{"out of range", CriteriaBody{ConfidenceMax: ptr(1.5)}, ErrorCodeValidationFailed},
		{"malformed body", "not an object", ErrorCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPut, "/sessions/"+id+"/criteria", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp := decode[ErrorResponse](t, rec); resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestListRecords_Pagination(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	first := decode[RecordListResponse](t, do(t, h, http.MethodGet, "/sessions/"+id+"/records", nil))
	if len(first.Items) != 2 || !first.HasMore || first.NextCursor == nil || *first.NextCursor != 1 {
		t.Fatalf("first page = %+v", first)
	}

	path := fmt.Sprintf("/sessions/%s/records?cursor=%d", id, *first.NextCursor)
	second := decode[RecordListResponse](t, do(t, h, http.MethodGet, path, nil))
	if len(second.Items) != 1 || second.Items[0].RowID != 2 || second.HasMore {
		t.Errorf("second page = %+v", second)
	}

	if rec := do(t, h, http.MethodGet, "/sessions/"+id+"/records?limit=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0: status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/sessions/"+id+"/records?limit=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=abc: status = %d, want 400", rec.Code)
	}
}

func TestFlagRecord_Twice(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/sessions/"+id+"/flags", FlagRequest{RowID: ptr(0)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first flag: status = %d", rec.Code)
	}
	first := decode[FlagResponse](t, rec)
	if first.Status != "added" || first.Message != "Image flagged!" || first.Flagged != 1 {
		t.Errorf("first flag = %+v", first)
	}

	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/flags", FlagRequest{RowID: ptr(0)})
	if rec.Code != http.StatusOK {
		t.Fatalf("second flag: status = %d", rec.Code)
	}
	second := decode[FlagResponse](t, rec)
	if second.Status != "already_flagged" || second.Message != "Image already flagged." || second.Flagged != 1 {
		t.Errorf("second flag = %+v", second)
	}

	list := decode[FlagListResponse](t, do(t, h, http.MethodGet, "/sessions/"+id+"/flags", nil))
	if list.Total != 1 || list.Items[0].URL != "a" {
		t.Errorf("flags = %+v", list)
	}
}

func TestFlagRecord_Errors(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/sessions/"+id+"/flags", FlagRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing row_id: status = %d, want 400", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/sessions/"+id+"/flags", FlagRequest{RowID: ptr(99)})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown row: status = %d, want 404", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Code != ErrorCodeRecordNotFound {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestExportFlags(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	do(t, h, http.MethodPost, "/sessions/"+id+"/flags", FlagRequest{RowID: ptr(0)})
	do(t, h, http.MethodPost, "/sessions/"+id+"/flags", FlagRequest{RowID: ptr(0)})

	rec := do(t, h, http.MethodGet, "/sessions/"+id+"/flags/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="flagged_images.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("X-Flagged-Count"); got != "1" {
		t.Errorf("X-Flagged-Count = %q", got)
	}

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(record.Columns(), ",") {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "a" || rows[1][4] != "0.9" {
		t.Errorf("row = %v", rows[1])
	}
}

func TestExportFlags_Empty(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/sessions/"+id+"/flags/export", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Code != ErrorCodeNothingFlagged {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestGallery_SkipsUnavailableImages(t *testing.T) {
	h := newTestRouter(t, &stubFetcher{broken: map[string]bool{"b": true}})
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/sessions/"+id+"/gallery?limit=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[GalleryResponse](t, rec)
	if resp.Examined != 3 || resp.Skipped != 1 || len(resp.Tiles) != 2 {
		t.Fatalf("gallery = %+v", resp)
	}
	if resp.Tiles[0].Record.URL != "a" || resp.Tiles[1].Record.URL != "c" {
		t.Errorf("tile order = %s, %s", resp.Tiles[0].Record.URL, resp.Tiles[1].Record.URL)
	}
	if resp.Tiles[0].ConfidenceDisplay != "0.90" {
		t.Errorf("confidence display = %q", resp.Tiles[0].ConfidenceDisplay)
	}
	if resp.Tiles[1].ImageURL != "/sessions/"+id+"/records/2/image" {
		t.Errorf("image url = %q", resp.Tiles[1].ImageURL)
	}
}

func TestGetRecordImage(t *testing.T) {
	h := newTestRouter(t, &stubFetcher{broken: map[string]bool{"b": true}})
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/sessions/"+id+"/records/0/image", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/png" || rec.Body.String() != "png:a" {
		t.Errorf("unexpected image response %q %q", rec.Header().Get("Content-Type"), rec.Body.String())
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}

	rec = do(t, h, http.MethodGet, "/sessions/"+id+"/records/1/image", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("broken image: status = %d, want 404", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Code != ErrorCodeImageUnavailable {
		t.Errorf("code = %q", resp.Code)
	}

	if rec := do(t, h, http.MethodGet, "/sessions/"+id+"/records/x/image", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad row id: status = %d, want 400", rec.Code)
	}
}

func TestGetRecordImage_NonImageContentType(t *testing.T) {
	h := newTestRouter(t, &stubFetcher{contentType: map[string]string{"a": "text/html", "c": ""}})
	id := createSession(t, h)

	tests := []struct {
		row  string
		want string
	}{
		{"0", "image/png"},
		{"2", "image/png"},
	}
	for _, tt := range tests {
		rec := do(t, h, http.MethodGet, "/sessions/"+id+"/records/"+tt.row+"/image", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("row %s: status = %d", tt.row, rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != tt.want {
			t.Errorf("row %s: Content-Type = %q, want %q", tt.row, got, tt.want)
		}
		if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("row %s: X-Content-Type-Options = %q", tt.row, got)
		}
	}
}

func TestImageContentType(t *testing.T) {
	tests := []struct {
		img  domimage.Image
		want string
	}{
		{domimage.Image{ContentType: "image/webp", Format: "webp"}, "image/webp"},
		{domimage.Image{ContentType: "text/html", Format: "gif"}, "image/gif"},
		{domimage.Image{ContentType: "text/html"}, "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := imageContentType(tt.img); got != tt.want {
			t.Errorf("imageContentType(%+v) = %q, want %q", tt.img, got, tt.want)
		}
	}
}

func TestSetPreferences(t *testing.T) {
	h := newTestRouter(t, nil)
	id := createSession(t, h)

	rec := do(t, h, http.MethodPut, "/sessions/"+id+"/preferences", PreferencesRequest{Theme: "Dark"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode[SessionResponse](t, rec); resp.Theme != "dark" {
		t.Errorf("theme = %q, want dark", resp.Theme)
	}

	rec = do(t, h, http.MethodPut, "/sessions/"+id+"/preferences", PreferencesRequest{Theme: "sepia"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid theme: status = %d, want 400", rec.Code)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	h := newTestRouter(t, nil)
	a := createSession(t, h)
	b := createSession(t, h)

	do(t, h, http.MethodPut, "/sessions/"+a+"/criteria", CriteriaBody{Attribute: ptr("shape")})
	do(t, h, http.MethodPost, "/sessions/"+a+"/flags", FlagRequest{RowID: ptr(2)})

	resp := decode[SessionResponse](t, do(t, h, http.MethodGet, "/sessions/"+b, nil))
	if resp.ViewSize != 3 || resp.Flagged != 0 {
		t.Errorf("session b leaked state: %+v", resp)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestRouter(t, nil)
	createSession(t, h)

	rec := do(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[HealthResponse](t, rec)
	if resp.Status != "ok" || resp.Checks["store"] != "ok" || resp.Checks["dataset"] != "ok" {
		t.Errorf("health = %+v", resp)
	}
	if resp.Records != 3 || resp.Sessions != 1 {
		t.Errorf("records = %d, sessions = %d, want 3 and 1", resp.Records, resp.Sessions)
	}
}
