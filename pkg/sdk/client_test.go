package flagdeck

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flagdeck/internal/db/memory"
	domimage "github.com/kailas-cloud/flagdeck/internal/domain/image"
	"github.com/kailas-cloud/flagdeck/internal/domain/record"
	chiTransport "github.com/kailas-cloud/flagdeck/internal/transport/chi"
	galleryuc "github.com/kailas-cloud/flagdeck/internal/usecase/gallery"
	healthuc "github.com/kailas-cloud/flagdeck/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/flagdeck/internal/usecase/session"
)

type staticImages struct{}

func (staticImages) Fetch(_ context.Context, url string) (domimage.Image, error) {
	return domimage.Image{URL: url, ContentType: "image/png", Format: "png", Width: 1, Height: 1, Data: []byte(url)}, nil
}

const testKey = "test-key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ds := record.NewDataset([]record.Record{
		record.Reconstruct(0, "a", "color", "X", "red", 0.9),
		record.Reconstruct(0, "b", "color", "Y", "blue", 0.2),
	})
	store := memory.NewStore(0)
	t.Cleanup(store.Close)

	sessions := sessionuc.New(ds, sessionuc.Config{})
	srv := chiTransport.NewServer(sessions, galleryuc.New(sessions, staticImages{}, 1), healthuc.New(store, ds, sessions),
		chiTransport.Paging{DefaultLimit: 10, MaxLimit: 50}, "", zap.NewNop())

	r := chi.NewRouter()
	r.Use(chiTransport.BearerAuthMiddleware([]string{testKey}))
	srv.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	ts := newTestServer(t)
	c, err := New(ts.URL, append([]Option{WithAPIKey(testKey)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	for _, u := range []string{"", "ftp://host", "://bad"} {
		if _, err := New(u); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	hc := &http.Client{}
	for _, o := range []Option{WithAPIKey("k"), WithHTTPClient(hc), WithLogger(slog.Default())} {
		o.apply(cfg)
	}
	if cfg.apiKey != "k" || cfg.httpClient != hc || cfg.logger == nil {
		t.Errorf("options not applied: %+v", cfg)
	}
}

func TestReviewFlow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	sess, err := c.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	opts, err := sess.Options(ctx)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if len(opts.Attributes) != 2 || opts.Attributes[0] != "All" {
		t.Errorf("Attributes = %v", opts.Attributes)
	}

	page, err := sess.ApplyCriteria(ctx, Criteria{Attribute: "color", ConfidenceMin: 0.5, ConfidenceMax: 1})
	if err != nil {
		t.Fatalf("ApplyCriteria: %v", err)
	}
	if page.Total != 1 || page.Items[0].URL != "a" {
		t.Fatalf("page = %+v", page)
	}
	if page.Criteria.Attribute != "color" || page.Criteria.Entity != "" {
		t.Errorf("criteria = %+v", page.Criteria)
	}

	first, err := sess.Flag(ctx, page.Items[0].RowID)
	if err != nil {
		t.Fatalf("Flag: %v", err)
	}
	second, err := sess.Flag(ctx, page.Items[0].RowID)
	if err != nil {
		t.Fatalf("Flag: %v", err)
	}
	if !first.Added || second.Added || second.Flagged != 1 {
		t.Errorf("flag results = %+v / %+v", first, second)
	}

	data, err := sess.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "a" {
		t.Errorf("export rows = %v", rows)
	}

	info, err := sess.SetTheme(ctx, ThemeDark)
	if err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	if info.Theme != ThemeDark || info.Flagged != 1 || info.ViewSize != 1 {
		t.Errorf("info = %+v", info)
	}

	gallery, err := sess.Gallery(ctx, nil, 0)
	if err != nil {
		t.Fatalf("Gallery: %v", err)
	}
	if len(gallery.Tiles) != 1 || gallery.Tiles[0].Record.URL != "a" {
		t.Errorf("gallery = %+v", gallery)
	}

	img, ct, err := sess.Image(ctx, 0)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if string(img) != "a" || ct != "image/png" {
		t.Errorf("image = %q %q", img, ct)
	}

	if err := sess.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := sess.Info(ctx); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Info after delete: expected ErrSessionNotFound, got %v", err)
	}
}

func TestRecordsPaging(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	sess, _ := c.CreateSession(ctx)

	page, err := sess.Records(ctx, nil, 1)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(page.Items) != 1 || page.NextCursor == nil {
		t.Fatalf("page = %+v", page)
	}
	next, err := sess.Records(ctx, page.NextCursor, 1)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(next.Items) != 1 || next.Items[0].URL != "b" || next.NextCursor != nil {
		t.Errorf("next = %+v", next)
	}
}

func TestErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	sess, _ := c.CreateSession(ctx)

	if _, err := sess.Export(ctx); !errors.Is(err, ErrNothingFlagged) {
		t.Errorf("Export empty: expected ErrNothingFlagged, got %v", err)
	}
	if _, err := sess.Flag(ctx, 99); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Flag unknown: expected ErrRecordNotFound, got %v", err)
	}
	if _, err := sess.ApplyCriteria(ctx, Criteria{ConfidenceMin: 0.9, ConfidenceMax: 0.1}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("ApplyCriteria invalid: expected ErrInvalidRequest, got %v", err)
	}

	var apiErr *APIError
	_, err := c.Session("not-a-session").Info(ctx)
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 APIError, got %v", err)
	}
}

func TestUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	c, err := New(ts.URL, WithAPIKey("wrong"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := c.CreateSession(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	hs, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health is public: %v", err)
	}
	if hs.Status != "ok" || hs.Checks["dataset"] != "ok" || hs.Records != 2 {
		t.Errorf("health = %+v", hs)
	}
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, WithPrometheus(reg))
	ctx := context.Background()

	sess, err := c.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	_, _ = sess.Export(ctx)

	m, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("re-register metrics: %v", err)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("create_session", "ok")); got != 1 {
		t.Errorf("create_session ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("export", "nothing_flagged")); got != 1 {
		t.Errorf("export nothing_flagged = %v, want 1", got)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "ok"},
		{"api code", &APIError{StatusCode: 404, Code: "session_not_found"}, "session_not_found"},
		{"api no code", &APIError{StatusCode: 502}, "http_502"},
		{"wrapped api", fmt.Errorf("call: %w", &APIError{StatusCode: 409, Code: "nothing_flagged"}), "nothing_flagged"},
		{"canceled", context.Canceled, "canceled"},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), "canceled"},
		{"transport", errors.New("connection refused"), "transport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcome(tt.err); got != tt.want {
				t.Errorf("outcome() = %q, want %q", got, tt.want)
			}
		})
	}
}
