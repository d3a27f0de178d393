package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/marks/internal/bookmarks"
	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
	"github.com/MrSnakeDoc/marks/internal/store/memory"
)

const netscapeSample = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://go.dev" ADD_DATE="1700000000">Go</A>
    <DD>The Go language
    <DT><A HREF="example.com" ADD_DATE="1700000001">Example</A>
</DL><p>
`

type testServer struct {
	handler http.Handler
	repo    *memory.Repository
}

func newTestServer(t *testing.T, mutate func(*deps.Deps)) *testServer {
	t.Helper()

	log := logger.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	repo := memory.New()

	d := deps.Deps{
		Logger:             log,
		StartTime:          time.Now(),
		Version:            "test",
		TimeNow:            func() time.Time { return time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC) },
		Store:              bookmarks.NewStore(repo, log, m),
		Storage:            config.StorageMemory,
		Validate:           handlers.NewValidator(),
		Metrics:            m,
		Gatherer:           reg,
		MaxUploadBytes:     1 << 20,
		ImportBurst:        100,
		ImportRefillPerMin: 100,
	}
	if mutate != nil {
		mutate(&d)
	}

	cfg := &config.Config{ListenPort: ":0", TrustProxy: d.TrustProxy}
	return &testServer{handler: New(cfg, log, d).Handler(), repo: repo}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) upload(t *testing.T, field, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mp.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	} else if err := mp.WriteField("note", "nothing attached"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	if err := mp.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestCreateBookmark(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"example.com","title":" Example "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"tags":[]`) {
		t.Errorf("tags should serialize as an empty array: %s", rec.Body.String())
	}

	bm := decode[domain.Bookmark](t, rec)
	if bm.ID == "" || bm.URL != "https://example.com" || bm.Title != "Example" || bm.Category != domain.DefaultCategory {
		t.Errorf("unexpected bookmark: %+v", bm)
	}
}

func TestCreateBookmarkErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	if rec := ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"https://example.com/"}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed status = %d", rec.Code)
	}

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "invalid json", body: `{"url":`, status: http.StatusBadRequest, message: "invalid JSON body"},
		{name: "missing url", body: `{"title":"x"}`, status: http.StatusBadRequest, message: "missing url"},
		{name: "blank url", body: `{"url":"   "}`, status: http.StatusBadRequest, message: "missing url"},
		{name: "malformed url", body: `{"url":"http://"}`, status: http.StatusBadRequest, message: "malformed url"},
		{name: "duplicate", body: `{"url":"EXAMPLE.com"}`, status: http.StatusConflict, message: "duplicate url"},
		{name: "tag too long", body: `{"url":"other.example","tags":["` + strings.Repeat("x", 200) + `"]}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/bookmarks", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if got := errorOf(t, rec); tt.message != "" && got != tt.message {
				t.Errorf("error = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestUpdateBookmark(t *testing.T) {
	ts := newTestServer(t, nil)
	a := decode[domain.Bookmark](t, ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"a.example"}`))
	ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"b.example"}`)

	rec := ts.do(t, http.MethodPut, "/api/bookmarks/"+a.ID, `{"title":"A","category":"  "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	got := decode[domain.Bookmark](t, rec)
	if got.ID != a.ID || got.Title != "A" || got.Category != domain.DefaultCategory || !got.Created.Equal(a.Created) {
		t.Errorf("unexpected update result: %+v", got)
	}

	if rec := ts.do(t, http.MethodPut, "/api/bookmarks/"+a.ID, `{"url":"https://B.example/"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate url status = %d, want 409", rec.Code)
	}
	if rec := ts.do(t, http.MethodPut, "/api/bookmarks/missing", `{"title":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	} else if msg := errorOf(t, rec); msg != "bookmark not found" {
		t.Errorf("error = %q", msg)
	}
	if rec := ts.do(t, http.MethodPut, "/api/bookmarks/"+a.ID, `{"url":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank url status = %d, want 400", rec.Code)
	}
}

func TestDeleteBookmark(t *testing.T) {
	ts := newTestServer(t, nil)
	a := decode[domain.Bookmark](t, ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"a.example"}`))

	for _, id := range []string{a.ID, a.ID, "never-existed"} {
		rec := ts.do(t, http.MethodDelete, "/api/bookmarks/"+id, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("delete %s status = %d, want 200", id, rec.Code)
		}
		if got := decode[map[string]bool](t, rec); !got["success"] {
			t.Errorf("delete %s body = %s", id, rec.Body.String())
		}
	}

	if n := len(ts.repo.Snapshot()); n != 0 {
		t.Errorf("stored %d bookmarks after delete, want 0", n)
	}
}

func TestBulkDelete(t *testing.T) {
	ts := newTestServer(t, nil)
	var ids []string
	for _, u := range []string{"a.example", "b.example", "c.example"} {
		ids = append(ids, decode[domain.Bookmark](t, ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"`+u+`"}`)).ID)
	}

	body, _ := json.Marshal(map[string][]string{"ids": {ids[0], ids[2], "ghost"}})
	rec := ts.do(t, http.MethodDelete, "/api/bookmarks/bulk", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Success bool `json:"success"`
		Deleted int  `json:"deleted"`
	}](t, rec)
	if !got.Success || got.Deleted != 2 {
		t.Errorf("bulk delete = %+v, want success with 2 deleted", got)
	}

	left := ts.repo.Snapshot()
	if len(left) != 1 || left[0].ID != ids[1] {
		t.Errorf("remaining = %+v, want only %s", left, ids[1])
	}

	for _, bad := range []string{`{}`, `{"ids":null}`, `{"ids":"a"}`, `not json`} {
		if rec := ts.do(t, http.MethodDelete, "/api/bookmarks/bulk", bad); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", bad, rec.Code)
		}
	}

	if rec := ts.do(t, http.MethodDelete, "/api/bookmarks/bulk", `{"ids":[]}`); rec.Code != http.StatusOK {
		t.Errorf("empty ids status = %d, want 200", rec.Code)
	}
}

func TestCategories(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"a.example","category":"Work"}`)
	ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"b.example"}`)
	ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"c.example","category":"Art"}`)
	ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"d.example","category":"Work"}`)

	rec := ts.do(t, http.MethodGet, "/api/categories", "")
	got := decode[[]string](t, rec)
	want := []string{"Art", "Uncategorized", "Work"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("categories = %v, want %v", got, want)
	}
}

func TestImport(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"https://example.com/"}`)

	rec := ts.upload(t, "file", "bookmarks.html", netscapeSample)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	got := decode[bookmarks.ImportResult](t, rec)
	if got != (bookmarks.ImportResult{Imported: 1, Skipped: 1, Total: 2}) {
		t.Errorf("import result = %+v", got)
	}

	stored := ts.repo.Snapshot()
	last := stored[len(stored)-1]
	if last.URL != "https://go.dev" || last.Category != domain.ImportedCategory || last.Description != "The Go language" {
		t.Errorf("imported bookmark = %+v", last)
	}
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		content string
		status  int
	}{
		{name: "no file", field: "", status: http.StatusBadRequest},
		{name: "wrong field", field: "upload", content: netscapeSample, status: http.StatusBadRequest},
		{name: "no bookmarks", field: "file", content: "<html>nothing here</html>", status: http.StatusBadRequest},
		{name: "too large", field: "file", content: strings.Repeat("x", 4096), status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, func(d *deps.Deps) { d.MaxUploadBytes = 2048 })
			rec := ts.upload(t, tt.field, "bookmarks.html", tt.content)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestImportRateLimit(t *testing.T) {
	ts := newTestServer(t, func(d *deps.Deps) {
		d.ImportBurst = 1
		d.ImportRefillPerMin = 1
	})

	if rec := ts.upload(t, "file", "a.html", netscapeSample); rec.Code != http.StatusOK {
		t.Fatalf("first import status = %d", rec.Code)
	}
	rec := ts.upload(t, "file", "a.html", netscapeSample)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second import status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"a.example","title":"<b>A</b>","tags":["x"]}`)
	ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"b.example","description":"second"}`)

	rec := ts.do(t, http.MethodGet, "/api/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=my-bookmarks.html" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if n := doc.Find(".bookmark-card").Length(); n != 2 {
		t.Errorf("cards = %d, want 2", n)
	}
	if title := doc.Find(".bookmark-title a").First().Text(); title != "<b>A</b>" {
		t.Errorf("first title = %q, want the literal markup text", title)
	}
}

func TestExportNetscape(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/bookmarks", `{"url":"a.example","title":"A","description":"first"}`)

	rec := ts.do(t, http.MethodGet, "/api/export/netscape", "")
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=bookmarks-netscape.html" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Errorf("missing Netscape header: %q", body)
	}
	if !strings.Contains(body, `<DT><A HREF="https://a.example" ADD_DATE="`) || !strings.Contains(body, "<DD>first") {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	trigger := make(chan struct{}, 1)
	ts := newTestServer(t, func(d *deps.Deps) { d.SeedReloadTrigger = trigger })
	ts.do(t, http.MethodGet, "/api/bookmarks", "")

	if rec := ts.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	} else if got := decode[map[string]any](t, rec); got["storage"] != config.StorageMemory {
		t.Errorf("healthz storage = %v", got["storage"])
	}
	if rec := ts.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `marks_http_requests_total{method="GET",route="/api/bookmarks",status="200"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", rec.Body.String())
	}

	if rec := ts.do(t, http.MethodPost, "/reload", ""); rec.Code != http.StatusAccepted {
		t.Errorf("first reload status = %d, want 202", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/reload", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second reload status = %d, want 429", rec.Code)
	}
}

func TestReloadWithoutSeed(t *testing.T) {
	ts := newTestServer(t, nil)
	if rec := ts.do(t, http.MethodPost, "/reload", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAccessRestrictions(t *testing.T) {
	ts := newTestServer(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
		d.AllowedHosts = []string{"marks.local", "*.marks.local"}
	})

	tests := []struct {
		name   string
		path   string
		host   string
		remote string
		status int
	}{
		{name: "healthz from allowed net", path: "/healthz", host: "marks.local", remote: "10.1.2.3:5555", status: http.StatusOK},
		{name: "healthz from outside", path: "/healthz", host: "marks.local", remote: "192.0.2.1:5555", status: http.StatusForbidden},
		{name: "api from outside net", path: "/api/bookmarks", host: "marks.local", remote: "192.0.2.1:5555", status: http.StatusOK},
		{name: "api wildcard host", path: "/api/bookmarks", host: "home.marks.local", remote: "192.0.2.1:5555", status: http.StatusOK},
		{name: "api wrong host", path: "/api/bookmarks", host: "evil.example", remote: "10.1.2.3:5555", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Host = tt.host
			req.RemoteAddr = tt.remote
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}
