package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/tblmaker/internal/config"
	"github.com/dgallion1/tblmaker/internal/convert"
	"github.com/dgallion1/tblmaker/internal/creatium"
	"github.com/dgallion1/tblmaker/internal/metrics"
	"github.com/dgallion1/tblmaker/internal/render"
)

const testTemplate = `{"uid":"abc","data":{"embeds":{"cont":{"html":{"datamix":{"ast":"4.3"},"children":[{"code":"PLACEHOLDER_HTML"}]}}}}}`

const sampleRoster = "Номер\tФамилия, имя\tАмплуа\tДата рождения\tГражданство\n" +
	"35\tКульбаков Иван\tвратарь\t18.09.1996\tБеларусь\n" +
	"Главный тренер: Исаков Алексей\n"

type staticTemplate struct {
	doc *creatium.Document
}

func (s staticTemplate) Template() *creatium.Document {
	return s.doc.Clone()
}

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	doc, err := creatium.Parse([]byte(testTemplate))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	conv := convert.NewConverter(staticTemplate{doc: doc}, render.Renderer{}, m, convert.NewStats(time.Hour), log)
	cfg := config.Config{
		APIKey:         apiKey,
		MaxUploadBytes: 1024 * 1024,
	}
	return NewServer(conv, convert.NewResultStore(time.Hour), m, log, cfg)
}

type convertBody struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
	Coach   *struct {
		Name string `json:"name"`
	} `json:"coach"`
	Dropped    int    `json:"dropped"`
	Rows       int    `json:"rows"`
	HTML       string `json:"html"`
	JSONURL    string `json:"json_url"`
	PreviewURL string `json:"preview_url"`
	Error      string `json:"error"`
}

func do(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, convertBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	var body convertBody
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func multipartRequest(t *testing.T, target, field string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")
	rec, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHelp(t *testing.T) {
	s := newTestServer(t, "")
	rec, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/help", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Формат входных данных</h1>") {
		t.Errorf("expected rendered heading, got %s", body)
	}
	if !strings.Contains(body, "Главный тренер: Исаков Алексей") {
		t.Error("expected coach example in help page")
	}
}

func TestConvert_RawBody(t *testing.T) {
	s := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(sampleRoster))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	rec, body := do(t, s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body.Players != 1 {
		t.Errorf("expected 1 player, got %d", body.Players)
	}
	if body.Coach == nil || body.Coach.Name != "Исаков Алексей" {
		t.Errorf("expected coach Исаков Алексей, got %+v", body.Coach)
	}
	if body.Rows != 3 {
		t.Errorf("expected 3 rows, got %d", body.Rows)
	}
	if !strings.Contains(body.HTML, ">вр.<br></td>") {
		t.Errorf("expected abbreviated role in html, got %s", body.HTML)
	}
	if body.JSONURL != "/api/convert/"+body.ID+"/json" {
		t.Errorf("unexpected json_url %q", body.JSONURL)
	}
	if body.PreviewURL != "/api/convert/"+body.ID+"/preview" {
		t.Errorf("unexpected preview_url %q", body.PreviewURL)
	}
}

func TestConvert_FormText(t *testing.T) {
	s := newTestServer(t, "")
	form := url.Values{"text": {sampleRoster}}
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec, body := do(t, s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body.Players != 1 {
		t.Errorf("expected 1 player, got %d", body.Players)
	}
}

func TestConvert_MultipartFile(t *testing.T) {
	s := newTestServer(t, "")
	req := multipartRequest(t, "/api/convert", "file", map[string]string{"roster.tsv": sampleRoster})

	rec, body := do(t, s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body.Players != 1 {
		t.Errorf("expected 1 player, got %d", body.Players)
	}
}

func TestConvert_UnsupportedExtension(t *testing.T) {
	s := newTestServer(t, "")
	req := multipartRequest(t, "/api/convert", "file", map[string]string{"roster.pdf": sampleRoster})

	rec, body := do(t, s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(body.Error, "unsupported file type") {
		t.Errorf("unexpected error %q", body.Error)
	}
}

func TestConvert_EmptyInput(t *testing.T) {
	s := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader("  \n\t "))
	req.Header.Set("Content-Type", "text/plain")

	rec, body := do(t, s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body.Error == "" {
		t.Error("expected error message")
	}
}

func TestConvert_TooLarge(t *testing.T) {
	s := newTestServer(t, "")
	s.cfg.MaxUploadBytes = 16
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(sampleRoster))
	req.Header.Set("Content-Type", "text/plain")

	rec, _ := do(t, s, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestResultDownloadAndPreview(t *testing.T) {
	s := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(sampleRoster))
	req.Header.Set("Content-Type", "text/plain")
	_, created := do(t, s, req)
	if created.ID == "" {
		t.Fatal("expected result id")
	}

	rec, meta := do(t, s, httptest.NewRequest(http.MethodGet, "/api/convert/"+created.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if meta.ID != created.ID {
		t.Errorf("expected id %q, got %q", created.ID, meta.ID)
	}

	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, created.JSONURL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="creatium_table.json"` {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	doc, err := creatium.Parse(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("download is not a template document: %v", err)
	}
	code, err := doc.Code()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != created.HTML {
		t.Errorf("expected embedded code to equal html, got %s", code)
	}

	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, created.PreviewURL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected text/html, got %q", ct)
	}
	if rec.Body.String() != created.HTML {
		t.Errorf("expected preview to equal html")
	}
}

func TestResult_NotFound(t *testing.T) {
	s := newTestServer(t, "")
	for _, path := range []string{"/api/convert/missing", "/api/convert/missing/json", "/api/convert/missing/preview"} {
		rec, _ := do(t, s, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestBatchConvert(t *testing.T) {
	s := newTestServer(t, "")
	req := multipartRequest(t, "/api/convert/batch", "files", map[string]string{
		"a.txt":  sampleRoster,
		"b.txt":  "",
		"c.docx": sampleRoster,
	})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Results []convertBody `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(body.Results))
	}
	var ok, failed int
	for _, r := range body.Results {
		if r.Error != "" {
			failed++
		} else {
			ok++
		}
	}
	if ok != 1 || failed != 2 {
		t.Errorf("expected 1 ok and 2 failed, got %d and %d", ok, failed)
	}
	if s.results.Len() != 1 {
		t.Errorf("expected 1 stored result, got %d", s.results.Len())
	}
}

func TestBatchConvert_NoFiles(t *testing.T) {
	s := newTestServer(t, "")
	req := multipartRequest(t, "/api/convert/batch", "files", nil)

	rec, _ := do(t, s, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestConvertStats(t *testing.T) {
	s := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(sampleRoster))
	req.Header.Set("Content-Type", "text/plain")
	do(t, s, req)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/convert", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Stored int                   `json:"stored"`
		Stats  convert.StatsSnapshot `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Stored != 1 {
		t.Errorf("expected 1 stored result, got %d", body.Stored)
	}
	if body.Stats.Count != 1 {
		t.Errorf("expected count 1, got %d", body.Stats.Count)
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, "secret")

	rec, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/api/stats/convert", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats/convert", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec, _ = do(t, s, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stats/convert", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec, _ = do(t, s, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", rec.Code)
	}

	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected public health, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `tblmaker_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("expected request counter for /health, got:\n%s", rec.Body.String())
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"roster.txt":       "roster.txt",
		"../../etc/passwd": "passwd",
		"dir/roster.tsv":   "roster.tsv",
		"":                 "unnamed",
		"a..b.txt":         "a_b.txt",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestConvert_MarkupInValues(t *testing.T) {
	s := newTestServer(t, "")
	input := "Номер\tФамилия, имя\tАмплуа\tДата рождения\tГражданство\n" +
		"35\tКульбаков <table>Иван\tвратарь\t18.09.1996\tБеларусь\n" +
		"72\tКостин </tr><tr>Денис\tвратарь\t21.06.1995\tРоссия\n" +
		"Главный тренер: Исаков <table></tr><tr>\n"
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(input))
	req.Header.Set("Content-Type", "text/plain")

	rec, body := do(t, s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body.Players != 2 {
		t.Errorf("expected 2 players, got %d", body.Players)
	}
	if body.Rows != 4 {
		t.Errorf("expected 4 rows, got %d", body.Rows)
	}
	if !strings.Contains(body.HTML, ">Кульбаков <table>Иван<br></td>") {
		t.Errorf("expected player name verbatim, got %s", body.HTML)
	}
	if body.Coach == nil || body.Coach.Name != "Исаков <table></tr><tr>" {
		t.Errorf("expected coach name verbatim, got %+v", body.Coach)
	}
}
