package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kimkjin/BannerComposer/internal/archive"
	"github.com/kimkjin/BannerComposer/internal/catalog"
	"github.com/kimkjin/BannerComposer/internal/composer"
	"github.com/kimkjin/BannerComposer/internal/models"
	"github.com/kimkjin/BannerComposer/internal/render"
)

type stubRenderer struct {
	mu    sync.Mutex
	slots []string
}

func (s *stubRenderer) RenderSlot(ctx context.Context, req render.SlotRequest) (models.Artifact, error) {
	s.mu.Lock()
	s.slots = append(s.slots, req.Format.Slot())
	s.mu.Unlock()
	return models.Artifact{Data: []byte("jpeg:" + req.Format.Slot()), Width: req.Format.Width, Height: req.Format.Height}, nil
}

func (s *stubRenderer) RenderComposite(ctx context.Context, req render.CompositeRequest) (models.Artifact, error) {
	return models.Artifact{Data: []byte("jpeg:" + req.Format.Slot()), Width: req.Format.Width, Height: req.Format.Height}, nil
}

type stubPublisher struct {
	name string
	size int
}

func (p *stubPublisher) Publish(ctx context.Context, name string, data []byte) (string, error) {
	p.name = name
	p.size = len(data)
	return "http://minio.local/banners/" + name, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

type testServer struct {
	*httptest.Server
	renderer  *stubRenderer
	publisher *stubPublisher
}

func newTestServer(t *testing.T, withPublisher bool) *testServer {
	t.Helper()

	logos := t.TempDir()
	if err := os.MkdirAll(filepath.Join(logos, "acme"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(logos, "acme", "logo.png"), pngBytes(t, 40, 20), 0o644); err != nil {
		t.Fatal(err)
	}
	fonts := t.TempDir()
	if err := os.WriteFile(filepath.Join(fonts, "Open-Sans.ttf"), []byte("font"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := &testServer{renderer: &stubRenderer{}}
	opts := Options{
		Renderer:    ts.renderer,
		Assets:      catalog.New(logos, fonts, logger),
		Concurrency: 4,
		Logger:      logger,
	}
	if withPublisher {
		ts.publisher = &stubPublisher{}
		opts.Publisher = ts.publisher
	}
	ts.Server = httptest.NewServer(New(opts).Routes([]string{"http://localhost:5173"}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) doJSON(t *testing.T, method, path string, payload any, want int, out any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(raw)
	}
	resp := ts.do(t, method, path, "application/json", body)
	if resp.StatusCode != want {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, want, resp.StatusCode, msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode %s %s response: %v", method, path, err)
		}
	}
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	var created struct {
		ID    string                `json:"id"`
		Name  string                `json:"name"`
		Slots []composer.SlotStatus `json:"slots"`
	}
	ts.doJSON(t, http.MethodPost, "/api/sessions", map[string]string{"name": "spring"}, http.StatusCreated, &created)
	if created.ID == "" || created.Name != "spring" {
		t.Fatalf("Unexpected session: %+v", created)
	}
	if len(created.Slots) != 21 {
		t.Fatalf("Expected 21 slots in a new session, got %d", len(created.Slots))
	}
	return created.ID
}

func (ts *testServer) uploadSource(t *testing.T, sessionID string, id models.SourceID) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", string(id)+".png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(pngBytes(t, 64, 32)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	resp := ts.do(t, http.MethodPut, "/api/sessions/"+sessionID+"/sources/"+string(id), mw.FormDataContentType(), &buf)
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("Upload of %s failed with %d: %s", id, resp.StatusCode, msg)
	}
	var img models.SourceImage
	if err := json.NewDecoder(resp.Body).Decode(&img); err != nil {
		t.Fatal(err)
	}
	if img.Width != 64 || img.Height != 32 {
		t.Errorf("Expected dimensions 64x32, got %dx%d", img.Width, img.Height)
	}
}

func TestCampaignWorkflow(t *testing.T) {
	ts := newTestServer(t, true)
	id := ts.createSession(t)
	base := "/api/sessions/" + id

	// Generation needs sources and logos.
	ts.doJSON(t, http.MethodPost, base+"/generate", nil, http.StatusBadRequest, nil)

	ts.uploadSource(t, id, models.SourceA)
	ts.uploadSource(t, id, models.SourceB)
	ts.doJSON(t, http.MethodPost, base+"/logos", map[string]string{"folder": "acme", "filename": "logo.png"}, http.StatusOK, nil)
	ts.doJSON(t, http.MethodPost, base+"/logos", map[string]string{"folder": "acme", "filename": "logo.png"}, http.StatusConflict, nil)

	var report composer.Report
	ts.doJSON(t, http.MethodPost, base+"/generate", nil, http.StatusOK, &report)
	if len(report.Rendered) != 20 {
		t.Errorf("Expected 20 rendered slots, got %d", len(report.Rendered))
	}
	if diff := cmp.Diff([]string{"ENTREGA.jpg"}, report.Composites); diff != "" {
		t.Errorf("Composites mismatch (-want +got):\n%s", diff)
	}

	edit := map[string]any{
		"logo": []map[string]any{{"x": 24, "y": 24, "width": 120}},
	}
	ts.doJSON(t, http.MethodPut, base+"/slots/SLOT1_WEB.jpg/override", edit, http.StatusOK, &report)
	if diff := cmp.Diff([]string{"SLOT1_WEB.jpg", "SLOT1_WEB_PRE.jpg"}, report.Rendered); diff != "" {
		t.Errorf("Override should render the slot and its mirror (-want +got):\n%s", diff)
	}

	var status composer.SlotStatus
	ts.doJSON(t, http.MethodGet, base+"/slots/SLOT1_WEB_PRE.jpg", nil, http.StatusOK, &status)
	if status.Override == nil || len(status.Override.Logos) != 1 {
		t.Fatalf("Mirror should carry the override, got %+v", status.Override)
	}
	// 40x20 logo at width 120 derives height 60.
	if got := status.Override.Logos[0].Height; got != 60 {
		t.Errorf("Expected derived logo height 60, got %d", got)
	}

	var lock struct {
		Slot   string `json:"slot"`
		Locked bool   `json:"locked"`
	}
	ts.doJSON(t, http.MethodPost, base+"/slots/SLOT2_WEB.jpg/lock", nil, http.StatusOK, &lock)
	if !lock.Locked {
		t.Error("Expected SLOT2_WEB.jpg to be locked")
	}

	resp := ts.do(t, http.MethodGet, base+"/slots/SLOT1_WEB.jpg/preview", "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Fatalf("Unexpected preview response: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if data, _ := io.ReadAll(resp.Body); string(data) != "jpeg:SLOT1_WEB.jpg" {
		t.Errorf("Unexpected preview bytes %q", data)
	}

	resp = ts.do(t, http.MethodGet, base+"/package", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Package failed with %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, archive.Filename(id)) {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := archive.ReadManifest(data)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if len(rows) != 21 {
		t.Errorf("Expected 21 manifest rows, got %d", len(rows))
	}

	var published map[string]string
	ts.doJSON(t, http.MethodPost, base+"/publish", nil, http.StatusOK, &published)
	if published["url"] != "http://minio.local/banners/"+archive.Filename(id) {
		t.Errorf("Unexpected publish URL %q", published["url"])
	}
	if ts.publisher.size != len(data) {
		t.Errorf("Published %d bytes, downloaded %d", ts.publisher.size, len(data))
	}
}

func TestDomainErrors(t *testing.T) {
	ts := newTestServer(t, false)
	id := ts.createSession(t)
	base := "/api/sessions/" + id

	tests := []struct {
		name    string
		method  string
		path    string
		payload any
		want    int
	}{
		{"unknown session", http.MethodGet, "/api/sessions/missing", nil, http.StatusNotFound},
		{"unknown slot", http.MethodGet, base + "/slots/NOPE.jpg", nil, http.StatusNotFound},
		{"composite assignment", http.MethodPut, base + "/assignments/ENTREGA.jpg", map[string]string{"source": "imageB"}, http.StatusConflict},
		{"invalid source", http.MethodPut, base + "/assignments/SLOT1_WEB.jpg", map[string]string{"source": "imageC"}, http.StatusBadRequest},
		{"assign all without upload", http.MethodPost, base + "/assignments", map[string]string{"source": "imageB"}, http.StatusBadRequest},
		{"override before generation", http.MethodPut, base + "/slots/SLOT1_WEB.jpg/override", map[string]any{}, http.StatusBadRequest},
		{"invalid background", http.MethodPut, base + "/slots/SLOT1_WEB.jpg/override", map[string]any{"background": map[string]string{"type": "plaid"}}, http.StatusBadRequest},
		{"missing logo", http.MethodPost, base + "/logos", map[string]string{"folder": "acme", "filename": "other.png"}, http.StatusNotFound},
		{"package without previews", http.MethodGet, base + "/package", nil, http.StatusConflict},
		{"publish not configured", http.MethodPost, base + "/publish", nil, http.StatusServiceUnavailable},
		{"no preview", http.MethodGet, base + "/slots/SLOT1_WEB.jpg/preview", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.doJSON(t, tt.method, tt.path, tt.payload, tt.want, nil)
		})
	}
}

func TestAssetEndpoints(t *testing.T) {
	ts := newTestServer(t, false)

	var folders struct {
		Folders []string `json:"folders"`
	}
	ts.doJSON(t, http.MethodGet, "/api/logo-folders?query=AC", nil, http.StatusOK, &folders)
	if diff := cmp.Diff([]string{"acme"}, folders.Folders); diff != "" {
		t.Errorf("Folders mismatch (-want +got):\n%s", diff)
	}

	var logos struct {
		Logos []logoResponse `json:"logos"`
	}
	ts.doJSON(t, http.MethodGet, "/api/logo-folders/acme/logos", nil, http.StatusOK, &logos)
	if len(logos.Logos) != 1 || !strings.HasPrefix(logos.Logos[0].Data, "data:image/png;base64,") {
		t.Errorf("Unexpected logos %+v", logos.Logos)
	}

	var fonts struct {
		Fonts []string `json:"fonts"`
	}
	ts.doJSON(t, http.MethodGet, "/api/fonts?query=open%20sans", nil, http.StatusOK, &fonts)
	if diff := cmp.Diff([]string{"Open-Sans.ttf"}, fonts.Fonts); diff != "" {
		t.Errorf("Fonts mismatch (-want +got):\n%s", diff)
	}

	var formatList struct {
		Formats []json.RawMessage `json:"formats"`
	}
	ts.doJSON(t, http.MethodGet, "/api/formats", nil, http.StatusOK, &formatList)
	if len(formatList.Formats) != 21 {
		t.Errorf("Expected 21 formats, got %d", len(formatList.Formats))
	}

	var logged map[string]string
	ts.doJSON(t, http.MethodPost, "/api/client-log", map[string]string{"message": "boom"}, http.StatusOK, &logged)
	if logged["status"] != "log received" {
		t.Errorf("Unexpected client-log response %v", logged)
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, false)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/sessions", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Unexpected Access-Control-Allow-Origin %q", got)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, false)
	id := ts.createSession(t)

	var sessions []map[string]any
	ts.doJSON(t, http.MethodGet, "/api/sessions", nil, http.StatusOK, &sessions)
	if len(sessions) != 1 || sessions[0]["id"] != id {
		t.Errorf("Unexpected session list %v", sessions)
	}

	ts.doJSON(t, http.MethodPut, "/api/sessions/"+id+"/tagline", map[string]any{"enabled": true, "text": "Sale"}, http.StatusOK, nil)
	var detail struct {
		Tagline models.Tagline `json:"tagline"`
	}
	ts.doJSON(t, http.MethodGet, "/api/sessions/"+id+"/", nil, http.StatusOK, &detail)
	if !detail.Tagline.Active() || detail.Tagline.FontSize != 24 {
		t.Errorf("Tagline should be active with default font size, got %+v", detail.Tagline)
	}

	ts.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/reset", nil, http.StatusOK, &detail)
	if detail.Tagline.Active() {
		t.Error("Reset should restore the default tagline")
	}

	resp := ts.do(t, http.MethodDelete, "/api/sessions/"+id+"/", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204 on delete, got %d", resp.StatusCode)
	}
	ts.doJSON(t, http.MethodGet, "/api/sessions/"+id+"/", nil, http.StatusNotFound, nil)
}
