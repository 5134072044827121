package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"scenecast/internal/adapters/storage/localfs"
	"scenecast/internal/httpapi/handlers"
	"scenecast/internal/httpkit"
	"scenecast/internal/jobs"
	apperrors "scenecast/internal/pkg/errors"
	"scenecast/internal/pkg/logger"
)

const validScript = "from manim import *\n\nclass GeneratedAnimation(Scene):\n    def construct(self):\n        self.play(Create(Circle()))\n"

type fakeRenderer struct {
	mu      sync.Mutex
	names   []string
	ctxErrs []error
	err     error
}

func (f *fakeRenderer) Render(ctx context.Context, req jobs.Request, outputName string) (*jobs.Result, error) {
	f.mu.Lock()
	f.names = append(f.names, outputName)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &jobs.Result{
		OutputPath: "/out/" + outputName,
		VideoKey:   "videos/" + outputName,
		Metrics:    &jobs.Metrics{DurationSeconds: 1.5, ByteSize: 10, Resolution: "720p", Filename: outputName},
	}, nil
}

func (f *fakeRenderer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

type fakeDispatcher struct{ err error }

func (f fakeDispatcher) Dispatch(context.Context, string, jobs.Request) error { return f.err }

type fakePurger struct{ removed []string }

func (f fakePurger) Purge(string) []string { return f.removed }

type fakeVersion struct{ err error }

func (f fakeVersion) Version(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "Manim Community v0.18.1", nil
}

type fixture struct {
	handler  http.Handler
	srv      *httptest.Server
	renderer *fakeRenderer
	store    *jobs.MemoryStore
	root     string
}

func newFixture(t *testing.T, mutate func(*handlers.Deps)) *fixture {
	t.Helper()
	f := &fixture{renderer: &fakeRenderer{}, store: jobs.NewMemoryStore(), root: t.TempDir()}
	deps := handlers.Deps{
		Renderer:  f.renderer,
		Tracker:   jobs.NewTracker(f.store, fakeDispatcher{}, logger.Discard()),
		Files:     fakePurger{removed: []string{"/out/job-42_a.mp4", "/thumbs/job-42_b.jpg"}},
		Storage:   localfs.New(f.root, "/artifacts"),
		Version:   fakeVersion{},
		Store:     f.store,
		StoreName: "memory",
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.handler = NewRouter(Deps{
		Handlers:       deps,
		AllowedOrigins: []string{"http://localhost:3000"},
		Log:            logger.Discard(),
	})
	f.srv = httptest.NewServer(f.handler)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, f.srv.URL+path, rdr)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestGenerate(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name     string
		path     string
		body     map[string]any
		status   int
		category string
	}{
		{"circle with defaults", "/generate", map[string]any{"prompt": "draw a blue circle"}, 200, "circle"},
		{"legacy alias", "/generate-manim", map[string]any{"prompt": "plot a sine chart", "duration": 8, "resolution": "1080p", "frameRate": 60}, 200, "graph"},
		{"prompt too short", "/generate", map[string]any{"prompt": "circle"}, 400, ""},
		{"duration out of range", "/generate", map[string]any{"prompt": "draw a blue circle", "duration": 0}, 400, ""},
		{"bad resolution", "/generate", map[string]any{"prompt": "draw a blue circle", "resolution": "4k"}, 400, ""},
		{"bad colour", "/generate", map[string]any{"prompt": "draw a blue circle", "backgroundColor": "blue"}, 400, ""},
		{"frame rate too low", "/generate", map[string]any{"prompt": "draw a blue circle", "frameRate": 12}, 400, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if tt.status != 200 {
				env := decode[httpkit.ErrorEnvelope](t, resp)
				if env.Error.Code != "VALIDATION_ERROR" {
					t.Errorf("expected VALIDATION_ERROR, got %s", env.Error.Code)
				}
				return
			}
			out := decode[map[string]any](t, resp)
			if out["success"] != true || out["category"] != tt.category {
				t.Errorf("unexpected response %v", out)
			}
			if !strings.Contains(out["scriptText"].(string), "class GeneratedAnimation(Scene):") {
				t.Error("script lacks scene declaration")
			}
		})
	}
}

func TestGenerateInvalidJSON(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Post(f.srv.URL+"/generate", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRequestBodyLimits(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		path string
		body map[string]any
	}{
		{"oversized script", "/render", map[string]any{"scriptText": validScript + strings.Repeat("#", httpkit.MaxBodyBytes), "jobKey": "job-1"}},
		{"oversized prompt", "/generate", map[string]any{"prompt": strings.Repeat("circle ", httpkit.MaxBodyBytes/7+1)}},
		{"unknown field", "/render", map[string]any{"scriptText": validScript, "jobKey": "job-1", "priority": "high"}},
		{"unknown generate field", "/generate", map[string]any{"prompt": "draw a blue circle", "frame_rate": 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewReader(b))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)

			if rec.Code != 400 {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var env httpkit.ErrorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("unexpected envelope %+v", env)
			}
		})
	}
	if calls := f.renderer.calls(); len(calls) != 0 {
		t.Errorf("renderer should not run, got %v", calls)
	}
}

func TestRenderSync(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/render", map[string]any{"scriptText": validScript, "jobKey": "job-1", "options": map[string]any{"resolution": "720p"}})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decode[map[string]any](t, resp)
	if out["success"] != true || !strings.HasPrefix(out["outputPath"].(string), "/out/job-1_") {
		t.Errorf("unexpected response %v", out)
	}
	metrics := out["metrics"].(map[string]any)
	if metrics["resolution"] != "720p" {
		t.Errorf("unexpected metrics %v", metrics)
	}
	name := f.renderer.calls()[0]
	if len(name) != len("job-1_")+8+len(".mp4") {
		t.Errorf("unexpected output name %s", name)
	}
}

func TestRenderSyncSurvivesClientDisconnect(t *testing.T) {
	f := newFixture(t, nil)

	body, _ := json.Marshal(map[string]any{"scriptText": validScript, "jobKey": "job-7"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/render", bytes.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	f.renderer.mu.Lock()
	defer f.renderer.mu.Unlock()
	if len(f.renderer.ctxErrs) != 1 || f.renderer.ctxErrs[0] != nil {
		t.Errorf("renderer saw a canceled context: %v", f.renderer.ctxErrs)
	}
}

func TestRenderSyncFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.renderer.err = apperrors.Render("rendering failed: NameError", "Traceback\nNameError")

	resp := f.do(t, http.MethodPost, "/render-animation", map[string]any{"scriptText": validScript, "jobKey": "job-1"})
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	env := decode[httpkit.ErrorEnvelope](t, resp)
	if env.Error.Code != "RENDER_ERROR" || env.Error.Details["diagnostic"] != "Traceback\nNameError" {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestRenderValidation(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name string
		body map[string]any
	}{
		{"short script", map[string]any{"scriptText": "print(1)", "jobKey": "job-1"}},
		{"missing job key", map[string]any{"scriptText": validScript}},
		{"job key with path", map[string]any{"scriptText": validScript, "jobKey": "../etc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/render", tt.body)
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
	if len(f.renderer.calls()) != 0 {
		t.Error("renderer must not run for invalid requests")
	}
}

func TestRenderAsyncAndStatus(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/render-async", map[string]any{"scriptText": validScript, "jobKey": "job-7"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	accepted := decode[map[string]any](t, resp)
	taskID, _ := accepted["taskId"].(string)
	if taskID == "" || accepted["success"] != true {
		t.Fatalf("unexpected response %v", accepted)
	}

	status := f.do(t, http.MethodGet, "/render-status/"+taskID, nil)
	if status.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", status.StatusCode)
	}
	job := decode[map[string]any](t, status)
	if job["status"] != "processing" || job["taskId"] != taskID || job["jobKey"] != "job-7" {
		t.Errorf("unexpected job %v", job)
	}

	if err := f.store.Complete(context.Background(), taskID, jobs.Result{OutputPath: "/out/x.mp4"}); err != nil {
		t.Fatal(err)
	}
	job = decode[map[string]any](t, f.do(t, http.MethodGet, "/render-status/"+taskID, nil))
	if job["status"] != "completed" || job["outputPath"] != "/out/x.mp4" {
		t.Errorf("unexpected job %v", job)
	}
}

func TestRenderStatusUnknown(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.do(t, http.MethodGet, "/render-status/nope", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if env := decode[httpkit.ErrorEnvelope](t, resp); env.Error.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %s", env.Error.Code)
	}
}

func TestRenderAsyncDispatchFailure(t *testing.T) {
	f := newFixture(t, func(d *handlers.Deps) {
		d.Tracker = jobs.NewTracker(jobs.NewMemoryStore(), fakeDispatcher{err: errors.New("queue down")}, logger.Discard())
	})
	resp := f.do(t, http.MethodPost, "/render-async", map[string]any{"scriptText": validScript, "jobKey": "job-7"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestCleanup(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.do(t, http.MethodDelete, "/cleanup/job-42", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decode[map[string]any](t, resp)
	if out["deletedCount"] != float64(2) || len(out["deletedPaths"].([]any)) != 2 {
		t.Errorf("unexpected response %v", out)
	}

	f = newFixture(t, func(d *handlers.Deps) { d.Files = fakePurger{} })
	out = decode[map[string]any](t, f.do(t, http.MethodDelete, "/cleanup/job-43", nil))
	if out["deletedCount"] != float64(0) || out["deletedPaths"] == nil {
		t.Errorf("expected empty list, got %v", out)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	out := decode[map[string]any](t, f.do(t, http.MethodGet, "/health", nil))
	if out["status"] != "healthy" || out["checks"] != nil {
		t.Errorf("unexpected shallow health %v", out)
	}

	out = decode[map[string]any](t, f.do(t, http.MethodGet, "/health?deep=true", nil))
	if out["status"] != "healthy" || out["rendererVersion"] != "Manim Community v0.18.1" {
		t.Errorf("unexpected deep health %v", out)
	}

	f = newFixture(t, func(d *handlers.Deps) { d.Version = fakeVersion{err: errors.New("not installed")} })
	out = decode[map[string]any](t, f.do(t, http.MethodGet, "/health?deep=true", nil))
	if out["status"] != "degraded" {
		t.Errorf("expected degraded, got %v", out)
	}
}

func TestArtifacts(t *testing.T) {
	f := newFixture(t, nil)
	if err := os.MkdirAll(filepath.Join(f.root, "videos"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.root, "videos", "a.mp4"), []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := f.do(t, http.MethodGet, "/artifacts/videos/a.mp4", nil)
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "video/mp4" {
		t.Fatalf("unexpected %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "mp4" {
		t.Errorf("unexpected body %q", body)
	}

	if resp := f.do(t, http.MethodGet, "/artifacts/videos/missing.mp4", nil); resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCORSAndRequestID(t *testing.T) {
	f := newFixture(t, nil)
	req, _ := http.NewRequest(http.MethodOptions, f.srv.URL+"/render", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("unexpected preflight %d %v", resp.StatusCode, resp.Header)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}

	req, _ = http.NewRequest(http.MethodGet, f.srv.URL+"/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origins get no CORS headers")
	}
}
