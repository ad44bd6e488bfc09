package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"scored/internal/manager"
	"scored/pkg/types"
)

type mockService struct {
	status  types.StatusResponse
	ready   bool
	result  types.ScoreResult
	runErr  error
	lastRaw []byte
	runs    int
}

func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }
func (m *mockService) Run(ctx context.Context, raw []byte, opts ...manager.RunOption) (types.ScoreResult, error) {
	m.runs++
	m.lastRaw = append([]byte(nil), raw...)
	if m.runErr != nil {
		return types.ScoreResult{}, m.runErr
	}
	return m.result, nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postScore(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestScoreHandler_OK(t *testing.T) {
	svc := &mockService{ready: true, result: types.ScoreResult{Result: []string{"a b", "c d"}}}
	h := NewMux(svc)
	body := `{"inputs":{"input_str":["a","c"],"params":{}}}`
	for _, path := range []string{"/score", "/score/"} {
		w := postScore(t, h, path, body)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, w.Code, w.Body.String())
		}
		if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
			t.Fatalf("content-type=%s", ct)
		}
		var res types.ScoreResult
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatalf("json: %v", err)
		}
		if len(res.Result) != 2 || res.Result[1] != "c d" {
			t.Fatalf("unexpected result: %+v", res)
		}
	}
	if string(svc.lastRaw) != body {
		t.Fatalf("raw body not forwarded: %s", svc.lastRaw)
	}
}

func TestScoreHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{manager.ErrUninitialized, http.StatusServiceUnavailable},
		{mockHTTPError{msg: "bad", code: http.StatusBadRequest}, http.StatusBadRequest},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		svc := &mockService{runErr: c.err}
		w := postScore(t, NewMux(svc), "/score", `{}`)
		if w.Code != c.want {
			t.Fatalf("%v: status=%d want %d", c.err, w.Code, c.want)
		}
		var env types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("json: %v", err)
		}
		if env.Error != c.err.Error() || env.Code != c.want {
			t.Fatalf("unexpected envelope: %+v", env)
		}
	}
}

func TestScoreHandler_ContentType(t *testing.T) {
	svc := &mockService{}
	req := httptest.NewRequest(http.MethodPost, "/score", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
	if svc.runs != 0 {
		t.Fatalf("service must not run")
	}
	// no content type is accepted
	req = httptest.NewRequest(http.MethodPost, "/score", strings.NewReader(`{}`))
	w = httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestScoreHandler_BodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(16)
	defer SetMaxBodyBytes(0)
	svc := &mockService{}
	w := postScore(t, NewMux(svc), "/score", `{"inputs":{"input_str":["long enough"],"params":{}}}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d", w.Code)
	}
	if svc.runs != 0 {
		t.Fatalf("service must not run")
	}
}

func TestScoreHandler_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/score", nil)
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "ready", Backend: "onnx", RunsTotal: 3}}
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var got types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got.State != "ready" || got.Backend != "onnx" || got.RunsTotal != 3 {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestHealthAndReady(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable || w.Body.String() != "loading" {
		t.Fatalf("readyz before init: %d %q", w.Code, w.Body.String())
	}
	svc.ready = true
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ready" {
		t.Fatalf("readyz after init: %d %q", w.Code, w.Body.String())
	}
}

func TestSecurityHeaderAndRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestCORS_OptIn(t *testing.T) {
	SetCORSOptions(true, []string{"https://example.com"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/score", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestSwagger_OptIn(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off by default, status=%d", w.Code)
	}
	SetSwagger(true)
	defer SetSwagger(false)
	w = httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"/score"`)) {
		t.Fatalf("swagger doc: %d %s", w.Code, w.Body.String())
	}
}

func TestScoreHandler_BaseContextCanceled(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)
	cancel()
	svc := &ctxService{}
	w := postScore(t, NewMux(svc), "/score", `{}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if !errors.Is(svc.seen, context.Canceled) {
		t.Fatalf("expected canceled ctx, got %v", svc.seen)
	}
}

// ctxService reports the context error it observed.
type ctxService struct {
	mockService
	seen error
}

func (c *ctxService) Run(ctx context.Context, raw []byte, opts ...manager.RunOption) (types.ScoreResult, error) {
	c.seen = ctx.Err()
	if c.seen != nil {
		return types.ScoreResult{}, c.seen
	}
	return types.ScoreResult{Result: []string{}}, nil
}
