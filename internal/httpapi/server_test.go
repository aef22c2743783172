package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chordrun/pkg/types"
)

type fakeSvc struct {
	status types.RunStatus
	ready  bool
}

func (f *fakeSvc) Status() types.RunStatus { return f.status }
func (f *fakeSvc) Ready() bool             { return f.ready }

func TestHealthz(t *testing.T) {
	h := NewMux(&fakeSvc{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security header")
	}
}

func TestReadyz(t *testing.T) {
	svc := &fakeSvc{ready: true}
	h := NewMux(svc)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("ready: %d", rr.Code)
	}
	svc.ready = false
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("not ready: %d", rr.Code)
	}
}

func TestStatus_JSON(t *testing.T) {
	svc := &fakeSvc{status: types.RunStatus{RunID: "r1", Engine: "reference", State: "running", NDead: 42, LogZ: -3.5}}
	h := NewMux(svc)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("status: %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}
	var got types.RunStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != "r1" || got.NDead != 42 || got.LogZ != -3.5 {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestNotFoundAndMethodNotAllowed_JSONErrors(t *testing.T) {
	h := NewMux(&fakeSvc{})
	cases := []struct {
		method, path string
		code         int
	}{
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodPost, "/status", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != tc.code {
			t.Fatalf("%s %s: %d", tc.method, tc.path, rr.Code)
		}
		var e types.ErrorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil || e.Code != tc.code || e.Error == "" {
			t.Fatalf("error payload: %q %v", rr.Body.String(), err)
		}
	}
}

func TestCORS_Preflight(t *testing.T) {
	SetCORSOptions(true, []string{"https://example.test"}, nil, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)
	h := NewMux(&fakeSvc{})
	req := httptest.NewRequest(http.MethodOptions, "/status", nil)
	req.Header.Set("Origin", "https://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://example.test" {
		t.Fatalf("allow-origin=%q (code %d)", got, rr.Code)
	}
}

func TestRequestLogger_WritesRequestID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	defer func() { zlog = nil }()
	h := NewMux(&fakeSvc{})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	line := buf.String()
	if !strings.Contains(line, `"path":"/healthz"`) || !strings.Contains(line, `"request_id"`) {
		t.Fatalf("log line: %s", line)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", NewMux(&fakeSvc{ready: true}), func(a net.Addr) { addrCh <- a })
	}()
	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("Serve: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not start")
	}
	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", addr))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("server did not shut down")
	}
}
