package generichttp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
)

func TestGetFloat(t *testing.T) {
	handler := GetFloat(func() (float64, error) { return 1.25, nil })
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"f64":1.25}` {
		t.Errorf("body %q", got)
	}
}

func TestGetFloatError(t *testing.T) {
	handler := GetFloat(func() (float64, error) { return 0, errors.New("no carrier") })
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status %d", w.Code)
	}
}

func TestSetFloat(t *testing.T) {
	var got float64
	handler := SetFloat(func(v float64) error { got = v; return nil })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"f64": 0.02}`))
	handler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if got != 0.02 {
		t.Errorf("value %v", got)
	}
}

func TestSetFloatBadBody(t *testing.T) {
	handler := SetFloat(func(float64) error { return nil })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	handler(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d", w.Code)
	}
}

func TestTrigger(t *testing.T) {
	fired := false
	handler := Trigger(func() error { fired = true; return nil })
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusOK || !fired {
		t.Errorf("status %d fired %v", w.Code, fired)
	}
}

func TestRouteTableBind(t *testing.T) {
	rt := RouteTable{
		{Method: http.MethodGet, Path: "/value"}: GetInt(func() (int, error) { return 42, nil }),
	}
	r := chi.NewRouter()
	rt.Bind(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/value", nil))
	if got := strings.TrimSpace(w.Body.String()); got != `{"int":42}` {
		t.Errorf("body %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/route-list", nil))
	if !strings.Contains(w.Body.String(), "GET /value") {
		t.Errorf("route list %q", w.Body.String())
	}
}

func TestSubMuxSanitize(t *testing.T) {
	cases := map[string]string{
		"scope":           "/scope",
		"/scope":          "/scope",
		"/scope/":         "/scope",
		"/bench/scope1/*": "/bench/scope1",
	}
	for in, want := range cases {
		if got := SubMuxSanitize(in); got != want {
			t.Errorf("SubMuxSanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
