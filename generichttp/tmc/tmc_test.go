package tmc

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/oscilab/ds1000z/ds1000z"
)

// cannedConn answers SCPI queries from a fixed reply map
type cannedConn struct {
	replies map[string]string
	rbuf    bytes.Buffer
	log     []string
}

func (c *cannedConn) Write(p []byte) (int, error) {
	cmd := strings.TrimSuffix(string(p), "\n")
	c.log = append(c.log, cmd)
	if resp, ok := c.replies[cmd]; ok {
		c.rbuf.WriteString(resp + "\n")
	}
	return len(p), nil
}

func (c *cannedConn) Read(p []byte) (int, error) {
	if c.rbuf.Len() == 0 {
		return 0, io.EOF
	}
	return c.rbuf.Read(p)
}

func (c *cannedConn) Close() error { return nil }

func router(replies map[string]string) (chi.Router, *cannedConn) {
	c := &cannedConn{replies: replies}
	scope := ds1000z.NewScopeFromMaker(func() (io.ReadWriteCloser, error) { return c, nil })
	scope.Limiter = nil
	r := chi.NewRouter()
	NewHTTPScope(scope).RT().Bind(r)
	return r, c
}

func TestIdentityRoute(t *testing.T) {
	r, _ := router(map[string]string{
		"*IDN?": "RIGOL TECHNOLOGIES,DS1054Z,DS1ZA0001,00.04.04.SP3",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"model":"DS1054Z"`) {
		t.Errorf("body %q", w.Body.String())
	}
}

func TestRunRoute(t *testing.T) {
	r, c := router(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/run", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if len(c.log) == 0 || c.log[len(c.log)-1] != ":RUN" {
		t.Errorf("log %v", c.log)
	}
}

func TestChannelScaleRoutes(t *testing.T) {
	r, c := router(map[string]string{
		":CHANnel2:SCALe?": "2.000000e-02",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/channel/CHAN2/scale", nil))
	if got := strings.TrimSpace(w.Body.String()); got != `{"f64":0.02}` {
		t.Errorf("body %q", got)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/channel/2/scale", strings.NewReader(`{"f64": 0.03}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	found := false
	for _, cmd := range c.log {
		if cmd == ":CHANnel2:SCALe 0.02" {
			found = true
		}
	}
	if !found {
		t.Errorf("log %v", c.log)
	}
}

func TestChannelRouteRejectsBadChannel(t *testing.T) {
	r, _ := router(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/channel/CHAN9/scale", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d", w.Code)
	}
}

func TestMeasurementRouteNull(t *testing.T) {
	r, _ := router(map[string]string{
		":MEASure:ITEM? FREQ,CHAN1": "9.9e37",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/measurement?ch=CHAN1&item=FREQ", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "null" {
		t.Errorf("body %q", got)
	}
}

func TestMeasurementRouteValue(t *testing.T) {
	r, _ := router(map[string]string{
		":MEASure:ITEM? VPP,CHAN1": "2.5000000e-01",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/measurement?ch=1&item=vpp", nil))
	if got := strings.TrimSpace(w.Body.String()); got != `{"f64":0.25}` {
		t.Errorf("body %q", got)
	}
}

func TestMeasurementRouteRequiresItem(t *testing.T) {
	r, _ := router(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/measurement?ch=1", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d", w.Code)
	}
}

func TestWaveformModeRoutes(t *testing.T) {
	r, c := router(map[string]string{
		":WAVeform:MODE?": "NORM",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/waveform-mode", nil))
	if got := strings.TrimSpace(w.Body.String()); got != `{"str":"NORMal"}` {
		t.Errorf("body %q", got)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/waveform-mode", strings.NewReader(`{"str": "RAW"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	found := false
	for _, cmd := range c.log {
		if cmd == ":WAVeform:MODE RAW" {
			found = true
		}
	}
	if !found {
		t.Errorf("log %v", c.log)
	}
}
