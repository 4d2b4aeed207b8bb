package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/tarm/serial"

	"github.com/oscilab/ds1000z/comm"
	"github.com/oscilab/ds1000z/ds1000z"
	"github.com/oscilab/ds1000z/generichttp"
	"github.com/oscilab/ds1000z/generichttp/tmc"
	"github.com/oscilab/ds1000z/server/middleware/locker"
	"github.com/oscilab/ds1000z/usbtmc"
)

// ScopeSetup holds the connection parameters for one scope
type ScopeSetup struct {
	// Endpoint is the URL stem the scope's routes are served under,
	// ex. Endpoint="bench/scope1" produces routes of /bench/scope1/waveform, etc.
	Endpoint string `yaml:"Endpoint"`

	// Type is the transport, one of tcp, usb, serial
	Type string `yaml:"Type"`

	// Addr is the network address (tcp) or device path (serial)
	Addr string `yaml:"Addr"`

	// Baud is the serial line rate; ignored for other transports
	Baud int `yaml:"Baud"`

	// VID and PID select a usb device; zero means the DS1000Z defaults
	VID uint16 `yaml:"VID"`
	PID uint16 `yaml:"PID"`
}

// Config holds the initialization parameters for the served scopes
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Scopes is the list of scopes to set up
	Scopes []ScopeSetup `yaml:"Scopes"`
}

// makeScope builds the driver for one config entry
func makeScope(s ScopeSetup) (*ds1000z.Scope, error) {
	switch strings.ToLower(s.Type) {
	case "tcp", "lan", "":
		if s.Addr == "" {
			return nil, fmt.Errorf("scope %q: tcp transport requires Addr", s.Endpoint)
		}
		return ds1000z.NewScope(s.Addr), nil
	case "usb", "usbtmc":
		vid, pid := s.VID, s.PID
		if vid == 0 {
			vid = usbtmc.VendorRigol
		}
		if pid == 0 {
			pid = usbtmc.ProductDS1000Z
		}
		return ds1000z.NewScopeFromMaker(usbtmc.ConnMaker(vid, pid)), nil
	case "serial", "rs232":
		if s.Addr == "" {
			return nil, fmt.Errorf("scope %q: serial transport requires Addr", s.Endpoint)
		}
		baud := s.Baud
		if baud == 0 {
			baud = 9600
		}
		conf := &serial.Config{Name: s.Addr, Baud: baud}
		return ds1000z.NewScopeFromMaker(comm.SerialConnMaker(conf)), nil
	}
	return nil, fmt.Errorf("scope %q: unknown transport %q", s.Endpoint, s.Type)
}

// BuildMux constructs a chi mux with one submux per configured scope.
// The mux serves a special route, /endpoints, which returns a map of
// stems to their routes as JSON.
func BuildMux(c Config) (chi.Router, error) {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}

	for _, node := range c.Scopes {
		scope, err := makeScope(node)
		if err != nil {
			return nil, err
		}
		httper := tmc.NewHTTPScope(scope)
		stem := generichttp.SubMuxSanitize(node.Endpoint)
		if _, clash := supergraph[stem]; clash {
			return nil, fmt.Errorf("duplicate endpoint %q", node.Endpoint)
		}
		supergraph[stem] = httper.RT().Endpoints()

		// a lock interface so a long acquisition cannot be disturbed
		lock := locker.New()
		locker.Inject(httper, lock)

		r := chi.NewRouter()
		r.Use(lock.Check)
		httper.RT().Bind(r)
		root.Mount(stem, r)
	}
	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root, nil
}
