// Package tmc provides an HTTP interface to test and measurement devices
package tmc

import (
	"encoding/json"
	"go/types"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	"github.com/oscilab/ds1000z/ds1000z"
	"github.com/oscilab/ds1000z/generichttp"
	"github.com/oscilab/ds1000z/oscilloscope"
	"github.com/oscilab/ds1000z/server"
)

// HTTPScope wraps an oscilloscope in an HTTP route table
type HTTPScope struct {
	// Scope is the underlying instrument
	Scope *ds1000z.Scope

	// RouteTable maps method/path pairs to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPScope binds the instrument's methods to a fresh route table
func NewHTTPScope(s *ds1000z.Scope) *HTTPScope {
	h := &HTTPScope{Scope: s}
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/id"}: h.Identity,

		{Method: http.MethodPost, Path: "/run"}:           generichttp.Trigger(s.Run),
		{Method: http.MethodPost, Path: "/stop"}:          generichttp.Trigger(s.Stop),
		{Method: http.MethodPost, Path: "/single"}:        generichttp.Trigger(s.Single),
		{Method: http.MethodPost, Path: "/force-trigger"}: generichttp.Trigger(s.ForceTrigger),

		{Method: http.MethodGet, Path: "/trigger-status"}: generichttp.GetString(s.TriggerStatus),
		{Method: http.MethodGet, Path: "/running"}:        generichttp.GetBool(s.IsRunning),

		{Method: http.MethodGet, Path: "/waveform-mode"}:  h.GetWaveformMode,
		{Method: http.MethodPost, Path: "/waveform-mode"}: h.SetWaveformMode,

		{Method: http.MethodGet, Path: "/memory-depth"}:   generichttp.GetInt(s.MemoryDepth),
		{Method: http.MethodGet, Path: "/waveform-depth"}: generichttp.GetInt(s.CurrentWaveformDepth),
		{Method: http.MethodGet, Path: "/sample-rate"}:    generichttp.GetFloat(s.SampleRate),

		{Method: http.MethodGet, Path: "/displayed-channels"}: h.DisplayedChannels,
		{Method: http.MethodGet, Path: "/screenshot"}:         h.Screenshot,

		{Method: http.MethodGet, Path: "/waveform"}:    h.Waveform,
		{Method: http.MethodGet, Path: "/measurement"}: h.Measurement,

		{Method: http.MethodGet, Path: "/timebase/scale"}:   generichttp.GetFloat(s.TimebaseScale),
		{Method: http.MethodPost, Path: "/timebase/scale"}:  generichttp.SetFloat(s.SetTimebaseScale),
		{Method: http.MethodGet, Path: "/timebase/offset"}:  generichttp.GetFloat(s.TimebaseOffset),
		{Method: http.MethodPost, Path: "/timebase/offset"}: generichttp.SetFloat(s.SetTimebaseOffset),

		{Method: http.MethodGet, Path: "/channel/{ch}/probe-ratio"}:  h.channelGet(s.ProbeRatio),
		{Method: http.MethodPost, Path: "/channel/{ch}/probe-ratio"}: h.channelSet(s.SetProbeRatio),
		{Method: http.MethodGet, Path: "/channel/{ch}/scale"}:        h.channelGet(s.ChannelScale),
		{Method: http.MethodPost, Path: "/channel/{ch}/scale"}:       h.channelSet(s.SetChannelScale),
		{Method: http.MethodGet, Path: "/channel/{ch}/offset"}:       h.channelGet(s.ChannelOffset),
		{Method: http.MethodPost, Path: "/channel/{ch}/offset"}:      h.channelSet(s.SetChannelOffset),
	}
	h.RouteTable = rt
	return h
}

// RT satisfies generichttp.HTTPer
func (h *HTTPScope) RT() generichttp.RouteTable {
	return h.RouteTable
}

// Identity responds with the parsed *IDN? fields as JSON
func (h *HTTPScope) Identity(w http.ResponseWriter, r *http.Request) {
	id, err := h.Scope.Identity()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(id)
}

// GetWaveformMode responds with the read mode as json {'str': mode}
func (h *HTTPScope) GetWaveformMode(w http.ResponseWriter, r *http.Request) {
	mode, err := h.Scope.WaveformMode()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := server.HumanPayload{T: types.String, String: string(mode)}
	hp.EncodeAndRespond(w, r)
}

// SetWaveformMode parses json {'str': mode} and applies it
func (h *HTTPScope) SetWaveformMode(w http.ResponseWriter, r *http.Request) {
	s := server.StrT{}
	err := json.NewDecoder(r.Body).Decode(&s)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mode, err := ds1000z.ParseMode(s.Str)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Scope.SetWaveformMode(mode); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DisplayedChannels responds with the on-screen channels as a JSON array
func (h *HTTPScope) DisplayedChannels(w http.ResponseWriter, r *http.Request) {
	chans, err := h.Scope.DisplayedChannels()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chans)
}

// Screenshot responds with the instrument display as a BMP image
func (h *HTTPScope) Screenshot(w http.ResponseWriter, r *http.Request) {
	img, err := h.Scope.DisplayData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/bmp")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

// Waveform acquires the channels named in the ch query parameter
// (comma separated, default all displayed) in the mode named by the
// mode parameter.  format=csv selects CSV over the default JSON.
func (h *HTTPScope) Waveform(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var channels []string
	if raw := q.Get("ch"); raw != "" {
		channels = strings.Split(raw, ",")
	} else {
		shown, err := h.Scope.DisplayedChannels()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for _, ch := range shown {
			channels = append(channels, string(ch))
		}
	}
	mode := q.Get("mode")
	if mode == "" {
		mode = string(ds1000z.ModeNormal)
	}
	wav, err := h.Scope.AcquireWaveform(channels, mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if strings.EqualFold(q.Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv")
		if err := wav.EncodeCSV(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(waveformJSON(wav))
}

// waveformWire is the JSON shape of a waveform.  Padded samples are
// null; JSON has no NaN.
type waveformWire struct {
	DT       float64                  `json:"dt"`
	T0       float64                  `json:"t0"`
	Channels map[string][]interface{} `json:"channels"`
}

func waveformJSON(wav oscilloscope.Waveform) waveformWire {
	out := waveformWire{
		DT:       wav.DT,
		T0:       wav.T0,
		Channels: make(map[string][]interface{}, len(wav.Channels)),
	}
	for label, ch := range wav.Channels {
		volts := ch.Physical()
		wire := make([]interface{}, len(volts))
		for i, v := range volts {
			if math.IsNaN(v) {
				wire[i] = nil
			} else {
				wire[i] = v
			}
		}
		out.Channels[label] = wire
	}
	return out
}

// Measurement runs a single measurement from the ch, item and kind
// query parameters.  The result is json {'f64': value}, or null when
// the instrument has no live data for the item.
func (h *HTTPScope) Measurement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ch, err := ds1000z.ParseChannel(q.Get("ch"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	item := q.Get("item")
	if item == "" {
		http.Error(w, "item query parameter is required", http.StatusBadRequest)
		return
	}
	v, err := h.Scope.Measurement(ch, item, q.Get("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if v == nil {
		w.Write([]byte("null\n"))
		return
	}
	json.NewEncoder(w).Encode(server.FloatT{F64: *v})
}

// channelGet wraps a per-channel float getter, pulling the channel
// from the URL
func (h *HTTPScope) channelGet(fcn func(ds1000z.Channel) (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := ds1000z.ParseChannel(chi.URLParam(r, "ch"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		generichttp.GetFloat(func() (float64, error) { return fcn(ch) })(w, r)
	}
}

// channelSet wraps a per-channel float setter, pulling the channel
// from the URL
func (h *HTTPScope) channelSet(fcn func(ds1000z.Channel, float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := ds1000z.ParseChannel(chi.URLParam(r, "ch"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		generichttp.SetFloat(func(v float64) error { return fcn(ch, v) })(w, r)
	}
}
