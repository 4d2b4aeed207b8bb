// Package ds1000z provides access to Rigol DS1000Z series oscilloscopes in Go
package ds1000z

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/oscilab/ds1000z/comm"
	"github.com/oscilab/ds1000z/scpi"
)

// port 5555 is the raw SCPI socket on the scope's LAN interface
const defaultPort = "5555"

// the scope's front panel processor drops commands that arrive
// back to back; 20ms between commands keeps it happy
const commandSpacing = 20 * time.Millisecond

// Channel identifies an input trace on the scope
type Channel string

// The four analog inputs and the math trace
const (
	Chan1 Channel = "CHAN1"
	Chan2 Channel = "CHAN2"
	Chan3 Channel = "CHAN3"
	Chan4 Channel = "CHAN4"
	Math  Channel = "MATH"
)

// AnalogChannels lists the four analog inputs in panel order
var AnalogChannels = []Channel{Chan1, Chan2, Chan3, Chan4}

// ChannelByIndex maps a 1-based channel number to its identifier
func ChannelByIndex(i int) (Channel, error) {
	if i < 1 || i > len(AnalogChannels) {
		return "", fmt.Errorf("channel index %d out of range 1..%d", i, len(AnalogChannels))
	}
	return AnalogChannels[i-1], nil
}

// ParseChannel normalizes a channel given by name ("CHAN1", "channel2",
// "MATH") or 1-based number ("3") to its identifier.  All exported
// methods taking a Channel expect one produced here or one of the
// package constants; no other normalization happens downstream.
func ParseChannel(s string) (Channel, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return ChannelByIndex(i)
	}
	up := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case up == "MATH":
		return Math, nil
	case strings.HasPrefix(up, "CHAN"):
		digits := strings.TrimLeft(up[4:], "NEL")
		if i, err := strconv.Atoi(digits); err == nil {
			return ChannelByIndex(i)
		}
	}
	return "", fmt.Errorf("unrecognized channel %q", s)
}

// root returns the SCPI subsystem root for the channel's settings
func (c Channel) root() string {
	if c == Math {
		return ":MATH"
	}
	return ":CHANnel" + string(c[len(c)-1])
}

// Mode selects which buffer a waveform read returns
type Mode string

// Waveform read modes.  ModeNormal reads the 1200 sample display trace.
// ModeRaw stops acquisition and reads the internal memory.  ModeMaximum
// reads the display trace while running, the internal memory otherwise.
const (
	ModeNormal  Mode = "NORMal"
	ModeMaximum Mode = "MAXimum"
	ModeRaw     Mode = "RAW"
)

// ParseMode normalizes a mode string, accepting the SCPI short or long form
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORM", "NORMAL":
		return ModeNormal, nil
	case "MAX", "MAXIMUM":
		return ModeMaximum, nil
	case "RAW":
		return ModeRaw, nil
	}
	return "", fmt.Errorf("unrecognized waveform mode %q", s)
}

// Scope is an interface to a DS1000Z series oscilloscope
type Scope struct {
	scpi.SCPI

	// hardware-legal setting ladders, built on first use.  The bounds
	// are fixed properties of the instrument family, not queried.
	probeSteps    []float64
	timebaseSteps []float64
	scaleSteps    []float64
}

// NewScope creates a new scope instance from a host or host:port address
func NewScope(addr string) *Scope {
	if !strings.Contains(addr, ":") {
		addr = addr + ":" + defaultPort
	}
	maker := comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	return NewScopeFromMaker(maker)
}

// NewScopeFromMaker creates a scope over an arbitrary transport, e.g. a
// serial port or the USB device port.  The pool is sized at one: the
// instrument is a single-session resource.
func NewScopeFromMaker(maker comm.CreationFunc) *Scope {
	pool := comm.NewPool(1, time.Hour, maker)
	return &Scope{SCPI: scpi.SCPI{
		Pool:    pool,
		Limiter: rate.NewLimiter(rate.Every(commandSpacing), 1)}}
}

// Identity is the parsed response to *IDN?
type Identity struct {
	Vendor   string `json:"vendor"`
	Model    string `json:"model"`
	Serial   string `json:"serial"`
	Firmware string `json:"firmware"`
}

// Identity queries and parses *IDN?
func (s *Scope) Identity() (Identity, error) {
	var id Identity
	resp, err := s.ReadString("*IDN?")
	if err != nil {
		return id, err
	}
	pieces := strings.Split(resp, ",")
	if len(pieces) != 4 {
		return id, fmt.Errorf("*IDN? returned %d fields, expected 4: %q", len(pieces), resp)
	}
	id.Vendor = strings.TrimSpace(pieces[0])
	id.Model = strings.TrimSpace(pieces[1])
	id.Serial = strings.TrimSpace(pieces[2])
	id.Firmware = strings.TrimSpace(pieces[3])
	return id, nil
}

// Run starts acquisition
func (s *Scope) Run() error {
	return s.Write(":RUN")
}

// Stop halts acquisition
func (s *Scope) Stop() error {
	return s.Write(":STOP")
}

// Single arms a single-shot trigger
func (s *Scope) Single() error {
	return s.Write(":SINGle")
}

// ForceTrigger generates a trigger event forcefully
func (s *Scope) ForceTrigger() error {
	return s.Write(":TFORce")
}

// DisplayedChannels returns the channels currently shown on screen
func (s *Scope) DisplayedChannels() ([]Channel, error) {
	var shown []Channel
	all := append(append([]Channel{}, AnalogChannels...), Math)
	for _, ch := range all {
		on, err := s.ReadBool(ch.root() + ":DISPlay?")
		if err != nil {
			return nil, err
		}
		if on {
			shown = append(shown, ch)
		}
	}
	return shown, nil
}

// DisplayData captures the screen as a bitmap image
func (s *Scope) DisplayData() ([]byte, error) {
	return s.ReadBlock(":DISPlay:DATA?")
}

// measurementSentinel is the magnitude the instrument reports when a
// measurement has no live data
const measurementSentinel = 9.9e37

// Measurement queries a single measurement item on a channel.  kind
// selects the statistic (CURRent, MAXimum, MINimum, AVERages,
// DEViation); empty means the current value.  A nil result with a nil
// error means the instrument has no live data for the item.
func (s *Scope) Measurement(ch Channel, item, kind string) (*float64, error) {
	var (
		v   float64
		err error
	)
	item = strings.ToUpper(item)
	if kind == "" || strings.EqualFold(kind, "CURRent") || strings.EqualFold(kind, "CURR") {
		v, err = s.ReadFloat(fmt.Sprintf(":MEASure:ITEM? %s,%s", item, string(ch)))
	} else {
		v, err = s.ReadFloat(fmt.Sprintf(":MEASure:STATistic:ITEM? %s,%s,%s", kind, item, string(ch)))
	}
	if err != nil {
		return nil, err
	}
	if math.Abs(v) >= measurementSentinel {
		return nil, nil
	}
	return &v, nil
}

// SampleRate returns the acquisition sample rate in samples per second
func (s *Scope) SampleRate() (float64, error) {
	return s.ReadFloat(":ACQuire:SRATe?")
}
