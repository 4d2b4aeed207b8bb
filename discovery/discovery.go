// Package discovery finds Rigol DS1000Z series oscilloscopes on the
// local network.  The instruments advertise an mDNS service of type
// _scpi-raw._tcp with Model and Manufacturer TXT records.
package discovery

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	service = "_scpi-raw._tcp"
	domain  = "local."
)

// tolerate a settling period so every scope on the segment answers
const defaultTimeout = 2500 * time.Millisecond

var modelPattern = regexp.MustCompile(`^DS1\d\d\dZ`)

// Device is a discovered oscilloscope
type Device struct {
	// Model as advertised, e.g. DS1054Z
	Model string `json:"model"`

	// IP is the instrument's IPv4 address in dotted decimal
	IP string `json:"ip"`
}

// Devices browses for DS1000Z series scopes until the timeout elapses
// or ctx is canceled.  Entries of other SCPI instruments on the
// segment are filtered out by their TXT records.  A zero timeout uses
// a default long enough for a quiet network.
func Devices(ctx context.Context, timeout time.Duration) ([]Device, error) {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		return nil, err
	}
	var found []Device
	for entry := range entries {
		dev, ok := fromEntry(entry)
		if ok {
			found = append(found, dev)
		}
	}
	return found, nil
}

// fromEntry filters a service entry down to a DS1000Z device
func fromEntry(entry *zeroconf.ServiceEntry) (Device, bool) {
	var dev Device
	var manufacturer string
	for _, txt := range entry.Text {
		k, v, ok := cutTXT(txt)
		if !ok {
			continue
		}
		switch strings.ToLower(k) {
		case "model":
			dev.Model = v
		case "manufacturer":
			manufacturer = v
		}
	}
	if !modelPattern.MatchString(dev.Model) {
		return dev, false
	}
	if !strings.HasPrefix(manufacturer, "RIGOL TECHNOLOGIES") {
		return dev, false
	}
	if len(entry.AddrIPv4) == 0 {
		return dev, false
	}
	dev.IP = entry.AddrIPv4[0].String()
	return dev, true
}

func cutTXT(txt string) (key, value string, ok bool) {
	i := strings.IndexByte(txt, '=')
	if i < 0 {
		return "", "", false
	}
	return txt[:i], txt[i+1:], true
}
