package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func entry(txt []string, addrs ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{Text: txt}
	for _, a := range addrs {
		e.AddrIPv4 = append(e.AddrIPv4, net.ParseIP(a))
	}
	return e
}

func TestFromEntry(t *testing.T) {
	dev, ok := fromEntry(entry(
		[]string{"Model=DS1054Z", "Manufacturer=RIGOL TECHNOLOGIES"},
		"192.168.1.23"))
	if !ok {
		t.Fatal("expected a match")
	}
	if dev.Model != "DS1054Z" || dev.IP != "192.168.1.23" {
		t.Errorf("device %+v", dev)
	}
}

func TestFromEntryFilters(t *testing.T) {
	cases := []struct {
		name string
		e    *zeroconf.ServiceEntry
	}{
		{"wrong model family", entry(
			[]string{"Model=DS2072A", "Manufacturer=RIGOL TECHNOLOGIES"},
			"192.168.1.24")},
		{"wrong manufacturer", entry(
			[]string{"Model=DS1104Z", "Manufacturer=Keysight Technologies"},
			"192.168.1.25")},
		{"no records", entry(nil, "192.168.1.26")},
		{"no address", entry(
			[]string{"Model=DS1054Z", "Manufacturer=RIGOL TECHNOLOGIES"})},
		{"malformed record", entry(
			[]string{"Model", "Manufacturer=RIGOL TECHNOLOGIES"},
			"192.168.1.27")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := fromEntry(tc.e); ok {
				t.Error("entry should be filtered out")
			}
		})
	}
}

func TestModelPattern(t *testing.T) {
	for _, good := range []string{"DS1054Z", "DS1074Z", "DS1104Z", "DS1204Z-S"} {
		if !modelPattern.MatchString(good) {
			t.Errorf("%s should match", good)
		}
	}
	for _, bad := range []string{"DS2072A", "MSO1104Z", "DG1022Z"} {
		if modelPattern.MatchString(bad) {
			t.Errorf("%s should not match", bad)
		}
	}
}
