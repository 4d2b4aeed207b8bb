package ds1000z

import "testing"

func TestParsePreamble(t *testing.T) {
	pre, err := ParsePreamble("0,2,600000,1,1E-9,-3E-4,0,4E-2,-75,127")
	if err != nil {
		t.Fatal(err)
	}
	if pre.Format != FormatByte {
		t.Errorf("format %v", pre.Format)
	}
	if pre.Type != TypeRaw {
		t.Errorf("type %v", pre.Type)
	}
	if pre.Points != 600000 {
		t.Errorf("points %d", pre.Points)
	}
	if pre.Count != 1 {
		t.Errorf("count %d", pre.Count)
	}
	if pre.XIncrement != 1e-9 || pre.XOrigin != -3e-4 || pre.XReference != 0 {
		t.Errorf("x calibration %v %v %v", pre.XIncrement, pre.XOrigin, pre.XReference)
	}
	if pre.YIncrement != 4e-2 || pre.YOrigin != -75 || pre.YReference != 127 {
		t.Errorf("y calibration %v %v %v", pre.YIncrement, pre.YOrigin, pre.YReference)
	}
}

func TestParsePreambleRejects(t *testing.T) {
	cases := []struct {
		name string
		s    string
	}{
		{"nine fields", "0,2,600000,1,1E-9,-3E-4,0,4E-2,-75"},
		{"eleven fields", "0,2,600000,1,1E-9,-3E-4,0,4E-2,-75,127,0"},
		{"empty", ""},
		{"garbage field", "0,2,x,1,1E-9,-3E-4,0,4E-2,-75,127"},
		{"zero points", "0,2,0,1,1E-9,-3E-4,0,4E-2,-75,127"},
		{"too many points", "0,2,13000000,1,1E-9,-3E-4,0,4E-2,-75,127"},
		{"bad format code", "7,2,1200,1,1E-9,-3E-4,0,4E-2,-75,127"},
		{"zero count", "0,2,1200,0,1E-9,-3E-4,0,4E-2,-75,127"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParsePreamble(tc.s); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPreambleNeverCached(t *testing.T) {
	c := newScript()
	c.on(":WAVeform:PREamble?",
		"0,0,1200,1,1E-6,-6E-4,0,4E-2,-75,127",
		"0,2,600000,1,1E-9,-3E-4,0,4E-2,-75,127")
	s := scopeWith(c)
	first, err := s.Preamble()
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Preamble()
	if err != nil {
		t.Fatal(err)
	}
	if first.Points == second.Points {
		t.Error("second access should reflect new instrument state")
	}
	n := 0
	for _, w := range c.log {
		if w == ":WAVeform:PREamble?" {
			n++
		}
	}
	if n != 2 {
		t.Errorf("expected 2 wire queries, got %d", n)
	}
}
