package ds1000z

import (
	"fmt"
	"strconv"
	"strings"
)

// Format is the wire encoding of waveform data
type Format int

// Waveform data encodings, in the instrument's numbering
const (
	FormatByte Format = iota
	FormatWord
	FormatASCII
)

func (f Format) String() string {
	switch f {
	case FormatByte:
		return "BYTE"
	case FormatWord:
		return "WORD"
	case FormatASCII:
		return "ASCII"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// AcqType is the acquisition type a preamble describes
type AcqType int

// Acquisition types, in the instrument's numbering
const (
	TypeNormal AcqType = iota
	TypeMaximum
	TypeRaw
)

func (t AcqType) String() string {
	switch t {
	case TypeNormal:
		return "NORMal"
	case TypeMaximum:
		return "MAXimum"
	case TypeRaw:
		return "RAW"
	}
	return fmt.Sprintf("AcqType(%d)", int(t))
}

// maxPoints is the deepest memory option on the family (single channel)
const maxPoints = 12000000

// Preamble describes how to interpret a waveform byte buffer as physical
// units.  It reflects live instrument state and is fetched fresh on every
// access, never cached.
type Preamble struct {
	// Format is the transfer encoding of the data
	Format Format

	// Type is the acquisition type
	Type AcqType

	// Points is the number of samples the transfer will contain
	Points int

	// Count is the number of averages in average mode, 1 otherwise
	Count int

	// XIncrement is the time between samples in seconds
	XIncrement float64

	// XOrigin is the time of the first sample relative to the trigger
	XOrigin float64

	// XReference is the reference sample index, conventionally 0
	XReference int

	// YIncrement is the vertical step size in volts per DN
	YIncrement float64

	// YOrigin is the vertical offset in DN
	YOrigin int

	// YReference is the vertical reference level in DN
	YReference int
}

// ParsePreamble parses the ten comma separated fields of
// :WAVeform:PREamble?
func ParsePreamble(s string) (Preamble, error) {
	var p Preamble
	pieces := strings.Split(strings.TrimSpace(s), ",")
	if len(pieces) != 10 {
		return p, fmt.Errorf("preamble had %d fields, expected 10: %q", len(pieces), s)
	}
	ints := make([]int, 10)
	floats := make([]float64, 10)
	for i, piece := range pieces {
		f, err := strconv.ParseFloat(strings.TrimSpace(piece), 64)
		if err != nil {
			return p, fmt.Errorf("preamble field %d %q: %w", i, piece, err)
		}
		floats[i] = f
		ints[i] = int(f)
	}
	p.Format = Format(ints[0])
	p.Type = AcqType(ints[1])
	p.Points = ints[2]
	p.Count = ints[3]
	p.XIncrement = floats[4]
	p.XOrigin = floats[5]
	p.XReference = ints[6]
	p.YIncrement = floats[7]
	p.YOrigin = ints[8]
	p.YReference = ints[9]
	if p.Format < FormatByte || p.Format > FormatASCII {
		return p, fmt.Errorf("preamble format code %d out of range", ints[0])
	}
	if p.Type < TypeNormal || p.Type > TypeRaw {
		return p, fmt.Errorf("preamble type code %d out of range", ints[1])
	}
	if p.Points < 1 || p.Points > maxPoints {
		return p, fmt.Errorf("preamble point count %d out of range 1..%d", p.Points, maxPoints)
	}
	if p.Count < 1 {
		return p, fmt.Errorf("preamble average count %d must be positive", p.Count)
	}
	return p, nil
}

// Preamble fetches and parses the waveform preamble for the current
// source, format and mode
func (s *Scope) Preamble() (Preamble, error) {
	resp, err := s.ReadString(":WAVeform:PREamble?")
	if err != nil {
		return Preamble{}, err
	}
	return ParsePreamble(resp)
}

// TimeValues computes the time axis for a record of n samples described
// by the preamble
func TimeValues(pre Preamble, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = (float64(i)-float64(pre.XReference))*pre.XIncrement + pre.XOrigin
	}
	return out
}
