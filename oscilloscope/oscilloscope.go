// Package oscilloscope provides type definitions for oscilloscope waveforms
package oscilloscope

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"
)

// Side names the end of a trace that padding was applied to
type Side string

const (
	// Leading marks padding before the first real sample
	Leading Side = "leading"

	// Trailing marks padding after the last real sample
	Trailing Side = "trailing"
)

// Padding records synthetic samples injected when the instrument returned
// fewer points than the nominal trace width.  The padded bytes carry no
// signal; Physical renders them as NaN instead of a bogus zero-volt
// reading.  A Padding value describes exactly one transfer and must not
// be reused for another.
type Padding struct {
	// Side is the end of the record the synthetic samples occupy
	Side Side

	// Count is the number of synthetic samples
	Count int
}

// Channel represents a stream of data from an ADC.  To convert to physical
// units, compute (data-offset-reference)*scale
type Channel struct {
	// Data is the raw byte codes from the instrument, one unsigned
	// 8-bit code per sample
	Data []byte

	// Scale is the size of a single DN increment in volts
	Scale float64

	// Offset is the vertical offset applied to the data, in DN
	Offset float64

	// Reference is the reference level for the channel, in DN
	Reference float64

	// Pad, if non-nil, marks samples in Data that are synthetic
	Pad *Padding
}

// Physical computes the data scaled to volts.  Output length always equals
// len(c.Data); padded positions are NaN.
func (c Channel) Physical() []float64 {
	length := len(c.Data)
	ret := make([]float64, length)
	for i := 0; i < length; i++ {
		ret[i] = (float64(c.Data[i]) - c.Offset - c.Reference) * c.Scale
	}
	if c.Pad != nil {
		n := c.Pad.Count
		if n > length {
			n = length
		}
		switch c.Pad.Side {
		case Leading:
			for i := 0; i < n; i++ {
				ret[i] = math.NaN()
			}
		case Trailing:
			for i := length - n; i < length; i++ {
				ret[i] = math.NaN()
			}
		}
	}
	return ret
}

// Waveform describes a waveform recording from a scope
type Waveform struct {
	// DT is the temporal sample spacing in seconds
	DT float64 `json:"dt"`

	// T0 is the time of the first sample relative to the trigger in seconds
	T0 float64 `json:"t0"`

	// Channels holds named data streams
	Channels map[string]Channel `json:"-"`
}

// EncodeCSV converts the waveform data to physical units
// and writes it to a CSV in streaming fashion.  The first column is time;
// channels are ordered by label so output is deterministic.
func (wav *Waveform) EncodeCSV(w io.Writer) error {
	labels := make([]string, 0, len(wav.Channels))
	for k := range wav.Channels {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	data := make([][]float64, len(labels))
	rows := 0
	for j, label := range labels {
		data[j] = wav.Channels[label].Physical()
		if len(data[j]) > rows {
			rows = len(data[j])
		}
	}

	w2 := bufio.NewWriter(w)
	w3 := csv.NewWriter(w2)
	record := append([]string{"time"}, labels...)
	err := w3.Write(record)
	if err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		record[0] = strconv.FormatFloat(wav.T0+float64(i)*wav.DT, 'G', -1, 64)
		for j := 0; j < len(data); j++ {
			if i < len(data[j]) {
				record[j+1] = strconv.FormatFloat(data[j][i], 'G', -1, 64)
			} else {
				record[j+1] = ""
			}
		}
		err := w3.Write(record)
		if err != nil {
			return err
		}
	}
	w3.Flush()
	if err := w3.Error(); err != nil {
		return err
	}
	return w2.Flush()
}
