package ds1000z

import (
	"fmt"
	"strconv"

	"github.com/oscilab/ds1000z/oscilloscope"
)

const (
	// maxChunkPoints bounds a single :WAVeform:DATA? transfer; the
	// instrument misbehaves on larger windows
	maxChunkPoints = 250000

	// screenPoints is the fixed width of the display trace
	screenPoints = 1200
)

// WaveformBytes retrieves the raw byte codes for a channel.  ModeNormal
// reads the display trace, ModeRaw the internal memory (stopping
// acquisition first if it is running), and ModeMaximum picks the display
// trace while running and the internal memory otherwise.  The returned
// padding, when non-nil, marks synthetic zero bytes injected because the
// trace did not span the full screen; it belongs to this transfer only
// and should be passed directly to ToVoltages.
func (s *Scope) WaveformBytes(ch Channel, mode Mode) ([]byte, *oscilloscope.Padding, error) {
	switch mode {
	case ModeNormal:
		return s.fetchScreen(ch)
	case ModeRaw:
		running, err := s.IsRunning()
		if err != nil {
			return nil, nil, err
		}
		if running {
			if err := s.Stop(); err != nil {
				return nil, nil, err
			}
		}
		data, err := s.fetchMemory(ch)
		return data, nil, err
	case ModeMaximum:
		running, err := s.IsRunning()
		if err != nil {
			return nil, nil, err
		}
		if running {
			return s.fetchScreen(ch)
		}
		data, err := s.fetchMemory(ch)
		return data, nil, err
	}
	return nil, nil, fmt.Errorf("unrecognized waveform mode %q", mode)
}

// selectSource points the waveform subsystem at ch with byte encoding
func (s *Scope) selectSource(ch Channel, mode Mode) error {
	if err := s.Write(":WAVeform:SOURce", string(ch)); err != nil {
		return err
	}
	if err := s.Write(":WAVeform:FORMat", "BYTE"); err != nil {
		return err
	}
	return s.Write(":WAVeform:MODE", string(mode))
}

// fetchMemory reads the full internal memory record for ch in bounded
// sub-range transfers.  Partial accumulations are never returned; any
// failure discards the buffer.
func (s *Scope) fetchMemory(ch Channel) ([]byte, error) {
	if err := s.selectSource(ch, ModeRaw); err != nil {
		return nil, err
	}
	pre, err := s.Preamble()
	if err != nil {
		return nil, err
	}
	pnts := pre.Points
	buf := make([]byte, 0, pnts)
	for start := 1; len(buf) < pnts; {
		stop := start + maxChunkPoints - 1
		if stop > pnts {
			stop = pnts
		}
		if err := s.Write(":WAVeform:STARt", strconv.Itoa(start)); err != nil {
			return nil, err
		}
		if err := s.Write(":WAVeform:STOP", strconv.Itoa(stop)); err != nil {
			return nil, err
		}
		chunk, err := s.ReadBlock(":WAVeform:DATA?")
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			return nil, &IncompleteTransferError{Channel: ch, Got: len(buf), Want: pnts}
		}
		buf = append(buf, chunk...)
		start = stop + 1
	}
	if len(buf) > pnts {
		buf = buf[:pnts]
	}
	return buf, nil
}

// fetchScreen reads the display trace for ch.  With acquisition stopped
// and the trace scrolled, the record can be narrower than the screen; in
// that case the side the missing samples lie on is detected by writing
// an out-of-range start index followed by start=1 and reading back what
// the instrument accepted — a clamp away from 1 means the deficit is on
// the leading side.  The missing side is padded with zero bytes and
// reported in the returned padding record.
//
// The clamp probe is inherently racy against the front panel or another
// session changing waveform settings between the writes; the instrument
// offers no way to guard against that.
func (s *Scope) fetchScreen(ch Channel) ([]byte, *oscilloscope.Padding, error) {
	if err := s.selectSource(ch, ModeNormal); err != nil {
		return nil, nil, err
	}
	pre, err := s.Preamble()
	if err != nil {
		return nil, nil, err
	}
	pnts := pre.Points
	if pnts >= screenPoints {
		if err := s.Write(":WAVeform:STARt", "1"); err != nil {
			return nil, nil, err
		}
		if err := s.Write(":WAVeform:STOP", strconv.Itoa(screenPoints)); err != nil {
			return nil, nil, err
		}
		data, err := s.ReadBlock(":WAVeform:DATA?")
		if err != nil {
			return nil, nil, err
		}
		return data, nil, nil
	}

	missing := screenPoints - pnts
	if err := s.Write(":WAVeform:STARt", strconv.Itoa(screenPoints)); err != nil {
		return nil, nil, err
	}
	if err := s.Write(":WAVeform:STARt", "1"); err != nil {
		return nil, nil, err
	}
	accepted, err := s.ReadInt(":WAVeform:STARt?")
	if err != nil {
		return nil, nil, err
	}
	pad := oscilloscope.Padding{Side: oscilloscope.Trailing, Count: missing}
	start := 1
	if accepted != 1 {
		pad.Side = oscilloscope.Leading
		start = accepted
	}
	stop := start + pnts - 1
	if err := s.Write(":WAVeform:STARt", strconv.Itoa(start)); err != nil {
		return nil, nil, err
	}
	if err := s.Write(":WAVeform:STOP", strconv.Itoa(stop)); err != nil {
		return nil, nil, err
	}
	data, err := s.ReadBlock(":WAVeform:DATA?")
	if err != nil {
		return nil, nil, err
	}
	if len(data) > pnts {
		data = data[:pnts]
	}
	padded := make([]byte, screenPoints)
	if pad.Side == oscilloscope.Leading {
		copy(padded[screenPoints-len(data):], data)
	} else {
		copy(padded, data)
	}
	return padded, &pad, nil
}

// ToVoltages converts raw byte codes to volts using the preamble's
// vertical calibration: (code - yorigin - yreference) * yincrement.
// Positions covered by pad become NaN; output length equals input
// length.
func ToVoltages(data []byte, pre Preamble, pad *oscilloscope.Padding) []float64 {
	ch := oscilloscope.Channel{
		Data:      data,
		Scale:     pre.YIncrement,
		Offset:    float64(pre.YOrigin),
		Reference: float64(pre.YReference),
		Pad:       pad,
	}
	return ch.Physical()
}

// WaveformSamples retrieves a channel's waveform and converts it to
// volts.  The preamble is fetched fresh after the transfer, while the
// source and mode selected by the fetch are still in effect.
func (s *Scope) WaveformSamples(ch Channel, mode Mode) ([]float64, error) {
	data, pad, err := s.WaveformBytes(ch, mode)
	if err != nil {
		return nil, err
	}
	pre, err := s.Preamble()
	if err != nil {
		return nil, err
	}
	return ToVoltages(data, pre, pad), nil
}

// AcquireWaveform retrieves one or more channels and assembles them into
// a Waveform with a shared time base.  Channels are read strictly in
// sequence; the instrument cannot multiplex sources on one session.
// Channel names and the mode are normalized here at the boundary.
func (s *Scope) AcquireWaveform(channels []string, mode string) (oscilloscope.Waveform, error) {
	var ret oscilloscope.Waveform
	m, err := ParseMode(mode)
	if err != nil {
		return ret, err
	}
	chs := make([]Channel, len(channels))
	for i, raw := range channels {
		ch, err := ParseChannel(raw)
		if err != nil {
			return ret, err
		}
		chs[i] = ch
	}
	ret.Channels = map[string]oscilloscope.Channel{}
	for i, ch := range chs {
		data, pad, err := s.WaveformBytes(ch, m)
		if err != nil {
			return ret, err
		}
		pre, err := s.Preamble()
		if err != nil {
			return ret, err
		}
		if i == 0 {
			ret.DT = pre.XIncrement
			ret.T0 = -float64(pre.XReference)*pre.XIncrement + pre.XOrigin
		}
		ret.Channels[string(ch)] = oscilloscope.Channel{
			Data:      data,
			Scale:     pre.YIncrement,
			Offset:    float64(pre.YOrigin),
			Reference: float64(pre.YReference),
			Pad:       pad,
		}
	}
	return ret, nil
}
