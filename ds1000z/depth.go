package ds1000z

import (
	"strconv"
	"strings"
)

// trigger statuses during which the instrument is acquiring
var liveTriggerStates = map[string]bool{
	"TD":   true,
	"WAIT": true,
	"RUN":  true,
	"AUTO": true,
}

// TriggerStatus returns the raw trigger subsystem status
// (TD, WAIT, RUN, AUTO or STOP)
func (s *Scope) TriggerStatus() (string, error) {
	status, err := s.ReadString(":TRIGger:STATus?")
	return strings.ToUpper(strings.TrimSpace(status)), err
}

// IsRunning reports whether the scope is currently acquiring
func (s *Scope) IsRunning() (bool, error) {
	status, err := s.TriggerStatus()
	if err != nil {
		return false, err
	}
	return liveTriggerStates[status], nil
}

// WaveformMode returns the currently selected waveform read mode
func (s *Scope) WaveformMode() (Mode, error) {
	resp, err := s.ReadString(":WAVeform:MODE?")
	if err != nil {
		return "", err
	}
	return ParseMode(resp)
}

// SetWaveformMode selects the waveform read mode
func (s *Scope) SetWaveformMode(m Mode) error {
	return s.Write(":WAVeform:MODE", string(m))
}

// MemoryDepth returns the number of samples the internal memory holds.
// The instrument's AUTO setting is not itself a usable count; it is
// resolved by temporarily stopping the scope and reading a RAW-mode
// preamble, then restoring the prior state.
func (s *Scope) MemoryDepth() (int, error) {
	resp, err := s.ReadString(":ACQuire:MDEPth?")
	if err != nil {
		return 0, err
	}
	resp = strings.TrimSpace(resp)
	if strings.EqualFold(resp, "AUTO") {
		return s.resolveAutoDepth()
	}
	// firmware reports either an integer or scientific notation
	f, err := strconv.ParseFloat(resp, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// CurrentWaveformDepth returns the number of points a waveform read
// would deliver in the currently selected mode
func (s *Scope) CurrentWaveformDepth() (int, error) {
	pre, err := s.Preamble()
	if err != nil {
		return 0, err
	}
	return pre.Points, nil
}

// resolveAutoDepth walks the ordered sequence that turns AUTO into a
// concrete sample count.  Ordering matters: the mode restore must land
// before the resume, because running the scope resets the read mode;
// and the resume only fires if the snapshot saw the scope running.
func (s *Scope) resolveAutoDepth() (int, error) {
	running, err := s.IsRunning()
	if err != nil {
		return 0, &UnresolvedDepthError{Step: "snapshot-run-state", Err: err}
	}
	mode, err := s.WaveformMode()
	if err != nil {
		return 0, &UnresolvedDepthError{Step: "snapshot-mode", Err: err}
	}
	if running {
		if err := s.Stop(); err != nil {
			return 0, &UnresolvedDepthError{Step: "stop", Err: err}
		}
	}
	switched := false
	if mode == ModeNormal {
		if err := s.SetWaveformMode(ModeRaw); err != nil {
			return 0, &UnresolvedDepthError{Step: "force-raw-mode", Err: err}
		}
		switched = true
	}
	pre, err := s.Preamble()
	if err != nil {
		return 0, &UnresolvedDepthError{Step: "read-preamble", Err: err}
	}
	if switched {
		if err := s.SetWaveformMode(mode); err != nil {
			return 0, &UnresolvedDepthError{Step: "restore-mode", Err: err}
		}
	}
	if running {
		if err := s.Run(); err != nil {
			return 0, &UnresolvedDepthError{Step: "resume", Err: err}
		}
	}
	return pre.Points, nil
}
