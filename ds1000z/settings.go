package ds1000z

import "fmt"

// ProbeRatio returns the probe attenuation ratio for a channel
func (s *Scope) ProbeRatio(ch Channel) (float64, error) {
	return s.ReadFloat(ch.root() + ":PROBe?")
}

// SetProbeRatio sets the probe attenuation ratio for a channel, snapped
// to the nearest hardware-legal value
func (s *Scope) SetProbeRatio(ch Channel, ratio float64) error {
	ratio = snap(ratio, s.probeLadder())
	return s.Write(fmt.Sprintf("%s:PROBe %G", ch.root(), ratio))
}

// ChannelScale returns the vertical scale of a channel in volts per division
func (s *Scope) ChannelScale(ch Channel) (float64, error) {
	return s.ReadFloat(ch.root() + ":SCALe?")
}

// SetChannelScale sets the vertical scale of a channel in volts per
// division, snapped to the nearest hardware-legal value
func (s *Scope) SetChannelScale(ch Channel, voltsPerDiv float64) error {
	voltsPerDiv = snap(voltsPerDiv, s.scaleLadder())
	return s.Write(fmt.Sprintf("%s:SCALe %G", ch.root(), voltsPerDiv))
}

// ChannelOffset returns the vertical offset of a channel in volts
func (s *Scope) ChannelOffset(ch Channel) (float64, error) {
	return s.ReadFloat(ch.root() + ":OFFSet?")
}

// SetChannelOffset sets the vertical offset of a channel in volts
func (s *Scope) SetChannelOffset(ch Channel, volts float64) error {
	return s.Write(fmt.Sprintf("%s:OFFSet %E", ch.root(), volts))
}

// TimebaseScale returns the main timebase scale in seconds per division
func (s *Scope) TimebaseScale() (float64, error) {
	return s.ReadFloat(":TIMebase:MAIN:SCALe?")
}

// SetTimebaseScale sets the main timebase scale in seconds per division,
// snapped to the nearest hardware-legal value
func (s *Scope) SetTimebaseScale(secondsPerDiv float64) error {
	secondsPerDiv = snap(secondsPerDiv, s.timebaseLadder())
	return s.Write(fmt.Sprintf(":TIMebase:MAIN:SCALe %G", secondsPerDiv))
}

// TimebaseOffset returns the main timebase offset in seconds
func (s *Scope) TimebaseOffset() (float64, error) {
	return s.ReadFloat(":TIMebase:MAIN:OFFSet?")
}

// SetTimebaseOffset sets the main timebase offset in seconds
func (s *Scope) SetTimebaseOffset(seconds float64) error {
	return s.Write(fmt.Sprintf(":TIMebase:MAIN:OFFSet %E", seconds))
}
