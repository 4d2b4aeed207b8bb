package ds1000z

import (
	"errors"
	"testing"
)

func TestMemoryDepthPlainNumber(t *testing.T) {
	c := newScript()
	c.on(":ACQuire:MDEPth?", "6.000000e+05")
	s := scopeWith(c)
	n, err := s.MemoryDepth()
	if err != nil {
		t.Fatal(err)
	}
	if n != 600000 {
		t.Errorf("depth = %d, want 600000", n)
	}
}

func TestMemoryDepthAutoResolution(t *testing.T) {
	c := newScript()
	c.on(":ACQuire:MDEPth?", "AUTO")
	c.on(":TRIGger:STATus?", "RUN")
	c.on(":WAVeform:MODE?", "NORM")
	c.on(":WAVeform:PREamble?", "0,2,12000000,1,1E-9,0,0,4E-2,-75,127")
	s := scopeWith(c)
	n, err := s.MemoryDepth()
	if err != nil {
		t.Fatal(err)
	}
	if n != 12000000 {
		t.Errorf("depth = %d, want 12000000", n)
	}
	// the scope was running, so it must be stopped before the preamble
	// read and resumed afterwards
	stop, ok := c.wrote(":STOP")
	if !ok {
		t.Fatal("scope was never stopped")
	}
	pre, ok := c.wrote(":WAVeform:PREamble?")
	if !ok {
		t.Fatal("preamble never read")
	}
	run, ok := c.wrote(":RUN")
	if !ok {
		t.Fatal("scope was never resumed")
	}
	if !(stop < pre && pre < run) {
		t.Errorf("order stop=%d preamble=%d run=%d", stop, pre, run)
	}
	// mode was NORMal, so it is forced to RAW for the read and the
	// restore lands before the resume (running resets the mode)
	force, ok := c.wrote(":WAVeform:MODE RAW")
	if !ok {
		t.Fatal("mode never forced to RAW")
	}
	restore, ok := c.wrote(":WAVeform:MODE NORMal")
	if !ok {
		t.Fatal("mode never restored")
	}
	if !(force < pre && pre < restore && restore < run) {
		t.Errorf("order force=%d preamble=%d restore=%d run=%d", force, pre, restore, run)
	}
}

func TestMemoryDepthAutoStoppedScopeStaysStopped(t *testing.T) {
	c := newScript()
	c.on(":ACQuire:MDEPth?", "AUTO")
	c.on(":TRIGger:STATus?", "STOP")
	c.on(":WAVeform:MODE?", "RAW")
	c.on(":WAVeform:PREamble?", "0,2,3000000,1,1E-9,0,0,4E-2,-75,127")
	s := scopeWith(c)
	n, err := s.MemoryDepth()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3000000 {
		t.Errorf("depth = %d, want 3000000", n)
	}
	if _, ok := c.wrote(":STOP"); ok {
		t.Error("stopped scope should not be stopped again")
	}
	if _, ok := c.wrote(":RUN"); ok {
		t.Error("stopped scope must not be resumed")
	}
	if _, ok := c.wrote(":WAVeform:MODE RAW"); ok {
		t.Error("mode already RAW, no switch expected")
	}
}

func TestMemoryDepthAutoFailureNamesStep(t *testing.T) {
	c := newScript()
	c.on(":ACQuire:MDEPth?", "AUTO")
	c.on(":TRIGger:STATus?", "STOP")
	// no reply scripted for :WAVeform:MODE? -> the read fails
	s := scopeWith(c)
	_, err := s.MemoryDepth()
	if err == nil {
		t.Fatal("expected an error")
	}
	var ue *UnresolvedDepthError
	if !errors.As(err, &ue) {
		t.Fatalf("error type %T", err)
	}
	if ue.Step != "snapshot-mode" {
		t.Errorf("step = %q", ue.Step)
	}
	if ue.Unwrap() == nil {
		t.Error("cause not preserved")
	}
}

func TestCurrentWaveformDepth(t *testing.T) {
	c := newScript()
	c.on(":WAVeform:PREamble?", "0,0,1200,1,1E-6,0,0,4E-2,-75,127")
	s := scopeWith(c)
	n, err := s.CurrentWaveformDepth()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1200 {
		t.Errorf("depth = %d, want 1200", n)
	}
}
