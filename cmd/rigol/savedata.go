package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theckman/yacspin"

	"github.com/oscilab/ds1000z/ds1000z"
)

func saveData(args []string) {
	var d deviceFlags
	fs := flag.NewFlagSet("save-data", flag.ExitOnError)
	d.install(fs)
	filename := fs.String("f", "rigol-scope-values_{ts}.csv", "output filename; {ts} expands to a timestamp")
	mode := fs.String("mode", string(ds1000z.ModeNormal), "waveform mode: NORMal, MAXimum, or RAW")
	fs.Parse(args)

	name := expandTimestamp(*filename)
	if ext := filepath.Ext(name); !strings.EqualFold(ext, ".csv") {
		log.Fatalf("cannot handle the file type %q, use a .csv filename", ext)
	}

	s := d.scope()
	shown, err := s.DisplayedChannels()
	if err != nil {
		log.Fatal(err)
	}
	if len(shown) == 0 {
		log.Fatal("no channels are displayed, nothing to save")
	}
	labels := make([]string, len(shown))
	for i, ch := range shown {
		labels[i] = string(ch)
	}

	// a RAW transfer of deep memory takes tens of seconds, show progress
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[14],
		Suffix:          " downloading " + strings.Join(labels, ", "),
		SuffixAutoColon: true,
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	})
	if err == nil {
		spinner.Start()
	}

	wav, err := s.AcquireWaveform(labels, *mode)
	if spinner != nil {
		if err != nil {
			spinner.StopFail()
		} else {
			spinner.Stop()
		}
	}
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(name)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := wav.EncodeCSV(f); err != nil {
		log.Fatal(err)
	}
	if d.verbose {
		fmt.Println("saved file:", name)
	} else {
		fmt.Println(name)
	}
}
