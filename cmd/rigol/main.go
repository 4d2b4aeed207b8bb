// Command rigol talks to Rigol DS1000Z series oscilloscopes from the
// command line, over the LAN interface or the rear USB device port.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/oscilab/ds1000z/discovery"
	"github.com/oscilab/ds1000z/ds1000z"
	"github.com/oscilab/ds1000z/usbtmc"
)

// Version is the version number.  Typically injected via ldflags with git build
var Version = "1"

func usage() {
	str := `rigol controls Rigol DS1000Z series oscilloscopes

Usage:
	rigol <command> [flags]

Commands:
	discover     list scopes found on the local network
	info         print the scope's *IDN? fields
	cmd          send a raw SCPI command, printing the reply for queries
	run          start acquisition
	stop         halt acquisition
	single       arm a single-shot trigger
	tforce       force a trigger event
	measure      run a single measurement
	settings     print (and optionally change) timebase settings
	save-data    save displayed channel waveforms to a CSV file
	save-screen  save the display as a BMP image
	shell        interactive SCPI shell
	version
	help

Most commands accept -device with a host, host:port, or "usb".  When
-device is omitted, a single scope is discovered on the network.`
	fmt.Println(str)
}

// deviceFlags is the flag surface shared by every command that talks
// to a scope
type deviceFlags struct {
	device  string
	verbose bool
}

func (d *deviceFlags) install(fs *flag.FlagSet) {
	fs.StringVar(&d.device, "device", "", "host, host:port, or usb; omit to auto-discover")
	fs.BoolVar(&d.verbose, "v", false, "verbose output")
}

// scope resolves the device flag to a connected driver
func (d *deviceFlags) scope() *ds1000z.Scope {
	if strings.EqualFold(d.device, "usb") {
		return ds1000z.NewScopeFromMaker(usbtmc.ConnMaker(usbtmc.VendorRigol, usbtmc.ProductDS1000Z))
	}
	if d.device != "" {
		return ds1000z.NewScope(d.device)
	}
	devs, err := discovery.Devices(context.Background(), 0)
	if err != nil {
		log.Fatalf("discovery failed: %v", err)
	}
	switch len(devs) {
	case 0:
		log.Fatal("could not discover any device on the network, use -device")
	case 1:
		if d.verbose {
			fmt.Printf("found a scope: %s @ %s\n", devs[0].Model, devs[0].IP)
		}
	default:
		fmt.Println("discovered multiple devices on the network:")
		for _, dev := range devs {
			fmt.Printf("%s %s\n", dev.Model, dev.IP)
		}
		log.Fatal("use -device to choose one")
	}
	return ds1000z.NewScope(devs[0].IP)
}

func discover(args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	verbose := fs.Bool("v", false, "verbose output")
	fs.Parse(args)
	devs, err := discovery.Devices(context.Background(), 0)
	if err != nil {
		log.Fatal(err)
	}
	for _, dev := range devs {
		if *verbose {
			fmt.Printf("found a %s with the IP address %s\n", dev.Model, dev.IP)
		} else {
			fmt.Println(dev.IP)
		}
	}
}

func info(args []string) {
	var d deviceFlags
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	d.install(fs)
	fs.Parse(args)
	id, err := d.scope().Identity()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nVendor:   %s\nProduct:  %s\nSerial:   %s\nFirmware: %s\n",
		id.Vendor, id.Model, id.Serial, id.Firmware)
}

func rawCmd(args []string) {
	var d deviceFlags
	fs := flag.NewFlagSet("cmd", flag.ExitOnError)
	d.install(fs)
	fs.Parse(args)
	if fs.NArg() != 1 {
		log.Fatal("cmd requires exactly one SCPI command argument")
	}
	command := fs.Arg(0)
	s := d.scope()
	if strings.Contains(command, "?") {
		resp, err := s.Raw(command)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(strings.TrimSpace(resp))
		return
	}
	if err := s.SCPI.Write(command); err != nil {
		log.Fatal(err)
	}
}

func trigger(name string, fcn func(*ds1000z.Scope) error, args []string) {
	var d deviceFlags
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	d.install(fs)
	fs.Parse(args)
	if err := fcn(d.scope()); err != nil {
		log.Fatal(err)
	}
}

func measure(args []string) {
	var d deviceFlags
	fs := flag.NewFlagSet("measure", flag.ExitOnError)
	d.install(fs)
	channel := fs.Int("c", 1, "channel number, 1-4")
	kind := fs.String("t", "CURRent", "statistic: CURRent, MAXimum, MINimum, AVERages, DEViation")
	fs.Parse(args)
	if fs.NArg() != 1 {
		log.Fatal("measure requires an item argument, e.g. vpp, vavg, frequency")
	}
	ch, err := ds1000z.ChannelByIndex(*channel)
	if err != nil {
		log.Fatal(err)
	}
	v, err := d.scope().Measurement(ch, measureItem(fs.Arg(0)), *kind)
	if err != nil {
		log.Fatal(err)
	}
	if v != nil {
		fmt.Println(*v)
	}
}

// measureItem maps friendly names to the measurement item mnemonics
func measureItem(item string) string {
	switch strings.ToLower(item) {
	case "frequency":
		return "FREQ"
	case "period":
		return "PERiod"
	case "overshoot":
		return "OVERshoot"
	case "preshoot":
		return "PREShoot"
	}
	return item
}

func settings(args []string) {
	var d deviceFlags
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	d.install(fs)
	timebase := fs.Float64("timebase", 0, "set the timebase scale, seconds per division")
	tbOffset := fs.Float64("timebase-offset", 0, "set the timebase offset, seconds")
	fs.Parse(args)
	s := d.scope()
	if *timebase != 0 {
		if err := s.SetTimebaseScale(*timebase); err != nil {
			log.Fatal(err)
		}
	}
	if *tbOffset != 0 {
		if err := s.SetTimebaseOffset(*tbOffset); err != nil {
			log.Fatal(err)
		}
	}
	rate, err := s.SampleRate()
	if err != nil {
		log.Fatal(err)
	}
	scale, err := s.TimebaseScale()
	if err != nil {
		log.Fatal(err)
	}
	offset, err := s.TimebaseOffset()
	if err != nil {
		log.Fatal(err)
	}
	shown, err := s.DisplayedChannels()
	if err != nil {
		log.Fatal(err)
	}
	labels := make([]string, len(shown))
	for i, ch := range shown {
		labels[i] = string(ch)
	}
	fmt.Printf("sample_rate=%G\n", rate)
	fmt.Printf("timebase_scale=%G\n", scale)
	fmt.Printf("timebase_offset=%G\n", offset)
	fmt.Printf("displayed_channels=%s\n", strings.Join(labels, ","))
	if d.verbose {
		for _, ch := range shown {
			sc, err := s.ChannelScale(ch)
			if err != nil {
				log.Fatal(err)
			}
			off, err := s.ChannelOffset(ch)
			if err != nil {
				log.Fatal(err)
			}
			ratio, err := s.ProbeRatio(ch)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("  %s: scale=%GV/div offset=%GV probe=%G\n", ch, sc, off, ratio)
		}
	}
}

func saveScreen(args []string) {
	var d deviceFlags
	fs := flag.NewFlagSet("save-screen", flag.ExitOnError)
	d.install(fs)
	filename := fs.String("f", "", "output filename; {ts} expands to a timestamp")
	fs.Parse(args)
	fmtStr := *filename
	if fmtStr == "" {
		fmtStr = "rigol-scope-display_{ts}.bmp"
	}
	name := expandTimestamp(fmtStr)
	img, err := d.scope().DisplayData()
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(name, img, 0644); err != nil {
		log.Fatal(err)
	}
	if d.verbose {
		fmt.Println("saved file:", name)
	} else {
		fmt.Println(name)
	}
}

func expandTimestamp(format string) string {
	ts := time.Now().Format("2006-01-02_15-04-05")
	return strings.ReplaceAll(format, "{ts}", ts)
}

func main() {
	args := os.Args
	if len(args) == 1 {
		usage()
		return
	}
	cmd := strings.ToLower(args[1])
	rest := args[2:]
	switch cmd {
	case "help":
		usage()
	case "version":
		fmt.Printf("rigol version %v\n", Version)
	case "discover":
		discover(rest)
	case "info":
		info(rest)
	case "cmd":
		rawCmd(rest)
	case "run":
		trigger(cmd, (*ds1000z.Scope).Run, rest)
	case "stop":
		trigger(cmd, (*ds1000z.Scope).Stop, rest)
	case "single":
		trigger(cmd, (*ds1000z.Scope).Single, rest)
	case "tforce":
		trigger(cmd, (*ds1000z.Scope).ForceTrigger, rest)
	case "measure":
		measure(rest)
	case "settings":
		settings(rest)
	case "save-data":
		saveData(rest)
	case "save-screen":
		saveScreen(rest)
	case "shell":
		shell(rest)
	default:
		log.Fatal("unknown command")
	}
}
