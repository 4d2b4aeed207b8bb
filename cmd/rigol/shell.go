package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/oscilab/ds1000z/ds1000z"
)

const shellHowto = `Enter a SCPI command.  Commands containing a "?" are queries and
their reply is printed.  Type exit or quit (or hit Ctrl-D) to leave.`

func shell(args []string) {
	var d deviceFlags
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	d.install(fs)
	fs.Parse(args)
	s := d.scope()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	var historyFile string
	usr, err := user.Current()
	// only load history if we can get the user
	if err == nil {
		historyFile = filepath.Join(usr.HomeDir, ".rigol_history")
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Println(shellHowto)
	fmt.Println("> *IDN?")
	if resp, err := s.Raw("*IDN?"); err == nil {
		fmt.Println(strings.TrimSpace(resp))
	} else {
		log.Fatal(err)
	}

	for {
		cmd, err := line.Prompt("> ")
		if err != nil {
			break
		}
		if !execShellCommand(s, cmd) {
			break
		}
		if strings.TrimSpace(cmd) != "" {
			line.AppendHistory(cmd)
		}
	}

	if historyFile != "" {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
	fmt.Println("exiting...")
}

// execShellCommand runs one shell line, returning false on exit
func execShellCommand(s *ds1000z.Scope, cmd string) bool {
	cmd = strings.TrimSpace(cmd)
	switch {
	case cmd == "":
	case cmd == "exit" || cmd == "quit":
		return false
	case strings.Contains(cmd, "?"):
		resp, err := s.Raw(cmd)
		if err != nil {
			fmt.Println("no response from the scope, bad cmd?")
			break
		}
		fmt.Println(strings.TrimSpace(resp))
	default:
		if err := s.SCPI.Write(cmd); err != nil {
			fmt.Println("error:", err)
		}
	}
	return true
}
