package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/funvibe/glox/internal/config"
	"github.com/funvibe/glox/internal/vm"
	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"
)

// lineReader is the part of liner.State the REPL needs
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// scanReader reads lines from a non-interactive input, echoing the prompt
type scanReader struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (s *scanReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

func (s *scanReader) Close() error { return nil }

// runREPL reads one line at a time and interprets each as its own program
// against the same VM, so globals carry over from line to line
func runREPL(machine *vm.VM, cfg *config.Config, log logrus.FieldLogger, stdin io.Reader, stdout io.Writer) int {
	var in lineReader
	var ln *liner.State
	historyPath := ""

	if isTerminal(stdin) {
		ln = liner.NewLiner()
		ln.SetCtrlCAborts(true)
		in = ln

		home, _ := os.UserHomeDir()
		historyPath = cfg.HistoryPath(home)
		loadHistory(ln, historyPath, log)
	} else {
		in = &scanReader{sc: bufio.NewScanner(stdin), out: stdout}
	}
	defer in.Close()

	log.WithField("interactive", ln != nil).Debug("repl start")
	for {
		line, err := in.Prompt(cfg.REPL.Prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Warn("read line")
			}
			fmt.Fprintln(stdout)
			break
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		if ln != nil {
			ln.AppendHistory(line)
		}

		result, _ := machine.Interpret(line)
		log.WithField("result", result).Trace("repl line")
	}

	if ln != nil {
		saveHistory(ln, historyPath, log)
	}
	return config.ExitOK
}

func loadHistory(ln *liner.State, path string, log logrus.FieldLogger) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := ln.ReadHistory(f); err != nil {
		log.WithError(err).Warn("read history")
	}
}

func saveHistory(ln *liner.State, path string, log logrus.FieldLogger) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		log.WithError(err).Warn("write history")
		return
	}
	defer f.Close()
	if _, err := ln.WriteHistory(f); err != nil {
		log.WithError(err).Warn("write history")
	}
}
