package main

import (
	"errors"
	"fmt"
	"strings"
)

var errUsage = errors.New("usage")

const usage = `Usage: glox [options] [script]

Without a script glox starts an interactive session.

Options:
  --config FILE       read configuration from FILE instead of searching for glox.yaml
  --print-code        disassemble each function after it compiles
  --trace             print the stack and each instruction as it executes
  --stress-gc         collect garbage before every allocation
  --log-gc            log every allocation and free
  --log-level LEVEL   log level (panic, fatal, error, warn, info, debug, trace)
  --help              show this help
`

// cliOptions holds what was given on the command line. Pointer fields are
// nil when the flag was absent so the config file value stays in effect.
type cliOptions struct {
	help       bool
	configPath string
	script     string

	printCode *bool
	trace     *bool
	stressGC  *bool
	logGC     *bool
	logLevel  string
}

func parseArgs(args []string) (*cliOptions, error) {
	opts := &cliOptions{}
	on := func(p **bool) {
		t := true
		*p = &t
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// --name=value
		name, value, hasValue := strings.Cut(arg, "=")
		if !strings.HasPrefix(name, "-") {
			if opts.script != "" {
				return nil, fmt.Errorf("%w: more than one script given", errUsage)
			}
			opts.script = arg
			continue
		}
		name = "--" + strings.TrimLeft(name, "-")

		takeValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("%w: %s needs a value", errUsage, name)
			}
			i++
			return args[i], nil
		}

		var err error
		switch name {
		case "--help":
			opts.help = true
		case "--config":
			opts.configPath, err = takeValue()
		case "--log-level":
			opts.logLevel, err = takeValue()
		case "--print-code":
			on(&opts.printCode)
		case "--trace":
			on(&opts.trace)
		case "--stress-gc":
			on(&opts.stressGC)
		case "--log-gc":
			on(&opts.logGC)
		default:
			return nil, fmt.Errorf("%w: unknown option %s", errUsage, arg)
		}
		if err != nil {
			return nil, err
		}
	}
	return opts, nil
}
