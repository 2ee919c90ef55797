package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/funvibe/glox/internal/config"
	"github.com/funvibe/glox/internal/vm"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("GLOX_DEBUG") == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(config.ExitRuntimeError)
		}
	}()

	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprint(stderr, usage)
		return config.ExitUsage
	}
	if opts.help {
		fmt.Fprint(stdout, usage)
		return config.ExitOK
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return config.ExitUsage
	}

	logger, err := config.NewLoggerTo(stderr, cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return config.ExitUsage
	}
	log := logger.WithField("session", uuid.New().String())

	vmOpts := vm.OptionsFromConfig(cfg, log)
	vmOpts.Stdout = stdout
	vmOpts.Stderr = diagnosticWriter(stderr)
	machine := vm.New(vmOpts)

	if opts.script == "" {
		return runREPL(machine, cfg, log, stdin, stdout)
	}
	return runFile(machine, opts.script, log, stderr)
}

// loadConfig reads the explicit or discovered config file and applies the
// command-line overrides on top of it
func loadConfig(opts *cliOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		wd, err := os.Getwd()
		if err == nil {
			path, err = config.FindConfig(wd)
		}
		if err != nil {
			return nil, err
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if opts.printCode != nil {
		cfg.Debug.PrintCode = *opts.printCode
	}
	if opts.trace != nil {
		cfg.Debug.TraceExecution = *opts.trace
	}
	if opts.stressGC != nil {
		cfg.GC.Stress = *opts.stressGC
	}
	if opts.logGC != nil {
		cfg.GC.Log = *opts.logGC
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func runFile(machine *vm.VM, path string, log logrus.FieldLogger, stderr io.Writer) int {
	source, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Debug("read script")
		fmt.Fprintf(stderr, "Could not open file \"%s\".\n", path)
		return config.ExitIOError
	}

	log.WithField("path", path).Debug("run file")
	result, _ := machine.Interpret(string(source))
	return exitCode(result)
}

func exitCode(result vm.InterpretResult) int {
	switch result {
	case vm.InterpretCompileError:
		return config.ExitCompileError
	case vm.InterpretRuntimeError:
		return config.ExitRuntimeError
	default:
		return config.ExitOK
	}
}

const (
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// diagnosticWriter colours diagnostics red when w is a terminal
func diagnosticWriter(w io.Writer) io.Writer {
	f, ok := w.(*os.File)
	if !ok {
		return w
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return w
	}
	return &colorWriter{w: w, color: colorRed}
}

type colorWriter struct {
	w     io.Writer
	color string
}

func (c *colorWriter) Write(p []byte) (int, error) {
	text := strings.TrimSuffix(string(p), "\n")
	newline := ""
	if len(text) < len(p) {
		newline = "\n"
	}
	if _, err := io.WriteString(c.w, c.color+text+colorReset+newline); err != nil {
		return 0, err
	}
	return len(p), nil
}

// isTerminal reports whether r is an interactive terminal
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
