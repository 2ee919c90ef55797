package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/glox/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// runCLI runs the command with an empty config file so no glox.yaml from
// the surrounding directories is picked up
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	cfgPath := writeFile(t, t.TempDir(), "glox.yaml", "")
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", cfgPath}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"--trace", "-print-code", "--log-level=debug", "--config", "c.yaml", "main.lox"})
	require.NoError(t, err)
	assert.Equal(t, "main.lox", opts.script)
	assert.Equal(t, "c.yaml", opts.configPath)
	assert.Equal(t, "debug", opts.logLevel)
	require.NotNil(t, opts.trace)
	require.NotNil(t, opts.printCode)
	assert.True(t, *opts.trace)
	assert.Nil(t, opts.stressGC)
	assert.Nil(t, opts.logGC)

	opts, err = parseArgs(nil)
	require.NoError(t, err)
	assert.Empty(t, opts.script)
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"two scripts", []string{"a.lox", "b.lox"}, "more than one script"},
		{"unknown flag", []string{"--fast"}, "unknown option --fast"},
		{"missing value", []string{"--config"}, "--config needs a value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArgs(tt.args)
			require.ErrorIs(t, err, errUsage)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_File(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		source string
		code   int
		stdout string
		stderr string
	}{
		{"ok", "print 1 + 2;", config.ExitOK, "3\n", ""},
		{"compile error", "print ;", config.ExitCompileError, "", "[line 1] Error at ';': Expect expression.\n"},
		{"runtime error", "print \"a\";\nprint -nil;", config.ExitRuntimeError, "a\n",
			"Operand must be a number.\n[line 2] in script\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+config.SourceFileExt, tt.source)
			code, stdout, stderr := runCLI(t, "", path)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.stdout, stdout)
			assert.Equal(t, tt.stderr, stderr)
		})
	}
}

func TestRun_ExitCodes(t *testing.T) {
	code, _, stderr := runCLI(t, "", filepath.Join(t.TempDir(), "missing.lox"))
	assert.Equal(t, config.ExitIOError, code)
	assert.Contains(t, stderr, "Could not open file")

	code, _, stderr = runCLI(t, "", "a.lox", "b.lox")
	assert.Equal(t, config.ExitUsage, code)
	assert.Contains(t, stderr, "Usage: glox")

	code, stdout, _ := runCLI(t, "", "--help")
	assert.Equal(t, config.ExitOK, code)
	assert.Contains(t, stdout, "--stress-gc")

	code, _, stderr = runCLI(t, "", "--log-level", "loud")
	assert.Equal(t, config.ExitUsage, code)
	assert.Contains(t, stderr, "log.level")
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "glox.yaml", "debug:\n  print_code: true\nrepl:\n  prompt: \"lox> \"\n")
	script := writeFile(t, dir, "main.lox", "print 1;")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", cfgPath, script}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, config.ExitOK, code)
	assert.Contains(t, stdout.String(), "== <script> ==")
	assert.True(t, strings.HasSuffix(stdout.String(), "1\n"))

	stdout.Reset()
	code = run([]string{"--config", cfgPath}, strings.NewReader("print 2;\n"), &stdout, &stderr)
	assert.Equal(t, config.ExitOK, code)
	assert.Contains(t, stdout.String(), "lox> ")

	bad := writeFile(t, dir, "bad.yaml", "gc:\n  stres: true\n")
	code = run([]string{"--config", bad, script}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, config.ExitUsage, code)
}

func TestRun_Trace(t *testing.T) {
	path := writeFile(t, t.TempDir(), "t.lox", "print nil;")
	code, stdout, _ := runCLI(t, "", "--trace", "--stress-gc", path)
	assert.Equal(t, config.ExitOK, code)
	assert.Contains(t, stdout, "          [ <script> ]\n0000    1 NIL\n")
	assert.True(t, strings.HasSuffix(stdout, "nil\n"))
}

func TestREPL(t *testing.T) {
	input := strings.Join([]string{
		"var a = 1;",
		"",
		"print a + b;",
		"print ;",
		"var b = 2;",
		"print a + b;",
	}, "\n")

	code, stdout, stderr := runCLI(t, input)
	assert.Equal(t, config.ExitOK, code)

	// one prompt per line plus the final one answered by end of input
	assert.Equal(t, strings.Repeat("> ", 6)+"3\n"+"> \n", stdout)
	assert.Equal(t, "Undefined variable 'b'.\n[line 1] in script\n"+
		"[line 1] Error at ';': Expect expression.\n", stderr)
}

func TestColorWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &colorWriter{w: &buf, color: colorRed}
	n, err := w.Write([]byte("oops\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, colorRed+"oops"+colorReset+"\n", buf.String())

	// Buffers are not terminals.
	assert.Equal(t, &buf, diagnosticWriter(&buf))
}
